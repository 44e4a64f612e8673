package handler

import (
	billingapp "github.com/commerce/backoffice/internal/application/billing"
	"github.com/gin-gonic/gin"
)

// BillingHandler handles vendor billing endpoints
type BillingHandler struct {
	BaseHandler
	billingService *billingapp.BillingService
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(billingService *billingapp.BillingService) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
	}
}

// GetByName returns one vendor billing
//
//	GET /billings/:name
func (h *BillingHandler) GetByName(c *gin.Context) {
	billing, err := h.billingService.GetByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, billing)
}

// Transition moves a billing through its workflow.
// transition is one of confirm, approve, draft, cancel or done.
//
//	POST /billings/:name/:transition
func (h *BillingHandler) Transition(c *gin.Context) {
	billing, err := h.billingService.Transition(c.Request.Context(), c.Param("name"), c.Param("transition"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, billing)
}

// MarkPayment records the payment state reported by accounting
//
//	POST /billings/:name/payment
func (h *BillingHandler) MarkPayment(c *gin.Context) {
	var req billingapp.MarkPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	billing, err := h.billingService.MarkPayment(c.Request.Context(), c.Param("name"), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, billing)
}
