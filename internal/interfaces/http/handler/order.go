package handler

import (
	billingapp "github.com/commerce/backoffice/internal/application/billing"
	tradeapp "github.com/commerce/backoffice/internal/application/trade"
	"github.com/commerce/backoffice/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderHandler handles order intake and order progress endpoints
type OrderHandler struct {
	BaseHandler
	intakeService   *tradeapp.IntakeService
	progressService *tradeapp.ProgressService
	billingService  *billingapp.BillingService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(
	intakeService *tradeapp.IntakeService,
	progressService *tradeapp.ProgressService,
	billingService *billingapp.BillingService,
) *OrderHandler {
	return &OrderHandler{
		intakeService:   intakeService,
		progressService: progressService,
		billingService:  billingService,
	}
}

// NextActionsQuery selects the role next actions are computed for
type NextActionsQuery struct {
	Role string `form:"role" binding:"required,oneof=ADMIN SELLER_ADMIN SELLER_USER USER"`
}

// Intake ingests a channel order.
// A new order is answered with 201; a duplicate or an unknown canceled order with 200 and skipped=true.
//
//	POST /orders/intake
func (h *OrderHandler) Intake(c *gin.Context) {
	var req tradeapp.IntakeOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.intakeService.Intake(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	if result.Skipped {
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}

// GetByNumber returns one order
//
//	GET /orders/:number
func (h *OrderHandler) GetByNumber(c *gin.Context) {
	number, ok := h.pathNumber(c, "number")
	if !ok {
		return
	}

	order, err := h.progressService.GetByNumber(c.Request.Context(), number)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, order)
}

// ReportEvent records a fulfillment event on a shipping group
//
//	POST /orders/:number/groups/:groupId/events
func (h *OrderHandler) ReportEvent(c *gin.Context) {
	number, ok := h.pathNumber(c, "number")
	if !ok {
		return
	}
	groupID, err := uuid.Parse(c.Param("groupId"))
	if err != nil {
		h.BadRequest(c, "Invalid group ID format")
		return
	}

	var req tradeapp.ReportEventRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.progressService.ReportEvent(c.Request.Context(), number, groupID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, order)
}

// NextActions lists the next step of every shipping group for a role
//
//	GET /orders/:number/next-actions?role=SELLER_ADMIN
func (h *OrderHandler) NextActions(c *gin.Context) {
	number, ok := h.pathNumber(c, "number")
	if !ok {
		return
	}

	var query NextActionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	actions, err := h.progressService.NextActions(c.Request.Context(), number, query.Role)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithTotal(c, actions, len(actions))
}

// ResolveReserved approves or rejects a reserved order
//
//	POST /orders/:number/reserved
func (h *OrderHandler) ResolveReserved(c *gin.Context) {
	number, ok := h.pathNumber(c, "number")
	if !ok {
		return
	}

	var req tradeapp.ResolveReservedRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.progressService.ResolveReserved(c.Request.Context(), number, *req.Approved)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, order)
}

// Cancel cancels an order
//
//	POST /orders/:number/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	number, ok := h.pathNumber(c, "number")
	if !ok {
		return
	}

	var req tradeapp.CancelOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.progressService.Cancel(c.Request.Context(), number, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, order)
}

// GenerateBillings regenerates the vendor billings of an order.
// Running it twice leaves the billings unchanged.
//
//	POST /orders/:number/billings
func (h *OrderHandler) GenerateBillings(c *gin.Context) {
	number, ok := h.pathNumber(c, "number")
	if !ok {
		return
	}

	result, err := h.intakeService.GenerateBillings(c.Request.Context(), number)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// ListBillings lists the vendor billings of an order
//
//	GET /orders/:number/billings
func (h *OrderHandler) ListBillings(c *gin.Context) {
	number, ok := h.pathNumber(c, "number")
	if !ok {
		return
	}

	billings, err := h.billingService.ListByOrder(c.Request.Context(), number)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithTotal(c, billings, len(billings))
}
