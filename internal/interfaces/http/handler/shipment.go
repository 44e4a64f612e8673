package handler

import (
	inventoryapp "github.com/commerce/backoffice/internal/application/inventory"
	"github.com/gin-gonic/gin"
)

// ShipmentHandler handles vendor shipment endpoints
type ShipmentHandler struct {
	BaseHandler
	shipmentService *inventoryapp.ShipmentService
}

// NewShipmentHandler creates a new ShipmentHandler
func NewShipmentHandler(shipmentService *inventoryapp.ShipmentService) *ShipmentHandler {
	return &ShipmentHandler{
		shipmentService: shipmentService,
	}
}

// Register records a received stock lot and opens it for allocation
//
//	POST /shipments
func (h *ShipmentHandler) Register(c *gin.Context) {
	var req inventoryapp.RegisterShipmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	shipment, err := h.shipmentService.Register(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, shipment)
}

// GetByNumber returns one shipment with its remaining stock
//
//	GET /shipments/:number
func (h *ShipmentHandler) GetByNumber(c *gin.Context) {
	number, ok := h.pathNumber(c, "number")
	if !ok {
		return
	}

	shipment, err := h.shipmentService.GetByNumber(c.Request.Context(), number)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, shipment)
}
