package handler

import (
	"github.com/commerce/backoffice/internal/interfaces/http/router"
)

// OrderRoutes creates the route group for order intake and progress
func OrderRoutes(h *OrderHandler) *router.DomainGroup {
	group := router.NewDomainGroup("orders", "/orders")

	group.POST("/intake", h.Intake)
	group.GET("/:number", h.GetByNumber)

	// Fulfillment progress
	group.POST("/:number/groups/:groupId/events", h.ReportEvent)
	group.GET("/:number/next-actions", h.NextActions)
	group.POST("/:number/reserved", h.ResolveReserved)
	group.POST("/:number/cancel", h.Cancel)

	// Vendor billings of the order
	group.GET("/:number/billings", h.ListBillings)
	group.POST("/:number/billings", h.GenerateBillings)

	return group
}

// BillingRoutes creates the route group for vendor billings
func BillingRoutes(h *BillingHandler) *router.DomainGroup {
	group := router.NewDomainGroup("billings", "/billings")

	group.GET("/:name", h.GetByName)
	group.POST("/:name/payment", h.MarkPayment)
	group.POST("/:name/:transition", h.Transition)

	return group
}

// ShipmentRoutes creates the route group for vendor shipments
func ShipmentRoutes(h *ShipmentHandler) *router.DomainGroup {
	group := router.NewDomainGroup("shipments", "/shipments")

	group.POST("", h.Register)
	group.GET("/:number", h.GetByNumber)

	return group
}

// SystemRoutes creates the route group for system endpoints
func SystemRoutes(h *SystemHandler) *router.DomainGroup {
	group := router.NewDomainGroup("system", "/system")

	group.GET("/info", h.GetSystemInfo)
	group.GET("/ping", h.Ping)

	return group
}
