package inventory

import (
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeShipment = "Shipment"

// Event type constants
const (
	EventTypeShipmentRegistered = "ShipmentRegistered"
	EventTypeShipmentStockSold  = "ShipmentStockSold"
	EventTypeShipmentClosed     = "ShipmentClosed"
	EventTypeShipmentReleased   = "ShipmentStockReleased"
)

// ShipmentRegisteredEvent is raised when a vendor stock lot is recorded
type ShipmentRegisteredEvent struct {
	shared.BaseDomainEvent
	ShipmentNumber int64           `json:"shipment_number"`
	SellerID       int64           `json:"seller_id"`
	TotalPurchased decimal.Decimal `json:"total_purchased"`
}

// NewShipmentRegisteredEvent creates a new ShipmentRegisteredEvent
func NewShipmentRegisteredEvent(s *Shipment) *ShipmentRegisteredEvent {
	return &ShipmentRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentRegistered, AggregateTypeShipment, s.ID),
		ShipmentNumber:  s.ShipmentNumber,
		SellerID:        s.SellerID,
		TotalPurchased:  s.TotalPurchased,
	}
}

// EventType returns the event type name
func (e *ShipmentRegisteredEvent) EventType() string {
	return EventTypeShipmentRegistered
}

// ShipmentStockSoldEvent is raised when an order line is allocated against a shipment
type ShipmentStockSoldEvent struct {
	shared.BaseDomainEvent
	ShipmentNumber int64           `json:"shipment_number"`
	SellerID       int64           `json:"seller_id"`
	SKU            string          `json:"sku"`
	Quantity       decimal.Decimal `json:"quantity"`
	QtyAvailable   decimal.Decimal `json:"qty_available"`
}

// NewShipmentStockSoldEvent creates a new ShipmentStockSoldEvent
func NewShipmentStockSoldEvent(s *Shipment, sku string, qty, available decimal.Decimal) *ShipmentStockSoldEvent {
	return &ShipmentStockSoldEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentStockSold, AggregateTypeShipment, s.ID),
		ShipmentNumber:  s.ShipmentNumber,
		SellerID:        s.SellerID,
		SKU:             sku,
		Quantity:        qty,
		QtyAvailable:    available,
	}
}

// EventType returns the event type name
func (e *ShipmentStockSoldEvent) EventType() string {
	return EventTypeShipmentStockSold
}

// ShipmentClosedEvent is raised when everything purchased has been sold
type ShipmentClosedEvent struct {
	shared.BaseDomainEvent
	ShipmentNumber int64           `json:"shipment_number"`
	SellerID       int64           `json:"seller_id"`
	ReceivedValue  decimal.Decimal `json:"received_value"`
}

// NewShipmentClosedEvent creates a new ShipmentClosedEvent
func NewShipmentClosedEvent(s *Shipment) *ShipmentClosedEvent {
	return &ShipmentClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentClosed, AggregateTypeShipment, s.ID),
		ShipmentNumber:  s.ShipmentNumber,
		SellerID:        s.SellerID,
		ReceivedValue:   s.ReceivedValue,
	}
}

// EventType returns the event type name
func (e *ShipmentClosedEvent) EventType() string {
	return EventTypeShipmentClosed
}

// ShipmentStockReleasedEvent is raised when an allocation is handed back to a shipment
type ShipmentStockReleasedEvent struct {
	shared.BaseDomainEvent
	ShipmentNumber int64           `json:"shipment_number"`
	SellerID       int64           `json:"seller_id"`
	SKU            string          `json:"sku"`
	Quantity       decimal.Decimal `json:"quantity"`
	QtyAvailable   decimal.Decimal `json:"qty_available"`
}

// NewShipmentStockReleasedEvent creates a new ShipmentStockReleasedEvent
func NewShipmentStockReleasedEvent(s *Shipment, sku string, qty, available decimal.Decimal) *ShipmentStockReleasedEvent {
	return &ShipmentStockReleasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentReleased, AggregateTypeShipment, s.ID),
		ShipmentNumber:  s.ShipmentNumber,
		SellerID:        s.SellerID,
		SKU:             sku,
		Quantity:        qty,
		QtyAvailable:    available,
	}
}

// EventType returns the event type name
func (e *ShipmentStockReleasedEvent) EventType() string {
	return EventTypeShipmentReleased
}
