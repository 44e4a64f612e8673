package trade

import (
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderCreated          = "OrderCreated"
	EventTypeOrderStatusChanged    = "OrderStatusChanged"
	EventTypeShippingEventReported = "ShippingEventReported"
)

// OrderCreatedEvent is raised when an order is accepted from a channel
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderNumber     int64           `json:"order_number"`
	ExternalOrderID string          `json:"external_order_id"`
	Channel         string          `json:"channel"`
	Status          OrderStatus     `json:"status"`
	Price           decimal.Decimal `json:"price"`
	LineCount       int             `json:"line_count"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, o.ID),
		OrderNumber:     o.OrderNumber,
		ExternalOrderID: o.ExternalOrderID,
		Channel:         o.Channel,
		Status:          o.Status,
		Price:           o.Price,
		LineCount:       len(o.Lines),
	}
}

// EventType returns the event type name
func (e *OrderCreatedEvent) EventType() string {
	return EventTypeOrderCreated
}

// OrderStatusChangedEvent is raised when the order-level status changes
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderNumber int64       `json:"order_number"`
	From        OrderStatus `json:"from"`
	To          OrderStatus `json:"to"`
}

// NewOrderStatusChangedEvent creates a new OrderStatusChangedEvent
func NewOrderStatusChangedEvent(o *Order, from, to OrderStatus) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderStatusChanged, AggregateTypeOrder, o.ID),
		OrderNumber:     o.OrderNumber,
		From:            from,
		To:              to,
	}
}

// EventType returns the event type name
func (e *OrderStatusChangedEvent) EventType() string {
	return EventTypeOrderStatusChanged
}

// ShippingEventReportedEvent is raised when a fulfillment event is added to a group
type ShippingEventReportedEvent struct {
	shared.BaseDomainEvent
	OrderNumber int64         `json:"order_number"`
	GroupID     uuid.UUID     `json:"group_id"`
	SellerID    int64         `json:"seller_id"`
	Event       OrderEvent    `json:"event"`
	Description string        `json:"description"`
	Timeline    OrderTimeline `json:"timeline"`
}

// NewShippingEventReportedEvent creates a new ShippingEventReportedEvent
func NewShippingEventReportedEvent(o *Order, g *ShippingGroup, event OrderEvent, description string) *ShippingEventReportedEvent {
	return &ShippingEventReportedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShippingEventReported, AggregateTypeOrder, o.ID),
		OrderNumber:     o.OrderNumber,
		GroupID:         g.ID,
		SellerID:        g.SellerID,
		Event:           event,
		Description:     description,
		Timeline:        g.Timeline,
	}
}

// EventType returns the event type name
func (e *ShippingEventReportedEvent) EventType() string {
	return EventTypeShippingEventReported
}
