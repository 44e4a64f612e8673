package trade

import (
	"context"
	"fmt"
	"time"

	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/commerce/backoffice/internal/domain/trade"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderSummary is the denormalized view of an order kept for lookups
type OrderSummary struct {
	OrderNumber     int64           `json:"order_number"`
	ExternalOrderID string          `json:"external_order_id"`
	Channel         string          `json:"channel"`
	Status          string          `json:"status"`
	Price           decimal.Decimal `json:"price"`
	LineCount       int             `json:"line_count"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderSummaryStore persists order summaries
type OrderSummaryStore interface {
	Put(ctx context.Context, summary OrderSummary) error
	UpdateStatus(ctx context.Context, orderNumber int64, status string, at time.Time) error
}

// OrderSummaryProjector keeps the order summary store in step with order events
type OrderSummaryProjector struct {
	store  OrderSummaryStore
	logger *zap.Logger
}

// NewOrderSummaryProjector creates a new OrderSummaryProjector
func NewOrderSummaryProjector(store OrderSummaryStore, logger *zap.Logger) *OrderSummaryProjector {
	return &OrderSummaryProjector{store: store, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *OrderSummaryProjector) EventTypes() []string {
	return []string{trade.EventTypeOrderCreated, trade.EventTypeOrderStatusChanged}
}

// Handle projects an order event into the summary store
func (h *OrderSummaryProjector) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *trade.OrderCreatedEvent:
		h.logger.Debug("projecting created order", zap.Int64("order_number", e.OrderNumber))
		return h.store.Put(ctx, OrderSummary{
			OrderNumber:     e.OrderNumber,
			ExternalOrderID: e.ExternalOrderID,
			Channel:         e.Channel,
			Status:          string(e.Status),
			Price:           e.Price,
			LineCount:       e.LineCount,
			UpdatedAt:       e.OccurredAt(),
		})
	case *trade.OrderStatusChangedEvent:
		h.logger.Debug("projecting order status",
			zap.Int64("order_number", e.OrderNumber),
			zap.String("from", string(e.From)),
			zap.String("to", string(e.To)))
		return h.store.UpdateStatus(ctx, e.OrderNumber, string(e.To), e.OccurredAt())
	default:
		h.logger.Error("unexpected event type", zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
}
