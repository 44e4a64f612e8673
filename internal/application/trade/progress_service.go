package trade

import (
	"context"
	"time"

	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/commerce/backoffice/internal/domain/trade"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProgressService drives stored orders through their fulfillment workflow
type ProgressService struct {
	orderRepo      trade.OrderRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	now            func() time.Time
}

// NewProgressService creates a new ProgressService
func NewProgressService(orderRepo trade.OrderRepository, logger *zap.Logger) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{
		orderRepo: orderRepo,
		logger:    logger,
		now:       time.Now,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *ProgressService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// GetByNumber retrieves an order by its order number
func (s *ProgressService) GetByNumber(ctx context.Context, orderNumber int64) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	response := ToOrderResponse(order)
	return &response, nil
}

// ReportEvent records a fulfillment event on one shipping group of an order
func (s *ProgressService) ReportEvent(ctx context.Context, orderNumber int64, groupID uuid.UUID, req ReportEventRequest) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if err := order.ReportEvent(groupID, trade.OrderEvent(req.Event), req.Description, s.now()); err != nil {
		return nil, err
	}

	return s.save(ctx, order)
}

// NextActions returns the next step of every shipping group as seen by role
func (s *ProgressService) NextActions(ctx context.Context, orderNumber int64, role string) ([]NextActionResponse, error) {
	order, err := s.orderRepo.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	return ToNextActionResponses(order.NextActions(trade.Role(role))), nil
}

// ResolveReserved approves or rejects a reserved order
func (s *ProgressService) ResolveReserved(ctx context.Context, orderNumber int64, approved bool) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if err := order.ResolveReservation(approved, s.now()); err != nil {
		return nil, err
	}

	return s.save(ctx, order)
}

// Cancel cancels an order. The stock allocated to it is not released.
func (s *ProgressService) Cancel(ctx context.Context, orderNumber int64, req CancelOrderRequest) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if err := order.Cancel(trade.CancelReason(req.Reason), trade.RefundStatus(req.RefundStatus)); err != nil {
		return nil, err
	}

	return s.save(ctx, order)
}

func (s *ProgressService) save(ctx context.Context, order *trade.Order) (*OrderResponse, error) {
	if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
		return nil, err
	}

	// Publish domain events after successful save
	if s.eventPublisher != nil {
		events := order.GetDomainEvents()
		if len(events) > 0 {
			if err := s.eventPublisher.Publish(ctx, events...); err != nil {
				s.logger.Warn("Failed to publish order events",
					zap.Int64("order_number", order.OrderNumber),
					zap.Error(err))
			}
		}
	}
	order.ClearDomainEvents()

	response := ToOrderResponse(order)
	return &response, nil
}
