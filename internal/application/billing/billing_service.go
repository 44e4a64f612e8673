package billing

import (
	"context"
	"time"

	"github.com/commerce/backoffice/internal/domain/billing"
	"github.com/commerce/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// Transition names accepted by BillingService.Transition
const (
	TransitionConfirm = "confirm"
	TransitionApprove = "approve"
	TransitionDraft   = "draft"
	TransitionCancel  = "cancel"
	TransitionDone    = "done"
)

// BillingService handles vendor billing lifecycle operations
type BillingService struct {
	billingRepo    billing.VendorBillingRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	now            func() time.Time
}

// NewBillingService creates a new BillingService
func NewBillingService(billingRepo billing.VendorBillingRepository, logger *zap.Logger) *BillingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingService{
		billingRepo: billingRepo,
		logger:      logger,
		now:         time.Now,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *BillingService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// GetByName retrieves a billing by its natural key
func (s *BillingService) GetByName(ctx context.Context, name string) (*VendorBillingResponse, error) {
	b, err := s.billingRepo.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	response := ToVendorBillingResponse(b)
	return &response, nil
}

// ListByOrder retrieves every billing of an order
func (s *BillingService) ListByOrder(ctx context.Context, orderNumber int64) ([]VendorBillingResponse, error) {
	billings, err := s.billingRepo.FindByOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	responses := make([]VendorBillingResponse, 0, len(billings))
	for _, b := range billings {
		responses = append(responses, ToVendorBillingResponse(b))
	}
	return responses, nil
}

// Transition applies a lifecycle transition to a billing
func (s *BillingService) Transition(ctx context.Context, name, transition string) (*VendorBillingResponse, error) {
	b, err := s.billingRepo.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}

	now := s.now()
	switch transition {
	case TransitionConfirm:
		err = b.Confirm(now)
	case TransitionApprove:
		err = b.Approve(now)
	case TransitionDraft:
		err = b.SetToDraft()
	case TransitionCancel:
		err = b.Cancel()
	case TransitionDone:
		err = b.Done()
	default:
		return nil, shared.NewDomainError("INVALID_TRANSITION", "Unknown billing transition: "+transition)
	}
	if err != nil {
		return nil, err
	}

	return s.save(ctx, b)
}

// MarkPayment records the payment state of a billing
func (s *BillingService) MarkPayment(ctx context.Context, name string, req MarkPaymentRequest) (*VendorBillingResponse, error) {
	b, err := s.billingRepo.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := b.MarkPaymentState(billing.PaymentState(req.PaymentState), s.now()); err != nil {
		return nil, err
	}
	return s.save(ctx, b)
}

func (s *BillingService) save(ctx context.Context, b *billing.VendorBilling) (*VendorBillingResponse, error) {
	if err := s.billingRepo.SaveWithLock(ctx, b); err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		events := b.GetDomainEvents()
		if len(events) > 0 {
			if err := s.eventPublisher.Publish(ctx, events...); err != nil {
				s.logger.Warn("Failed to publish billing events",
					zap.String("billing_name", b.BillingName),
					zap.Error(err))
			}
		}
	}
	b.ClearDomainEvents()

	response := ToVendorBillingResponse(b)
	return &response, nil
}
