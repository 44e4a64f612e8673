package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/commerce/backoffice/internal/domain/catalog"
	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/commerce/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

const maxShipmentNumberAttempts = 3

// ShipmentService records vendor stock lots and serves them for lookup
type ShipmentService struct {
	shipmentRepo   inventory.ShipmentRepository
	sellers        catalog.SellerRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	now            func() time.Time
}

// NewShipmentService creates a new ShipmentService
func NewShipmentService(shipmentRepo inventory.ShipmentRepository, sellers catalog.SellerRepository, logger *zap.Logger) *ShipmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShipmentService{
		shipmentRepo: shipmentRepo,
		sellers:      sellers,
		logger:       logger,
		now:          time.Now,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *ShipmentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Register records a received vendor shipment under the next shipment number
func (s *ShipmentService) Register(ctx context.Context, req RegisterShipmentRequest) (*ShipmentResponse, error) {
	if _, err := s.sellers.FindByID(ctx, req.SellerID); err != nil {
		return nil, fmt.Errorf("seller %d: %w", req.SellerID, err)
	}

	lines := make([]inventory.ShipmentLine, 0, len(req.Lines))
	for _, in := range req.Lines {
		line, err := inventory.NewShipmentLine(in.SKU, in.Name, in.Quantity, in.UnitPrice, in.TaxRate)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	approvedAt := s.now()
	if req.ApprovedAt != nil {
		approvedAt = *req.ApprovedAt
	}

	var shipment *inventory.Shipment
	for attempt := 1; ; attempt++ {
		number, err := s.shipmentRepo.NextShipmentNumber(ctx)
		if err != nil {
			return nil, err
		}
		shipment, err = inventory.NewShipment(number, req.SellerID, catalog.DeliveryType(req.DeliveryType), approvedAt, lines)
		if err != nil {
			return nil, err
		}
		err = s.shipmentRepo.Save(ctx, shipment)
		if err == nil {
			break
		}
		if !errors.Is(err, shared.ErrAlreadyExists) || attempt >= maxShipmentNumberAttempts {
			return nil, err
		}
	}

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, shipment.GetDomainEvents()...); err != nil {
			s.logger.Warn("Failed to publish shipment events",
				zap.Int64("shipment_number", shipment.ShipmentNumber),
				zap.Error(err))
		}
	}
	shipment.ClearDomainEvents()

	s.logger.Info("Shipment registered",
		zap.Int64("shipment_number", shipment.ShipmentNumber),
		zap.Int64("seller_id", shipment.SellerID),
		zap.Int("lines", len(shipment.Lines)))

	response := ToShipmentResponse(shipment)
	return &response, nil
}

// GetByNumber retrieves a shipment by its number
func (s *ShipmentService) GetByNumber(ctx context.Context, number int64) (*ShipmentResponse, error) {
	shipment, err := s.shipmentRepo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	response := ToShipmentResponse(shipment)
	return &response, nil
}
