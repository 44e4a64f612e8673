package trade

import (
	"context"
	"errors"
	"fmt"
	"time"

	billingapp "github.com/commerce/backoffice/internal/application/billing"
	"github.com/commerce/backoffice/internal/domain/catalog"
	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/commerce/backoffice/internal/domain/trade"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const maxOrderNumberAttempts = 3

// Intake outcomes reported to the metrics recorder
const (
	IntakeOutcomeCreated   = "created"
	IntakeOutcomeDuplicate = "duplicate"
	IntakeOutcomeCanceled  = "canceled"
	IntakeOutcomeFailed    = "failed"
)

// BillingGenerator builds vendor billings for an allocated order
type BillingGenerator interface {
	Generate(ctx context.Context, order *trade.Order) (*billingapp.GenerateResult, error)
}

// IntakeMetrics receives intake and allocation measurements
type IntakeMetrics interface {
	OrderIntake(channel, outcome string)
	LineAllocated(deliveryType string, complete bool)
	IntakeDuration(d time.Duration)
}

type noopIntakeMetrics struct{}

func (noopIntakeMetrics) OrderIntake(string, string) {}

func (noopIntakeMetrics) LineAllocated(string, bool) {}

func (noopIntakeMetrics) IntakeDuration(time.Duration) {}

// IntakeOption configures an IntakeService
type IntakeOption func(*IntakeService)

// WithIntakeCountry sets the default destination country for taxes and logistic classes
func WithIntakeCountry(country catalog.Country) IntakeOption {
	return func(s *IntakeService) {
		if country != "" {
			s.country = country
		}
	}
}

// WithIntakeMetrics sets the metrics recorder
func WithIntakeMetrics(metrics IntakeMetrics) IntakeOption {
	return func(s *IntakeService) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithBillingGenerator triggers billing generation after allocation
func WithBillingGenerator(generator BillingGenerator) IntakeOption {
	return func(s *IntakeService) {
		s.billing = generator
	}
}

// IntakeService ingests channel orders: it deduplicates, resolves the
// selling offer of every line, persists the order and allocates its stock
type IntakeService struct {
	orderRepo      trade.OrderRepository
	resolver       *catalog.OfferResolver
	sellers        catalog.SellerRepository
	products       catalog.ProductRepository
	boms           catalog.BOMRepository
	taxes          *catalog.TaxResolver
	allocator      *inventory.Allocator
	billing        BillingGenerator
	country        catalog.Country
	metrics        IntakeMetrics
	validate       *validator.Validate
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	now            func() time.Time
}

// IntakeDeps groups the collaborators of an IntakeService
type IntakeDeps struct {
	Orders    trade.OrderRepository
	Resolver  *catalog.OfferResolver
	Sellers   catalog.SellerRepository
	Products  catalog.ProductRepository
	BOMs      catalog.BOMRepository
	Taxes     *catalog.TaxResolver
	Allocator *inventory.Allocator
}

// NewIntakeService creates a new IntakeService
func NewIntakeService(deps IntakeDeps, logger *zap.Logger, opts ...IntakeOption) *IntakeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := validator.New()
	validate.SetTagName("binding")

	s := &IntakeService{
		orderRepo: deps.Orders,
		resolver:  deps.Resolver,
		sellers:   deps.Sellers,
		products:  deps.Products,
		boms:      deps.BOMs,
		taxes:     deps.Taxes,
		allocator: deps.Allocator,
		country:   catalog.CountryPortugal,
		metrics:   noopIntakeMetrics{},
		validate:  validate,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *IntakeService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Intake ingests one channel order. Re-delivering an order already stored,
// or a canceled order never seen before, is a no-op reported as skipped.
// A line whose sku has no selling offer fails the whole intake before
// anything is stored.
func (s *IntakeService) Intake(ctx context.Context, req IntakeOrderRequest) (*IntakeResult, error) {
	start := s.now()
	defer func() { s.metrics.IntakeDuration(s.now().Sub(start)) }()

	if err := s.validate.Struct(req); err != nil {
		s.metrics.OrderIntake(req.Channel, IntakeOutcomeFailed)
		return nil, shared.WrapDomainError("INVALID_INPUT", "Invalid intake payload", err)
	}

	log := s.logger.With(
		zap.String("external_order_id", req.ExternalOrderID),
		zap.String("channel", req.Channel))

	exists, err := s.orderRepo.ExistsByChannelRef(ctx, req.ExternalOrderID, req.Channel)
	if err != nil {
		return nil, err
	}
	if exists {
		log.Debug("Order already ingested")
		s.metrics.OrderIntake(req.Channel, IntakeOutcomeDuplicate)
		return &IntakeResult{Skipped: true, SkipReason: SkipReasonDuplicate}, nil
	}
	if trade.OrderStatus(req.Status) == trade.OrderStatusCanceled {
		log.Info("Skipping canceled order never ingested")
		s.metrics.OrderIntake(req.Channel, IntakeOutcomeCanceled)
		return &IntakeResult{Skipped: true, SkipReason: SkipReasonCanceled}, nil
	}

	country := s.country
	if req.Country != "" {
		c, ok := catalog.ParseCountry(req.Country)
		if !ok {
			s.metrics.OrderIntake(req.Channel, IntakeOutcomeFailed)
			return nil, shared.NewDomainError("UNKNOWN_COUNTRY", "Unsupported destination country: "+req.Country)
		}
		country = c
	}

	order, sellers, err := s.buildOrder(ctx, req, country)
	if err != nil {
		s.metrics.OrderIntake(req.Channel, IntakeOutcomeFailed)
		return nil, err
	}
	order.InitShippingGroups(sellers, s.taxes.Table(), country, s.now())

	created, err := s.create(ctx, order)
	if err != nil {
		s.metrics.OrderIntake(req.Channel, IntakeOutcomeFailed)
		return nil, err
	}
	if !created {
		log.Info("Order ingested concurrently, skipping")
		s.metrics.OrderIntake(req.Channel, IntakeOutcomeDuplicate)
		return &IntakeResult{Skipped: true, SkipReason: SkipReasonDuplicate}, nil
	}
	s.metrics.OrderIntake(req.Channel, IntakeOutcomeCreated)
	log = log.With(zap.Int64("order_number", order.OrderNumber))

	s.allocate(ctx, order, log)

	if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
		s.releaseAllocations(ctx, order, log)
		return nil, fmt.Errorf("save allocations of order %d: %w", order.OrderNumber, err)
	}
	s.publish(ctx, order.GetDomainEvents()...)
	order.ClearDomainEvents()

	result := toIntakeResult(order)
	if s.billing != nil {
		billed, err := s.billing.Generate(ctx, order)
		if err != nil {
			log.Warn("Billing generation finished with errors", zap.Error(err))
		}
		if billed != nil {
			result.Billings = append(result.Billings, billed.Created...)
			result.Billings = append(result.Billings, billed.Merged...)
		}
	}

	log.Info("Order ingested",
		zap.String("status", string(order.Status)),
		zap.Int("lines", len(order.Lines)),
		zap.Int("shipping_groups", len(order.ShippingGroups)))
	return result, nil
}

// buildOrder resolves every line and returns the order with the sellers it involves
func (s *IntakeService) buildOrder(ctx context.Context, req IntakeOrderRequest, country catalog.Country) (*trade.Order, map[int64]*catalog.Seller, error) {
	number, err := s.orderRepo.NextOrderNumber(ctx)
	if err != nil {
		return nil, nil, err
	}
	reserved := trade.OrderStatus(req.Status) == trade.OrderStatusReserved
	order, err := trade.NewOrder(number, req.ExternalOrderID, req.Channel, req.OrderDate, reserved)
	if err != nil {
		return nil, nil, err
	}
	order.ChannelName = req.ChannelName
	order.Customer = req.Customer.toDomain()
	order.ShippingAddress = req.ShippingAddress.toDomain()
	order.BillingAddress = req.BillingAddress.toDomain()
	order.SetShippingPrice(req.ShippingPrice)

	sellers := make(map[int64]*catalog.Seller)
	orderDate := req.OrderDate
	for _, in := range req.Lines {
		line, err := trade.NewOrderLine(in.ChannelLineID, in.SKU, in.Name, in.Quantity, in.UnitPrice)
		if err != nil {
			return nil, nil, err
		}

		offer, err := s.resolver.Resolve(ctx, in.SKU, req.Channel, &orderDate)
		if err != nil {
			return nil, nil, err
		}
		line.SellerID = offer.SellerID
		line.DeliveryType = offer.DeliveryType
		line.EAN = offer.EAN

		if _, ok := sellers[offer.SellerID]; !ok {
			seller, err := s.sellers.FindByID(ctx, offer.SellerID)
			if err != nil {
				return nil, nil, fmt.Errorf("seller %d of %s: %w", offer.SellerID, in.SKU, err)
			}
			sellers[offer.SellerID] = seller
		}

		if err := s.enrich(ctx, line, country); err != nil {
			return nil, nil, err
		}
		order.AddLine(*line)
	}
	return order, sellers, nil
}

// enrich fills product data, taxes and the BOM snapshot of a line
func (s *IntakeService) enrich(ctx context.Context, line *trade.OrderLine, country catalog.Country) error {
	product, err := s.products.FindBySKU(ctx, line.SKU)
	switch {
	case err == nil:
		line.Weight = product.Weight
		if line.EAN == "" {
			line.EAN = product.EAN
		}
		if line.Name == "" {
			line.Name = product.Name
		}
	case !errors.Is(err, shared.ErrNotFound):
		return err
	}

	tax, err := s.taxes.Resolve(ctx, line.SKU, country)
	if err != nil {
		return err
	}
	line.VAT = tax.VAT
	line.IEC = tax.IEC

	bom, err := s.boms.FindBySKU(ctx, line.SKU)
	switch {
	case err == nil:
		line.BOM = bom
	case !errors.Is(err, shared.ErrNotFound):
		return err
	}
	return nil
}

// create stores a new order. It reports false when another intake stored
// the same channel order first. A collision on the order number alone is
// retried with a fresh number.
func (s *IntakeService) create(ctx context.Context, order *trade.Order) (bool, error) {
	order.MarkCreated()
	for attempt := 1; ; attempt++ {
		err := s.orderRepo.Create(ctx, order)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, shared.ErrAlreadyExists) {
			return false, err
		}
		exists, existsErr := s.orderRepo.ExistsByChannelRef(ctx, order.ExternalOrderID, order.Channel)
		if existsErr != nil {
			return false, existsErr
		}
		if exists {
			return false, nil
		}
		if attempt >= maxOrderNumberAttempts {
			return false, err
		}
		number, err := s.orderRepo.NextOrderNumber(ctx)
		if err != nil {
			return false, err
		}
		order.OrderNumber = number
		order.ClearDomainEvents()
		order.MarkCreated()
	}
}

// allocate draws every line's stock. Allocation is best effort: a failure
// leaves the line unallocated and is logged.
func (s *IntakeService) allocate(ctx context.Context, order *trade.Order, log *zap.Logger) {
	for i := range order.Lines {
		line := &order.Lines[i]
		if line.SellerID == 0 {
			continue
		}

		res, err := s.allocator.Allocate(ctx, inventory.AllocationRequest{
			SellerID:     line.SellerID,
			SKU:          line.SKU,
			Quantity:     line.Quantity,
			DeliveryType: line.DeliveryType,
			BOM:          line.BOM,
		})
		if err != nil {
			log.Error("Allocation failed", zap.String("sku", line.SKU), zap.Error(err))
			s.metrics.LineAllocated(string(line.DeliveryType), false)
			continue
		}
		s.publish(ctx, res.Events...)

		allocations := make([]trade.LineAllocation, 0, len(res.Allocations))
		for _, a := range res.Allocations {
			allocations = append(allocations, trade.LineAllocation{ShipmentNumber: a.ShipmentNumber, SKU: a.SKU, Qty: a.Qty})
		}
		dropship := make([]string, 0, len(res.Dropship))
		for _, item := range res.Dropship {
			if len(dropship) == 0 || dropship[len(dropship)-1] != item.Name {
				dropship = append(dropship, item.Name)
			}
		}
		if err := order.RecordAllocation(line.ID, allocations, dropship); err != nil {
			log.Error("Failed to record allocation", zap.String("sku", line.SKU), zap.Error(err))
			continue
		}

		s.metrics.LineAllocated(string(line.DeliveryType), res.Complete())
		if !res.Complete() {
			log.Warn("Line not fully allocated",
				zap.String("sku", line.SKU),
				zap.Int64("seller_id", line.SellerID),
				zap.String("requested", line.Quantity.String()),
				zap.String("remaining", res.Remaining.String()),
				zap.Bool("pack", line.IsPack()))
		}
	}
}

// releaseAllocations hands the stock taken for an order back to its shipments
// after the order itself could not be saved
func (s *IntakeService) releaseAllocations(ctx context.Context, order *trade.Order, log *zap.Logger) {
	for i := range order.Lines {
		line := &order.Lines[i]
		if len(line.Allocations) == 0 {
			continue
		}
		allocations := make([]inventory.Allocation, 0, len(line.Allocations))
		shipments := make([]int64, 0, len(line.Allocations))
		for _, a := range line.Allocations {
			allocations = append(allocations, inventory.Allocation{ShipmentNumber: a.ShipmentNumber, SKU: a.SKU, Qty: a.Qty})
			shipments = append(shipments, a.ShipmentNumber)
		}

		events, err := s.allocator.Release(ctx, line.SellerID, allocations)
		if err != nil {
			log.Error("Failed to release allocations of unsaved order, shipment stock is short",
				zap.String("sku", line.SKU),
				zap.Int64("seller_id", line.SellerID),
				zap.Int64s("shipment_numbers", shipments),
				zap.Error(err))
			continue
		}
		s.publish(ctx, events...)
		log.Warn("Released allocations of unsaved order",
			zap.String("sku", line.SKU),
			zap.Int64s("shipment_numbers", shipments))
	}
}

// GenerateBillings regenerates the vendor billings of a stored order
func (s *IntakeService) GenerateBillings(ctx context.Context, orderNumber int64) (*billingapp.GenerateResult, error) {
	if s.billing == nil {
		return nil, shared.NewDomainError("BILLING_DISABLED", "Billing generation is not configured")
	}
	order, err := s.orderRepo.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	return s.billing.Generate(ctx, order)
}

func (s *IntakeService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish intake events", zap.Error(err))
	}
}

func toIntakeResult(order *trade.Order) *IntakeResult {
	result := &IntakeResult{
		OrderNumber: order.OrderNumber,
		Status:      string(order.Status),
		Lines:       make([]LineIntakeResult, 0, len(order.Lines)),
	}
	for _, l := range order.Lines {
		result.Lines = append(result.Lines, LineIntakeResult{
			SKU:             l.SKU,
			SellerID:        l.SellerID,
			Quantity:        l.Quantity,
			QuantityDone:    l.QuantityDone,
			ShipmentNumbers: l.ShipmentNumbers,
			Dropship:        l.Dropship,
		})
	}
	return result
}
