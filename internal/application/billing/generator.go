package billing

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/commerce/backoffice/internal/domain/billing"
	"github.com/commerce/backoffice/internal/domain/catalog"
	"github.com/commerce/backoffice/internal/domain/pricing"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/commerce/backoffice/internal/domain/trade"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Billing save outcomes reported to the metrics recorder
const (
	OutcomeCreated   = "created"
	OutcomeMerged    = "merged"
	OutcomeUnchanged = "unchanged"
	OutcomeFailed    = "failed"
)

const maxMergeAttempts = 3

// MetricsRecorder receives billing generation measurements
type MetricsRecorder interface {
	BillingSaved(outcome string)
	PriceReconciled(model pricing.ModelType)
}

type noopMetrics struct{}

func (noopMetrics) BillingSaved(string) {}

func (noopMetrics) PriceReconciled(pricing.ModelType) {}

// GeneratorOption configures a Generator
type GeneratorOption func(*Generator)

// WithCountry sets the country whose taxes apply to billed lines
func WithCountry(country catalog.Country) GeneratorOption {
	return func(g *Generator) {
		if country != "" {
			g.country = country
		}
	}
}

// WithProducts sets the catalog used to name exploded pack components
func WithProducts(products catalog.ProductRepository) GeneratorOption {
	return func(g *Generator) {
		g.products = products
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(metrics MetricsRecorder) GeneratorOption {
	return func(g *Generator) {
		if metrics != nil {
			g.metrics = metrics
		}
	}
}

// Generator builds vendor billings from the allocated lines of an order
type Generator struct {
	sellers        catalog.SellerRepository
	offers         catalog.OfferRepository
	products       catalog.ProductRepository
	taxes          *catalog.TaxResolver
	billings       billing.VendorBillingRepository
	registry       *pricing.Registry
	country        catalog.Country
	metrics        MetricsRecorder
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewGenerator creates a new billing Generator
func NewGenerator(
	sellers catalog.SellerRepository,
	offers catalog.OfferRepository,
	taxes *catalog.TaxResolver,
	billings billing.VendorBillingRepository,
	logger *zap.Logger,
	opts ...GeneratorOption,
) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Generator{
		sellers:  sellers,
		offers:   offers,
		taxes:    taxes,
		billings: billings,
		registry: pricing.DefaultRegistry(),
		country:  catalog.CountryPortugal,
		metrics:  noopMetrics{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetEventPublisher sets the event publisher for cross-context integration
func (g *Generator) SetEventPublisher(publisher shared.EventPublisher) {
	g.eventPublisher = publisher
}

// GenerateResult lists the billings touched by one Generate call
type GenerateResult struct {
	Created   []string `json:"created"`
	Merged    []string `json:"merged"`
	Unchanged []string `json:"unchanged"`
}

// bucket is one billing document in the making: a seller's stock from one
// shipment, or a seller's dropshipped stock when shipment is nil
type bucket struct {
	sellerID int64
	shipment *int64
	lines    []*pendingLine
}

type pendingLine struct {
	sku       string
	name      string
	qty       decimal.Decimal
	priceUnit decimal.Decimal
	tax       catalog.TaxRate
	breakdown pricing.Breakdown
}

// priced is the per-unit billing data of one sku of an order line
type priced struct {
	sku       string
	name      string
	perPack   decimal.Decimal // component units per pack, 1 for plain lines
	priceUnit decimal.Decimal
	tax       catalog.TaxRate
	breakdown pricing.Breakdown
}

// Generate creates or merges the vendor billings of an order. Lines that
// cannot be billed are skipped and their errors returned together; billings
// of the other lines are still saved.
func (g *Generator) Generate(ctx context.Context, order *trade.Order) (*GenerateResult, error) {
	result := &GenerateResult{}
	buckets := make(map[string]*bucket)
	var errs error

	for i := range order.Lines {
		line := &order.Lines[i]
		if line.SellerID == 0 || (len(line.Allocations) == 0 && len(line.Dropship) == 0) {
			continue
		}
		if err := g.collect(ctx, order, line, buckets); err != nil {
			g.metrics.BillingSaved(OutcomeFailed)
			g.logger.Warn("Failed to price order line for billing",
				zap.Int64("order_number", order.OrderNumber),
				zap.String("sku", line.SKU),
				zap.Int64("seller_id", line.SellerID),
				zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("line %s: %w", line.SKU, err))
		}
	}

	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		outcome, err := g.save(ctx, order.OrderNumber, buckets[name])
		g.metrics.BillingSaved(outcome)
		if err != nil {
			g.logger.Error("Failed to save vendor billing",
				zap.String("billing_name", name),
				zap.Int64("order_number", order.OrderNumber),
				zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("billing %s: %w", name, err))
			continue
		}
		switch outcome {
		case OutcomeCreated:
			result.Created = append(result.Created, name)
		case OutcomeMerged:
			result.Merged = append(result.Merged, name)
		default:
			result.Unchanged = append(result.Unchanged, name)
		}
	}

	return result, errs
}

// collect prices a line and adds its quantities to the billing buckets they were allocated from
func (g *Generator) collect(ctx context.Context, order *trade.Order, line *trade.OrderLine, buckets map[string]*bucket) error {
	items, err := g.price(ctx, order.Channel, line)
	if err != nil {
		return err
	}

	if len(line.Dropship) > 0 {
		b := bucketFor(buckets, order.OrderNumber, line.SellerID, nil)
		for _, it := range items {
			b.add(it, it.perPack.Mul(line.Quantity))
		}
		return nil
	}

	bySKU := make(map[string]priced, len(items))
	for _, it := range items {
		bySKU[it.sku] = it
	}
	for _, a := range line.Allocations {
		it, ok := bySKU[a.SKU]
		if !ok {
			return shared.NewDomainError("ALLOCATION_SKU_MISMATCH",
				fmt.Sprintf("Allocation of %s does not belong to line %s", a.SKU, line.SKU))
		}
		number := a.ShipmentNumber
		bucketFor(buckets, order.OrderNumber, line.SellerID, &number).add(it, a.Qty)
	}
	return nil
}

// price reconciles the offer breakdown with the realized price and returns
// the per-unit billing data of the line, one entry per component for packs
func (g *Generator) price(ctx context.Context, channel string, line *trade.OrderLine) ([]priced, error) {
	seller, err := g.sellers.FindByID(ctx, line.SellerID)
	if err != nil {
		return nil, err
	}
	model := g.registry.Get(seller.PricingModel)

	offer, err := g.offers.FindBySellerSKU(ctx, line.SellerID, line.SKU, channel)
	if err != nil {
		return nil, err
	}
	breakdown, reversed, err := pricing.Reconcile(model, offer.Breakdown, line.UnitPrice)
	if err != nil {
		return nil, err
	}
	if reversed {
		g.metrics.PriceReconciled(model.Type())
		g.logger.Debug("Reverse computed breakdown",
			zap.String("sku", line.SKU),
			zap.String("model", model.Type().String()),
			zap.String("configured", offer.Breakdown.PvpFinal.String()),
			zap.String("realized", line.UnitPrice.String()))
	}

	if !line.IsPack() {
		tax, err := g.taxes.Resolve(ctx, line.SKU, g.country)
		if err != nil {
			return nil, err
		}
		return []priced{{
			sku:       line.SKU,
			name:      line.Name,
			perPack:   decimal.NewFromInt(1),
			priceUnit: model.UnitPrice(breakdown),
			tax:       tax,
			breakdown: breakdown,
		}}, nil
	}

	components := make([]pricing.Component, 0, len(line.BOM.Lines))
	for _, bl := range line.BOM.Lines {
		componentOffer, err := g.offers.FindBySellerSKU(ctx, line.SellerID, bl.ComponentSKU, channel)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", bl.ComponentSKU, err)
		}
		components = append(components, pricing.Component{
			SKU:      bl.ComponentSKU,
			Name:     g.productName(ctx, bl.ComponentSKU),
			Quantity: bl.Quantity,
			PvpFinal: componentOffer.Breakdown.PvpFinal,
		})
	}
	shares, err := pricing.Explode(breakdown, components)
	if err != nil {
		return nil, err
	}

	items := make([]priced, 0, len(shares))
	for _, share := range shares {
		tax, err := g.taxes.Resolve(ctx, share.SKU, g.country)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", share.SKU, err)
		}
		items = append(items, priced{
			sku:       share.SKU,
			name:      fmt.Sprintf("%s (%s)", share.Name, line.Name),
			perPack:   share.Quantity,
			priceUnit: model.UnitPrice(share.Unit),
			tax:       tax,
			breakdown: share.Unit,
		})
	}
	return items, nil
}

// productName returns the catalog name of sku, or sku itself when the
// product is unknown
func (g *Generator) productName(ctx context.Context, sku string) string {
	if g.products == nil {
		return sku
	}
	p, err := g.products.FindBySKU(ctx, sku)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			g.logger.Warn("Failed to look up component product",
				zap.String("sku", sku),
				zap.Error(err))
		}
		return sku
	}
	if p.Name == "" {
		return sku
	}
	return p.Name
}

func bucketFor(buckets map[string]*bucket, orderNumber, sellerID int64, shipment *int64) *bucket {
	name := billing.DropshipBillingName(sellerID, orderNumber)
	if shipment != nil {
		name = billing.BillingName(sellerID, orderNumber, *shipment)
	}
	b, ok := buckets[name]
	if !ok {
		b = &bucket{sellerID: sellerID, shipment: shipment}
		buckets[name] = b
	}
	return b
}

// add sums qty into the bucket line of the same sku and unit price. A sku
// sold at two prices, as a plain line and as a pack component for instance,
// is billed as two lines.
func (b *bucket) add(it priced, qty decimal.Decimal) {
	for _, l := range b.lines {
		if l.sku == it.sku && l.priceUnit.Equal(it.priceUnit) {
			l.qty = l.qty.Add(qty)
			return
		}
	}
	b.lines = append(b.lines, &pendingLine{
		sku:       it.sku,
		name:      it.name,
		qty:       qty,
		priceUnit: it.priceUnit,
		tax:       it.tax,
		breakdown: it.breakdown,
	})
}

// save creates the bucket's billing, merging into the existing document when the name is taken
func (g *Generator) save(ctx context.Context, orderNumber int64, b *bucket) (string, error) {
	lines := make([]billing.BillingLine, 0, len(b.lines))
	for _, l := range b.lines {
		bl, err := billing.NewBillingLine(l.sku, l.name, l.qty, l.priceUnit, l.tax.VAT, l.tax.IEC, l.breakdown)
		if err != nil {
			return OutcomeFailed, err
		}
		lines = append(lines, bl)
	}

	doc, err := billing.NewVendorBilling(b.sellerID, orderNumber, b.shipment, lines)
	if err != nil {
		return OutcomeFailed, err
	}

	err = g.billings.Create(ctx, doc)
	if err == nil {
		g.publish(ctx, doc)
		g.logger.Info("Vendor billing created",
			zap.String("billing_name", doc.BillingName),
			zap.Int("lines", len(doc.Lines)),
			zap.String("amount_total", doc.AmountTotal.String()))
		return OutcomeCreated, nil
	}
	if !errors.Is(err, shared.ErrAlreadyExists) {
		return OutcomeFailed, err
	}

	for attempt := 1; ; attempt++ {
		existing, err := g.billings.FindByName(ctx, doc.BillingName)
		if err != nil {
			return OutcomeFailed, err
		}
		added := existing.MergeLines(lines)
		if added == 0 {
			return OutcomeUnchanged, nil
		}
		err = g.billings.SaveWithLock(ctx, existing)
		if err == nil {
			g.publish(ctx, existing)
			g.logger.Info("Merged lines into existing vendor billing",
				zap.String("billing_name", existing.BillingName),
				zap.Int("lines_added", added))
			return OutcomeMerged, nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) || attempt >= maxMergeAttempts {
			return OutcomeFailed, err
		}
	}
}

func (g *Generator) publish(ctx context.Context, doc *billing.VendorBilling) {
	events := doc.GetDomainEvents()
	doc.ClearDomainEvents()
	if g.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := g.eventPublisher.Publish(ctx, events...); err != nil {
		g.logger.Warn("Failed to publish billing events",
			zap.String("billing_name", doc.BillingName),
			zap.Error(err))
	}
}
