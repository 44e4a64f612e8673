package trade

import (
	"context"
	"errors"
	"testing"
	"time"

	billingapp "github.com/commerce/backoffice/internal/application/billing"
	"github.com/commerce/backoffice/internal/domain/catalog"
	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/commerce/backoffice/internal/domain/pricing"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/commerce/backoffice/internal/domain/trade"
	"github.com/commerce/backoffice/internal/infrastructure/persistence/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	fulfillSeller  = int64(7)
	dropshipSeller = int64(8)
	testChannel    = "worten"
)

var orderDate = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type intakeFixture struct {
	orders    *memory.OrderRepository
	shipments *memory.ShipmentRepository
	billings  *memory.VendorBillingRepository
	offers    *memory.OfferRepository
	sellers   *memory.SellerRepository
	products  *memory.ProductRepository
	boms      *memory.BOMRepository
	svc       *IntakeService
}

func newIntakeFixture(t *testing.T, opts ...IntakeOption) *intakeFixture {
	t.Helper()
	ctx := context.Background()

	f := &intakeFixture{
		orders:    memory.NewOrderRepository(),
		shipments: memory.NewShipmentRepository(),
		billings:  memory.NewVendorBillingRepository(),
		offers:    memory.NewOfferRepository(),
		sellers:   memory.NewSellerRepository(),
		products:  memory.NewProductRepository(),
		boms:      memory.NewBOMRepository(),
	}

	require.NoError(t, f.sellers.Save(ctx, &catalog.Seller{ID: fulfillSeller, Name: "Adega Norte", PricingModel: pricing.ModelDefault, Carrier: "CTT", Active: true}))
	require.NoError(t, f.sellers.Save(ctx, &catalog.Seller{ID: dropshipSeller, Name: "Quinta Sul", PricingModel: pricing.ModelDefault, Active: true}))
	require.NoError(t, f.products.Save(ctx, &catalog.Product{SKU: "WINE-1", EAN: "5601234000011", Name: "Douro Tinto", Weight: d("1.3")}))

	taxes := catalog.NewTaxResolver(memory.NewTaxRepository(), nil)
	generator := billingapp.NewGenerator(f.sellers, f.offers, taxes, f.billings, nil)

	f.svc = NewIntakeService(IntakeDeps{
		Orders:    f.orders,
		Resolver:  catalog.NewOfferResolver(f.offers, memory.NewRankingHistoryRepository()),
		Sellers:   f.sellers,
		Products:  f.products,
		BOMs:      f.boms,
		Taxes:     taxes,
		Allocator: inventory.NewAllocator(f.shipments),
	}, nil, append([]IntakeOption{WithBillingGenerator(generator)}, opts...)...)
	f.svc.now = func() time.Time { return orderDate.Add(time.Minute) }
	return f
}

// offer lists sku for seller with a vendor price of 10 and 23% IVA, a final price of 12.3
func (f *intakeFixture) offer(t *testing.T, sellerID int64, sku string, deliveryType catalog.DeliveryType) {
	t.Helper()
	b, err := pricing.NewDefaultModel().Compute(pricing.Breakdown{VendorPrice: d("10"), Iva: d("23")})
	require.NoError(t, err)
	o, err := catalog.NewOffer(sellerID, testChannel, sku, deliveryType, b)
	require.NoError(t, err)
	o.Ranking = 1
	require.NoError(t, f.offers.Save(context.Background(), o))
}

func (f *intakeFixture) shipment(t *testing.T, number int64, approvedAt time.Time, sku string, qty int64) {
	t.Helper()
	line, err := inventory.NewShipmentLine(sku, "", decimal.NewFromInt(qty), d("10"), d("23"))
	require.NoError(t, err)
	s, err := inventory.NewShipment(number, fulfillSeller, catalog.DeliveryFulfillment, approvedAt, []inventory.ShipmentLine{line})
	require.NoError(t, err)
	require.NoError(t, f.shipments.Save(context.Background(), s))
}

func intakeRequest(ext string, lines ...IntakeLineInput) IntakeOrderRequest {
	return IntakeOrderRequest{
		ExternalOrderID: ext,
		Channel:         testChannel,
		ChannelName:     "Worten PT",
		OrderDate:       orderDate,
		ShippingAddress: AddressInput{Name: "Ana", Zip: " 1000 - 001 ", Country: "Portugal"},
		BillingAddress:  AddressInput{Name: "Ana", Zip: "1000 001"},
		Lines:           lines,
	}
}

func wineLine(qty string) IntakeLineInput {
	return IntakeLineInput{ChannelLineID: "L1", SKU: "WINE-1", Quantity: d(qty), UnitPrice: d("12.3")}
}

func TestIntakeService_Intake(t *testing.T) {
	ctx := context.Background()

	t.Run("allocates oldest shipments first and bills each shipment", func(t *testing.T) {
		f := newIntakeFixture(t)
		f.offer(t, fulfillSeller, "WINE-1", catalog.DeliveryFulfillment)
		f.shipment(t, 1, orderDate.Add(-48*time.Hour), "WINE-1", 1)
		f.shipment(t, 2, orderDate.Add(-24*time.Hour), "WINE-1", 5)

		result, err := f.svc.Intake(ctx, intakeRequest("EXT-1", wineLine("3")))
		require.NoError(t, err)

		assert.False(t, result.Skipped)
		assert.Equal(t, int64(1), result.OrderNumber)
		assert.Equal(t, string(trade.OrderStatusApproved), result.Status)
		require.Len(t, result.Lines, 1)
		assert.Equal(t, fulfillSeller, result.Lines[0].SellerID)
		assert.Equal(t, []int64{1, 2}, result.Lines[0].ShipmentNumbers)
		assert.True(t, d("3").Equal(result.Lines[0].QuantityDone))
		assert.Equal(t, []string{"BILLING_7-1-1", "BILLING_7-1-2"}, result.Billings)

		first, err := f.shipments.FindByNumber(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, inventory.ShipmentStatusClosed, first.Status)
		second, err := f.shipments.FindByNumber(ctx, 2)
		require.NoError(t, err)
		assert.True(t, d("3").Equal(second.Available("WINE-1")))

		order, err := f.orders.FindByNumber(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "1000-001", order.ShippingAddress.Zip)
		assert.Equal(t, "1000001", order.BillingAddress.Zip)
		assert.True(t, d("1.3").Equal(order.Lines[0].Weight))
		assert.True(t, d("23").Equal(order.Lines[0].VAT))
		require.Len(t, order.ShippingGroups, 1)
		group := order.ShippingGroups[0]
		assert.Equal(t, "Adega Norte", group.SellerName)
		assert.Equal(t, "CTT", group.Carrier)
		assert.True(t, d("3.9").Equal(group.Weight))
		assert.Equal(t, trade.TimelineApproved, group.Timeline)

		doc, err := f.billings.FindByName(ctx, "BILLING_7-1-2")
		require.NoError(t, err)
		require.Len(t, doc.Lines, 1)
		assert.True(t, d("2").Equal(doc.Lines[0].Quantity))
		assert.True(t, d("10").Equal(doc.Lines[0].PriceUnit))
	})

	t.Run("redelivered order is skipped without touching stock", func(t *testing.T) {
		f := newIntakeFixture(t)
		f.offer(t, fulfillSeller, "WINE-1", catalog.DeliveryFulfillment)
		f.shipment(t, 1, orderDate.Add(-24*time.Hour), "WINE-1", 5)

		_, err := f.svc.Intake(ctx, intakeRequest("EXT-1", wineLine("2")))
		require.NoError(t, err)

		again, err := f.svc.Intake(ctx, intakeRequest("EXT-1", wineLine("2")))
		require.NoError(t, err)
		assert.True(t, again.Skipped)
		assert.Equal(t, SkipReasonDuplicate, again.SkipReason)
		assert.Equal(t, 1, f.orders.Count())

		s, err := f.shipments.FindByNumber(ctx, 1)
		require.NoError(t, err)
		assert.True(t, d("3").Equal(s.Available("WINE-1")))
	})

	t.Run("canceled order never seen is skipped", func(t *testing.T) {
		f := newIntakeFixture(t)
		req := intakeRequest("EXT-9", wineLine("1"))
		req.Status = string(trade.OrderStatusCanceled)

		result, err := f.svc.Intake(ctx, req)
		require.NoError(t, err)
		assert.True(t, result.Skipped)
		assert.Equal(t, SkipReasonCanceled, result.SkipReason)
		assert.Zero(t, f.orders.Count())
	})

	t.Run("sku without offer fails before storing anything", func(t *testing.T) {
		f := newIntakeFixture(t)
		f.offer(t, fulfillSeller, "WINE-1", catalog.DeliveryFulfillment)

		_, err := f.svc.Intake(ctx, intakeRequest("EXT-2", wineLine("1"), IntakeLineInput{SKU: "GHOST", Quantity: d("1"), UnitPrice: d("5")}))
		require.Error(t, err)
		assert.ErrorIs(t, err, catalog.ErrSellerNotFound)
		assert.Zero(t, f.orders.Count())
	})

	t.Run("invalid payload is rejected", func(t *testing.T) {
		f := newIntakeFixture(t)

		_, err := f.svc.Intake(ctx, IntakeOrderRequest{Channel: testChannel, OrderDate: orderDate})
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("unknown destination country is rejected", func(t *testing.T) {
		f := newIntakeFixture(t)
		req := intakeRequest("EXT-3", wineLine("1"))
		req.Country = "Atlantis"

		_, err := f.svc.Intake(ctx, req)
		require.Error(t, err)
		assert.Zero(t, f.orders.Count())
	})

	t.Run("reserved order is stored as reserved", func(t *testing.T) {
		f := newIntakeFixture(t)
		f.offer(t, fulfillSeller, "WINE-1", catalog.DeliveryFulfillment)
		req := intakeRequest("EXT-4", wineLine("1"))
		req.Status = string(trade.OrderStatusReserved)

		result, err := f.svc.Intake(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, string(trade.OrderStatusReserved), result.Status)
	})

	t.Run("dropshipped line is billed in the seller's dropship billing", func(t *testing.T) {
		f := newIntakeFixture(t)
		f.offer(t, dropshipSeller, "WINE-DS", catalog.DeliveryDropshipping)

		result, err := f.svc.Intake(ctx, intakeRequest("EXT-5", IntakeLineInput{SKU: "WINE-DS", Quantity: d("2"), UnitPrice: d("12.3")}))
		require.NoError(t, err)

		require.Len(t, result.Lines, 1)
		assert.Equal(t, []string{"DS_8"}, result.Lines[0].Dropship)
		assert.True(t, d("2").Equal(result.Lines[0].QuantityDone))
		assert.Equal(t, []string{"BILLING_DS_8-1"}, result.Billings)
	})

	t.Run("short stock allocates what is available", func(t *testing.T) {
		f := newIntakeFixture(t)
		f.offer(t, fulfillSeller, "WINE-1", catalog.DeliveryFulfillment)
		f.shipment(t, 1, orderDate.Add(-24*time.Hour), "WINE-1", 2)

		result, err := f.svc.Intake(ctx, intakeRequest("EXT-6", wineLine("5")))
		require.NoError(t, err)
		assert.True(t, d("2").Equal(result.Lines[0].QuantityDone))
		assert.Equal(t, []int64{1}, result.Lines[0].ShipmentNumbers)
	})

	t.Run("short stock allocates nothing when partial single sku is off", func(t *testing.T) {
		f := newIntakeFixture(t)
		f.svc.allocator = inventory.NewAllocator(f.shipments, inventory.WithPartialSingleSKU(false))
		f.offer(t, fulfillSeller, "WINE-1", catalog.DeliveryFulfillment)
		f.shipment(t, 1, orderDate.Add(-24*time.Hour), "WINE-1", 2)

		result, err := f.svc.Intake(ctx, intakeRequest("EXT-7", wineLine("5")))
		require.NoError(t, err)
		assert.True(t, result.Lines[0].QuantityDone.IsZero())
		assert.Empty(t, result.Billings)

		s, err := f.shipments.FindByNumber(ctx, 1)
		require.NoError(t, err)
		assert.True(t, d("2").Equal(s.Available("WINE-1")))
	})

	t.Run("same sku and price lines are consolidated", func(t *testing.T) {
		f := newIntakeFixture(t)
		f.offer(t, fulfillSeller, "WINE-1", catalog.DeliveryFulfillment)

		result, err := f.svc.Intake(ctx, intakeRequest("EXT-8", wineLine("1"), wineLine("2")))
		require.NoError(t, err)
		require.Len(t, result.Lines, 1)
		assert.True(t, d("3").Equal(result.Lines[0].Quantity))
	})
}

func TestIntakeService_Intake_Pack(t *testing.T) {
	ctx := context.Background()
	f := newIntakeFixture(t)
	f.offer(t, fulfillSeller, "PACK-2", catalog.DeliveryFulfillment)
	f.offer(t, fulfillSeller, "WINE-1", catalog.DeliveryFulfillment)
	require.NoError(t, f.boms.Save(ctx, &catalog.BOM{SKU: "PACK-2", Lines: []catalog.BOMLine{{ComponentSKU: "WINE-1", Quantity: d("2")}}}))
	f.shipment(t, 1, orderDate.Add(-24*time.Hour), "WINE-1", 10)

	result, err := f.svc.Intake(ctx, intakeRequest("EXT-P", IntakeLineInput{SKU: "PACK-2", Quantity: d("3"), UnitPrice: d("12.3")}))
	require.NoError(t, err)

	require.Len(t, result.Lines, 1)
	assert.True(t, d("3").Equal(result.Lines[0].QuantityDone))
	assert.Equal(t, []string{"BILLING_7-1-1"}, result.Billings)

	s, err := f.shipments.FindByNumber(ctx, 1)
	require.NoError(t, err)
	assert.True(t, d("4").Equal(s.Available("WINE-1")))

	doc, err := f.billings.FindByName(ctx, "BILLING_7-1-1")
	require.NoError(t, err)
	require.Len(t, doc.Lines, 1)
	assert.Equal(t, "WINE-1", doc.Lines[0].SKU)
	assert.True(t, d("6").Equal(doc.Lines[0].Quantity))
}

func TestIntakeService_GenerateBillings(t *testing.T) {
	ctx := context.Background()
	f := newIntakeFixture(t)
	f.offer(t, fulfillSeller, "WINE-1", catalog.DeliveryFulfillment)
	f.shipment(t, 1, orderDate.Add(-24*time.Hour), "WINE-1", 5)

	_, err := f.svc.Intake(ctx, intakeRequest("EXT-1", wineLine("2")))
	require.NoError(t, err)

	again, err := f.svc.GenerateBillings(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, again.Created)
	assert.Empty(t, again.Merged)
	assert.Equal(t, []string{"BILLING_7-1-1"}, again.Unchanged)

	_, err = f.svc.GenerateBillings(ctx, 99)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

// lostOrderSave fails the post-allocation order update
type lostOrderSave struct {
	*memory.OrderRepository
}

func (lostOrderSave) SaveWithLock(context.Context, *trade.Order) error {
	return errors.New("connection reset")
}

// shipmentWriteBudget lets a fixed number of shipment writes through
type shipmentWriteBudget struct {
	*memory.ShipmentRepository
	left int
}

func (r *shipmentWriteBudget) SaveAllWithLock(ctx context.Context, shipments ...*inventory.Shipment) error {
	if r.left == 0 {
		return errors.New("shipments table locked")
	}
	r.left--
	return r.ShipmentRepository.SaveAllWithLock(ctx, shipments...)
}

func (f *intakeFixture) serviceWith(orders trade.OrderRepository, shipments inventory.ShipmentRepository, logger *zap.Logger) *IntakeService {
	taxes := catalog.NewTaxResolver(memory.NewTaxRepository(), nil)
	svc := NewIntakeService(IntakeDeps{
		Orders:    orders,
		Resolver:  catalog.NewOfferResolver(f.offers, memory.NewRankingHistoryRepository()),
		Sellers:   f.sellers,
		Products:  f.products,
		BOMs:      f.boms,
		Taxes:     taxes,
		Allocator: inventory.NewAllocator(shipments),
	}, logger, WithBillingGenerator(billingapp.NewGenerator(f.sellers, f.offers, taxes, f.billings, nil)))
	svc.now = func() time.Time { return orderDate.Add(time.Minute) }
	return svc
}

func TestIntakeService_Intake_OrderSaveFailureReleasesStock(t *testing.T) {
	ctx := context.Background()
	f := newIntakeFixture(t)
	f.offer(t, fulfillSeller, "WINE-1", catalog.DeliveryFulfillment)
	f.shipment(t, 1, orderDate.Add(-48*time.Hour), "WINE-1", 1)
	f.shipment(t, 2, orderDate.Add(-24*time.Hour), "WINE-1", 5)

	svc := f.serviceWith(lostOrderSave{f.orders}, f.shipments, nil)
	publisher := &recordingPublisher{}
	svc.SetEventPublisher(publisher)

	_, err := svc.Intake(ctx, intakeRequest("EXT-1", wineLine("3")))
	require.Error(t, err)

	first, err := f.shipments.FindByNumber(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, inventory.ShipmentStatusOpen, first.Status, "closed shipment reopens")
	assert.True(t, d("1").Equal(first.Available("WINE-1")))
	second, err := f.shipments.FindByNumber(ctx, 2)
	require.NoError(t, err)
	assert.True(t, d("5").Equal(second.Available("WINE-1")))

	assert.Contains(t, publisher.types(), inventory.EventTypeShipmentReleased)
	docs, err := f.billings.FindByOrder(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIntakeService_Intake_ReleaseFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	f := newIntakeFixture(t)
	f.offer(t, fulfillSeller, "WINE-1", catalog.DeliveryFulfillment)
	f.shipment(t, 1, orderDate.Add(-48*time.Hour), "WINE-1", 1)
	f.shipment(t, 2, orderDate.Add(-24*time.Hour), "WINE-1", 5)

	core, recorded := observer.New(zapcore.WarnLevel)
	shipments := &shipmentWriteBudget{ShipmentRepository: f.shipments, left: 1}
	svc := f.serviceWith(lostOrderSave{f.orders}, shipments, zap.New(core))

	_, err := svc.Intake(ctx, intakeRequest("EXT-1", wineLine("3")))
	require.Error(t, err)

	logs := recorded.FilterMessageSnippet("Failed to release allocations").All()
	require.Len(t, logs, 1)
	assert.Equal(t, zapcore.ErrorLevel, logs[0].Level)
	assert.Equal(t, []interface{}{int64(1), int64(2)}, logs[0].ContextMap()["shipment_numbers"])
	assert.Equal(t, int64(1), logs[0].ContextMap()["order_number"])
}
