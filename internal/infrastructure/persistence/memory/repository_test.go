package memory

import (
	"context"
	"testing"
	"time"

	"github.com/commerce/backoffice/internal/domain/billing"
	"github.com/commerce/backoffice/internal/domain/catalog"
	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/commerce/backoffice/internal/domain/pricing"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/commerce/backoffice/internal/domain/trade"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderRepository(t *testing.T) {
	ctx := context.Background()

	newOrder := func(t *testing.T, number int64, ext string) *trade.Order {
		t.Helper()
		o, err := trade.NewOrder(number, ext, "worten", time.Now(), false)
		require.NoError(t, err)
		line, err := trade.NewOrderLine("L1", "SKU-1", "Wine", decimal.NewFromInt(1), decimal.NewFromInt(10))
		require.NoError(t, err)
		o.AddLine(*line)
		return o
	}

	t.Run("stored copies are isolated from callers", func(t *testing.T) {
		repo := NewOrderRepository()
		o := newOrder(t, 1, "EXT-1")
		require.NoError(t, repo.Create(ctx, o))

		o.Lines[0].SKU = "CHANGED"
		found, err := repo.FindByNumber(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "SKU-1", found.Lines[0].SKU)

		found.Lines[0].Dropship = append(found.Lines[0].Dropship, "DS_7")
		again, err := repo.FindByChannelRef(ctx, "EXT-1", "worten")
		require.NoError(t, err)
		assert.Empty(t, again.Lines[0].Dropship)
	})

	t.Run("duplicates and numbering", func(t *testing.T) {
		repo := NewOrderRepository()
		require.NoError(t, repo.Create(ctx, newOrder(t, 1, "EXT-1")))

		assert.ErrorIs(t, repo.Create(ctx, newOrder(t, 2, "EXT-1")), shared.ErrAlreadyExists)
		assert.ErrorIs(t, repo.Create(ctx, newOrder(t, 1, "EXT-2")), shared.ErrAlreadyExists)

		next, err := repo.NextOrderNumber(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), next)
		assert.Equal(t, 1, repo.Count())
	})

	t.Run("stale save is a conflict", func(t *testing.T) {
		repo := NewOrderRepository()
		require.NoError(t, repo.Create(ctx, newOrder(t, 1, "EXT-1")))
		a, _ := repo.FindByNumber(ctx, 1)
		b, _ := repo.FindByNumber(ctx, 1)

		require.NoError(t, repo.SaveWithLock(ctx, a))
		assert.Equal(t, 2, a.Version)
		assert.ErrorIs(t, repo.SaveWithLock(ctx, b), shared.ErrConcurrencyConflict)
	})
}

func TestShipmentRepository(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	newShipment := func(t *testing.T, number int64, approvedAt time.Time, qty int64) *inventory.Shipment {
		t.Helper()
		line, err := inventory.NewShipmentLine("SKU-1", "Wine", decimal.NewFromInt(qty), decimal.NewFromInt(5), decimal.NewFromInt(23))
		require.NoError(t, err)
		s, err := inventory.NewShipment(number, 7, catalog.DeliveryFulfillment, approvedAt, []inventory.ShipmentLine{line})
		require.NoError(t, err)
		return s
	}

	repo := NewShipmentRepository()
	require.NoError(t, repo.Save(ctx, newShipment(t, 1, base.Add(time.Hour), 2)))
	require.NoError(t, repo.Save(ctx, newShipment(t, 2, base, 3)))
	assert.ErrorIs(t, repo.Save(ctx, newShipment(t, 2, base, 3)), shared.ErrAlreadyExists)

	open, err := repo.FindOpenBySellerSKU(ctx, 7, "SKU-1")
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, int64(2), open[0].ShipmentNumber)

	t.Run("batch with a stale shipment writes nothing", func(t *testing.T) {
		first, _ := repo.FindByNumber(ctx, 1)
		second, _ := repo.FindByNumber(ctx, 2)
		second.Version = 0

		require.NoError(t, first.Sell("SKU-1", decimal.NewFromInt(2)))
		assert.ErrorIs(t, repo.SaveAllWithLock(ctx, first, second), shared.ErrConcurrencyConflict)

		stored, _ := repo.FindByNumber(ctx, 1)
		assert.True(t, stored.Available("SKU-1").Equal(decimal.NewFromInt(2)))
		assert.Equal(t, 1, first.Version)
	})

	t.Run("open stock excludes closed shipments", func(t *testing.T) {
		first, _ := repo.FindByNumber(ctx, 1)
		require.NoError(t, first.Sell("SKU-1", decimal.NewFromInt(2)))
		require.NoError(t, repo.SaveAllWithLock(ctx, first))

		stock, err := repo.OpenStockBySeller(ctx)
		require.NoError(t, err)
		assert.True(t, stock[7].Equal(decimal.NewFromInt(3)))
	})
}

func TestVendorBillingRepository(t *testing.T) {
	ctx := context.Background()
	line, err := billing.NewBillingLine("SKU-1", "Wine", decimal.NewFromInt(1), decimal.NewFromInt(10), decimal.NewFromInt(23), decimal.Zero, pricing.Breakdown{})
	require.NoError(t, err)
	b, err := billing.NewVendorBilling(7, 100, nil, []billing.BillingLine{line})
	require.NoError(t, err)

	repo := NewVendorBillingRepository()
	require.NoError(t, repo.Create(ctx, b))
	assert.ErrorIs(t, repo.Create(ctx, b), shared.ErrAlreadyExists)

	found, err := repo.FindByOrder(ctx, 100)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "BILLING_DS_7-100", found[0].BillingName)
	assert.Empty(t, found[0].GetDomainEvents())

	require.NoError(t, repo.SaveWithLock(ctx, found[0]))
	assert.ErrorIs(t, repo.SaveWithLock(ctx, b), shared.ErrConcurrencyConflict)
}

func TestCatalogRepositories(t *testing.T) {
	ctx := context.Background()

	t.Run("offers", func(t *testing.T) {
		repo := NewOfferRepository()
		o, err := catalog.NewOffer(7, "worten", "SKU-1", catalog.DeliveryFulfillment, pricing.Breakdown{})
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, o))

		_, err = repo.FindWinner(ctx, "SKU-1", "worten")
		assert.ErrorIs(t, err, shared.ErrNotFound, "ranking 0 does not win")

		o.Ranking = 1
		require.NoError(t, repo.Save(ctx, o))
		winner, err := repo.FindWinner(ctx, "SKU-1", "worten")
		require.NoError(t, err)
		assert.Equal(t, int64(7), winner.SellerID)

		other, err := catalog.NewOffer(7, "worten", "SKU-1", catalog.DeliveryFulfillment, pricing.Breakdown{})
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Save(ctx, other), shared.ErrAlreadyExists)
	})

	t.Run("ranking history sorts by date", func(t *testing.T) {
		repo := NewRankingHistoryRepository()
		now := time.Now()
		require.NoError(t, repo.Append(ctx, "SKU-1", "worten", catalog.RankingEntry{Date: now, SellerID: 2}))
		require.NoError(t, repo.Append(ctx, "SKU-1", "worten", catalog.RankingEntry{Date: now.Add(-time.Hour), SellerID: 1}))

		h, err := repo.FindHistory(ctx, "SKU-1", "worten")
		require.NoError(t, err)
		assert.Equal(t, int64(1), h.Entries[0].SellerID)

		_, err = repo.FindHistory(ctx, "SKU-2", "worten")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("bom and taxes", func(t *testing.T) {
		boms := NewBOMRepository()
		require.NoError(t, boms.Save(ctx, &catalog.BOM{SKU: "PACK", Lines: []catalog.BOMLine{{ComponentSKU: "A", Quantity: decimal.NewFromInt(2)}}}))
		bom, err := boms.FindBySKU(ctx, "PACK")
		require.NoError(t, err)
		assert.True(t, bom.IsPack())
		_, err = boms.FindBySKU(ctx, "A")
		assert.ErrorIs(t, err, shared.ErrNotFound)

		taxes := NewTaxRepository()
		require.NoError(t, taxes.SaveRate(ctx, "A", catalog.CountrySpain, catalog.TaxRate{VAT: decimal.NewFromInt(21)}))
		rate, err := taxes.FindRate(ctx, "A", catalog.CountrySpain)
		require.NoError(t, err)
		assert.True(t, rate.VAT.Equal(decimal.NewFromInt(21)))
		_, err = taxes.FindRate(ctx, "A", catalog.CountryPortugal)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
