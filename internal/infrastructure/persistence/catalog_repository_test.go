package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/commerce/backoffice/internal/domain/catalog"
	"github.com/commerce/backoffice/internal/domain/pricing"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormOfferRepository(t *testing.T) {
	db := newTestDatabase(t).DB
	repo := NewGormOfferRepository(db)
	ctx := context.Background()

	winner, err := catalog.NewOffer(7, "worten", "SKU-1", catalog.DeliveryFulfillment, pricing.Breakdown{PvpFinal: decimal.RequireFromString("19.99")})
	require.NoError(t, err)
	winner.Ranking = 1
	loser, err := catalog.NewOffer(8, "worten", "SKU-1", catalog.DeliveryDropshipping, pricing.Breakdown{PvpFinal: decimal.RequireFromString("21.50")})
	require.NoError(t, err)
	loser.Ranking = 2
	require.NoError(t, repo.Save(ctx, winner))
	require.NoError(t, repo.Save(ctx, loser))

	t.Run("finds the ranking 1 offer", func(t *testing.T) {
		found, err := repo.FindWinner(ctx, "SKU-1", "worten")
		require.NoError(t, err)
		assert.Equal(t, int64(7), found.SellerID)
		assert.True(t, found.Breakdown.PvpFinal.Equal(decimal.RequireFromString("19.99")))
	})

	t.Run("inactive offers never win", func(t *testing.T) {
		winner.Active = false
		require.NoError(t, repo.Save(ctx, winner))
		t.Cleanup(func() {
			winner.Active = true
			require.NoError(t, repo.Save(ctx, winner))
		})

		_, err := repo.FindWinner(ctx, "SKU-1", "worten")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("finds a seller's offer", func(t *testing.T) {
		found, err := repo.FindBySellerSKU(ctx, 8, "SKU-1", "worten")
		require.NoError(t, err)
		assert.Equal(t, catalog.DeliveryDropshipping, found.DeliveryType)

		_, err = repo.FindBySellerSKU(ctx, 8, "SKU-1", "fnac")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("second offer for the same seller sku and platform is rejected", func(t *testing.T) {
		dup, err := catalog.NewOffer(7, "worten", "SKU-1", catalog.DeliveryFulfillment, pricing.Breakdown{})
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Save(ctx, dup), shared.ErrAlreadyExists)
	})
}

func TestGormRankingHistoryRepository(t *testing.T) {
	repo := NewGormRankingHistoryRepository(newTestDatabase(t).DB)
	ctx := context.Background()

	_, err := repo.FindHistory(ctx, "SKU-1", "worten")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Append(ctx, "SKU-1", "worten", catalog.RankingEntry{Date: jan.AddDate(0, 1, 0), SellerID: 8, Price: decimal.NewFromInt(20)}))
	require.NoError(t, repo.Append(ctx, "SKU-1", "worten", catalog.RankingEntry{Date: jan, SellerID: 7, Price: decimal.NewFromInt(19)}))
	require.NoError(t, repo.Append(ctx, "SKU-1", "fnac", catalog.RankingEntry{Date: jan, SellerID: 9, Price: decimal.NewFromInt(18)}))

	h, err := repo.FindHistory(ctx, "SKU-1", "worten")
	require.NoError(t, err)
	require.Len(t, h.Entries, 2)
	assert.Equal(t, int64(7), h.Entries[0].SellerID)

	entry, ok := h.WinnerAt(jan.AddDate(0, 0, 10))
	require.True(t, ok)
	assert.Equal(t, int64(7), entry.SellerID)
}

func TestGormBOMRepository(t *testing.T) {
	repo := NewGormBOMRepository(newTestDatabase(t).DB)
	ctx := context.Background()

	_, err := repo.FindBySKU(ctx, "PACK-1")
	assert.ErrorIs(t, err, shared.ErrNotFound, "a plain sku has no BOM")

	require.NoError(t, repo.Save(ctx, &catalog.BOM{SKU: "PACK-1", Lines: []catalog.BOMLine{
		{ComponentSKU: "Z-1", Quantity: decimal.NewFromInt(2)},
		{ComponentSKU: "A-1", Quantity: decimal.NewFromInt(1)},
	}}))

	bom, err := repo.FindBySKU(ctx, "PACK-1")
	require.NoError(t, err)
	require.True(t, bom.IsPack())
	require.Len(t, bom.Lines, 2)
	assert.Equal(t, "Z-1", bom.Lines[0].ComponentSKU, "component order is kept")
	assert.True(t, bom.Lines[0].Quantity.Equal(decimal.NewFromInt(2)))
}

func TestGormTaxRepository(t *testing.T) {
	repo := NewGormTaxRepository(newTestDatabase(t).DB)
	ctx := context.Background()

	_, err := repo.FindRate(ctx, "SKU-1", catalog.CountryPortugal)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, repo.SaveRate(ctx, "SKU-1", catalog.CountryPortugal, catalog.TaxRate{VAT: decimal.NewFromInt(13), IEC: decimal.Zero}))
	require.NoError(t, repo.SaveRate(ctx, "SKU-1", catalog.CountryPortugal, catalog.TaxRate{VAT: decimal.NewFromInt(23), IEC: decimal.RequireFromString("0.35")}))

	rate, err := repo.FindRate(ctx, "SKU-1", catalog.CountryPortugal)
	require.NoError(t, err)
	assert.True(t, rate.VAT.Equal(decimal.NewFromInt(23)))
	assert.True(t, rate.IEC.Equal(decimal.RequireFromString("0.35")))
}

func TestGormSellerAndProductRepositories(t *testing.T) {
	db := newTestDatabase(t).DB
	sellers := NewGormSellerRepository(db)
	products := NewGormProductRepository(db)
	ctx := context.Background()

	require.NoError(t, sellers.Save(ctx, &catalog.Seller{ID: 7, Name: "Quinta", PricingModel: pricing.ModelWholesaler, Carrier: "CTT", Active: true}))
	seller, err := sellers.FindByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, pricing.ModelWholesaler, seller.PricingModel)

	_, err = sellers.FindByID(ctx, 8)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, products.Save(ctx, &catalog.Product{SKU: "SKU-1", Name: "Red wine", Weight: decimal.RequireFromString("1.3")}))
	product, err := products.FindBySKU(ctx, "SKU-1")
	require.NoError(t, err)
	assert.True(t, product.Weight.Equal(decimal.RequireFromString("1.3")))
}
