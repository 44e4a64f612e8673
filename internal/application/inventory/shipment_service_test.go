package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/commerce/backoffice/internal/domain/catalog"
	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/commerce/backoffice/internal/infrastructure/persistence/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// racingShipmentRepository hands out a number another writer already took
type racingShipmentRepository struct {
	*memory.ShipmentRepository
	stale int
}

func (r *racingShipmentRepository) NextShipmentNumber(ctx context.Context) (int64, error) {
	if r.stale > 0 {
		r.stale--
		return 1, nil
	}
	return r.ShipmentRepository.NextShipmentNumber(ctx)
}

func newShipmentFixture(t *testing.T) (*ShipmentService, *memory.ShipmentRepository) {
	t.Helper()
	sellers := memory.NewSellerRepository()
	require.NoError(t, sellers.Save(context.Background(), &catalog.Seller{ID: 7, Name: "Adega Norte"}))

	repo := memory.NewShipmentRepository()
	svc := NewShipmentService(repo, sellers, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }
	return svc, repo
}

func registerRequest(lines ...ShipmentLineInput) RegisterShipmentRequest {
	return RegisterShipmentRequest{
		SellerID:     7,
		DeliveryType: string(catalog.DeliveryFulfillment),
		Lines:        lines,
	}
}

func wineLot(qty string) ShipmentLineInput {
	return ShipmentLineInput{
		SKU:       "WINE-1",
		Name:      "Douro Tinto",
		Quantity:  decimal.RequireFromString(qty),
		UnitPrice: decimal.NewFromInt(10),
		TaxRate:   decimal.NewFromInt(23),
	}
}

func TestShipmentService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("numbers shipments in sequence", func(t *testing.T) {
		svc, _ := newShipmentFixture(t)

		first, err := svc.Register(ctx, registerRequest(wineLot("5")))
		require.NoError(t, err)
		second, err := svc.Register(ctx, registerRequest(wineLot("3")))
		require.NoError(t, err)

		assert.Equal(t, int64(1), first.ShipmentNumber)
		assert.Equal(t, int64(2), second.ShipmentNumber)
		assert.Equal(t, string(inventory.ShipmentStatusOpen), first.Status)
		assert.True(t, first.TotalPurchased.Equal(decimal.NewFromInt(5)))
		assert.True(t, first.Lines[0].QtyAvailable.Equal(decimal.NewFromInt(5)))
		assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), first.ApprovedAt)
	})

	t.Run("keeps the supplied approval time", func(t *testing.T) {
		svc, repo := newShipmentFixture(t)
		approved := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
		req := registerRequest(wineLot("1"))
		req.ApprovedAt = &approved

		resp, err := svc.Register(ctx, req)
		require.NoError(t, err)

		stored, err := repo.FindByNumber(ctx, resp.ShipmentNumber)
		require.NoError(t, err)
		assert.Equal(t, approved, stored.ApprovedAt)
	})

	t.Run("retries when the number was taken", func(t *testing.T) {
		svc, repo := newShipmentFixture(t)
		_, err := svc.Register(ctx, registerRequest(wineLot("1")))
		require.NoError(t, err)

		svc.shipmentRepo = &racingShipmentRepository{ShipmentRepository: repo, stale: 1}
		resp, err := svc.Register(ctx, registerRequest(wineLot("2")))
		require.NoError(t, err)
		assert.Equal(t, int64(2), resp.ShipmentNumber)
	})

	t.Run("gives up after repeated collisions", func(t *testing.T) {
		svc, repo := newShipmentFixture(t)
		_, err := svc.Register(ctx, registerRequest(wineLot("1")))
		require.NoError(t, err)

		svc.shipmentRepo = &racingShipmentRepository{ShipmentRepository: repo, stale: maxShipmentNumberAttempts}
		_, err = svc.Register(ctx, registerRequest(wineLot("2")))
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("unknown seller", func(t *testing.T) {
		svc, _ := newShipmentFixture(t)
		req := registerRequest(wineLot("1"))
		req.SellerID = 99

		_, err := svc.Register(ctx, req)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("invalid lines", func(t *testing.T) {
		svc, _ := newShipmentFixture(t)

		tests := []struct {
			name string
			req  RegisterShipmentRequest
			code string
		}{
			{"zero quantity", registerRequest(wineLot("0")), "INVALID_QUANTITY"},
			{"duplicate sku", registerRequest(wineLot("1"), wineLot("2")), "DUPLICATE_SKU"},
			{"dropshipping holds no stock", RegisterShipmentRequest{
				SellerID:     7,
				DeliveryType: string(catalog.DeliveryDropshipping),
				Lines:        []ShipmentLineInput{wineLot("1")},
			}, "INVALID_DELIVERY_TYPE"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.Register(ctx, tt.req)
				var domainErr *shared.DomainError
				require.ErrorAs(t, err, &domainErr)
				assert.Equal(t, tt.code, domainErr.Code)
			})
		}
	})
}

func TestShipmentService_GetByNumber(t *testing.T) {
	ctx := context.Background()
	svc, _ := newShipmentFixture(t)

	created, err := svc.Register(ctx, registerRequest(wineLot("4")))
	require.NoError(t, err)

	got, err := svc.GetByNumber(ctx, created.ShipmentNumber)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, inventory.ShipmentName(created.ShipmentNumber), got.Name)

	_, err = svc.GetByNumber(ctx, 404)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
