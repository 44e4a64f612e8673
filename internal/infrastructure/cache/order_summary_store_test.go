package cache

import (
	"context"
	"os"
	"testing"
	"time"

	tradeapp "github.com/commerce/backoffice/internal/application/trade"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestRedis connects to BO_TEST_REDIS_ADDR and flushes the selected db
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("BO_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BO_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())
	require.NoError(t, client.FlushDB(ctx).Err())
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return client
}

func sampleSummary(number int64) tradeapp.OrderSummary {
	return tradeapp.OrderSummary{
		OrderNumber:     number,
		ExternalOrderID: "EXT-1",
		Channel:         "worten",
		Status:          "approved",
		Price:           decimal.RequireFromString("42.50"),
		LineCount:       2,
		UpdatedAt:       time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestInMemoryOrderSummaryStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryOrderSummaryStore()

	t.Run("put then get", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, sampleSummary(1001)))

		got, err := store.Get(ctx, 1001)
		require.NoError(t, err)
		assert.Equal(t, "approved", got.Status)
		assert.True(t, got.Price.Equal(decimal.RequireFromString("42.5")))
	})

	t.Run("update status", func(t *testing.T) {
		at := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
		require.NoError(t, store.UpdateStatus(ctx, 1001, "shipped", at))

		got, err := store.Get(ctx, 1001)
		require.NoError(t, err)
		assert.Equal(t, "shipped", got.Status)
		assert.Equal(t, at, got.UpdatedAt)
	})

	t.Run("unknown order", func(t *testing.T) {
		err := store.UpdateStatus(ctx, 9999, "shipped", time.Now())
		assert.ErrorIs(t, err, shared.ErrNotFound)

		_, err = store.Get(ctx, 9999)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestRedisOrderSummaryStore(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()
	store := NewRedisOrderSummaryStore(client)

	require.NoError(t, store.Put(ctx, sampleSummary(2001)))

	numbers, err := store.NumbersByStatus(ctx, "approved")
	require.NoError(t, err)
	assert.Equal(t, []int64{2001}, numbers)

	at := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpdateStatus(ctx, 2001, "canceled", at))

	got, err := store.Get(ctx, 2001)
	require.NoError(t, err)
	assert.Equal(t, "canceled", got.Status)
	assert.True(t, at.Equal(got.UpdatedAt))

	numbers, err = store.NumbersByStatus(ctx, "approved")
	require.NoError(t, err)
	assert.Empty(t, numbers)

	err = store.UpdateStatus(ctx, 404, "canceled", at)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRedisIdempotencyStore(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()
	store := NewRedisIdempotencyStore(client, "")

	isNew, err := store.MarkProcessed(ctx, "evt-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = store.MarkProcessed(ctx, "evt-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, isNew)

	processed, err := store.IsProcessed(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, processed)

	assert.NoError(t, store.Close())
	assert.NoError(t, client.Ping(ctx).Err(), "store must not close the shared client")
}

func TestNewIdempotencyStore(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		wantErr bool
	}{
		{"memory", BackendMemory, false},
		{"empty defaults to memory", "", false},
		{"redis without client falls back", BackendRedis, false},
		{"unknown", "etcd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewIdempotencyStore(tt.backend, nil, zap.NewNop())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			_, ok := store.(*InMemoryIdempotencyStore)
			assert.True(t, ok)
			assert.NoError(t, store.Close())
		})
	}
}
