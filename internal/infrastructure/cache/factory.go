package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/commerce/backoffice/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backend names accepted by the factories
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// NewRedisClient connects to Redis and verifies the connection with a ping
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// NewIdempotencyStore returns the store for backend. A nil client with the
// redis backend falls back to memory with a warning.
func NewIdempotencyStore(backend string, client redis.UniversalClient, logger *zap.Logger) (shared.IdempotencyStore, error) {
	switch backend {
	case BackendMemory, "":
		return NewInMemoryIdempotencyStore(), nil
	case BackendRedis:
		if client == nil {
			logger.Warn("Redis unavailable, falling back to in-memory idempotency store")
			return NewInMemoryIdempotencyStore(), nil
		}
		return NewRedisIdempotencyStore(client, ""), nil
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", backend)
	}
}
