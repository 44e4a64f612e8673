package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultLockTTL    = 10 * time.Second
	lockRetryInterval = 50 * time.Millisecond
	lockKeyPrefix     = "bo:lock:"
)

// RedisKeyLocker serializes allocation across instances with a Redis lease.
// A lease that outlives its TTL is lost, so the TTL must cover one allocation.
type RedisKeyLocker struct {
	client *redislock.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisKeyLocker creates a locker on an existing client
func NewRedisKeyLocker(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisKeyLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisKeyLocker{
		client: redislock.New(client),
		ttl:    ttl,
		logger: logger,
	}
}

// Lock retries until the lease is obtained, ctx is done, or one TTL has passed
func (l *RedisKeyLocker) Lock(ctx context.Context, key string) (func(), error) {
	lock, err := l.client.Obtain(ctx, lockKeyPrefix+key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(lockRetryInterval),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, shared.WrapDomainError("LOCK_NOT_OBTAINED",
			fmt.Sprintf("allocation lock %s is busy", key), err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}

	return func() {
		// The caller's ctx may already be canceled.
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("failed to release allocation lock",
				zap.String("key", key),
				zap.Error(err))
		}
	}, nil
}

var _ inventory.KeyLocker = (*RedisKeyLocker)(nil)
