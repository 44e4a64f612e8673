package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	tradeapp "github.com/commerce/backoffice/internal/application/trade"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const (
	summaryKeyPrefix   = "bo:order:"
	summaryStatusIndex = "bo:orders:status:"
	summaryMaxRetries  = 5
)

// RedisOrderSummaryStore keeps order summaries as JSON strings, plus one set
// of order numbers per status
type RedisOrderSummaryStore struct {
	client redis.UniversalClient
}

// NewRedisOrderSummaryStore creates a store on an existing client
func NewRedisOrderSummaryStore(client redis.UniversalClient) *RedisOrderSummaryStore {
	return &RedisOrderSummaryStore{client: client}
}

func summaryKey(orderNumber int64) string {
	return summaryKeyPrefix + strconv.FormatInt(orderNumber, 10)
}

// Put stores the summary and indexes it by status
func (s *RedisOrderSummaryStore) Put(ctx context.Context, summary tradeapp.OrderSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode order summary: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, summaryKey(summary.OrderNumber), payload, 0)
		pipe.SAdd(ctx, summaryStatusIndex+summary.Status, summary.OrderNumber)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store order summary %d: %w", summary.OrderNumber, err)
	}
	return nil
}

// UpdateStatus rewrites the status of a stored summary and moves it between
// status sets. A concurrent writer makes the update retry.
func (s *RedisOrderSummaryStore) UpdateStatus(ctx context.Context, orderNumber int64, status string, at time.Time) error {
	key := summaryKey(orderNumber)

	update := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return shared.ErrNotFound
		}
		if err != nil {
			return err
		}

		var summary tradeapp.OrderSummary
		if err := json.Unmarshal(raw, &summary); err != nil {
			return fmt.Errorf("failed to decode order summary: %w", err)
		}
		previous := summary.Status
		summary.Status = status
		summary.UpdatedAt = at

		payload, err := json.Marshal(summary)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			if previous != status {
				pipe.SRem(ctx, summaryStatusIndex+previous, orderNumber)
				pipe.SAdd(ctx, summaryStatusIndex+status, orderNumber)
			}
			return nil
		})
		return err
	}

	for i := 0; i < summaryMaxRetries; i++ {
		err := s.client.Watch(ctx, update, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("failed to update order summary %d: %w", orderNumber, err)
		}
		return err
	}
	return shared.ErrConcurrencyConflict
}

// Get returns one summary
func (s *RedisOrderSummaryStore) Get(ctx context.Context, orderNumber int64) (*tradeapp.OrderSummary, error) {
	raw, err := s.client.Get(ctx, summaryKey(orderNumber)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read order summary %d: %w", orderNumber, err)
	}

	var summary tradeapp.OrderSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, fmt.Errorf("failed to decode order summary: %w", err)
	}
	return &summary, nil
}

// NumbersByStatus lists the order numbers indexed under status
func (s *RedisOrderSummaryStore) NumbersByStatus(ctx context.Context, status string) ([]int64, error) {
	members, err := s.client.SMembers(ctx, summaryStatusIndex+status).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list orders in %s: %w", status, err)
	}
	out := make([]int64, 0, len(members))
	for _, m := range members {
		n, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// InMemoryOrderSummaryStore is the single-process summary store used when
// Redis is not configured
type InMemoryOrderSummaryStore struct {
	mu        sync.RWMutex
	summaries map[int64]tradeapp.OrderSummary
}

// NewInMemoryOrderSummaryStore creates an empty store
func NewInMemoryOrderSummaryStore() *InMemoryOrderSummaryStore {
	return &InMemoryOrderSummaryStore{summaries: make(map[int64]tradeapp.OrderSummary)}
}

// Put stores the summary
func (s *InMemoryOrderSummaryStore) Put(_ context.Context, summary tradeapp.OrderSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[summary.OrderNumber] = summary
	return nil
}

// UpdateStatus rewrites the status of a stored summary
func (s *InMemoryOrderSummaryStore) UpdateStatus(_ context.Context, orderNumber int64, status string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary, ok := s.summaries[orderNumber]
	if !ok {
		return shared.ErrNotFound
	}
	summary.Status = status
	summary.UpdatedAt = at
	s.summaries[orderNumber] = summary
	return nil
}

// Get returns one summary
func (s *InMemoryOrderSummaryStore) Get(_ context.Context, orderNumber int64) (*tradeapp.OrderSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, ok := s.summaries[orderNumber]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &summary, nil
}

var (
	_ tradeapp.OrderSummaryStore = (*RedisOrderSummaryStore)(nil)
	_ tradeapp.OrderSummaryStore = (*InMemoryOrderSummaryStore)(nil)
)
