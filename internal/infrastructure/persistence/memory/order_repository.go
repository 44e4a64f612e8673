package memory

import (
	"context"
	"sync"
	"time"

	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/commerce/backoffice/internal/domain/trade"
)

type channelRef struct {
	externalOrderID string
	channel         string
}

// OrderRepository is an in-memory trade.OrderRepository
type OrderRepository struct {
	mu        sync.RWMutex
	byNumber  map[int64]*trade.Order
	byChannel map[channelRef]int64
}

// NewOrderRepository creates an empty OrderRepository
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		byNumber:  make(map[int64]*trade.Order),
		byChannel: make(map[channelRef]int64),
	}
}

// FindByNumber finds an order by its order number
func (r *OrderRepository) FindByNumber(_ context.Context, number int64) (*trade.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.byNumber[number]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneOrder(o), nil
}

// FindByChannelRef finds an order by its channel identity
func (r *OrderRepository) FindByChannelRef(_ context.Context, externalOrderID, channel string) (*trade.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	number, ok := r.byChannel[channelRef{externalOrderID, channel}]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneOrder(r.byNumber[number]), nil
}

// ExistsByChannelRef checks the dedup key without loading the order
func (r *OrderRepository) ExistsByChannelRef(_ context.Context, externalOrderID, channel string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byChannel[channelRef{externalOrderID, channel}]
	return ok, nil
}

// NextOrderNumber returns max(existing)+1, starting at 1
func (r *OrderRepository) NextOrderNumber(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var highest int64
	for n := range r.byNumber {
		highest = max(highest, n)
	}
	return highest + 1, nil
}

// Create inserts a new order
func (r *OrderRepository) Create(_ context.Context, order *trade.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref := channelRef{order.ExternalOrderID, order.Channel}
	if _, ok := r.byChannel[ref]; ok {
		return shared.ErrAlreadyExists
	}
	if _, ok := r.byNumber[order.OrderNumber]; ok {
		return shared.ErrAlreadyExists
	}
	r.byNumber[order.OrderNumber] = cloneOrder(order)
	r.byChannel[ref] = order.OrderNumber
	return nil
}

// SaveWithLock replaces a stored order whose version equals order.Version
func (r *OrderRepository) SaveWithLock(_ context.Context, order *trade.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byNumber[order.OrderNumber]
	if !ok || stored.ID != order.ID || stored.Version != order.Version {
		return shared.ErrConcurrencyConflict
	}
	order.IncrementVersion()
	order.UpdatedAt = time.Now()
	r.byNumber[order.OrderNumber] = cloneOrder(order)
	return nil
}

// Count returns the number of stored orders
func (r *OrderRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byNumber)
}

var _ trade.OrderRepository = (*OrderRepository)(nil)
