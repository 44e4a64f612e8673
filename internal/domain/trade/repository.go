package trade

import "context"

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// FindByNumber finds an order by its order number
	FindByNumber(ctx context.Context, number int64) (*Order, error)

	// FindByChannelRef finds an order by its channel identity
	FindByChannelRef(ctx context.Context, externalOrderID, channel string) (*Order, error)

	// ExistsByChannelRef checks the dedup key without loading the order
	ExistsByChannelRef(ctx context.Context, externalOrderID, channel string) (bool, error)

	// NextOrderNumber returns max(existing)+1, starting at 1
	NextOrderNumber(ctx context.Context) (int64, error)

	// Create inserts a new order. A duplicate channel identity or order number
	// returns shared.ErrAlreadyExists.
	Create(ctx context.Context, order *Order) error

	// SaveWithLock updates an order if its stored version equals order.Version,
	// then increments order.Version. Otherwise it returns shared.ErrConcurrencyConflict.
	SaveWithLock(ctx context.Context, order *Order) error
}
