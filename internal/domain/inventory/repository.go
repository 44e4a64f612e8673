package inventory

import "context"

// ShipmentRepository defines the interface for shipment persistence
type ShipmentRepository interface {
	// FindByNumber finds a shipment by its number
	FindByNumber(ctx context.Context, number int64) (*Shipment, error)

	// FindOpenBySellerSKU returns the seller's open shipments that still have sku available,
	// ordered by approval date ascending (oldest first)
	FindOpenBySellerSKU(ctx context.Context, sellerID int64, sku string) ([]*Shipment, error)

	// NextShipmentNumber returns max(existing)+1
	NextShipmentNumber(ctx context.Context) (int64, error)

	// Save creates a shipment
	Save(ctx context.Context, shipment *Shipment) error

	// SaveAllWithLock persists every shipment atomically, comparing each stored version with
	// shipment.Version. A mismatch on any of them writes nothing and returns
	// shared.ErrConcurrencyConflict. On success every shipment's Version is incremented.
	SaveAllWithLock(ctx context.Context, shipments ...*Shipment) error
}

// KeyLocker serializes work on a named key across goroutines or processes
type KeyLocker interface {
	// Lock blocks until key is held or ctx is done. The returned func releases it.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
