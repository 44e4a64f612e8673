package billing

import "context"

// VendorBillingRepository defines the interface for vendor billing persistence
type VendorBillingRepository interface {
	// FindByName finds a billing by its natural key
	FindByName(ctx context.Context, name string) (*VendorBilling, error)

	// FindByOrder returns every billing related to an order
	FindByOrder(ctx context.Context, orderNumber int64) ([]*VendorBilling, error)

	// Create inserts a new billing. A name collision returns shared.ErrAlreadyExists.
	Create(ctx context.Context, billing *VendorBilling) error

	// SaveWithLock updates a billing if its stored version equals billing.Version,
	// then increments billing.Version. Otherwise it returns shared.ErrConcurrencyConflict.
	SaveWithLock(ctx context.Context, billing *VendorBilling) error
}
