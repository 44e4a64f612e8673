package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/commerce/backoffice/internal/domain/billing"
	"github.com/commerce/backoffice/internal/domain/shared"
)

// VendorBillingRepository is an in-memory billing.VendorBillingRepository
type VendorBillingRepository struct {
	mu     sync.RWMutex
	byName map[string]*billing.VendorBilling
}

// NewVendorBillingRepository creates an empty VendorBillingRepository
func NewVendorBillingRepository() *VendorBillingRepository {
	return &VendorBillingRepository{byName: make(map[string]*billing.VendorBilling)}
}

// FindByName finds a billing by its natural key
func (r *VendorBillingRepository) FindByName(_ context.Context, name string) (*billing.VendorBilling, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byName[name]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneBilling(b), nil
}

// FindByOrder returns every billing related to an order, by name
func (r *VendorBillingRepository) FindByOrder(_ context.Context, orderNumber int64) ([]*billing.VendorBilling, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*billing.VendorBilling
	for _, b := range r.byName {
		if b.RelatedOrder == orderNumber {
			out = append(out, cloneBilling(b))
		}
	}
	slices.SortFunc(out, func(a, b *billing.VendorBilling) int {
		return strings.Compare(a.BillingName, b.BillingName)
	})
	return out, nil
}

// Create inserts a new billing
func (r *VendorBillingRepository) Create(_ context.Context, b *billing.VendorBilling) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[b.BillingName]; ok {
		return shared.ErrAlreadyExists
	}
	r.byName[b.BillingName] = cloneBilling(b)
	return nil
}

// SaveWithLock replaces a stored billing whose version equals b.Version
func (r *VendorBillingRepository) SaveWithLock(_ context.Context, b *billing.VendorBilling) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byName[b.BillingName]
	if !ok || stored.ID != b.ID || stored.Version != b.Version {
		return shared.ErrConcurrencyConflict
	}
	b.IncrementVersion()
	b.UpdatedAt = time.Now()
	r.byName[b.BillingName] = cloneBilling(b)
	return nil
}

var _ billing.VendorBillingRepository = (*VendorBillingRepository)(nil)
