package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ShipmentRepository is an in-memory inventory.ShipmentRepository
type ShipmentRepository struct {
	mu       sync.RWMutex
	byNumber map[int64]*inventory.Shipment
}

// NewShipmentRepository creates an empty ShipmentRepository
func NewShipmentRepository() *ShipmentRepository {
	return &ShipmentRepository{byNumber: make(map[int64]*inventory.Shipment)}
}

// FindByNumber finds a shipment by its number
func (r *ShipmentRepository) FindByNumber(_ context.Context, number int64) (*inventory.Shipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byNumber[number]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneShipment(s), nil
}

// FindOpenBySellerSKU returns the seller's open shipments that still have sku
// available, oldest approval first
func (r *ShipmentRepository) FindOpenBySellerSKU(_ context.Context, sellerID int64, sku string) ([]*inventory.Shipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*inventory.Shipment
	for _, s := range r.byNumber {
		if s.SellerID == sellerID && s.IsOpen() && s.Available(sku).IsPositive() {
			out = append(out, cloneShipment(s))
		}
	}
	slices.SortFunc(out, func(a, b *inventory.Shipment) int {
		if c := a.ApprovedAt.Compare(b.ApprovedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ShipmentNumber, b.ShipmentNumber)
	})
	return out, nil
}

// NextShipmentNumber returns max(existing)+1
func (r *ShipmentRepository) NextShipmentNumber(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var highest int64
	for n := range r.byNumber {
		highest = max(highest, n)
	}
	return highest + 1, nil
}

// Save creates a shipment
func (r *ShipmentRepository) Save(_ context.Context, shipment *inventory.Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byNumber[shipment.ShipmentNumber]; ok {
		return shared.ErrAlreadyExists
	}
	r.byNumber[shipment.ShipmentNumber] = cloneShipment(shipment)
	return nil
}

// SaveAllWithLock replaces every shipment if all stored versions match
func (r *ShipmentRepository) SaveAllWithLock(_ context.Context, shipments ...*inventory.Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range shipments {
		stored, ok := r.byNumber[s.ShipmentNumber]
		if !ok || stored.ID != s.ID || stored.Version != s.Version {
			return shared.ErrConcurrencyConflict
		}
	}
	now := time.Now()
	for _, s := range shipments {
		s.IncrementVersion()
		s.UpdatedAt = now
		r.byNumber[s.ShipmentNumber] = cloneShipment(s)
	}
	return nil
}

// OpenStockBySeller sums the available quantity of open shipments per seller
func (r *ShipmentRepository) OpenStockBySeller(_ context.Context) (map[int64]decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[int64]decimal.Decimal)
	for _, s := range r.byNumber {
		if !s.IsOpen() {
			continue
		}
		total := out[s.SellerID]
		for _, l := range s.Lines {
			total = total.Add(l.QtyAvailable)
		}
		out[s.SellerID] = total
	}
	return out, nil
}

var _ inventory.ShipmentRepository = (*ShipmentRepository)(nil)
