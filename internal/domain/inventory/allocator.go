package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/commerce/backoffice/internal/domain/catalog"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AllocationRequest asks for quantity units of a seller's sku
type AllocationRequest struct {
	SellerID     int64
	SKU          string
	Quantity     decimal.Decimal
	DeliveryType catalog.DeliveryType
	BOM          *catalog.BOM // set when SKU is a pack
}

// Validate validates the allocation request
func (r AllocationRequest) Validate() error {
	if r.SellerID <= 0 {
		return shared.NewDomainError("INVALID_SELLER", "Seller ID must be positive")
	}
	if r.SKU == "" {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if r.Quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if !r.DeliveryType.IsValid() {
		return shared.NewDomainError("INVALID_DELIVERY_TYPE", fmt.Sprintf("Unknown delivery type %q", r.DeliveryType))
	}
	return nil
}

// Allocation is a quantity of one sku drawn from one shipment
type Allocation struct {
	ShipmentNumber int64           `json:"shipment_number"`
	SKU            string          `json:"sku"`
	Qty            decimal.Decimal `json:"qty"`
}

// DropshipItem is a quantity the seller ships directly, outside any shipment
type DropshipItem struct {
	Name string          `json:"name"`
	SKU  string          `json:"sku"`
	Qty  decimal.Decimal `json:"qty"`
}

// AllocationResult is the outcome of one Allocate call
type AllocationResult struct {
	Allocations []Allocation
	Dropship    []DropshipItem
	// Remaining is the requested quantity left unallocated, in requested units.
	// A pack that could not be fully covered reports its whole quantity.
	Remaining decimal.Decimal
	Events    []shared.DomainEvent
}

// Complete reports whether the whole request was covered
func (r AllocationResult) Complete() bool {
	return r.Remaining.IsZero()
}

// ShipmentNumbers returns the distinct shipments touched, in allocation order
func (r AllocationResult) ShipmentNumbers() []int64 {
	seen := make(map[int64]struct{}, len(r.Allocations))
	out := make([]int64, 0, len(r.Allocations))
	for _, a := range r.Allocations {
		if _, ok := seen[a.ShipmentNumber]; ok {
			continue
		}
		seen[a.ShipmentNumber] = struct{}{}
		out = append(out, a.ShipmentNumber)
	}
	return out
}

// DropshipName is the bucket name for a seller's dropshipped quantities
func DropshipName(sellerID int64) string {
	return fmt.Sprintf("DS_%d", sellerID)
}

// AllocationLockKey is the KeyLocker key guarding a seller's sku
func AllocationLockKey(sellerID int64, sku string) string {
	return fmt.Sprintf("alloc:%d:%s", sellerID, sku)
}

// AllocatorOption is a functional option for configuring Allocator
type AllocatorOption func(*Allocator)

// WithKeyLocker sets the locker that serializes allocation per (seller, sku)
func WithKeyLocker(locker KeyLocker) AllocatorOption {
	return func(a *Allocator) {
		if locker != nil {
			a.locker = locker
		}
	}
}

// WithPartialSingleSKU controls whether a single-sku shortfall keeps what was found.
// Packs are always all-or-nothing.
func WithPartialSingleSKU(enabled bool) AllocatorOption {
	return func(a *Allocator) {
		a.partialSingleSKU = enabled
	}
}

// WithMaxRetries sets how many times a lost version race is retried
func WithMaxRetries(n int) AllocatorOption {
	return func(a *Allocator) {
		if n >= 0 {
			a.maxRetries = n
		}
	}
}

// Allocator draws sold quantities from a seller's open shipments, oldest approval first
type Allocator struct {
	shipments        ShipmentRepository
	locker           KeyLocker
	partialSingleSKU bool
	maxRetries       int
}

// NewAllocator creates a new Allocator
func NewAllocator(shipments ShipmentRepository, opts ...AllocatorOption) *Allocator {
	a := &Allocator{
		shipments:        shipments,
		locker:           NewMutexKeyLocker(),
		partialSingleSKU: true,
		maxRetries:       3,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// demand is one sku quantity the allocator has to cover
type demand struct {
	sku string
	qty decimal.Decimal
}

// plan is the set of in-memory shipment mutations for one request
type plan struct {
	allocations []Allocation
	touched     []*Shipment
	shortfall   decimal.Decimal
}

// Allocate covers the request from open shipments, or routes it to the seller's dropship bucket.
// Shipments are written only when the line as a whole is accepted.
func (a *Allocator) Allocate(ctx context.Context, req AllocationRequest) (*AllocationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	demands := expand(req)

	if req.DeliveryType == catalog.DeliveryDropshipping {
		result := &AllocationResult{Remaining: decimal.Zero}
		for _, d := range demands {
			result.Dropship = append(result.Dropship, DropshipItem{
				Name: DropshipName(req.SellerID),
				SKU:  d.sku,
				Qty:  d.qty,
			})
		}
		return result, nil
	}

	unlock, err := a.lockAll(ctx, req.SellerID, demands)
	if err != nil {
		return nil, err
	}
	defer unlock()

	isPack := req.BOM.IsPack()
	for attempt := 0; ; attempt++ {
		p, err := a.plan(ctx, req.SellerID, demands)
		if err != nil {
			return nil, err
		}

		if p.shortfall.IsPositive() && (isPack || !a.partialSingleSKU) {
			return &AllocationResult{Remaining: req.Quantity}, nil
		}

		remaining := p.shortfall
		if isPack {
			remaining = decimal.Zero
		}
		if len(p.touched) == 0 {
			return &AllocationResult{Remaining: remaining}, nil
		}

		err = a.shipments.SaveAllWithLock(ctx, p.touched...)
		if err == nil {
			result := &AllocationResult{Allocations: p.allocations, Remaining: remaining}
			for _, s := range p.touched {
				result.Events = append(result.Events, s.GetDomainEvents()...)
				s.ClearDomainEvents()
			}
			return result, nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) || attempt >= a.maxRetries {
			return nil, err
		}
	}
}

// Release hands previously allocated quantities back to their shipments, in
// one atomic write. It returns the stock released events of the shipments.
func (a *Allocator) Release(ctx context.Context, sellerID int64, allocations []Allocation) ([]shared.DomainEvent, error) {
	if len(allocations) == 0 {
		return nil, nil
	}

	demands := make([]demand, 0, len(allocations))
	for _, al := range allocations {
		demands = append(demands, demand{sku: al.SKU, qty: al.Qty})
	}
	unlock, err := a.lockAll(ctx, sellerID, demands)
	if err != nil {
		return nil, err
	}
	defer unlock()

	for attempt := 0; ; attempt++ {
		touched := make(map[int64]*Shipment)
		ordered := make([]*Shipment, 0, len(allocations))
		for _, al := range allocations {
			s, ok := touched[al.ShipmentNumber]
			if !ok {
				s, err = a.shipments.FindByNumber(ctx, al.ShipmentNumber)
				if err != nil {
					return nil, fmt.Errorf("failed to load shipment %d: %w", al.ShipmentNumber, err)
				}
				if s.SellerID != sellerID {
					return nil, shared.NewDomainError("SELLER_MISMATCH",
						fmt.Sprintf("Shipment %d does not belong to seller %d", al.ShipmentNumber, sellerID))
				}
				touched[al.ShipmentNumber] = s
				ordered = append(ordered, s)
			}
			if err := s.Restock(al.SKU, al.Qty); err != nil {
				return nil, err
			}
		}

		err = a.shipments.SaveAllWithLock(ctx, ordered...)
		if err == nil {
			var events []shared.DomainEvent
			for _, s := range ordered {
				events = append(events, s.GetDomainEvents()...)
				s.ClearDomainEvents()
			}
			return events, nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) || attempt >= a.maxRetries {
			return nil, err
		}
	}
}

// plan walks each demand across the open shipments without persisting anything.
// A shipment touched by an earlier demand is reused so its decrements accumulate.
func (a *Allocator) plan(ctx context.Context, sellerID int64, demands []demand) (*plan, error) {
	p := &plan{shortfall: decimal.Zero}
	touched := make(map[int64]*Shipment)

	for _, d := range demands {
		open, err := a.shipments.FindOpenBySellerSKU(ctx, sellerID, d.sku)
		if err != nil {
			return nil, fmt.Errorf("failed to load open shipments for %s: %w", d.sku, err)
		}
		for i, s := range open {
			if prev, ok := touched[s.ShipmentNumber]; ok {
				open[i] = prev
			}
		}
		sort.SliceStable(open, func(i, j int) bool {
			return open[i].ApprovedAt.Before(open[j].ApprovedAt)
		})

		remaining := d.qty
		for _, s := range open {
			if !remaining.IsPositive() {
				break
			}
			available := s.Available(d.sku)
			if !s.IsOpen() || !available.IsPositive() {
				continue
			}

			take := decimal.Min(remaining, available)
			if err := s.Sell(d.sku, take); err != nil {
				return nil, err
			}
			if _, ok := touched[s.ShipmentNumber]; !ok {
				touched[s.ShipmentNumber] = s
				p.touched = append(p.touched, s)
			}
			p.allocations = append(p.allocations, Allocation{
				ShipmentNumber: s.ShipmentNumber,
				SKU:            d.sku,
				Qty:            take,
			})
			remaining = remaining.Sub(take)
		}
		p.shortfall = p.shortfall.Add(remaining)
	}
	return p, nil
}

// lockAll takes every (seller, sku) key in sorted order so overlapping packs cannot deadlock
func (a *Allocator) lockAll(ctx context.Context, sellerID int64, demands []demand) (func(), error) {
	keys := make([]string, 0, len(demands))
	seen := make(map[string]struct{}, len(demands))
	for _, d := range demands {
		k := AllocationLockKey(sellerID, d.sku)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	unlocks := make([]func(), 0, len(keys))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, k := range keys {
		unlock, err := a.locker.Lock(ctx, k)
		if err != nil {
			release()
			return nil, fmt.Errorf("failed to lock %s: %w", k, err)
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}

func expand(req AllocationRequest) []demand {
	if !req.BOM.IsPack() {
		return []demand{{sku: req.SKU, qty: req.Quantity}}
	}
	lines := req.BOM.Expand(req.Quantity)
	out := make([]demand, len(lines))
	for i, l := range lines {
		out[i] = demand{sku: l.ComponentSKU, qty: l.Quantity}
	}
	return out
}
