package inventory

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/commerce/backoffice/internal/domain/catalog"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeShipments stores clones so planning never leaks into stored state
type fakeShipments struct {
	mu        sync.Mutex
	byNumber  map[int64]*Shipment
	conflicts int
	saves     int
}

func newFakeShipments(shipments ...*Shipment) *fakeShipments {
	f := &fakeShipments{byNumber: make(map[int64]*Shipment)}
	for _, s := range shipments {
		f.byNumber[s.ShipmentNumber] = cloneShipment(s)
	}
	return f
}

func cloneShipment(s *Shipment) *Shipment {
	c := *s
	c.Lines = append([]ShipmentLine(nil), s.Lines...)
	c.ClearDomainEvents()
	return &c
}

func (f *fakeShipments) FindByNumber(_ context.Context, number int64) (*Shipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byNumber[number]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneShipment(s), nil
}

func (f *fakeShipments) FindOpenBySellerSKU(_ context.Context, sellerID int64, sku string) ([]*Shipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Shipment
	for _, s := range f.byNumber {
		if s.SellerID == sellerID && s.IsOpen() && s.Available(sku).IsPositive() {
			out = append(out, cloneShipment(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ApprovedAt.Before(out[j].ApprovedAt) })
	return out, nil
}

func (f *fakeShipments) NextShipmentNumber(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var max int64
	for n := range f.byNumber {
		if n > max {
			max = n
		}
	}
	return max + 1, nil
}

func (f *fakeShipments) Save(_ context.Context, s *Shipment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byNumber[s.ShipmentNumber] = cloneShipment(s)
	return nil
}

func (f *fakeShipments) SaveAllWithLock(_ context.Context, shipments ...*Shipment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conflicts > 0 {
		f.conflicts--
		return shared.ErrConcurrencyConflict
	}
	for _, s := range shipments {
		stored, ok := f.byNumber[s.ShipmentNumber]
		if !ok || stored.Version != s.Version {
			return shared.ErrConcurrencyConflict
		}
	}
	for _, s := range shipments {
		s.IncrementVersion()
		f.byNumber[s.ShipmentNumber] = cloneShipment(s)
	}
	f.saves++
	return nil
}

func (f *fakeShipments) available(t *testing.T, number int64, sku string) decimal.Decimal {
	t.Helper()
	s, err := f.FindByNumber(context.Background(), number)
	require.NoError(t, err)
	return s.Available(sku)
}

var day1 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func qty(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func testShipment(t *testing.T, number, sellerID int64, approvedAt time.Time, stock map[string]int64) *Shipment {
	t.Helper()
	skus := make([]string, 0, len(stock))
	for sku := range stock {
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	lines := make([]ShipmentLine, 0, len(stock))
	for _, sku := range skus {
		line, err := NewShipmentLine(sku, "Product "+sku, qty(stock[sku]), decimal.NewFromInt(10), decimal.NewFromInt(23))
		require.NoError(t, err)
		lines = append(lines, line)
	}
	s, err := NewShipment(number, sellerID, catalog.DeliveryFulfillment, approvedAt, lines)
	require.NoError(t, err)
	return s
}

func singleRequest(sku string, n int64) AllocationRequest {
	return AllocationRequest{SellerID: 7, SKU: sku, Quantity: qty(n), DeliveryType: catalog.DeliveryFulfillment}
}

// ==================== FIFO ====================

func TestAllocator_FIFOAcrossShipments(t *testing.T) {
	a := testShipment(t, 1, 7, day1, map[string]int64{"WINE-1": 5})
	b := testShipment(t, 2, 7, day1.AddDate(0, 0, 1), map[string]int64{"WINE-1": 10})
	repo := newFakeShipments(b, a)

	result, err := NewAllocator(repo).Allocate(context.Background(), singleRequest("WINE-1", 8))
	require.NoError(t, err)

	require.Len(t, result.Allocations, 2)
	assert.Equal(t, int64(1), result.Allocations[0].ShipmentNumber)
	assert.True(t, result.Allocations[0].Qty.Equal(qty(5)))
	assert.Equal(t, int64(2), result.Allocations[1].ShipmentNumber)
	assert.True(t, result.Allocations[1].Qty.Equal(qty(3)))
	assert.True(t, result.Complete())
	assert.Equal(t, []int64{1, 2}, result.ShipmentNumbers())

	assert.True(t, repo.available(t, 1, "WINE-1").IsZero())
	assert.True(t, repo.available(t, 2, "WINE-1").Equal(qty(7)))

	stored, err := repo.FindByNumber(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, ShipmentStatusClosed, stored.Status)
	assert.Equal(t, 2, stored.Version)
	assert.NotEmpty(t, result.Events)
}

func TestAllocator_Conservation(t *testing.T) {
	tests := []struct {
		name      string
		demand    int64
		stock     []int64
		allocated int64
	}{
		{"fits in first", 3, []int64{5, 10}, 3},
		{"spans two", 8, []int64{5, 10}, 8},
		{"exact total", 15, []int64{5, 10}, 15},
		{"shortfall", 20, []int64{5, 10}, 15},
		{"three shipments", 12, []int64{4, 4, 4}, 12},
		{"no stock", 2, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var shipments []*Shipment
			for i, s := range tt.stock {
				shipments = append(shipments, testShipment(t, int64(i+1), 7, day1.AddDate(0, 0, i), map[string]int64{"SKU": s}))
			}
			repo := newFakeShipments(shipments...)

			result, err := NewAllocator(repo).Allocate(context.Background(), singleRequest("SKU", tt.demand))
			require.NoError(t, err)

			sum := decimal.Zero
			for _, alloc := range result.Allocations {
				assert.True(t, alloc.Qty.IsPositive())
				sum = sum.Add(alloc.Qty)
			}
			assert.True(t, sum.Equal(qty(tt.allocated)), "allocated %s", sum)
			assert.True(t, sum.Add(result.Remaining).Equal(qty(tt.demand)))

			left := decimal.Zero
			for i := range tt.stock {
				avail := repo.available(t, int64(i+1), "SKU")
				assert.False(t, avail.IsNegative())
				left = left.Add(avail)
			}
			total := int64(0)
			for _, s := range tt.stock {
				total += s
			}
			assert.True(t, left.Equal(qty(total-tt.allocated)))
		})
	}
}

func TestAllocator_SkipsOtherSellers(t *testing.T) {
	mine := testShipment(t, 1, 7, day1.AddDate(0, 0, 1), map[string]int64{"SKU": 2})
	theirs := testShipment(t, 2, 8, day1, map[string]int64{"SKU": 50})
	repo := newFakeShipments(mine, theirs)

	result, err := NewAllocator(repo).Allocate(context.Background(), singleRequest("SKU", 2))
	require.NoError(t, err)
	require.Len(t, result.Allocations, 1)
	assert.Equal(t, int64(1), result.Allocations[0].ShipmentNumber)
	assert.True(t, repo.available(t, 2, "SKU").Equal(qty(50)))
}

// ==================== Partial policy ====================

func TestAllocator_SingleSKUShortfall(t *testing.T) {
	t.Run("keeps partial by default", func(t *testing.T) {
		repo := newFakeShipments(testShipment(t, 1, 7, day1, map[string]int64{"SKU": 3}))

		result, err := NewAllocator(repo).Allocate(context.Background(), singleRequest("SKU", 5))
		require.NoError(t, err)
		require.Len(t, result.Allocations, 1)
		assert.True(t, result.Remaining.Equal(qty(2)))
		assert.False(t, result.Complete())
		assert.True(t, repo.available(t, 1, "SKU").IsZero())
	})

	t.Run("all or nothing when disabled", func(t *testing.T) {
		repo := newFakeShipments(testShipment(t, 1, 7, day1, map[string]int64{"SKU": 3}))

		result, err := NewAllocator(repo, WithPartialSingleSKU(false)).Allocate(context.Background(), singleRequest("SKU", 5))
		require.NoError(t, err)
		assert.Empty(t, result.Allocations)
		assert.True(t, result.Remaining.Equal(qty(5)))
		assert.True(t, repo.available(t, 1, "SKU").Equal(qty(3)))
		assert.Zero(t, repo.saves)
	})
}

// ==================== Packs ====================

func packRequest(n int64) AllocationRequest {
	return AllocationRequest{
		SellerID:     7,
		SKU:          "PACK",
		Quantity:     qty(n),
		DeliveryType: catalog.DeliveryFulfillment,
		BOM: &catalog.BOM{SKU: "PACK", Lines: []catalog.BOMLine{
			{ComponentSKU: "X", Quantity: qty(2)},
			{ComponentSKU: "Y", Quantity: qty(1)},
		}},
	}
}

func TestAllocator_PackAllOrNothing(t *testing.T) {
	x := testShipment(t, 1, 7, day1, map[string]int64{"X": 10})
	y := testShipment(t, 2, 7, day1, map[string]int64{"Y": 1})
	repo := newFakeShipments(x, y)

	result, err := NewAllocator(repo).Allocate(context.Background(), packRequest(2))
	require.NoError(t, err)

	assert.Empty(t, result.Allocations)
	assert.Empty(t, result.ShipmentNumbers())
	assert.True(t, result.Remaining.Equal(qty(2)))
	assert.True(t, repo.available(t, 1, "X").Equal(qty(10)))
	assert.True(t, repo.available(t, 2, "Y").Equal(qty(1)))
	assert.Zero(t, repo.saves)
}

func TestAllocator_PackSharesShipmentAcrossComponents(t *testing.T) {
	s := testShipment(t, 1, 7, day1, map[string]int64{"X": 4, "Y": 2})
	repo := newFakeShipments(s)

	result, err := NewAllocator(repo).Allocate(context.Background(), packRequest(2))
	require.NoError(t, err)

	require.Len(t, result.Allocations, 2)
	assert.Equal(t, "X", result.Allocations[0].SKU)
	assert.True(t, result.Allocations[0].Qty.Equal(qty(4)))
	assert.Equal(t, "Y", result.Allocations[1].SKU)
	assert.True(t, result.Allocations[1].Qty.Equal(qty(2)))
	assert.Equal(t, []int64{1}, result.ShipmentNumbers())
	assert.True(t, result.Complete())

	stored, err := repo.FindByNumber(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, ShipmentStatusClosed, stored.Status)
	assert.Equal(t, 1, repo.saves)
}

// ==================== Dropshipping ====================

func TestAllocator_Dropship(t *testing.T) {
	repo := newFakeShipments()
	allocator := NewAllocator(repo)

	t.Run("single sku", func(t *testing.T) {
		req := singleRequest("SKU", 3)
		req.DeliveryType = catalog.DeliveryDropshipping

		result, err := allocator.Allocate(context.Background(), req)
		require.NoError(t, err)
		assert.Empty(t, result.Allocations)
		require.Len(t, result.Dropship, 1)
		assert.Equal(t, "DS_7", result.Dropship[0].Name)
		assert.True(t, result.Dropship[0].Qty.Equal(qty(3)))
		assert.True(t, result.Complete())
	})

	t.Run("pack expands per component", func(t *testing.T) {
		req := packRequest(3)
		req.DeliveryType = catalog.DeliveryDropshipping

		result, err := allocator.Allocate(context.Background(), req)
		require.NoError(t, err)
		require.Len(t, result.Dropship, 2)
		assert.Equal(t, "X", result.Dropship[0].SKU)
		assert.True(t, result.Dropship[0].Qty.Equal(qty(6)))
		assert.Equal(t, "Y", result.Dropship[1].SKU)
		assert.True(t, result.Dropship[1].Qty.Equal(qty(3)))
	})
}

// ==================== Concurrency ====================

func TestAllocator_RetriesVersionConflict(t *testing.T) {
	t.Run("recovers", func(t *testing.T) {
		repo := newFakeShipments(testShipment(t, 1, 7, day1, map[string]int64{"SKU": 5}))
		repo.conflicts = 2

		result, err := NewAllocator(repo, WithMaxRetries(2)).Allocate(context.Background(), singleRequest("SKU", 4))
		require.NoError(t, err)
		assert.True(t, result.Complete())
		assert.True(t, repo.available(t, 1, "SKU").Equal(qty(1)))
	})

	t.Run("gives up", func(t *testing.T) {
		repo := newFakeShipments(testShipment(t, 1, 7, day1, map[string]int64{"SKU": 5}))
		repo.conflicts = 5

		_, err := NewAllocator(repo, WithMaxRetries(1)).Allocate(context.Background(), singleRequest("SKU", 4))
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.True(t, repo.available(t, 1, "SKU").Equal(qty(5)))
	})
}

func TestAllocator_Release(t *testing.T) {
	ctx := context.Background()

	t.Run("returns stock taken by an allocation", func(t *testing.T) {
		repo := newFakeShipments(
			testShipment(t, 1, 7, day1, map[string]int64{"WINE-1": 2}),
			testShipment(t, 2, 7, day1.AddDate(0, 0, 1), map[string]int64{"WINE-1": 10}),
		)
		allocator := NewAllocator(repo)

		result, err := allocator.Allocate(ctx, singleRequest("WINE-1", 5))
		require.NoError(t, err)

		events, err := allocator.Release(ctx, 7, result.Allocations)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, EventTypeShipmentReleased, events[0].EventType())

		assert.True(t, repo.available(t, 1, "WINE-1").Equal(qty(2)))
		assert.True(t, repo.available(t, 2, "WINE-1").Equal(qty(10)))
		first, err := repo.FindByNumber(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, ShipmentStatusOpen, first.Status)
	})

	t.Run("retries version conflicts", func(t *testing.T) {
		repo := newFakeShipments(testShipment(t, 1, 7, day1, map[string]int64{"SKU": 5}))
		allocator := NewAllocator(repo, WithMaxRetries(2))
		result, err := allocator.Allocate(ctx, singleRequest("SKU", 4))
		require.NoError(t, err)

		repo.conflicts = 2
		_, err = allocator.Release(ctx, 7, result.Allocations)
		require.NoError(t, err)
		assert.True(t, repo.available(t, 1, "SKU").Equal(qty(5)))
	})

	t.Run("rejects a shipment of another seller", func(t *testing.T) {
		repo := newFakeShipments(testShipment(t, 1, 9, day1, map[string]int64{"SKU": 5}))

		_, err := NewAllocator(repo).Release(ctx, 7, []Allocation{{ShipmentNumber: 1, SKU: "SKU", Qty: qty(1)}})
		assert.Equal(t, "SELLER_MISMATCH", shared.CodeOf(err))
		assert.Zero(t, repo.saves)
	})

	t.Run("nothing to release", func(t *testing.T) {
		events, err := NewAllocator(newFakeShipments()).Release(ctx, 7, nil)
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}

func TestAllocator_ConcurrentOrdersNeverOverAllocate(t *testing.T) {
	repo := newFakeShipments(
		testShipment(t, 1, 7, day1, map[string]int64{"SKU": 3}),
		testShipment(t, 2, 7, day1.AddDate(0, 0, 1), map[string]int64{"SKU": 2}),
	)
	allocator := NewAllocator(repo, WithPartialSingleSKU(false))

	var wg sync.WaitGroup
	var mu sync.Mutex
	complete := 0
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := allocator.Allocate(context.Background(), singleRequest("SKU", 1))
			if err == nil && result.Complete() {
				mu.Lock()
				complete++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, complete)
	assert.True(t, repo.available(t, 1, "SKU").IsZero())
	assert.True(t, repo.available(t, 2, "SKU").IsZero())
}

// ==================== Validation ====================

func TestAllocationRequest_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AllocationRequest)
		code   string
	}{
		{"valid", func(*AllocationRequest) {}, ""},
		{"missing seller", func(r *AllocationRequest) { r.SellerID = 0 }, "INVALID_SELLER"},
		{"missing sku", func(r *AllocationRequest) { r.SKU = "" }, "INVALID_SKU"},
		{"zero quantity", func(r *AllocationRequest) { r.Quantity = decimal.Zero }, "INVALID_QUANTITY"},
		{"unknown delivery", func(r *AllocationRequest) { r.DeliveryType = "pigeon" }, "INVALID_DELIVERY_TYPE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := singleRequest("SKU", 1)
			tt.mutate(&req)
			err := req.Validate()
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.code, shared.CodeOf(err))
		})
	}
}

func TestMutexKeyLocker(t *testing.T) {
	locker := NewMutexKeyLocker()

	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := locker.Lock(context.Background(), "other")
	require.NoError(t, err)
	other()

	unlock()
	unlock()

	again, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)
	again()

	locker.mu.Lock()
	assert.Empty(t, locker.slots)
	locker.mu.Unlock()
}
