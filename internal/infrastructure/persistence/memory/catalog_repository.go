package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/commerce/backoffice/internal/domain/catalog"
	"github.com/commerce/backoffice/internal/domain/shared"
)

type offerKey struct {
	sellerID int64
	sku      string
	platform string
}

// OfferRepository is an in-memory catalog.OfferRepository
type OfferRepository struct {
	mu     sync.RWMutex
	offers map[offerKey]*catalog.Offer
}

// NewOfferRepository creates an empty OfferRepository
func NewOfferRepository() *OfferRepository {
	return &OfferRepository{offers: make(map[offerKey]*catalog.Offer)}
}

// FindWinner returns the active ranking 1 offer for a SKU on a platform
func (r *OfferRepository) FindWinner(_ context.Context, sku, platform string) (*catalog.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for k, o := range r.offers {
		if k.sku == sku && k.platform == platform && o.IsWinner() {
			return cloneOffer(o), nil
		}
	}
	return nil, shared.ErrNotFound
}

// FindBySellerSKU returns a seller's offer for a SKU on a platform
func (r *OfferRepository) FindBySellerSKU(_ context.Context, sellerID int64, sku, platform string) (*catalog.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.offers[offerKey{sellerID, sku, platform}]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneOffer(o), nil
}

// Save creates or updates an offer
func (r *OfferRepository) Save(_ context.Context, offer *catalog.Offer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := offerKey{offer.SellerID, offer.SKU, offer.Platform}
	if existing, ok := r.offers[key]; ok && existing.ID != offer.ID {
		return shared.ErrAlreadyExists
	}
	r.offers[key] = cloneOffer(offer)
	return nil
}

// RankingHistoryRepository is an in-memory catalog.RankingHistoryRepository
type RankingHistoryRepository struct {
	mu      sync.RWMutex
	entries map[[2]string][]catalog.RankingEntry
}

// NewRankingHistoryRepository creates an empty RankingHistoryRepository
func NewRankingHistoryRepository() *RankingHistoryRepository {
	return &RankingHistoryRepository{entries: make(map[[2]string][]catalog.RankingEntry)}
}

// FindHistory returns the winner log of a SKU on a platform, oldest first
func (r *RankingHistoryRepository) FindHistory(_ context.Context, sku, platform string) (*catalog.RankingHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := r.entries[[2]string{sku, platform}]
	if len(entries) == 0 {
		return nil, shared.ErrNotFound
	}
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b catalog.RankingEntry) int { return a.Date.Compare(b.Date) })
	return &catalog.RankingHistory{SKU: sku, Platform: platform, Entries: sorted}, nil
}

// Append adds an entry to the log
func (r *RankingHistoryRepository) Append(_ context.Context, sku, platform string, entry catalog.RankingEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]string{sku, platform}
	r.entries[key] = append(r.entries[key], entry)
	return nil
}

// BOMRepository is an in-memory catalog.BOMRepository
type BOMRepository struct {
	mu   sync.RWMutex
	boms map[string]*catalog.BOM
}

// NewBOMRepository creates an empty BOMRepository
func NewBOMRepository() *BOMRepository {
	return &BOMRepository{boms: make(map[string]*catalog.BOM)}
}

// FindBySKU returns the BOM of a pack SKU, or shared.ErrNotFound if the SKU is not a pack
func (r *BOMRepository) FindBySKU(_ context.Context, sku string) (*catalog.BOM, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bom, ok := r.boms[sku]
	if !ok || !bom.IsPack() {
		return nil, shared.ErrNotFound
	}
	return cloneBOM(bom), nil
}

// Save replaces the component list of a pack
func (r *BOMRepository) Save(_ context.Context, bom *catalog.BOM) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.boms[bom.SKU] = cloneBOM(bom)
	return nil
}

type taxKey struct {
	sku     string
	country catalog.Country
}

// TaxRepository is an in-memory catalog.TaxRepository
type TaxRepository struct {
	mu    sync.RWMutex
	rates map[taxKey]catalog.TaxRate
}

// NewTaxRepository creates an empty TaxRepository
func NewTaxRepository() *TaxRepository {
	return &TaxRepository{rates: make(map[taxKey]catalog.TaxRate)}
}

// FindRate returns the tax of a SKU in a country
func (r *TaxRepository) FindRate(_ context.Context, sku string, country catalog.Country) (*catalog.TaxRate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rate, ok := r.rates[taxKey{sku, country}]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &rate, nil
}

// SaveRate creates or replaces the tax of a SKU in a country
func (r *TaxRepository) SaveRate(_ context.Context, sku string, country catalog.Country, rate catalog.TaxRate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rates[taxKey{sku, country}] = rate
	return nil
}

// SellerRepository is an in-memory catalog.SellerRepository
type SellerRepository struct {
	mu      sync.RWMutex
	sellers map[int64]catalog.Seller
}

// NewSellerRepository creates an empty SellerRepository
func NewSellerRepository() *SellerRepository {
	return &SellerRepository{sellers: make(map[int64]catalog.Seller)}
}

// FindByID finds a seller by ID
func (r *SellerRepository) FindByID(_ context.Context, id int64) (*catalog.Seller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sellers[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &s, nil
}

// Save creates or updates a seller
func (r *SellerRepository) Save(_ context.Context, seller *catalog.Seller) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sellers[seller.ID] = *seller
	return nil
}

// ProductRepository is an in-memory catalog.ProductRepository
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]catalog.Product
}

// NewProductRepository creates an empty ProductRepository
func NewProductRepository() *ProductRepository {
	return &ProductRepository{products: make(map[string]catalog.Product)}
}

// FindBySKU finds a product by SKU
func (r *ProductRepository) FindBySKU(_ context.Context, sku string) (*catalog.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[sku]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

// Save creates or updates a product
func (r *ProductRepository) Save(_ context.Context, product *catalog.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[product.SKU] = *product
	return nil
}

var (
	_ catalog.OfferRepository          = (*OfferRepository)(nil)
	_ catalog.RankingHistoryRepository = (*RankingHistoryRepository)(nil)
	_ catalog.BOMRepository            = (*BOMRepository)(nil)
	_ catalog.TaxRepository            = (*TaxRepository)(nil)
	_ catalog.SellerRepository         = (*SellerRepository)(nil)
	_ catalog.ProductRepository        = (*ProductRepository)(nil)
)
