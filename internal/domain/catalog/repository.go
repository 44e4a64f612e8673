package catalog

import "context"

// OfferRepository defines the interface for offer persistence
type OfferRepository interface {
	// FindWinner returns the active ranking 1 offer for a SKU on a platform
	FindWinner(ctx context.Context, sku, platform string) (*Offer, error)
	// FindBySellerSKU returns a seller's offer for a SKU on a platform
	FindBySellerSKU(ctx context.Context, sellerID int64, sku, platform string) (*Offer, error)
	// Save creates or updates an offer
	Save(ctx context.Context, offer *Offer) error
}

// RankingHistoryRepository reads the buybox winner log
type RankingHistoryRepository interface {
	// FindHistory returns the winner log of a SKU on a platform
	FindHistory(ctx context.Context, sku, platform string) (*RankingHistory, error)
	// Append adds an entry to the log
	Append(ctx context.Context, sku, platform string, entry RankingEntry) error
}

// BOMRepository reads bills of materials
type BOMRepository interface {
	// FindBySKU returns the BOM of a pack SKU, or shared.ErrNotFound if the SKU is not a pack
	FindBySKU(ctx context.Context, sku string) (*BOM, error)
}

// TaxRepository reads the per-product tax mapping
type TaxRepository interface {
	// FindRate returns the tax of a SKU in a country
	FindRate(ctx context.Context, sku string, country Country) (*TaxRate, error)
}

// SellerRepository reads seller contracts
type SellerRepository interface {
	FindByID(ctx context.Context, id int64) (*Seller, error)
}

// ProductRepository reads product reference data
type ProductRepository interface {
	FindBySKU(ctx context.Context, sku string) (*Product, error)
}
