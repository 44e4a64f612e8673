package persistence

import (
	"context"

	"github.com/commerce/backoffice/internal/domain/catalog"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/commerce/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ==================== Offers ====================

// GormOfferRepository implements OfferRepository using GORM
type GormOfferRepository struct {
	db *gorm.DB
}

// NewGormOfferRepository creates a new GormOfferRepository
func NewGormOfferRepository(db *gorm.DB) *GormOfferRepository {
	return &GormOfferRepository{db: db}
}

// FindWinner returns the active ranking 1 offer for a SKU on a platform
func (r *GormOfferRepository) FindWinner(ctx context.Context, sku, platform string) (*catalog.Offer, error) {
	var m models.OfferModel
	if err := r.db.WithContext(ctx).
		Where("sku = ? AND platform = ? AND ranking = ? AND active = ?", sku, platform, 1, true).
		Order("updated_at DESC").
		First(&m).Error; err != nil {
		return nil, notFound(err, shared.ErrNotFound)
	}
	return m.ToDomain(), nil
}

// FindBySellerSKU returns a seller's offer for a SKU on a platform
func (r *GormOfferRepository) FindBySellerSKU(ctx context.Context, sellerID int64, sku, platform string) (*catalog.Offer, error) {
	var m models.OfferModel
	if err := r.db.WithContext(ctx).
		Where("seller_id = ? AND sku = ? AND platform = ?", sellerID, sku, platform).
		First(&m).Error; err != nil {
		return nil, notFound(err, shared.ErrNotFound)
	}
	return m.ToDomain(), nil
}

// Save creates or updates an offer
func (r *GormOfferRepository) Save(ctx context.Context, offer *catalog.Offer) error {
	m := models.OfferModelFromDomain(offer)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		if isDuplicateKey(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// ==================== Ranking history ====================

// GormRankingHistoryRepository implements RankingHistoryRepository using GORM
type GormRankingHistoryRepository struct {
	db *gorm.DB
}

// NewGormRankingHistoryRepository creates a new GormRankingHistoryRepository
func NewGormRankingHistoryRepository(db *gorm.DB) *GormRankingHistoryRepository {
	return &GormRankingHistoryRepository{db: db}
}

// FindHistory returns the winner log of a SKU on a platform, oldest first
func (r *GormRankingHistoryRepository) FindHistory(ctx context.Context, sku, platform string) (*catalog.RankingHistory, error) {
	var ms []models.RankingEntryModel
	if err := r.db.WithContext(ctx).
		Where("sku = ? AND platform = ?", sku, platform).
		Order("date ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	if len(ms) == 0 {
		return nil, shared.ErrNotFound
	}

	h := &catalog.RankingHistory{SKU: sku, Platform: platform, Entries: make([]catalog.RankingEntry, len(ms))}
	for i := range ms {
		h.Entries[i] = ms[i].ToDomain()
	}
	return h, nil
}

// Append adds an entry to the log
func (r *GormRankingHistoryRepository) Append(ctx context.Context, sku, platform string, entry catalog.RankingEntry) error {
	return r.db.WithContext(ctx).Create(&models.RankingEntryModel{
		ID:       uuid.New(),
		SKU:      sku,
		Platform: platform,
		Date:     entry.Date,
		SellerID: entry.SellerID,
		Price:    entry.Price,
	}).Error
}

// ==================== Bills of materials ====================

// GormBOMRepository implements BOMRepository using GORM
type GormBOMRepository struct {
	db *gorm.DB
}

// NewGormBOMRepository creates a new GormBOMRepository
func NewGormBOMRepository(db *gorm.DB) *GormBOMRepository {
	return &GormBOMRepository{db: db}
}

// FindBySKU returns the BOM of a pack SKU, or shared.ErrNotFound if the SKU is not a pack
func (r *GormBOMRepository) FindBySKU(ctx context.Context, sku string) (*catalog.BOM, error) {
	var ms []models.BOMLineModel
	if err := r.db.WithContext(ctx).
		Where("pack_sku = ?", sku).
		Order("position ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	if len(ms) == 0 {
		return nil, shared.ErrNotFound
	}

	bom := &catalog.BOM{SKU: sku, Lines: make([]catalog.BOMLine, len(ms))}
	for i, m := range ms {
		bom.Lines[i] = catalog.BOMLine{ComponentSKU: m.ComponentSKU, Quantity: m.Quantity}
	}
	return bom, nil
}

// Save replaces the component list of a pack
func (r *GormBOMRepository) Save(ctx context.Context, bom *catalog.BOM) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("pack_sku = ?", bom.SKU).Delete(&models.BOMLineModel{}).Error; err != nil {
			return err
		}
		if len(bom.Lines) == 0 {
			return nil
		}
		ms := make([]models.BOMLineModel, len(bom.Lines))
		for i, l := range bom.Lines {
			ms[i] = models.BOMLineModel{PackSKU: bom.SKU, ComponentSKU: l.ComponentSKU, Position: i, Quantity: l.Quantity}
		}
		return tx.Create(&ms).Error
	})
}

// ==================== Taxes ====================

// GormTaxRepository implements TaxRepository using GORM
type GormTaxRepository struct {
	db *gorm.DB
}

// NewGormTaxRepository creates a new GormTaxRepository
func NewGormTaxRepository(db *gorm.DB) *GormTaxRepository {
	return &GormTaxRepository{db: db}
}

// FindRate returns the tax of a SKU in a country
func (r *GormTaxRepository) FindRate(ctx context.Context, sku string, country catalog.Country) (*catalog.TaxRate, error) {
	var m models.ProductTaxModel
	if err := r.db.WithContext(ctx).
		Where("sku = ? AND country = ?", sku, string(country)).
		First(&m).Error; err != nil {
		return nil, notFound(err, shared.ErrNotFound)
	}
	return m.ToDomain(), nil
}

// SaveRate creates or replaces the tax of a SKU in a country
func (r *GormTaxRepository) SaveRate(ctx context.Context, sku string, country catalog.Country, rate catalog.TaxRate) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&models.ProductTaxModel{SKU: sku, Country: string(country), VAT: rate.VAT, IEC: rate.IEC}).Error
}

// ==================== Sellers & products ====================

// GormSellerRepository implements SellerRepository using GORM
type GormSellerRepository struct {
	db *gorm.DB
}

// NewGormSellerRepository creates a new GormSellerRepository
func NewGormSellerRepository(db *gorm.DB) *GormSellerRepository {
	return &GormSellerRepository{db: db}
}

// FindByID finds a seller by ID
func (r *GormSellerRepository) FindByID(ctx context.Context, id int64) (*catalog.Seller, error) {
	var m models.SellerModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, shared.ErrNotFound)
	}
	return m.ToDomain(), nil
}

// Save creates or updates a seller
func (r *GormSellerRepository) Save(ctx context.Context, seller *catalog.Seller) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(models.SellerModelFromDomain(seller)).Error
}

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindBySKU finds a product by SKU
func (r *GormProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	var m models.ProductModel
	if err := r.db.WithContext(ctx).First(&m, "sku = ?", sku).Error; err != nil {
		return nil, notFound(err, shared.ErrNotFound)
	}
	return m.ToDomain(), nil
}

// Save creates or updates a product
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(models.ProductModelFromDomain(product)).Error
}

// Ensure the catalog repositories implement their interfaces
var (
	_ catalog.OfferRepository          = (*GormOfferRepository)(nil)
	_ catalog.RankingHistoryRepository = (*GormRankingHistoryRepository)(nil)
	_ catalog.BOMRepository            = (*GormBOMRepository)(nil)
	_ catalog.TaxRepository            = (*GormTaxRepository)(nil)
	_ catalog.SellerRepository         = (*GormSellerRepository)(nil)
	_ catalog.ProductRepository        = (*GormProductRepository)(nil)
)
