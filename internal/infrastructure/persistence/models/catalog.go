package models

import (
	"time"

	"github.com/commerce/backoffice/internal/domain/catalog"
	"github.com/commerce/backoffice/internal/domain/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OfferModel is the persistence model for a seller offer.
type OfferModel struct {
	BaseModel
	SellerID     int64             `gorm:"not null;uniqueIndex:idx_offer_seller_sku_platform,priority:1"`
	Platform     string            `gorm:"type:varchar(100);not null;uniqueIndex:idx_offer_seller_sku_platform,priority:3;index:idx_offer_sku_platform,priority:2"`
	SKU          string            `gorm:"column:sku;type:varchar(100);not null;uniqueIndex:idx_offer_seller_sku_platform,priority:2;index:idx_offer_sku_platform,priority:1"`
	EAN          string            `gorm:"column:ean;type:varchar(50)"`
	DeliveryType string            `gorm:"type:varchar(20);not null"`
	Breakdown    pricing.Breakdown `gorm:"serializer:json"`
	Ranking      int               `gorm:"not null;default:0"`
	Active       bool              `gorm:"not null;default:true"`
	WinSince     *time.Time
	WinUntil     *time.Time
}

// TableName returns the table name for GORM
func (OfferModel) TableName() string {
	return "offers"
}

// ToDomain converts the persistence model to a domain Offer.
func (m *OfferModel) ToDomain() *catalog.Offer {
	return &catalog.Offer{
		BaseEntity:   m.BaseModel.ToDomain(),
		SellerID:     m.SellerID,
		Platform:     m.Platform,
		SKU:          m.SKU,
		EAN:          m.EAN,
		DeliveryType: catalog.DeliveryType(m.DeliveryType),
		Breakdown:    m.Breakdown,
		Ranking:      m.Ranking,
		Active:       m.Active,
		WinSince:     m.WinSince,
		WinUntil:     m.WinUntil,
	}
}

// FromDomain populates the persistence model from a domain Offer.
func (m *OfferModel) FromDomain(o *catalog.Offer) {
	m.FromDomainBaseEntity(o.BaseEntity)
	m.SellerID = o.SellerID
	m.Platform = o.Platform
	m.SKU = o.SKU
	m.EAN = o.EAN
	m.DeliveryType = string(o.DeliveryType)
	m.Breakdown = o.Breakdown
	m.Ranking = o.Ranking
	m.Active = o.Active
	m.WinSince = o.WinSince
	m.WinUntil = o.WinUntil
}

// OfferModelFromDomain creates a new persistence model from a domain Offer.
func OfferModelFromDomain(o *catalog.Offer) *OfferModel {
	m := &OfferModel{}
	m.FromDomain(o)
	return m
}

// RankingEntryModel is one row of the buybox winner log.
type RankingEntryModel struct {
	ID       uuid.UUID       `gorm:"type:uuid;primary_key"`
	SKU      string          `gorm:"column:sku;type:varchar(100);not null;index:idx_ranking_sku_platform,priority:1"`
	Platform string          `gorm:"type:varchar(100);not null;index:idx_ranking_sku_platform,priority:2"`
	Date     time.Time       `gorm:"not null"`
	SellerID int64           `gorm:"not null"`
	Price    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (RankingEntryModel) TableName() string {
	return "ranking_entries"
}

// ToDomain converts the persistence model to a domain RankingEntry.
func (m *RankingEntryModel) ToDomain() catalog.RankingEntry {
	return catalog.RankingEntry{Date: m.Date, SellerID: m.SellerID, Price: m.Price}
}

// BOMLineModel is one component of a pack.
type BOMLineModel struct {
	PackSKU      string          `gorm:"column:pack_sku;type:varchar(100);primaryKey"`
	ComponentSKU string          `gorm:"column:component_sku;type:varchar(100);primaryKey"`
	Position     int             `gorm:"not null;default:0"`
	Quantity     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (BOMLineModel) TableName() string {
	return "bom_lines"
}

// ProductTaxModel maps a sku to its taxes in one country.
type ProductTaxModel struct {
	SKU     string          `gorm:"column:sku;type:varchar(100);primaryKey"`
	Country string          `gorm:"type:varchar(50);primaryKey"`
	VAT     decimal.Decimal `gorm:"column:vat;type:decimal(8,4);not null"`
	IEC     decimal.Decimal `gorm:"column:iec;type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductTaxModel) TableName() string {
	return "product_taxes"
}

// ToDomain converts the persistence model to a domain TaxRate.
func (m *ProductTaxModel) ToDomain() *catalog.TaxRate {
	return &catalog.TaxRate{VAT: m.VAT, IEC: m.IEC}
}

// SellerModel is the persistence model for a seller contract.
type SellerModel struct {
	ID           int64  `gorm:"primaryKey;autoIncrement:false"`
	Name         string `gorm:"type:varchar(200);not null"`
	PricingModel string `gorm:"type:varchar(20);not null"`
	Carrier      string `gorm:"type:varchar(100)"`
	Active       bool   `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for GORM
func (SellerModel) TableName() string {
	return "sellers"
}

// ToDomain converts the persistence model to a domain Seller.
func (m *SellerModel) ToDomain() *catalog.Seller {
	return &catalog.Seller{
		ID:           m.ID,
		Name:         m.Name,
		PricingModel: pricing.ModelType(m.PricingModel),
		Carrier:      m.Carrier,
		Active:       m.Active,
	}
}

// SellerModelFromDomain creates a new persistence model from a domain Seller.
func SellerModelFromDomain(s *catalog.Seller) *SellerModel {
	return &SellerModel{
		ID:           s.ID,
		Name:         s.Name,
		PricingModel: string(s.PricingModel),
		Carrier:      s.Carrier,
		Active:       s.Active,
	}
}

// ProductModel is the persistence model for product reference data.
type ProductModel struct {
	SKU         string          `gorm:"column:sku;type:varchar(100);primaryKey"`
	EAN         string          `gorm:"column:ean;type:varchar(50);index"`
	Name        string          `gorm:"type:varchar(300);not null"`
	Weight      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TaxCategory string          `gorm:"type:varchar(50)"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product.
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		SKU:         m.SKU,
		EAN:         m.EAN,
		Name:        m.Name,
		Weight:      m.Weight,
		TaxCategory: m.TaxCategory,
	}
}

// ProductModelFromDomain creates a new persistence model from a domain Product.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	return &ProductModel{
		SKU:         p.SKU,
		EAN:         p.EAN,
		Name:        p.Name,
		Weight:      p.Weight,
		TaxCategory: p.TaxCategory,
	}
}

// AllModels returns every persistence model, in dependency order.
func AllModels() []any {
	return []any{
		&SellerModel{},
		&ProductModel{},
		&OfferModel{},
		&RankingEntryModel{},
		&BOMLineModel{},
		&ProductTaxModel{},
		&ShipmentModel{},
		&ShipmentLineModel{},
		&OrderModel{},
		&OrderLineModel{},
		&VendorBillingModel{},
		&VendorBillingLineModel{},
	}
}
