package catalog

import (
	"strings"
	"time"

	"github.com/commerce/backoffice/internal/domain/pricing"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Offer is a seller's listing of a product on one sales channel
type Offer struct {
	shared.BaseEntity
	SellerID     int64
	Platform     string
	SKU          string
	EAN          string
	DeliveryType DeliveryType
	Breakdown    pricing.Breakdown
	Ranking      int
	Active       bool
	WinSince     *time.Time
	WinUntil     *time.Time
}

// NewOffer creates a new active offer
func NewOffer(sellerID int64, platform, sku string, deliveryType DeliveryType, breakdown pricing.Breakdown) (*Offer, error) {
	if sellerID <= 0 {
		return nil, shared.NewDomainError("INVALID_SELLER", "Seller ID is required")
	}
	if strings.TrimSpace(platform) == "" {
		return nil, shared.NewDomainError("INVALID_PLATFORM", "Platform is required")
	}
	if strings.TrimSpace(sku) == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU is required")
	}
	if !deliveryType.IsValid() {
		return nil, shared.NewDomainError("INVALID_DELIVERY_TYPE", "Unknown delivery type")
	}
	return &Offer{
		BaseEntity:   shared.NewBaseEntity(),
		SellerID:     sellerID,
		Platform:     platform,
		SKU:          sku,
		DeliveryType: deliveryType,
		Breakdown:    breakdown,
		Active:       true,
	}, nil
}

// IsWinner reports whether the offer holds the buybox
func (o *Offer) IsWinner() bool {
	return o.Active && o.Ranking == 1
}

// Seller is the vendor side of a contract
type Seller struct {
	ID           int64
	Name         string
	PricingModel pricing.ModelType
	Carrier      string
	Active       bool
}

// Product is the reference data intake needs for a sold SKU
type Product struct {
	SKU         string
	EAN         string
	Name        string
	Weight      decimal.Decimal // kg per unit
	TaxCategory string
}
