package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/commerce/backoffice/internal/domain/shared"
)

// ErrSellerNotFound is returned when no offer can be attributed to a sold SKU
var ErrSellerNotFound = shared.NewDomainError("SELLER_NOT_FOUND", "Cannot find seller for sku")

// OfferResolver finds the offer that sold a SKU on a channel
type OfferResolver struct {
	offers  OfferRepository
	history RankingHistoryRepository
}

// NewOfferResolver creates a new offer resolver. history may be nil.
func NewOfferResolver(offers OfferRepository, history RankingHistoryRepository) *OfferResolver {
	return &OfferResolver{offers: offers, history: history}
}

// Resolve returns the winning offer for sku on platform. When at is set and
// the ranking log knows who held the buybox just before at, that seller's
// offer is returned; otherwise the current ranking 1 offer is used.
func (r *OfferResolver) Resolve(ctx context.Context, sku, platform string, at *time.Time) (*Offer, error) {
	if at != nil && r.history != nil {
		offer, err := r.resolveAt(ctx, sku, platform, *at)
		if err != nil {
			return nil, err
		}
		if offer != nil {
			return offer, nil
		}
	}

	offer, err := r.offers.FindWinner(ctx, sku, platform)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, r.notFound(sku)
		}
		return nil, err
	}
	if offer == nil {
		return nil, r.notFound(sku)
	}
	return offer, nil
}

func (r *OfferResolver) resolveAt(ctx context.Context, sku, platform string, at time.Time) (*Offer, error) {
	h, err := r.history.FindHistory(ctx, sku, platform)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	entry, ok := h.WinnerAt(at)
	if !ok {
		return nil, nil
	}
	offer, err := r.offers.FindBySellerSKU(ctx, entry.SellerID, sku, platform)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return offer, nil
}

func (r *OfferResolver) notFound(sku string) error {
	return shared.NewDomainError(ErrSellerNotFound.Code, fmt.Sprintf("Cannot find seller for sku %s", sku))
}
