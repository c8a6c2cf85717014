package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefrontlabs/storefront/pkg/db/models"
	pkgerrors "github.com/storefrontlabs/storefront/pkg/errors"
)

// TierSource is the slice of catalog persistence pricing needs. The catalog
// repository satisfies it.
type TierSource interface {
	FindVariation(ctx context.Context, id uuid.UUID) (*models.ProductVariation, error)
	FindActiveTiers(ctx context.Context, variationID uuid.UUID) ([]models.PriceTier, error)
}

// Resolution is the outcome of a unit-price lookup. TierID is nil when the
// variation's base price applied.
type Resolution struct {
	VariationID    uuid.UUID  `json:"variation_id"`
	Quantity       int        `json:"quantity"`
	UnitPriceCents int        `json:"unit_price_cents"`
	TierID         *uuid.UUID `json:"tier_id,omitempty"`
}

// Service resolves quantity-banded unit prices.
type Service interface {
	ResolveUnitPrice(ctx context.Context, variationID uuid.UUID, quantity int) (*Resolution, error)
}

type service struct {
	tiers TierSource
}

// NewService builds the pricing service.
func NewService(tiers TierSource) (Service, error) {
	if tiers == nil {
		return nil, fmt.Errorf("tier source required")
	}
	return &service{tiers: tiers}, nil
}

func (s *service) ResolveUnitPrice(ctx context.Context, variationID uuid.UUID, quantity int) (*Resolution, error) {
	if variationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variation id required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}

	variation, err := s.tiers.FindVariation(ctx, variationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading variation")
	}
	// Inactive variations are not purchasable and resolve the same as
	// missing ones.
	if !variation.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variation not found")
	}

	tiers, err := s.tiers.FindActiveTiers(ctx, variationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading price tiers")
	}

	resolution := &Resolution{
		VariationID:    variationID,
		Quantity:       quantity,
		UnitPriceCents: variation.PriceCents,
	}
	if tier := pickTier(tiers, quantity); tier != nil {
		tierID := tier.ID
		resolution.TierID = &tierID
		resolution.UnitPriceCents = tier.UnitPriceCents
	}
	return resolution, nil
}

// pickTier selects the applicable tier for a quantity. A tier applies when it
// is active, min_quantity <= qty, and max_quantity is unset or >= qty. Among
// applicable tiers the highest min_quantity wins; ties go to the lowest
// sort_order. Returns nil when no tier applies.
func pickTier(tiers []models.PriceTier, quantity int) *models.PriceTier {
	var winner *models.PriceTier
	for i := range tiers {
		tier := &tiers[i]
		if !tier.IsActive || tier.MinQuantity > quantity {
			continue
		}
		if tier.MaxQuantity != nil && *tier.MaxQuantity < quantity {
			continue
		}
		if winner == nil ||
			tier.MinQuantity > winner.MinQuantity ||
			(tier.MinQuantity == winner.MinQuantity && tier.SortOrder < winner.SortOrder) {
			winner = tier
		}
	}
	return winner
}
