package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefrontlabs/storefront/pkg/db/models"
	pkgerrors "github.com/storefrontlabs/storefront/pkg/errors"
)

// ErrInsufficientStock is returned by AdjustStock when the conditional update
// matches no row (either the variation is missing or stock would go negative).
var ErrInsufficientStock = errors.New("insufficient stock")

// TierInput carries the writable fields for a price tier. All fields are
// pointers so updates can distinguish an omitted field from a zero value.
type TierInput struct {
	MinQuantity    *int
	MaxQuantity    *int
	UnitPriceCents *int
	IsActive       *bool
	SortOrder      *int
}

// Service defines the catalog operations exposed to controllers.
type Service interface {
	GetVariation(ctx context.Context, id uuid.UUID) (*models.ProductVariation, error)
	CreateTier(ctx context.Context, variationID uuid.UUID, input TierInput) (*models.PriceTier, error)
	UpdateTier(ctx context.Context, tierID uuid.UUID, input TierInput) (*models.PriceTier, error)
	AdjustStock(ctx context.Context, variationID uuid.UUID, delta int) error
}

type service struct {
	repo Repository
}

// NewService builds the catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetVariation(ctx context.Context, id uuid.UUID) (*models.ProductVariation, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variation id required")
	}
	variation, err := s.repo.FindVariation(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading variation")
	}
	return variation, nil
}

func (s *service) CreateTier(ctx context.Context, variationID uuid.UUID, input TierInput) (*models.PriceTier, error) {
	if variationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variation id required")
	}
	if input.MinQuantity == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min quantity required")
	}
	if input.UnitPriceCents == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price required")
	}
	if err := validateTierBounds(*input.MinQuantity, input.MaxQuantity); err != nil {
		return nil, err
	}
	if *input.UnitPriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative")
	}

	if _, err := s.repo.FindVariation(ctx, variationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading variation")
	}

	tier := &models.PriceTier{
		VariationID:    variationID,
		MinQuantity:    *input.MinQuantity,
		MaxQuantity:    input.MaxQuantity,
		UnitPriceCents: *input.UnitPriceCents,
		IsActive:       true,
	}
	if input.IsActive != nil {
		tier.IsActive = *input.IsActive
	}
	if input.SortOrder != nil {
		tier.SortOrder = *input.SortOrder
	}

	created, err := s.repo.CreateTier(ctx, tier)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating price tier")
	}
	return created, nil
}

func (s *service) UpdateTier(ctx context.Context, tierID uuid.UUID, input TierInput) (*models.PriceTier, error) {
	if tierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tier id required")
	}

	tier, err := s.repo.FindTier(ctx, tierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading price tier")
	}

	minQty := tier.MinQuantity
	if input.MinQuantity != nil {
		minQty = *input.MinQuantity
	}
	maxQty := tier.MaxQuantity
	if input.MaxQuantity != nil {
		maxQty = input.MaxQuantity
	}
	if err := validateTierBounds(minQty, maxQty); err != nil {
		return nil, err
	}
	if input.UnitPriceCents != nil && *input.UnitPriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative")
	}

	tier.MinQuantity = minQty
	tier.MaxQuantity = maxQty
	if input.UnitPriceCents != nil {
		tier.UnitPriceCents = *input.UnitPriceCents
	}
	if input.IsActive != nil {
		tier.IsActive = *input.IsActive
	}
	if input.SortOrder != nil {
		tier.SortOrder = *input.SortOrder
	}

	if err := s.repo.SaveTier(ctx, tier); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving price tier")
	}
	return tier, nil
}

func (s *service) AdjustStock(ctx context.Context, variationID uuid.UUID, delta int) error {
	if variationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "variation id required")
	}
	if err := s.repo.AdjustStock(ctx, variationID, delta); err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock for adjustment")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adjusting stock")
	}
	return nil
}

func validateTierBounds(minQty int, maxQty *int) error {
	if minQty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "min_quantity must be greater than zero")
	}
	if maxQty != nil && *maxQty <= minQty {
		return pkgerrors.New(pkgerrors.CodeValidation, "max_quantity must be greater than min_quantity").
			WithDetails(map[string]any{"min_quantity": minQty, "max_quantity": *maxQty})
	}
	return nil
}
