package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefrontlabs/storefront/pkg/db/models"
)

// Repository exposes catalog persistence used by pricing, cart, and checkout.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindVariation(ctx context.Context, id uuid.UUID) (*models.ProductVariation, error)
	FindVariations(ctx context.Context, ids []uuid.UUID) ([]models.ProductVariation, error)
	FindActiveTiers(ctx context.Context, variationID uuid.UUID) ([]models.PriceTier, error)
	FindTier(ctx context.Context, id uuid.UUID) (*models.PriceTier, error)
	CreateTier(ctx context.Context, tier *models.PriceTier) (*models.PriceTier, error)
	SaveTier(ctx context.Context, tier *models.PriceTier) error
	AdjustStock(ctx context.Context, variationID uuid.UUID, delta int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindVariation(ctx context.Context, id uuid.UUID) (*models.ProductVariation, error) {
	var variation models.ProductVariation
	err := r.db.WithContext(ctx).
		Preload("PriceTiers").
		Where("id = ?", id).
		First(&variation).Error
	if err != nil {
		return nil, err
	}
	return &variation, nil
}

func (r *repository) FindVariations(ctx context.Context, ids []uuid.UUID) ([]models.ProductVariation, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var variations []models.ProductVariation
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&variations).Error
	if err != nil {
		return nil, err
	}
	return variations, nil
}

func (r *repository) FindActiveTiers(ctx context.Context, variationID uuid.UUID) ([]models.PriceTier, error) {
	var tiers []models.PriceTier
	err := r.db.WithContext(ctx).
		Where("variation_id = ? AND is_active = ?", variationID, true).
		Order("sort_order ASC").
		Order("created_at ASC").
		Find(&tiers).Error
	if err != nil {
		return nil, err
	}
	return tiers, nil
}

func (r *repository) FindTier(ctx context.Context, id uuid.UUID) (*models.PriceTier, error) {
	var tier models.PriceTier
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&tier).Error
	if err != nil {
		return nil, err
	}
	return &tier, nil
}

func (r *repository) CreateTier(ctx context.Context, tier *models.PriceTier) (*models.PriceTier, error) {
	if tier.ID == uuid.Nil {
		tier.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(tier).Error; err != nil {
		return nil, err
	}
	return tier, nil
}

func (r *repository) SaveTier(ctx context.Context, tier *models.PriceTier) error {
	return r.db.WithContext(ctx).Save(tier).Error
}

// AdjustStock applies delta atomically; the condition keeps stock from going
// negative without a read-then-write race.
func (r *repository) AdjustStock(ctx context.Context, variationID uuid.UUID, delta int) error {
	result := r.db.WithContext(ctx).Exec(
		"UPDATE product_variations SET stock = stock + ? WHERE id = ? AND stock + ? >= 0",
		delta, variationID, delta,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}
