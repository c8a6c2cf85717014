package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefrontlabs/storefront/pkg/db/models"
	"github.com/storefrontlabs/storefront/pkg/enums"
)

// Repository exposes cart persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActiveCart(ctx context.Context, identity Identity) (*models.CartRecord, error)
	FindCart(ctx context.Context, id uuid.UUID) (*models.CartRecord, error)
	CreateCart(ctx context.Context, cart *models.CartRecord) (*models.CartRecord, error)
	SaveCart(ctx context.Context, cart *models.CartRecord) error
	FindItem(ctx context.Context, cartID, variationID uuid.UUID) (*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) error
	SaveItem(ctx context.Context, item *models.CartItem) error
	DeleteItem(ctx context.Context, id uuid.UUID) error
	DeleteItems(ctx context.Context, cartID uuid.UUID) error
	MarkConverted(ctx context.Context, cartID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindActiveCart(ctx context.Context, identity Identity) (*models.CartRecord, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ?", enums.CartStatusActive)
	if identity.UserID != nil {
		query = query.Where("user_id = ?", *identity.UserID)
	} else {
		query = query.Where("session_id = ?", *identity.SessionID)
	}

	var cart models.CartRecord
	if err := query.First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) FindCart(ctx context.Context, id uuid.UUID) (*models.CartRecord, error) {
	var cart models.CartRecord
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) CreateCart(ctx context.Context, cart *models.CartRecord) (*models.CartRecord, error) {
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	if cart.Status == "" {
		cart.Status = enums.CartStatusActive
	}
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

func (r *repository) SaveCart(ctx context.Context, cart *models.CartRecord) error {
	return r.db.WithContext(ctx).
		Model(&models.CartRecord{}).
		Where("id = ?", cart.ID).
		Updates(map[string]any{
			"item_count":  cart.ItemCount,
			"total_cents": cart.TotalCents,
		}).Error
}

func (r *repository) FindItem(ctx context.Context, cartID, variationID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND variation_id = ?", cartID, variationID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) CreateItem(ctx context.Context, item *models.CartItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) SaveItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.CartItem{}).Error
}

func (r *repository) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
}

func (r *repository) MarkConverted(ctx context.Context, cartID uuid.UUID) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.CartRecord{}).
		Where("id = ? AND status = ?", cartID, enums.CartStatusActive).
		Updates(map[string]any{
			"status":       enums.CartStatusConverted,
			"converted_at": now,
		}).Error
}
