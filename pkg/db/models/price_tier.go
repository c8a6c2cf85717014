package models

import (
	"time"

	"github.com/google/uuid"
)

// PriceTier captures quantity-banded pricing per variation. Bands may overlap;
// resolution picks the highest min_quantity, ties broken by sort_order.
type PriceTier struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VariationID    uuid.UUID `gorm:"column:variation_id;type:uuid;not null"`
	MinQuantity    int       `gorm:"column:min_quantity;not null"`
	MaxQuantity    *int      `gorm:"column:max_quantity"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	IsActive       bool      `gorm:"column:is_active;not null;default:true"`
	SortOrder      int       `gorm:"column:sort_order;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
