package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductVariation is the sellable unit tiers and carts point at.
type ProductVariation struct {
	ID         uuid.UUID   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string      `gorm:"column:name;not null"`
	SKU        string      `gorm:"column:sku;not null"`
	PriceCents int         `gorm:"column:price_cents;not null"`
	Stock      int         `gorm:"column:stock;not null;default:0"`
	IsActive   bool        `gorm:"column:is_active;not null;default:true"`
	PriceTiers []PriceTier `gorm:"foreignKey:VariationID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}
