package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is an immutable snapshot of a cart line at checkout time. The
// variation reference is nullable so later catalog deletions cannot corrupt
// the historical record.
type OrderItem struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID  `gorm:"column:order_id;type:uuid;not null"`
	VariationID    *uuid.UUID `gorm:"column:variation_id;type:uuid"`
	Title          string     `gorm:"column:title;not null"`
	Quantity       int        `gorm:"column:quantity;not null"`
	UnitPriceCents int        `gorm:"column:unit_price_cents;not null"`
	LineTotalCents int        `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
}
