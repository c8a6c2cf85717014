package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/storefrontlabs/storefront/pkg/enums"
)

// CartRecord is the active cart for either an authenticated user or an
// anonymous session. Exactly one of UserID/SessionID is set.
type CartRecord struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      *uuid.UUID       `gorm:"column:user_id;type:uuid"`
	SessionID   *string          `gorm:"column:session_id"`
	Status      enums.CartStatus `gorm:"column:status;type:cart_status;not null;default:'active'"`
	ItemCount   int              `gorm:"column:item_count;not null;default:0"`
	TotalCents  int              `gorm:"column:total_cents;not null;default:0"`
	ConvertedAt *time.Time       `gorm:"column:converted_at"`
	Items       []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
