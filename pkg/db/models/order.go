package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/storefrontlabs/storefront/pkg/enums"
)

// Order represents a checkout converted into a pending purchase awaiting
// gateway settlement.
type Order struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         *uuid.UUID           `gorm:"column:user_id;type:uuid"`
	SessionID      *string              `gorm:"column:session_id"`
	CartID         *uuid.UUID           `gorm:"column:cart_id;type:uuid"`
	Status         enums.OrderStatus    `gorm:"column:status;type:order_status;not null;default:'pending'"`
	TotalCents     int                  `gorm:"column:total_cents;not null"`
	PreferenceID   *string              `gorm:"column:preference_id"`
	Items          []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PaymentDetails []OrderPaymentDetail `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	SettledAt      *time.Time           `gorm:"column:settled_at"`
	CancelledAt    *time.Time           `gorm:"column:cancelled_at"`
	RefundedAt     *time.Time           `gorm:"column:refunded_at"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
