package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderPaymentDetail is an append-only audit row per gateway payment event.
// PaymentID is the gateway transaction id; uniqueness is on (payment_id,
// status) so a replayed delivery is a storage-level no-op while the same
// payment moving to a new status still appends.
type OrderPaymentDetail struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	PaymentID    string    `gorm:"column:payment_id;not null;uniqueIndex:uq_order_payment_details_payment_status"`
	Method       string    `gorm:"column:method;not null"`
	Status       string    `gorm:"column:status;not null;uniqueIndex:uq_order_payment_details_payment_status"`
	StatusDetail *string   `gorm:"column:status_detail"`
	AmountCents  int       `gorm:"column:amount_cents;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}
