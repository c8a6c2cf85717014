package payloads

import (
	"github.com/google/uuid"
)

// OrderCreatedEvent signals a cart converted into a pending order.
type OrderCreatedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	CartID     uuid.UUID `json:"cart_id"`
	TotalCents int       `json:"total_cents"`
	ItemCount  int       `json:"item_count"`
}

// OrderLifecycleEvent is emitted when settlement moves an order into a
// settled, cancelled, or refunded state.
type OrderLifecycleEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	Status     string    `json:"status"`
	TotalCents int       `json:"total_cents"`
}
