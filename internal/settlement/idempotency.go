package settlement

import (
	"context"
	"fmt"
	"time"
)

const idempotencyScope = "mp-payment"

type idempotencyStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// IdempotencyGuard claims (payment id, payment status) pairs in redis so
// concurrent webhook deliveries of the same payment state are collapsed
// before hitting the DB. A payment advancing to a new status claims a fresh
// key and is processed normally.
type IdempotencyGuard struct {
	store idempotencyStore
	ttl   time.Duration
}

// NewIdempotencyGuard builds the guard. TTL bounds how long a processed
// payment id stays claimed.
func NewIdempotencyGuard(store idempotencyStore, ttl time.Duration) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("idempotency ttl must be positive")
	}
	return &IdempotencyGuard{store: store, ttl: ttl}, nil
}

// CheckAndMark claims the (payment id, status) pair. Returns true when it
// was already claimed by an earlier delivery of the same state.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, paymentID, status string) (bool, error) {
	claimed, err := g.store.SetNX(ctx, g.key(paymentID, status), time.Now().UTC().Format(time.RFC3339), g.ttl)
	if err != nil {
		return false, err
	}
	return !claimed, nil
}

// Release frees the claim so a gateway retry can reprocess after a failure.
func (g *IdempotencyGuard) Release(ctx context.Context, paymentID, status string) error {
	return g.store.Del(ctx, g.key(paymentID, status))
}

func (g *IdempotencyGuard) key(paymentID, status string) string {
	return g.store.IdempotencyKey(idempotencyScope, paymentID+":"+status)
}
