package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/storefrontlabs/storefront/internal/orders"
	"github.com/storefrontlabs/storefront/pkg/db/models"
	"github.com/storefrontlabs/storefront/pkg/enums"
	pkgerrors "github.com/storefrontlabs/storefront/pkg/errors"
	"github.com/storefrontlabs/storefront/pkg/logger"
	"github.com/storefrontlabs/storefront/pkg/mercadopago"
	"github.com/storefrontlabs/storefront/pkg/metrics"
	"github.com/storefrontlabs/storefront/pkg/outbox"
	"github.com/storefrontlabs/storefront/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type paymentFetcher interface {
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

type cartClearer interface {
	Clear(ctx context.Context, cartID uuid.UUID) error
}

type stockAdjuster interface {
	AdjustStock(ctx context.Context, variationID uuid.UUID, delta int) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// deliveryGuard collapses redundant webhook deliveries. The claim is scoped
// to the payment id AND the fetched payment status, so a later notification
// for the same payment moving to a new status is never mistaken for a replay.
type deliveryGuard interface {
	CheckAndMark(ctx context.Context, paymentID, status string) (bool, error)
	Release(ctx context.Context, paymentID, status string) error
}

// Coordinator drives order settlement off gateway webhook notifications.
type Coordinator interface {
	HandleNotification(ctx context.Context, notification mercadopago.Notification) error
}

type coordinator struct {
	tx      txRunner
	gateway paymentFetcher
	orders  orders.Service
	carts   cartClearer
	stock   stockAdjuster
	outbox  outboxPublisher
	guard   deliveryGuard
	metrics *metrics.SettlementMetrics
	logg    *logger.Logger
}

// NewCoordinator builds the settlement coordinator. Metrics may be nil.
func NewCoordinator(
	tx txRunner,
	gateway paymentFetcher,
	ordersSvc orders.Service,
	carts cartClearer,
	stock stockAdjuster,
	publisher outboxPublisher,
	guard deliveryGuard,
	settlementMetrics *metrics.SettlementMetrics,
	logg *logger.Logger,
) (Coordinator, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if ordersSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart clearer required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock adjuster required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if guard == nil {
		return nil, fmt.Errorf("delivery guard required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &coordinator{
		tx:      tx,
		gateway: gateway,
		orders:  ordersSvc,
		carts:   carts,
		stock:   stock,
		outbox:  publisher,
		guard:   guard,
		metrics: settlementMetrics,
		logg:    logg,
	}, nil
}

// HandleNotification processes one webhook delivery. The gateway payload is
// never trusted: the payment is re-fetched from the API before anything is
// persisted. Side-effect failures after the status persist are logged and
// never surfaced, so the gateway does not retry an already-settled order.
func (c *coordinator) HandleNotification(ctx context.Context, notification mercadopago.Notification) error {
	started := time.Now()

	if notification.Type != mercadopago.NotificationTypePayment {
		c.metrics.IncWebhook(notification.Type, "ignored")
		return nil
	}
	if notification.Data.ID == "" {
		c.metrics.IncWebhook(notification.Type, "invalid")
		return pkgerrors.New(pkgerrors.CodeValidation, "notification missing payment id")
	}

	ctx = c.logg.WithPaymentID(ctx, notification.Data.ID)

	payment, err := c.gateway.GetPayment(ctx, notification.Data.ID)
	if err != nil {
		c.metrics.IncWebhook(notification.Type, "fetch_failed")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetching payment")
	}

	// The claim keys on (payment id, fetched status): a redelivery of the
	// same status is collapsed, while the payment advancing to a new status
	// passes through and gets settled.
	duplicate, err := c.guard.CheckAndMark(ctx, notification.Data.ID, payment.Status)
	if err != nil {
		c.metrics.IncWebhook(notification.Type, "guard_failed")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claiming payment delivery")
	}
	if duplicate {
		c.logg.Info(ctx, "duplicate payment delivery ignored")
		c.metrics.IncWebhook(notification.Type, "duplicate")
		return nil
	}
	// Retryable failures give the claim back so the gateway's redelivery is
	// processed instead of swallowed.
	release := func(failure error) error {
		if err := c.guard.Release(ctx, notification.Data.ID, payment.Status); err != nil {
			c.logg.Error(ctx, "releasing payment delivery claim failed", err)
		}
		return failure
	}

	orderID, err := uuid.Parse(payment.ExternalReference)
	if err != nil {
		c.logg.Warn(ctx, "payment carries no usable order reference")
		c.metrics.IncWebhook(notification.Type, "orphan")
		return nil
	}
	ctx = c.logg.WithOrderID(ctx, orderID.String())

	order, err := c.orders.Get(ctx, orderID)
	if err != nil {
		var domainErr *pkgerrors.Error
		if errors.As(err, &domainErr) && domainErr.Code() == pkgerrors.CodeNotFound {
			c.logg.Warn(ctx, "payment references unknown order")
			c.metrics.IncWebhook(notification.Type, "orphan")
			return nil
		}
		return release(err)
	}

	// Step 1: the audit row. A replayed (payment, status) pair trips the
	// unique index and short-circuits before any state is touched again.
	if err := c.orders.AppendPaymentDetail(ctx, buildPaymentDetail(order.ID, payment)); err != nil {
		if errors.Is(err, orders.ErrDuplicatePayment) {
			c.logg.Info(ctx, "duplicate payment notification ignored")
			c.metrics.IncWebhook(notification.Type, "duplicate")
			return nil
		}
		c.metrics.IncWebhook(notification.Type, "error")
		return release(err)
	}

	next, ok := orderStatusForPayment(payment.Status)
	if !ok {
		c.logg.Warn(ctx, fmt.Sprintf("unmapped payment status %q", payment.Status))
		c.metrics.IncWebhook(notification.Type, "unmapped_status")
		return nil
	}

	// Step 2: the guarded transition. A frozen terminal state is not an
	// error worth a gateway retry.
	if _, err := c.orders.TransitionStatus(ctx, orderID, next); err != nil {
		var domainErr *pkgerrors.Error
		if errors.As(err, &domainErr) && domainErr.Code() == pkgerrors.CodeStateConflict {
			c.logg.Warn(ctx, fmt.Sprintf("transition to %s blocked: %s", next, domainErr.Message()))
			c.metrics.IncWebhook(notification.Type, "state_conflict")
			return nil
		}
		c.metrics.IncWebhook(notification.Type, "error")
		return release(err)
	}

	c.emitLifecycleEvent(ctx, order, next)

	// Step 3: post-settlement side effects, completed orders only.
	if next == enums.OrderStatusCompleted {
		if err := c.applySettlementEffects(ctx, order); err != nil {
			c.logg.Error(ctx, "settlement side effects incomplete", err)
		}
	}

	c.metrics.IncWebhook(notification.Type, "processed")
	c.metrics.ObserveSettlement(next.String(), time.Since(started))
	return nil
}

// applySettlementEffects clears the originating cart and decrements stock.
// Each effect runs independently and failures are collected, not surfaced.
func (c *coordinator) applySettlementEffects(ctx context.Context, order *models.Order) error {
	var errs error

	if order.CartID != nil {
		if err := c.carts.Clear(ctx, *order.CartID); err != nil {
			c.metrics.IncSideEffectFailure("cart_clear")
			errs = multierr.Append(errs, fmt.Errorf("clearing cart %s: %w", order.CartID, err))
		}
	}

	for _, item := range order.Items {
		if item.VariationID == nil {
			continue
		}
		if err := c.stock.AdjustStock(ctx, *item.VariationID, -item.Quantity); err != nil {
			c.metrics.IncSideEffectFailure("stock_decrement")
			errs = multierr.Append(errs, fmt.Errorf("decrementing stock for %s: %w", item.VariationID, err))
		}
	}

	return errs
}

func (c *coordinator) emitLifecycleEvent(ctx context.Context, order *models.Order, status enums.OrderStatus) {
	var eventType enums.OutboxEventType
	switch status {
	case enums.OrderStatusCompleted:
		eventType = enums.EventOrderSettled
	case enums.OrderStatusCancelled:
		eventType = enums.EventOrderCancelled
	case enums.OrderStatusRefunded:
		eventType = enums.EventOrderRefunded
	default:
		return
	}

	err := c.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return c.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderLifecycleEvent{
				OrderID:    order.ID,
				Status:     status.String(),
				TotalCents: order.TotalCents,
			},
			Version: 1,
		})
	})
	if err != nil {
		c.metrics.IncSideEffectFailure("outbox_emit")
		c.logg.Error(ctx, "queueing lifecycle event failed", err)
	}
}

var centsPerUnit = decimal.NewFromInt(100)

func buildPaymentDetail(orderID uuid.UUID, payment *mercadopago.Payment) *models.OrderPaymentDetail {
	method := payment.PaymentMethodID
	if method == "" {
		method = payment.PaymentTypeID
	}
	detail := &models.OrderPaymentDetail{
		OrderID:     orderID,
		PaymentID:   fmt.Sprintf("%d", payment.ID),
		Method:      method,
		Status:      payment.Status,
		AmountCents: int(payment.TransactionAmount.Mul(centsPerUnit).IntPart()),
	}
	if payment.StatusDetail != "" {
		statusDetail := payment.StatusDetail
		detail.StatusDetail = &statusDetail
	}
	return detail
}

// orderStatusForPayment maps the gateway payment status onto the order
// lifecycle. Unknown statuses return false and leave the order untouched.
func orderStatusForPayment(status string) (enums.OrderStatus, bool) {
	switch status {
	case mercadopago.PaymentStatusApproved:
		return enums.OrderStatusCompleted, true
	case mercadopago.PaymentStatusPending, mercadopago.PaymentStatusInProcess:
		return enums.OrderStatusProcessing, true
	case mercadopago.PaymentStatusRejected, mercadopago.PaymentStatusCancelled:
		return enums.OrderStatusCancelled, true
	case mercadopago.PaymentStatusRefunded, mercadopago.PaymentStatusChargedBack:
		return enums.OrderStatusRefunded, true
	}
	return "", false
}
