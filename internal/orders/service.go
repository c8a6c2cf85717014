package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefrontlabs/storefront/pkg/db"
	"github.com/storefrontlabs/storefront/pkg/db/models"
	"github.com/storefrontlabs/storefront/pkg/enums"
	pkgerrors "github.com/storefrontlabs/storefront/pkg/errors"
	"github.com/storefrontlabs/storefront/pkg/metrics"
	"github.com/storefrontlabs/storefront/pkg/pagination"
)

// ErrDuplicatePayment signals that a payment detail with the same gateway
// payment id and status already exists.
var ErrDuplicatePayment = errors.New("duplicate payment detail")

// ListParams configures identity filtering and pagination for order lists.
type ListParams struct {
	UserID    *uuid.UUID
	SessionID *string
	Limit     int
	Cursor    string
}

// ListResult wraps returned orders and the cursor for the next page.
type ListResult struct {
	Orders []models.Order
	Cursor string
}

// Service defines order lifecycle operations.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	TransitionStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error)
	AppendPaymentDetail(ctx context.Context, detail *models.OrderPaymentDetail) error
	AttachPreference(ctx context.Context, orderID uuid.UUID, preferenceID string) error
}

type service struct {
	repo    Repository
	metrics *metrics.SettlementMetrics
}

// NewService builds the orders service. Metrics may be nil.
func NewService(repo Repository, settlementMetrics *metrics.SettlementMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo, metrics: settlementMetrics}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserID == nil && params.SessionID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id or session id required")
	}

	query := listOrdersParams{
		UserID:    params.UserID,
		SessionID: params.SessionID,
		Limit:     params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Orders: rows, Cursor: cursor}, nil
}

// TransitionStatus applies the lifecycle guard: terminal states are frozen
// except completed -> refunded. The persist is conditional on the status the
// guard was evaluated against.
func (s *service) TransitionStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", next))
	}

	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == next {
		return order, nil
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order cannot move from %s to %s", order.Status, next))
	}

	updated, err := s.repo.UpdateStatusIf(ctx, orderID, order.Status, next)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order status")
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
	}
	s.metrics.IncTransition(order.Status.String(), next.String())

	return s.Get(ctx, orderID)
}

// AppendPaymentDetail stores the audit row; a replayed (payment id, status)
// pair surfaces as ErrDuplicatePayment via the unique index. The same payment
// arriving with a new status appends a fresh row.
func (s *service) AppendPaymentDetail(ctx context.Context, detail *models.OrderPaymentDetail) error {
	if detail == nil || detail.PaymentID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	if err := s.repo.CreatePaymentDetail(ctx, detail); err != nil {
		if db.IsUniqueViolation(err, "order_payment_details") {
			return ErrDuplicatePayment
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "appending payment detail")
	}
	return nil
}

func (s *service) AttachPreference(ctx context.Context, orderID uuid.UUID, preferenceID string) error {
	if preferenceID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "preference id required")
	}
	if err := s.repo.SetPreferenceID(ctx, orderID, preferenceID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attaching preference")
	}
	return nil
}
