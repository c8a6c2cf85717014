package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefrontlabs/storefront/pkg/db/models"
	"github.com/storefrontlabs/storefront/pkg/enums"
	"github.com/storefrontlabs/storefront/pkg/pagination"
)

// Repository defines persistence operations for orders and payment details.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, params listOrdersParams) ([]models.Order, *pagination.Cursor, error)
	SetPreferenceID(ctx context.Context, orderID uuid.UUID, preferenceID string) error
	UpdateStatusIf(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (bool, error)
	CreatePaymentDetail(ctx context.Context, detail *models.OrderPaymentDetail) error
	FindPaymentDetail(ctx context.Context, paymentID string) (*models.OrderPaymentDetail, error)
}

type repository struct {
	db *gorm.DB
}

type listOrdersParams struct {
	UserID    *uuid.UUID
	SessionID *string
	Limit     int
	Cursor    *pagination.Cursor
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.Status == "" {
		order.Status = enums.OrderStatusPending
	}
	for i := range order.Items {
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
		order.Items[i].OrderID = order.ID
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("PaymentDetails").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, params listOrdersParams) ([]models.Order, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Preload("Items")
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	} else if params.SessionID != nil {
		query = query.Where("session_id = ?", *params.SessionID)
	}
	if params.Cursor != nil {
		// Expanded (created_at, id) comparison; the row-value form is not
		// portable to the sqlite driver used in tests.
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var orders []models.Order
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&orders).Error; err != nil {
		return nil, nil, err
	}

	if len(orders) > normalized {
		next := orders[normalized]
		orders = orders[:normalized]
		return orders, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return orders, nil, nil
}

func (r *repository) SetPreferenceID(ctx context.Context, orderID uuid.UUID, preferenceID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("preference_id", preferenceID).Error
}

// UpdateStatusIf persists the transition only when the row still carries the
// expected current status, so concurrent webhook deliveries cannot clobber
// each other. Returns false when no row matched.
func (r *repository) UpdateStatusIf(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	now := time.Now().UTC()
	updates := map[string]any{"status": to}
	switch to {
	case enums.OrderStatusCompleted:
		updates["settled_at"] = now
	case enums.OrderStatusCancelled:
		updates["cancelled_at"] = now
	case enums.OrderStatusRefunded:
		updates["refunded_at"] = now
	}

	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) CreatePaymentDetail(ctx context.Context, detail *models.OrderPaymentDetail) error {
	if detail.ID == uuid.Nil {
		detail.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(detail).Error
}

func (r *repository) FindPaymentDetail(ctx context.Context, paymentID string) (*models.OrderPaymentDetail, error) {
	var detail models.OrderPaymentDetail
	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		First(&detail).Error
	if err != nil {
		return nil, err
	}
	return &detail, nil
}
