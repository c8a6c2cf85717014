package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/storefrontlabs/storefront/internal/cart"
	"github.com/storefrontlabs/storefront/internal/catalog"
	"github.com/storefrontlabs/storefront/internal/orders"
	"github.com/storefrontlabs/storefront/pkg/config"
	"github.com/storefrontlabs/storefront/pkg/db/models"
	"github.com/storefrontlabs/storefront/pkg/enums"
	pkgerrors "github.com/storefrontlabs/storefront/pkg/errors"
	"github.com/storefrontlabs/storefront/pkg/logger"
	"github.com/storefrontlabs/storefront/pkg/mercadopago"
	"github.com/storefrontlabs/storefront/pkg/outbox"
	"github.com/storefrontlabs/storefront/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type preferenceCreator interface {
	CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error)
}

// ShortageDetail reports one unfulfillable cart line.
type ShortageDetail struct {
	ProductID    uuid.UUID `json:"product_id"`
	ProductName  string    `json:"product_name"`
	RequestedQty int       `json:"requested_qty"`
	AvailableQty int       `json:"available_qty"`
}

// Result is the checkout outcome: the pending order plus the gateway's
// redirect for collecting payment.
type Result struct {
	Order     *models.Order `json:"order"`
	InitPoint string        `json:"init_point,omitempty"`
}

// Service coordinates cart conversion into a pending order.
type Service interface {
	CreateCheckout(ctx context.Context, identity cart.Identity) (*Result, error)
}

type service struct {
	tx          txRunner
	cartRepo    cart.Repository
	catalogRepo catalog.Repository
	ordersRepo  orders.Repository
	outbox      outboxPublisher
	gateway     preferenceCreator
	mpCfg       config.MercadoPagoConfig
	currencyID  string
	logg        *logger.Logger
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	cartRepo cart.Repository,
	catalogRepo catalog.Repository,
	ordersRepo orders.Repository,
	publisher outboxPublisher,
	gateway preferenceCreator,
	mpCfg config.MercadoPagoConfig,
	checkoutCfg config.CheckoutConfig,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:          tx,
		cartRepo:    cartRepo,
		catalogRepo: catalogRepo,
		ordersRepo:  ordersRepo,
		outbox:      publisher,
		gateway:     gateway,
		mpCfg:       mpCfg,
		currencyID:  checkoutCfg.CurrencyID,
		logg:        logg,
	}, nil
}

func (s *service) CreateCheckout(ctx context.Context, identity cart.Identity) (*Result, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}

	record, err := s.cartRepo.FindActiveCart(ctx, identity)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active cart")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	if len(record.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}

	variations, err := s.loadVariations(ctx, record.Items)
	if err != nil {
		return nil, err
	}
	if err := checkAvailability(record.Items, variations); err != nil {
		return nil, err
	}

	// The cart is left active: it is only retired when settlement completes,
	// so a rejected or abandoned payment leaves the shopper able to retry.
	var order *models.Order
	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.ordersRepo.WithTx(tx)

		cartID := record.ID
		order, err = ordersRepo.Create(ctx, buildOrder(record, variations, cartID, identity))
		if err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderCreatedEvent{
				OrderID:    order.ID,
				CartID:     cartID,
				TotalCents: order.TotalCents,
				ItemCount:  len(order.Items),
			},
			Version: 1,
		})
	})
	if txErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, txErr, "creating checkout")
	}

	// The preference happens outside the transaction: a gateway failure
	// leaves the committed pending order in place and surfaces to the
	// caller, who retries against the existing order.
	result := &Result{Order: order}
	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	pref, err := s.createPreference(ctx, order)
	if err != nil {
		s.logg.Error(logCtx, "checkout preference creation failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating payment preference").
			WithDetails(map[string]string{"order_id": order.ID.String()})
	}

	if err := s.ordersRepo.SetPreferenceID(ctx, order.ID, pref.ID); err != nil {
		s.logg.Error(logCtx, "persisting preference id failed", err)
	} else {
		order.PreferenceID = &pref.ID
	}
	result.InitPoint = pref.InitPoint
	return result, nil
}

func (s *service) loadVariations(ctx context.Context, items []models.CartItem) (map[uuid.UUID]models.ProductVariation, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.VariationID)
	}
	variations, err := s.catalogRepo.FindVariations(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading variations")
	}
	byID := make(map[uuid.UUID]models.ProductVariation, len(variations))
	for _, variation := range variations {
		byID[variation.ID] = variation
	}
	return byID, nil
}

// checkAvailability collects every shortage before failing, so the caller
// sees the full list in one response.
func checkAvailability(items []models.CartItem, variations map[uuid.UUID]models.ProductVariation) error {
	var shortages []ShortageDetail
	for _, item := range items {
		variation, ok := variations[item.VariationID]
		if !ok || !variation.IsActive {
			shortages = append(shortages, ShortageDetail{
				ProductID:    item.VariationID,
				ProductName:  variation.Name,
				RequestedQty: item.Quantity,
				AvailableQty: 0,
			})
			continue
		}
		if variation.Stock < item.Quantity {
			shortages = append(shortages, ShortageDetail{
				ProductID:    variation.ID,
				ProductName:  variation.Name,
				RequestedQty: item.Quantity,
				AvailableQty: variation.Stock,
			})
		}
	}
	if len(shortages) > 0 {
		return pkgerrors.New(pkgerrors.CodeStockShortage, "insufficient stock").
			WithDetails(shortages)
	}
	return nil
}

func buildOrder(record *models.CartRecord, variations map[uuid.UUID]models.ProductVariation, cartID uuid.UUID, identity cart.Identity) *models.Order {
	items := make([]models.OrderItem, 0, len(record.Items))
	total := 0
	for _, item := range record.Items {
		variationID := item.VariationID
		items = append(items, models.OrderItem{
			VariationID:    &variationID,
			Title:          variations[item.VariationID].Name,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			LineTotalCents: item.LineTotalCents,
		})
		total += item.LineTotalCents
	}
	return &models.Order{
		UserID:     identity.UserID,
		SessionID:  identity.SessionID,
		CartID:     &cartID,
		Status:     enums.OrderStatusPending,
		TotalCents: total,
		Items:      items,
	}
}

func (s *service) createPreference(ctx context.Context, order *models.Order) (*mercadopago.Preference, error) {
	items := make([]mercadopago.PreferenceItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, mercadopago.PreferenceItem{
			Title:      item.Title,
			Quantity:   item.Quantity,
			UnitPrice:  decimal.New(int64(item.UnitPriceCents), -2),
			CurrencyID: s.currencyID,
		})
	}
	req := mercadopago.PreferenceRequest{
		Items:             items,
		ExternalReference: order.ID.String(),
		NotificationURL:   s.mpCfg.NotificationURL,
	}
	if s.mpCfg.BackURL != "" {
		req.BackURLs = &mercadopago.PreferenceBackURLs{
			Success: s.mpCfg.BackURL,
			Pending: s.mpCfg.BackURL,
			Failure: s.mpCfg.BackURL,
		}
	}
	return s.gateway.CreatePreference(ctx, req)
}
