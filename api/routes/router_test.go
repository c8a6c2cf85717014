package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	cartsvc "github.com/storefrontlabs/storefront/internal/cart"
	"github.com/storefrontlabs/storefront/internal/catalog"
	"github.com/storefrontlabs/storefront/internal/checkout"
	"github.com/storefrontlabs/storefront/internal/orders"
	"github.com/storefrontlabs/storefront/internal/pricing"
	"github.com/storefrontlabs/storefront/pkg/config"
	"github.com/storefrontlabs/storefront/pkg/db"
	"github.com/storefrontlabs/storefront/pkg/db/models"
	"github.com/storefrontlabs/storefront/pkg/enums"
	pkgerrors "github.com/storefrontlabs/storefront/pkg/errors"
	"github.com/storefrontlabs/storefront/pkg/logger"
	"github.com/storefrontlabs/storefront/pkg/mercadopago"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubCatalog struct{}

func (stubCatalog) GetVariation(ctx context.Context, id uuid.UUID) (*models.ProductVariation, error) {
	return &models.ProductVariation{ID: id, IsActive: true}, nil
}

func (stubCatalog) CreateTier(ctx context.Context, variationID uuid.UUID, input catalog.TierInput) (*models.PriceTier, error) {
	return &models.PriceTier{ID: uuid.New(), VariationID: variationID}, nil
}

func (stubCatalog) UpdateTier(ctx context.Context, tierID uuid.UUID, input catalog.TierInput) (*models.PriceTier, error) {
	return &models.PriceTier{ID: tierID}, nil
}

func (stubCatalog) AdjustStock(ctx context.Context, variationID uuid.UUID, delta int) error {
	return nil
}

type stubPricing struct{}

func (stubPricing) ResolveUnitPrice(ctx context.Context, variationID uuid.UUID, quantity int) (*pricing.Resolution, error) {
	return &pricing.Resolution{VariationID: variationID, Quantity: quantity, UnitPriceCents: 10000}, nil
}

type stubCarts struct{}

func (stubCarts) GetOrCreate(ctx context.Context, identity cartsvc.Identity) (*models.CartRecord, error) {
	return &models.CartRecord{ID: uuid.New(), Status: enums.CartStatusActive}, nil
}

func (stubCarts) AddItem(ctx context.Context, identity cartsvc.Identity, variationID uuid.UUID, quantity int) (*models.CartRecord, error) {
	return &models.CartRecord{ID: uuid.New(), Status: enums.CartStatusActive}, nil
}

func (stubCarts) RemoveItem(ctx context.Context, identity cartsvc.Identity, variationID uuid.UUID) (*models.CartRecord, error) {
	return &models.CartRecord{ID: uuid.New(), Status: enums.CartStatusActive}, nil
}

func (stubCarts) Clear(ctx context.Context, cartID uuid.UUID) error { return nil }

type stubCheckout struct{}

func (stubCheckout) CreateCheckout(ctx context.Context, identity cartsvc.Identity) (*checkout.Result, error) {
	return &checkout.Result{Order: &models.Order{ID: uuid.New(), Status: enums.OrderStatusPending}}, nil
}

type stubOrders struct{}

func (stubOrders) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (stubOrders) List(ctx context.Context, params orders.ListParams) (*orders.ListResult, error) {
	return &orders.ListResult{}, nil
}

func (stubOrders) TransitionStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (stubOrders) AppendPaymentDetail(ctx context.Context, detail *models.OrderPaymentDetail) error {
	return nil
}

func (stubOrders) AttachPreference(ctx context.Context, orderID uuid.UUID, preferenceID string) error {
	return nil
}

type stubCoordinator struct{}

func (stubCoordinator) HandleNotification(ctx context.Context, notification mercadopago.Notification) error {
	return nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Env = "test"
	logg := logger.New(logger.Options{ServiceName: "router-test"})

	return NewRouter(
		cfg,
		logg,
		map[string]db.Pinger{"db": stubPinger{}},
		stubCatalog{},
		stubPricing{},
		stubCarts{},
		stubCheckout{},
		stubOrders{},
		stubCoordinator{},
		nil,
	)
}

func TestRouterHealthLive(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestRouterRoutesWired(t *testing.T) {
	router := newTestRouter(t)
	userID := uuid.NewString()

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/v1/variations/" + uuid.NewString(), http.StatusOK},
		{http.MethodGet, "/api/v1/variations/" + uuid.NewString() + "/price?quantity=10", http.StatusOK},
		{http.MethodGet, "/api/v1/cart", http.StatusOK},
		{http.MethodPost, "/api/v1/checkout", http.StatusCreated},
		{http.MethodGet, "/api/v1/orders", http.StatusOK},
		{http.MethodGet, "/api/v1/orders/" + uuid.NewString(), http.StatusNotFound},
		{http.MethodGet, "/metrics", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		req.Header.Set("X-User-Id", userID)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s %s: expected %d got %d (%s)", tc.method, tc.path, tc.want, rec.Code, rec.Body.String())
		}
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}
