package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	cartsvc "github.com/storefrontlabs/storefront/internal/cart"
	"github.com/storefrontlabs/storefront/pkg/db/models"
	"github.com/storefrontlabs/storefront/pkg/enums"
	pkgerrors "github.com/storefrontlabs/storefront/pkg/errors"
)

type stubCartService struct {
	record   *models.CartRecord
	err      error
	identity cartsvc.Identity
}

func (s *stubCartService) GetOrCreate(ctx context.Context, identity cartsvc.Identity) (*models.CartRecord, error) {
	s.identity = identity
	return s.record, s.err
}

func (s *stubCartService) AddItem(ctx context.Context, identity cartsvc.Identity, variationID uuid.UUID, quantity int) (*models.CartRecord, error) {
	s.identity = identity
	return s.record, s.err
}

func (s *stubCartService) RemoveItem(ctx context.Context, identity cartsvc.Identity, variationID uuid.UUID) (*models.CartRecord, error) {
	s.identity = identity
	return s.record, s.err
}

func (s *stubCartService) Clear(ctx context.Context, cartID uuid.UUID) error {
	return s.err
}

func TestGetCartSuccess(t *testing.T) {
	userID := uuid.New()
	record := &models.CartRecord{
		ID:     uuid.New(),
		UserID: &userID,
		Status: enums.CartStatusActive,
	}
	svc := &stubCartService{record: record}
	handler := GetCart(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-User-Id", userID.String())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data cartResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != record.ID {
		t.Fatalf("unexpected cart id: %s", envelope.Data.ID)
	}
	if svc.identity.UserID == nil || *svc.identity.UserID != userID {
		t.Fatalf("user identity not forwarded")
	}
}

func TestGetCartSessionIdentity(t *testing.T) {
	record := &models.CartRecord{ID: uuid.New(), Status: enums.CartStatusActive}
	svc := &stubCartService{record: record}
	handler := GetCart(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-Session-Id", "sess-abc123")

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.identity.SessionID == nil || *svc.identity.SessionID != "sess-abc123" {
		t.Fatalf("session identity not forwarded")
	}
}

func TestGetCartMissingIdentity(t *testing.T) {
	handler := GetCart(&stubCartService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestGetCartBothIdentities(t *testing.T) {
	handler := GetCart(&stubCartService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-User-Id", uuid.NewString())
	req.Header.Set("X-Session-Id", "sess-abc123")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAddCartItemSuccess(t *testing.T) {
	userID := uuid.New()
	variationID := uuid.New()
	record := &models.CartRecord{
		ID:         uuid.New(),
		UserID:     &userID,
		Status:     enums.CartStatusActive,
		ItemCount:  3,
		TotalCents: 27000,
		Items: []models.CartItem{{
			VariationID:    variationID,
			Quantity:       3,
			UnitPriceCents: 9000,
			LineTotalCents: 27000,
		}},
	}
	handler := AddCartItem(&stubCartService{record: record}, nil)

	body, _ := json.Marshal(map[string]any{"variation_id": variationID, "quantity": 3})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", userID.String())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data cartResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.TotalCents != 27000 || len(envelope.Data.Items) != 1 {
		t.Fatalf("unexpected cart body: %+v", envelope.Data)
	}
}

func TestAddCartItemInvalidQuantity(t *testing.T) {
	handler := AddCartItem(&stubCartService{}, nil)

	body, _ := json.Marshal(map[string]any{"variation_id": uuid.New(), "quantity": 0})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", uuid.NewString())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRemoveCartItemNotFound(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeNotFound, "line not in cart")}
	handler := RemoveCartItem(svc, nil)

	variationID := uuid.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items/"+variationID.String(), nil)
	req.Header.Set("X-Session-Id", "sess-abc123")
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("variationID", variationID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
