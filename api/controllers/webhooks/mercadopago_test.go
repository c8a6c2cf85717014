package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgerrors "github.com/storefrontlabs/storefront/pkg/errors"
	"github.com/storefrontlabs/storefront/pkg/mercadopago"
)

const testSigningSecret = "mp_webhook_secret"

type fakeCoordinator struct {
	calls int
	last  mercadopago.Notification
	err   error
}

func (f *fakeCoordinator) HandleNotification(ctx context.Context, notification mercadopago.Notification) error {
	f.calls++
	f.last = notification
	return f.err
}

type fakeSigningClient struct {
	secret string
}

func (f *fakeSigningClient) SigningSecret() string { return f.secret }

func signedRequest(t *testing.T, dataID string) *http.Request {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"type": "payment",
		"data": map[string]string{"id": dataID},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	requestID := "req-" + dataID
	ts := fmt.Sprintf("%d", time.Now().Unix())
	mac := hmac.New(sha256.New, []byte(testSigningSecret))
	mac.Write([]byte(mercadopago.BuildManifest(dataID, requestID, ts)))
	signature := fmt.Sprintf("ts=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/mercadopago", bytes.NewReader(payload))
	req.Header.Set("x-signature", signature)
	req.Header.Set("x-request-id", requestID)
	return req
}

func TestMercadoPagoWebhook_ForwardsToCoordinator(t *testing.T) {
	coord := &fakeCoordinator{}
	handler := MercadoPagoWebhook(coord, &fakeSigningClient{secret: testSigningSecret}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(t, "12345678"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if coord.calls != 1 {
		t.Fatalf("expected coordinator called once, got %d", coord.calls)
	}
	if coord.last.Data.ID != "12345678" {
		t.Fatalf("unexpected data id: %s", coord.last.Data.ID)
	}
}

func TestMercadoPagoWebhook_InvalidSignature(t *testing.T) {
	coord := &fakeCoordinator{}
	handler := MercadoPagoWebhook(coord, &fakeSigningClient{secret: testSigningSecret}, nil)

	payload, _ := json.Marshal(map[string]any{"type": "payment", "data": map[string]string{"id": "12345678"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/mercadopago", bytes.NewReader(payload))
	req.Header.Set("x-signature", "ts=1,v1=deadbeef")
	req.Header.Set("x-request-id", "req-12345678")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid signature, got %d", rec.Code)
	}
	if coord.calls != 0 {
		t.Fatalf("coordinator should not be invoked on invalid signature")
	}
}

func TestMercadoPagoWebhook_MissingSignature(t *testing.T) {
	coord := &fakeCoordinator{}
	handler := MercadoPagoWebhook(coord, &fakeSigningClient{secret: testSigningSecret}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/mercadopago", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing signature, got %d", rec.Code)
	}
}

func TestMercadoPagoWebhook_QueryParamsFallback(t *testing.T) {
	coord := &fakeCoordinator{}
	handler := MercadoPagoWebhook(coord, &fakeSigningClient{secret: testSigningSecret}, nil)

	dataID := "87654321"
	requestID := "req-" + dataID
	ts := fmt.Sprintf("%d", time.Now().Unix())
	mac := hmac.New(sha256.New, []byte(testSigningSecret))
	mac.Write([]byte(mercadopago.BuildManifest(dataID, requestID, ts)))
	signature := fmt.Sprintf("ts=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/mercadopago?type=payment&data.id="+dataID, nil)
	req.Header.Set("x-signature", signature)
	req.Header.Set("x-request-id", requestID)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if coord.last.Data.ID != dataID || coord.last.Type != "payment" {
		t.Fatalf("query payload not forwarded: %+v", coord.last)
	}
}

func TestMercadoPagoWebhook_NonPaymentAcked(t *testing.T) {
	coord := &fakeCoordinator{}
	handler := MercadoPagoWebhook(coord, &fakeSigningClient{secret: testSigningSecret}, nil)

	dataID := "55555555"
	requestID := "req-" + dataID
	ts := fmt.Sprintf("%d", time.Now().Unix())
	mac := hmac.New(sha256.New, []byte(testSigningSecret))
	mac.Write([]byte(mercadopago.BuildManifest(dataID, requestID, ts)))
	signature := fmt.Sprintf("ts=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))

	payload, _ := json.Marshal(map[string]any{"type": "merchant_order", "data": map[string]string{"id": dataID}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/mercadopago", bytes.NewReader(payload))
	req.Header.Set("x-signature", signature)
	req.Header.Set("x-request-id", requestID)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for non-payment type, got %d", rec.Code)
	}
	if coord.calls != 0 {
		t.Fatalf("coordinator should not see non-payment notifications")
	}
}

func TestMercadoPagoWebhook_DependencyFailureGets503(t *testing.T) {
	coord := &fakeCoordinator{err: pkgerrors.New(pkgerrors.CodeDependency, "fetching payment")}
	handler := MercadoPagoWebhook(coord, &fakeSigningClient{secret: testSigningSecret}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(t, "99999999"))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 on dependency failure, got %d", rec.Code)
	}

	// The gateway retry is handed straight back to the coordinator.
	coord.err = nil
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, signedRequest(t, "99999999"))
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected retry to succeed, got %d", rec2.Code)
	}
	if coord.calls != 2 {
		t.Fatalf("expected retry to reach coordinator, call count %d", coord.calls)
	}
}
