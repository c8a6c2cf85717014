package mercadopago

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	mpconfig "github.com/mercadopago/sdk-go/pkg/config"
	mppayment "github.com/mercadopago/sdk-go/pkg/payment"
	mppreference "github.com/mercadopago/sdk-go/pkg/preference"
	"github.com/shopspring/decimal"

	"github.com/storefrontlabs/storefront/pkg/config"
	pkgerrors "github.com/storefrontlabs/storefront/pkg/errors"
	"github.com/storefrontlabs/storefront/pkg/logger"
)

const defaultBaseURL = "https://api.mercadopago.com"

var (
	errAccessTokenRequired   = errors.New("mercadopago access token is required")
	errWebhookSecretRequired = errors.New("mercadopago webhook secret is required")
	errLoggerRequired        = errors.New("mercadopago logger is required")
)

// Client wraps the official MercadoPago SDK with centralized credential
// validation, logging redaction, and domain error mapping. Webhook signature
// verification lives in signature.go since the SDK does not expose it.
type Client struct {
	preferences   mppreference.Client
	payments      mppayment.Client
	webhookSecret string
	logger        *logger.Logger
}

// NewClient initializes the MercadoPago wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.MercadoPagoConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}

	accessToken := strings.TrimSpace(cfg.AccessToken)
	if accessToken == "" {
		return nil, errAccessTokenRequired
	}

	webhookSecret := strings.TrimSpace(cfg.WebhookSecret)
	if webhookSecret == "" {
		return nil, errWebhookSecretRequired
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	// The SDK pins the production host, so a sandbox or test override goes
	// through a host-rewriting transport.
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL != "" && baseURL != defaultBaseURL {
		target, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid mercadopago base url: %w", err)
		}
		httpClient.Transport = &rewriteTransport{base: http.DefaultTransport, target: target}
	}

	sdkCfg, err := mpconfig.New(accessToken, mpconfig.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("initializing mercadopago sdk: %w", err)
	}

	c := &Client{
		preferences:   mppreference.NewClient(sdkCfg),
		payments:      mppayment.NewClient(sdkCfg),
		webhookSecret: webhookSecret,
		logger:        logg,
	}

	logg.Info(ctx, "mercadopago client initialized")
	return c, nil
}

// SigningSecret returns the webhook secret used for x-signature validation.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// CreatePreference registers a checkout preference for the given order lines.
func (c *Client) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	c.log(ctx, "request", "create_preference", map[string]any{
		"external_reference": req.ExternalReference,
		"item_count":         len(req.Items),
	})

	resp, err := c.preferences.Create(ctx, req.toSDKRequest())
	if err != nil {
		c.log(ctx, "error", "create_preference", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating mercadopago preference")
	}

	pref := &Preference{
		ID:                resp.ID,
		InitPoint:         resp.InitPoint,
		SandboxInitPoint:  resp.SandboxInitPoint,
		ExternalReference: resp.ExternalReference,
	}
	c.log(ctx, "response", "create_preference", map[string]any{
		"preference_id":      pref.ID,
		"external_reference": pref.ExternalReference,
	})
	return pref, nil
}

// GetPayment fetches the authoritative payment resource by gateway id.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	id, err := strconv.Atoi(strings.TrimSpace(paymentID))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id must be numeric")
	}

	c.log(ctx, "request", "get_payment", map[string]any{"payment_id": id})

	resp, err := c.payments.Get(ctx, id)
	if err != nil {
		c.log(ctx, "error", "get_payment", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetching mercadopago payment")
	}

	payment := &Payment{
		ID:                int64(resp.ID),
		Status:            resp.Status,
		StatusDetail:      resp.StatusDetail,
		ExternalReference: resp.ExternalReference,
		PaymentMethodID:   resp.PaymentMethodID,
		PaymentTypeID:     resp.PaymentTypeID,
		TransactionAmount: decimal.NewFromFloat(resp.TransactionAmount),
		CurrencyID:        resp.CurrencyID,
	}
	c.log(ctx, "response", "get_payment", map[string]any{
		"payment_id": payment.ID,
		"status":     payment.Status,
	})
	return payment, nil
}

func (r PreferenceRequest) toSDKRequest() mppreference.Request {
	items := make([]mppreference.ItemRequest, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, mppreference.ItemRequest{
			Title:      item.Title,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice.InexactFloat64(),
			CurrencyID: item.CurrencyID,
		})
	}
	req := mppreference.Request{
		Items:             items,
		ExternalReference: r.ExternalReference,
		NotificationURL:   r.NotificationURL,
	}
	if r.BackURLs != nil {
		req.BackURLs = &mppreference.BackURLsRequest{
			Success: r.BackURLs.Success,
			Pending: r.BackURLs.Pending,
			Failure: r.BackURLs.Failure,
		}
	}
	return req
}

// rewriteTransport redirects SDK requests to an alternate host while keeping
// path, headers, and body intact.
type rewriteTransport struct {
	base   http.RoundTripper
	target *url.URL
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.URL.Scheme = t.target.Scheme
	clone.URL.Host = t.target.Host
	clone.Host = t.target.Host
	return t.base.RoundTrip(clone)
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("mercadopago %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("mercadopago %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"card", "token", "secret", "email", "phone"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
