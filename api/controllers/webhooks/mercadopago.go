package webhooks

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/storefrontlabs/storefront/api/responses"
	"github.com/storefrontlabs/storefront/internal/settlement"
	pkgerrors "github.com/storefrontlabs/storefront/pkg/errors"
	"github.com/storefrontlabs/storefront/pkg/logger"
	"github.com/storefrontlabs/storefront/pkg/mercadopago"
)

type gatewayClient interface {
	SigningSecret() string
}

// MercadoPagoWebhook receives payment notifications from MercadoPago and
// hands them to the settlement coordinator. Delivery dedup happens inside
// the coordinator, keyed on the fetched payment state. Anything the
// coordinator treats as non-retryable is acked with 200 so the gateway
// stops redelivering.
func MercadoPagoWebhook(coord settlement.Coordinator, client gatewayClient, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if coord == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement coordinator unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gateway client unavailable"))
			return
		}
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		var notification mercadopago.Notification
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &notification); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode notification"))
				return
			}
		}
		// MercadoPago also carries the payload in query parameters; body
		// wins when both are present.
		if notification.Type == "" {
			notification.Type = r.URL.Query().Get("type")
		}
		if notification.Data.ID == "" {
			notification.Data.ID = r.URL.Query().Get("data.id")
		}

		signature := r.Header.Get("x-signature")
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "signature header missing"))
			return
		}
		requestID := r.Header.Get("x-request-id")
		if err := mercadopago.VerifySignature(client.SigningSecret(), signature, requestID, notification.Data.ID); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "verify signature"))
			return
		}

		if notification.Type != mercadopago.NotificationTypePayment {
			responses.WriteSuccess(w, nil)
			return
		}

		if err := coord.HandleNotification(ctx, notification); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("payment notification %s processed", notification.Data.ID))
		}
		responses.WriteSuccess(w, nil)
	}
}
