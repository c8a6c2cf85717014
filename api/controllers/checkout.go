package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/storefrontlabs/storefront/api/responses"
	"github.com/storefrontlabs/storefront/internal/checkout"
	"github.com/storefrontlabs/storefront/pkg/logger"
)

// CreateCheckout converts the caller's active cart into a pending order and
// returns the gateway redirect URL when a preference could be created.
func CreateCheckout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateCheckout(r.Context(), identity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			OrderID:    result.Order.ID,
			Status:     result.Order.Status.String(),
			TotalCents: result.Order.TotalCents,
			InitPoint:  result.InitPoint,
		})
	}
}

type checkoutResponse struct {
	OrderID    uuid.UUID `json:"order_id"`
	Status     string    `json:"status"`
	TotalCents int       `json:"total_cents"`
	InitPoint  string    `json:"init_point,omitempty"`
}
