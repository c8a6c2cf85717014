package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/storefrontlabs/storefront/api/responses"
	"github.com/storefrontlabs/storefront/api/validators"
	cartsvc "github.com/storefrontlabs/storefront/internal/cart"
	"github.com/storefrontlabs/storefront/pkg/db/models"
	"github.com/storefrontlabs/storefront/pkg/logger"
)

// GetCart returns the caller's active cart, creating it on first touch.
func GetCart(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.GetOrCreate(r.Context(), identity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(record))
	}
}

// AddCartItem adds a variation (or tops up its quantity) on the active cart.
func AddCartItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.AddItem(r.Context(), identity, payload.VariationID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(record))
	}
}

// RemoveCartItem drops a variation's line from the active cart.
func RemoveCartItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variationID, err := pathUUID(r, "variationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.RemoveItem(r.Context(), identity, variationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(record))
	}
}

type addCartItemRequest struct {
	VariationID uuid.UUID `json:"variation_id" validate:"required"`
	Quantity    int       `json:"quantity" validate:"required,min=1"`
}

type cartResponse struct {
	ID         uuid.UUID          `json:"id"`
	Status     string             `json:"status"`
	ItemCount  int                `json:"item_count"`
	TotalCents int                `json:"total_cents"`
	Items      []cartItemResponse `json:"items"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

type cartItemResponse struct {
	VariationID    uuid.UUID `json:"variation_id"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int       `json:"unit_price_cents"`
	LineTotalCents int       `json:"line_total_cents"`
}

func newCartResponse(record *models.CartRecord) cartResponse {
	items := make([]cartItemResponse, 0, len(record.Items))
	for _, item := range record.Items {
		items = append(items, cartItemResponse{
			VariationID:    item.VariationID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			LineTotalCents: item.LineTotalCents,
		})
	}
	return cartResponse{
		ID:         record.ID,
		Status:     record.Status.String(),
		ItemCount:  record.ItemCount,
		TotalCents: record.TotalCents,
		Items:      items,
		UpdatedAt:  record.UpdatedAt,
	}
}
