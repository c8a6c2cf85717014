package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/storefrontlabs/storefront/api/responses"
	"github.com/storefrontlabs/storefront/api/validators"
	"github.com/storefrontlabs/storefront/internal/catalog"
	"github.com/storefrontlabs/storefront/internal/pricing"
	"github.com/storefrontlabs/storefront/pkg/db/models"
	pkgerrors "github.com/storefrontlabs/storefront/pkg/errors"
	"github.com/storefrontlabs/storefront/pkg/logger"
)

// GetVariation returns one variation with its price tiers.
func GetVariation(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variationID, err := pathUUID(r, "variationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variation, err := svc.GetVariation(r.Context(), variationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newVariationResponse(variation))
	}
}

// ResolvePrice answers "what does one unit cost at this quantity".
func ResolvePrice(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variationID, err := pathUUID(r, "variationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quantity, err := validators.ParseQueryInt(r, "quantity", 0, 1, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if quantity == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "quantity query parameter required"))
			return
		}

		resolution, err := svc.ResolveUnitPrice(r.Context(), variationID, quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resolution)
	}
}

// CreateTier adds a price tier to a variation.
func CreateTier(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variationID, err := pathUUID(r, "variationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload tierRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tier, err := svc.CreateTier(r.Context(), variationID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newTierResponse(tier))
	}
}

// UpdateTier patches an existing tier.
func UpdateTier(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tierID, err := pathUUID(r, "tierID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload tierRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tier, err := svc.UpdateTier(r.Context(), tierID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newTierResponse(tier))
	}
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	value, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, param+" must be a valid uuid")
	}
	return value, nil
}

// Pointer fields distinguish "absent" from a zero value, so a PATCH can
// lower min_quantity or set a zero price without tripping patch semantics.
type tierRequest struct {
	MinQuantity    *int  `json:"min_quantity,omitempty" validate:"omitempty,min=1"`
	MaxQuantity    *int  `json:"max_quantity,omitempty"`
	UnitPriceCents *int  `json:"unit_price_cents,omitempty" validate:"omitempty,min=0"`
	IsActive       *bool `json:"is_active,omitempty"`
	SortOrder      *int  `json:"sort_order,omitempty"`
}

func (t tierRequest) toInput() catalog.TierInput {
	return catalog.TierInput{
		MinQuantity:    t.MinQuantity,
		MaxQuantity:    t.MaxQuantity,
		UnitPriceCents: t.UnitPriceCents,
		IsActive:       t.IsActive,
		SortOrder:      t.SortOrder,
	}
}

type variationResponse struct {
	ID         uuid.UUID      `json:"id"`
	Name       string         `json:"name"`
	SKU        string         `json:"sku"`
	PriceCents int            `json:"price_cents"`
	Stock      int            `json:"stock"`
	IsActive   bool           `json:"is_active"`
	PriceTiers []tierResponse `json:"price_tiers"`
}

type tierResponse struct {
	ID             uuid.UUID `json:"id"`
	VariationID    uuid.UUID `json:"variation_id"`
	MinQuantity    int       `json:"min_quantity"`
	MaxQuantity    *int      `json:"max_quantity,omitempty"`
	UnitPriceCents int       `json:"unit_price_cents"`
	IsActive       bool      `json:"is_active"`
	SortOrder      int       `json:"sort_order"`
	CreatedAt      time.Time `json:"created_at"`
}

func newVariationResponse(variation *models.ProductVariation) variationResponse {
	tiers := make([]tierResponse, 0, len(variation.PriceTiers))
	for i := range variation.PriceTiers {
		tiers = append(tiers, newTierResponse(&variation.PriceTiers[i]))
	}
	return variationResponse{
		ID:         variation.ID,
		Name:       variation.Name,
		SKU:        variation.SKU,
		PriceCents: variation.PriceCents,
		Stock:      variation.Stock,
		IsActive:   variation.IsActive,
		PriceTiers: tiers,
	}
}

func newTierResponse(tier *models.PriceTier) tierResponse {
	return tierResponse{
		ID:             tier.ID,
		VariationID:    tier.VariationID,
		MinQuantity:    tier.MinQuantity,
		MaxQuantity:    tier.MaxQuantity,
		UnitPriceCents: tier.UnitPriceCents,
		IsActive:       tier.IsActive,
		SortOrder:      tier.SortOrder,
		CreatedAt:      tier.CreatedAt,
	}
}
