package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/storefrontlabs/storefront/api/responses"
	"github.com/storefrontlabs/storefront/internal/orders"
	"github.com/storefrontlabs/storefront/pkg/db/models"
	pkgerrors "github.com/storefrontlabs/storefront/pkg/errors"
	"github.com/storefrontlabs/storefront/pkg/logger"
)

// GetOrder returns a single order with its items and payment audit trail.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// ListOrders returns the caller's orders, most recent first.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := orders.ListParams{UserID: identity.UserID, SessionID: identity.SessionID}

		if limitStr := strings.TrimSpace(r.URL.Query().Get("limit")); limitStr != "" {
			value, err := strconv.Atoi(limitStr)
			if err != nil || value <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer"))
				return
			}
			params.Limit = value
		}

		if cursor := strings.TrimSpace(r.URL.Query().Get("cursor")); cursor != "" {
			params.Cursor = cursor
		}

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]orderResponse, 0, len(result.Orders))
		for i := range result.Orders {
			out = append(out, newOrderResponse(&result.Orders[i]))
		}
		responses.WriteSuccess(w, listOrdersResponse{Orders: out, Cursor: result.Cursor})
	}
}

type listOrdersResponse struct {
	Orders []orderResponse `json:"orders"`
	Cursor string          `json:"cursor,omitempty"`
}

type orderResponse struct {
	ID           uuid.UUID              `json:"id"`
	Status       string                 `json:"status"`
	TotalCents   int                    `json:"total_cents"`
	PreferenceID *string                `json:"preference_id,omitempty"`
	Items        []orderItemResponse    `json:"items"`
	Payments     []orderPaymentResponse `json:"payments,omitempty"`
	SettledAt    *time.Time             `json:"settled_at,omitempty"`
	CancelledAt  *time.Time             `json:"cancelled_at,omitempty"`
	RefundedAt   *time.Time             `json:"refunded_at,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

type orderItemResponse struct {
	VariationID    *uuid.UUID `json:"variation_id,omitempty"`
	Title          string     `json:"title"`
	Quantity       int        `json:"quantity"`
	UnitPriceCents int        `json:"unit_price_cents"`
	LineTotalCents int        `json:"line_total_cents"`
}

type orderPaymentResponse struct {
	PaymentID    string    `json:"payment_id"`
	Method       string    `json:"method"`
	Status       string    `json:"status"`
	StatusDetail *string   `json:"status_detail,omitempty"`
	AmountCents  int       `json:"amount_cents"`
	CreatedAt    time.Time `json:"created_at"`
}

func newOrderResponse(order *models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			VariationID:    item.VariationID,
			Title:          item.Title,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			LineTotalCents: item.LineTotalCents,
		})
	}
	payments := make([]orderPaymentResponse, 0, len(order.PaymentDetails))
	for _, detail := range order.PaymentDetails {
		payments = append(payments, orderPaymentResponse{
			PaymentID:    detail.PaymentID,
			Method:       detail.Method,
			Status:       detail.Status,
			StatusDetail: detail.StatusDetail,
			AmountCents:  detail.AmountCents,
			CreatedAt:    detail.CreatedAt,
		})
	}
	return orderResponse{
		ID:           order.ID,
		Status:       order.Status.String(),
		TotalCents:   order.TotalCents,
		PreferenceID: order.PreferenceID,
		Items:        items,
		Payments:     payments,
		SettledAt:    order.SettledAt,
		CancelledAt:  order.CancelledAt,
		RefundedAt:   order.RefundedAt,
		CreatedAt:    order.CreatedAt,
	}
}
