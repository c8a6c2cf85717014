package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/storefrontlabs/storefront/api/validators"
	"github.com/storefrontlabs/storefront/internal/cart"
	pkgerrors "github.com/storefrontlabs/storefront/pkg/errors"
)

const (
	userIDHeader    = "X-User-Id"
	sessionIDHeader = "X-Session-Id"
)

// identityFromRequest resolves the cart owner from the request headers:
// authenticated callers send X-User-Id, anonymous ones X-Session-Id.
func identityFromRequest(r *http.Request) (cart.Identity, error) {
	rawUser := strings.TrimSpace(r.Header.Get(userIDHeader))
	rawSession := validators.SanitizeString(r.Header.Get(sessionIDHeader), 128)

	if rawUser != "" && rawSession != "" {
		return cart.Identity{}, pkgerrors.New(pkgerrors.CodeValidation, "send either X-User-Id or X-Session-Id, not both")
	}
	if rawUser != "" {
		userID, err := uuid.Parse(rawUser)
		if err != nil {
			return cart.Identity{}, pkgerrors.New(pkgerrors.CodeValidation, "X-User-Id must be a valid uuid")
		}
		return cart.ForUser(userID), nil
	}
	if rawSession != "" {
		return cart.ForSession(rawSession), nil
	}
	return cart.Identity{}, pkgerrors.New(pkgerrors.CodeValidation, "X-User-Id or X-Session-Id header required")
}
