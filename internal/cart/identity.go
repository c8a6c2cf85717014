package cart

import (
	"github.com/google/uuid"

	pkgerrors "github.com/storefrontlabs/storefront/pkg/errors"
)

// Identity is the cart owner: exactly one of UserID or SessionID is set.
type Identity struct {
	UserID    *uuid.UUID
	SessionID *string
}

// Validate enforces the exactly-one rule.
func (i Identity) Validate() error {
	hasUser := i.UserID != nil && *i.UserID != uuid.Nil
	hasSession := i.SessionID != nil && *i.SessionID != ""
	if hasUser == hasSession {
		return pkgerrors.New(pkgerrors.CodeValidation, "exactly one of user id or session id required")
	}
	return nil
}

// ForUser builds an authenticated identity.
func ForUser(userID uuid.UUID) Identity {
	return Identity{UserID: &userID}
}

// ForSession builds an anonymous identity.
func ForSession(sessionID string) Identity {
	return Identity{SessionID: &sessionID}
}
