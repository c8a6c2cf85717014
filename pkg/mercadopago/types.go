package mercadopago

import "github.com/shopspring/decimal"

// PreferenceItem is a single line on a checkout preference.
type PreferenceItem struct {
	Title      string
	Quantity   int
	UnitPrice  decimal.Decimal
	CurrencyID string
}

// PreferenceBackURLs configures post-checkout redirects.
type PreferenceBackURLs struct {
	Success string
	Pending string
	Failure string
}

// PreferenceRequest holds the inputs for creating a checkout preference.
// It is translated to the SDK's request shape by the client.
type PreferenceRequest struct {
	Items             []PreferenceItem
	ExternalReference string
	NotificationURL   string
	BackURLs          *PreferenceBackURLs
}

// Preference is the subset of the gateway's preference resource the
// platform consumes.
type Preference struct {
	ID                string
	InitPoint         string
	SandboxInitPoint  string
	ExternalReference string
}

// Payment is the authoritative payment resource fetched after a webhook.
type Payment struct {
	ID                int64
	Status            string
	StatusDetail      string
	ExternalReference string
	PaymentMethodID   string
	PaymentTypeID     string
	TransactionAmount decimal.Decimal
	CurrencyID        string
}

// Gateway payment statuses referenced by the settlement mapping.
const (
	PaymentStatusApproved    = "approved"
	PaymentStatusPending     = "pending"
	PaymentStatusInProcess   = "in_process"
	PaymentStatusRejected    = "rejected"
	PaymentStatusCancelled   = "cancelled"
	PaymentStatusRefunded    = "refunded"
	PaymentStatusChargedBack = "charged_back"
)

// NotificationTypePayment is the only webhook topic settlement acts on.
const NotificationTypePayment = "payment"

// Notification is the webhook body. Only the payment id is trusted; the
// payment itself is always re-fetched from the gateway.
type Notification struct {
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}
