package payment

import (
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

// Sentinel errors of the payment core. Callers classify with errors.Is and
// map them onto transport-level responses.
var (
	// ErrInvalidAmount rejects non-positive amounts before anything is persisted.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	// ErrMissingPhone rejects session preparation without a customer phone.
	ErrMissingPhone = errors.New("customer phone is required")
	// ErrUpstreamUnavailable marks network-level provider failures (retryable).
	ErrUpstreamUnavailable = errors.New("payment provider unreachable")
	// ErrUpstreamRejected marks non-2xx provider responses.
	ErrUpstreamRejected = errors.New("payment provider rejected the request")
	// ErrExternalIDConflict signals a provider data anomaly: an external id
	// may be set at most once and never changed.
	ErrExternalIDConflict = errors.New("transaction external id already set to a different value")
	// ErrInvalidTransition guards terminal-state immutability on the ledger.
	ErrInvalidTransition = errors.New("invalid transaction status transition")
	// ErrTransactionNotFound is distinct from validation failures so callers
	// can tell "bad request" from "unexpected state".
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrContentNotFound is returned when the referenced catalog item does not exist.
	ErrContentNotFound = errors.New("content not found")
	// ErrInvalidSignature rejects webhook callbacks before any parsing.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrInvalidPayload marks callbacks whose body cannot be interpreted.
	ErrInvalidPayload = errors.New("invalid webhook payload")
	// ErrUnknownProvider is returned when no adapter matches the provider tag.
	ErrUnknownProvider = errors.New("unknown payment provider")
)

// Customer is the payer identity forwarded to a provider. Phone is expected
// in normalized <countrycode><localnumber> form.
type Customer struct {
	Name  string
	Email string
	Phone string
}

// SessionParams carries everything an adapter needs to prepare a payment
// session for one pending transaction.
type SessionParams struct {
	TransactionID string
	Amount        decimal.Decimal
	Currency      string
	Description   string
	Customer      Customer
	NotifyURL     string
	ReturnURL     string
}

// SessionResult is what the caller needs to launch the provider's payment
// UI: either a hosted checkout URL (redirect flow) or a config bag for an
// embedded widget (widget flow).
type SessionResult struct {
	ExternalID   string
	CheckoutURL  string
	WidgetConfig map[string]interface{}
	RawResponse  json.RawMessage
}

// ProviderStatus is the authoritative state of a provider-side transaction,
// fetched from the provider API rather than taken from a callback body.
type ProviderStatus struct {
	// Status is one of the internal transaction statuses.
	Status string
	// ProviderStatus is the provider's own status vocabulary, kept for audit.
	ProviderStatus string
	Amount         decimal.Decimal
	Currency       string
	PaymentMethod  string
	Raw            json.RawMessage
}

// CallbackEvent is the minimal information extracted from a webhook body:
// enough to locate the transaction, never trusted for its outcome.
type CallbackEvent struct {
	ExternalID string
	EventID    string
	// StatusHint is the status the callback body claims. Audit only; the
	// reconciler always re-fetches the authoritative status.
	StatusHint string
}
