package payments

import (
	"errors"
	"fmt"
)

// Gateway names as they appear in request payloads and on payment rows.
const (
	GatewayZarinpal = "zarinpal"
	GatewayMellat   = "mellat"
)

// ErrNotConfigured is returned when a gateway is missing its credentials.
// The process keeps running; only calls against that provider fail.
var ErrNotConfigured = errors.New("payment gateway not configured")

// RejectedError means the provider explicitly declined the request.
// Code carries the provider's own diagnostic code for support.
type RejectedError struct {
	Gateway string
	Code    string
	Details any
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected request: code=%s", e.Gateway, e.Code)
}

type InitiateRequest struct {
	Amount      int64 // Toman; converted to rial on the wire, never persisted converted
	Description string
	CallbackURL string
}

type InitiateResponse struct {
	// Authority correlates the provider callback to the persisted payment.
	// For Zarinpal it is the provider token; for Mellat it is the synthesized
	// "mellat_<orderId>_<refId>" composite.
	Authority  string
	RefID      string // provider redirect token; empty for Zarinpal
	PaymentURL string
}

type VerifyRequest struct {
	Authority string
	Amount    int64 // the persisted amount, never the callback's

	// Mellat callback fields.
	SaleOrderID     string
	SaleReferenceID string
}

// VerifyResponse reports the provider's authoritative outcome. Success=false
// with a nil error is a definitive decline (the record should be failed);
// a non-nil error from Verify is transient and must leave the record pending.
type VerifyResponse struct {
	Success bool
	RefID   string
	Code    string

	// SettleError reports a failed capture attempt after a successful verify.
	// The verified outcome stands either way; callers should log it so an
	// authorized-but-uncaptured payment is visible for reconciliation.
	SettleError error
}
