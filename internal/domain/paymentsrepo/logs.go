package paymentsrepo

import (
	"context"
	"time"
)

// PaymentLog is an append-only audit row. PaymentID is nil for callbacks that
// matched no payment (tampered or replayed authorities get logged distinctly).
type PaymentLog struct {
	ID        int64     `json:"id"`
	PaymentID *int64    `json:"payment_id"`
	LogType   string    `json:"log_type"` // request, callback, mismatch, error
	Payload   any       `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type LogsStore interface {
	InsertPaymentLog(ctx context.Context, paymentID *int64, logType string, payload any) error
}
