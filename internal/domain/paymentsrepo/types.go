package paymentsrepo

import (
	"context"
	"time"
)

// Payment statuses. Pending is the only non-terminal state; a row transitions
// away from it exactly once.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

type Payment struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Amount      int64     `json:"amount"` // Toman
	Description string    `json:"description"`
	Authority   string    `json:"authority"` // gateway correlation token
	RefID       *string   `json:"ref_id"`    // bank tracking id, set on success
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Store interface {
	Create(ctx context.Context, p *Payment) (*Payment, error)
	GetByID(ctx context.Context, id int64) (*Payment, error)
	GetByAuthority(ctx context.Context, authority string) (*Payment, error)
	GetByAuthorityPrefix(ctx context.Context, prefix string) (*Payment, error)
	MarkSuccess(ctx context.Context, id int64, refID string) (bool, error)
	MarkFailed(ctx context.Context, id int64) (bool, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*Payment, int, error)
	List(ctx context.Context, status string, limit, offset int) ([]*Payment, int, error)
}
