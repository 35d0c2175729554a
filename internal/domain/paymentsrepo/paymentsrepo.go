package paymentsrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golbarg/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Repository struct{ q dbx.Querier }

func NewRepository(q dbx.Querier) *Repository { return &Repository{q: q} }

const paymentColumns = `id, user_id, amount, description, authority, ref_id, status, created_at, updated_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(
		&p.ID, &p.UserID, &p.Amount, &p.Description, &p.Authority,
		&p.RefID, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return &p, nil
}

func (r *Repository) Create(ctx context.Context, p *Payment) (*Payment, error) {
	if err := r.q.QueryRow(ctx, `
		INSERT INTO payments (user_id, amount, description, authority, status)
		VALUES ($1, $2, $3, $4, COALESCE(NULLIF($5,''),'pending')::payment_status)
		RETURNING id, created_at, updated_at
	`, p.UserID, p.Amount, p.Description, p.Authority, p.Status).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
	return p, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Payment, error) {
	return scanPayment(r.q.QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM payments WHERE id=$1
	`, id))
}

func (r *Repository) GetByAuthority(ctx context.Context, authority string) (*Payment, error) {
	return scanPayment(r.q.QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM payments WHERE authority=$1 LIMIT 1
	`, authority))
}

// escapeLikePrefix neutralizes LIKE metacharacters so the prefix matches
// literally. Authority prefixes contain underscores, which LIKE would
// otherwise treat as single-character wildcards.
func escapeLikePrefix(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// GetByAuthorityPrefix finds the payment whose authority starts with prefix.
// Mellat callbacks only carry the sale order id, so the row is keyed by the
// "mellat_<orderId>_" prefix; order ids are unique, so at most one row matches.
func (r *Repository) GetByAuthorityPrefix(ctx context.Context, prefix string) (*Payment, error) {
	return scanPayment(r.q.QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE authority LIKE $1 ESCAPE '\'
		ORDER BY id DESC
		LIMIT 1
	`, escapeLikePrefix(prefix)+"%"))
}

// MarkSuccess transitions a pending payment to success and records the bank
// reference. The status guard makes duplicate callbacks no-ops: it reports
// whether this call performed the transition.
func (r *Repository) MarkSuccess(ctx context.Context, id int64, refID string) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE payments
		   SET status='success'::payment_status, ref_id=$2, updated_at=now()
		 WHERE id=$1 AND status='pending'::payment_status
	`, id, refID)
	if err != nil {
		return false, fmt.Errorf("mark payment success: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) MarkFailed(ctx context.Context, id int64) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE payments
		   SET status='failed'::payment_status, updated_at=now()
		 WHERE id=$1 AND status='pending'::payment_status
	`, id)
	if err != nil {
		return false, fmt.Errorf("mark payment failed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*Payment, int, error) {
	return r.list(ctx, `WHERE user_id=$1`, []any{userID}, limit, offset)
}

func (r *Repository) List(ctx context.Context, status string, limit, offset int) ([]*Payment, int, error) {
	return r.list(ctx, `WHERE ($1 = '' OR status = $1::payment_status)`, []any{status}, limit, offset)
}

func (r *Repository) list(ctx context.Context, where string, args []any, limit, offset int) ([]*Payment, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	args = append(args, limit, offset)
	rows, err := r.q.Query(ctx, fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() AS total_count
		FROM payments
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, paymentColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var (
		out   []*Payment
		total int
	)
	for rows.Next() {
		var p Payment
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Amount, &p.Description, &p.Authority,
			&p.RefID, &p.Status, &p.CreatedAt, &p.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}
	return out, total, nil
}
