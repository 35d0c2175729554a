package children

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store interface {
	Create(ctx context.Context, req CreateChildRequest) (*Child, error)
	GetByID(ctx context.Context, id int64) (*Child, error)
	ListByParent(ctx context.Context, parentID int64) ([]Child, error)
	ListAll(ctx context.Context, limit, offset int) ([]Child, int, error)
	Update(ctx context.Context, id int64, req UpdateChildRequest) (*Child, error)
	SetAvatar(ctx context.Context, id int64, url string) error
	Delete(ctx context.Context, id int64) error
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Store {
	return &Repository{db: db}
}

const childColumns = `id, parent_id, name, birth_date, age, gender, class_name, enrollment_date, avatar_url, notes, created_at, updated_at`

func scanChild(row pgx.Row) (*Child, error) {
	var c Child
	err := row.Scan(
		&c.ID, &c.ParentID, &c.Name, &c.BirthDate, &c.Age, &c.Gender,
		&c.ClassName, &c.EnrollmentDate, &c.AvatarURL, &c.Notes,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan child: %w", err)
	}
	return &c, nil
}

func (r *Repository) Create(ctx context.Context, req CreateChildRequest) (*Child, error) {
	query := `
		INSERT INTO children (parent_id, name, birth_date, age, gender, class_name, enrollment_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + childColumns

	return scanChild(r.db.QueryRow(ctx, query,
		req.ParentID, req.Name, req.BirthDate, req.Age, req.Gender,
		req.ClassName, req.EnrollmentDate, req.Notes,
	))
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Child, error) {
	return scanChild(r.db.QueryRow(ctx, `SELECT `+childColumns+` FROM children WHERE id = $1`, id))
}

func (r *Repository) ListByParent(ctx context.Context, parentID int64) ([]Child, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+childColumns+` FROM children
		WHERE parent_id = $1
		ORDER BY name ASC
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list children by parent: %w", err)
	}
	defer rows.Close()

	return collectChildren(rows)
}

func (r *Repository) ListAll(ctx context.Context, limit, offset int) ([]Child, int, error) {
	var totalCount int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM children`).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("count children: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+childColumns+` FROM children
		ORDER BY class_name ASC NULLS LAST, name ASC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	out, err := collectChildren(rows)
	return out, totalCount, err
}

func collectChildren(rows pgx.Rows) ([]Child, error) {
	var out []Child
	for rows.Next() {
		var c Child
		if err := rows.Scan(
			&c.ID, &c.ParentID, &c.Name, &c.BirthDate, &c.Age, &c.Gender,
			&c.ClassName, &c.EnrollmentDate, &c.AvatarURL, &c.Notes,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan child row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) Update(ctx context.Context, id int64, req UpdateChildRequest) (*Child, error) {
	setClauses := []string{}
	args := []any{}
	argCounter := 1

	addClause := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argCounter))
		args = append(args, value)
		argCounter++
	}

	if req.Name != nil {
		addClause("name", *req.Name)
	}
	if req.BirthDate != nil {
		addClause("birth_date", *req.BirthDate)
	}
	if req.Age != nil {
		addClause("age", *req.Age)
	}
	if req.Gender != nil {
		addClause("gender", *req.Gender)
	}
	if req.ClassName != nil {
		addClause("class_name", *req.ClassName)
	}
	if req.EnrollmentDate != nil {
		addClause("enrollment_date", *req.EnrollmentDate)
	}
	if req.Notes != nil {
		addClause("notes", *req.Notes)
	}

	if len(setClauses) == 0 {
		return r.GetByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE children SET %s, updated_at = NOW()
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(setClauses, ", "), argCounter, childColumns)

	return scanChild(r.db.QueryRow(ctx, query, args...))
}

func (r *Repository) SetAvatar(ctx context.Context, id int64, url string) error {
	_, err := r.db.Exec(ctx, `UPDATE children SET avatar_url = $1, updated_at = NOW() WHERE id = $2`, url, id)
	return err
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM children WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete child: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
