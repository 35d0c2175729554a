package news

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store interface {
	Create(ctx context.Context, req CreateNewsRequest) (*NewsUpdate, error)
	GetByID(ctx context.Context, id int64) (*NewsUpdate, error)
	ListPublished(ctx context.Context, limit, offset int) ([]NewsUpdate, int, error)
	ListAll(ctx context.Context, limit, offset int) ([]NewsUpdate, int, error)
	Update(ctx context.Context, id int64, req UpdateNewsRequest) (*NewsUpdate, error)
	SetPublished(ctx context.Context, id int64, published bool) (*NewsUpdate, error)
	Delete(ctx context.Context, id int64) error
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Store {
	return &Repository{db: db}
}

const newsColumns = `id, title, content, image_url, is_published, published_at, author_id, created_at, updated_at`

func scanNews(row pgx.Row) (*NewsUpdate, error) {
	var n NewsUpdate
	err := row.Scan(
		&n.ID, &n.Title, &n.Content, &n.ImageURL, &n.IsPublished,
		&n.PublishedAt, &n.AuthorID, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan news update: %w", err)
	}
	return &n, nil
}

func (r *Repository) Create(ctx context.Context, req CreateNewsRequest) (*NewsUpdate, error) {
	query := `
		INSERT INTO news_updates (title, content, image_url, is_published, published_at, author_id)
		VALUES ($1, $2, $3, $4, CASE WHEN $4 THEN NOW() END, $5)
		RETURNING ` + newsColumns

	return scanNews(r.db.QueryRow(ctx, query,
		req.Title, req.Content, req.ImageURL, req.IsPublished, req.AuthorID,
	))
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*NewsUpdate, error) {
	return scanNews(r.db.QueryRow(ctx, `SELECT `+newsColumns+` FROM news_updates WHERE id = $1`, id))
}

func (r *Repository) ListPublished(ctx context.Context, limit, offset int) ([]NewsUpdate, int, error) {
	return r.list(ctx, `WHERE is_published = TRUE`, limit, offset)
}

func (r *Repository) ListAll(ctx context.Context, limit, offset int) ([]NewsUpdate, int, error) {
	return r.list(ctx, ``, limit, offset)
}

func (r *Repository) list(ctx context.Context, where string, limit, offset int) ([]NewsUpdate, int, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() AS total_count
		FROM news_updates
		%s
		ORDER BY COALESCE(published_at, created_at) DESC, id DESC
		LIMIT $1 OFFSET $2
	`, newsColumns, where), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list news updates: %w", err)
	}
	defer rows.Close()

	var (
		out   []NewsUpdate
		total int
	)
	for rows.Next() {
		var n NewsUpdate
		if err := rows.Scan(
			&n.ID, &n.Title, &n.Content, &n.ImageURL, &n.IsPublished,
			&n.PublishedAt, &n.AuthorID, &n.CreatedAt, &n.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan news row: %w", err)
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

func (r *Repository) Update(ctx context.Context, id int64, req UpdateNewsRequest) (*NewsUpdate, error) {
	setClauses := []string{}
	args := []any{}
	argCounter := 1

	addClause := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argCounter))
		args = append(args, value)
		argCounter++
	}

	if req.Title != nil {
		addClause("title", *req.Title)
	}
	if req.Content != nil {
		addClause("content", *req.Content)
	}
	if req.ImageURL != nil {
		addClause("image_url", *req.ImageURL)
	}

	if len(setClauses) == 0 {
		return r.GetByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE news_updates SET %s, updated_at = NOW()
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(setClauses, ", "), argCounter, newsColumns)

	return scanNews(r.db.QueryRow(ctx, query, args...))
}

// SetPublished flips visibility; published_at records only the first publish.
func (r *Repository) SetPublished(ctx context.Context, id int64, published bool) (*NewsUpdate, error) {
	query := `
		UPDATE news_updates
		   SET is_published = $2,
		       published_at = CASE WHEN $2 THEN COALESCE(published_at, NOW()) ELSE published_at END,
		       updated_at = NOW()
		 WHERE id = $1
		RETURNING ` + newsColumns

	return scanNews(r.db.QueryRow(ctx, query, id, published))
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM news_updates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete news update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
