package gallery

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store interface {
	Create(ctx context.Context, req CreateItemRequest) (*GalleryItem, error)
	GetByID(ctx context.Context, id int64) (*GalleryItem, error)
	List(ctx context.Context, category string, featuredOnly bool, limit, offset int) ([]GalleryItem, int, error)
	SetFeatured(ctx context.Context, id int64, featured bool) error
	Delete(ctx context.Context, id int64) error
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Store {
	return &Repository{db: db}
}

const galleryColumns = `id, url, caption, category, is_featured, uploaded_by, created_at`

func scanItem(row pgx.Row) (*GalleryItem, error) {
	var g GalleryItem
	err := row.Scan(&g.ID, &g.URL, &g.Caption, &g.Category, &g.IsFeatured, &g.UploadedBy, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan gallery item: %w", err)
	}
	return &g, nil
}

func (r *Repository) Create(ctx context.Context, req CreateItemRequest) (*GalleryItem, error) {
	query := `
		INSERT INTO gallery (url, caption, category, is_featured, uploaded_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + galleryColumns

	return scanItem(r.db.QueryRow(ctx, query,
		req.URL, req.Caption, req.Category, req.IsFeatured, req.UploadedBy,
	))
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*GalleryItem, error) {
	return scanItem(r.db.QueryRow(ctx, `SELECT `+galleryColumns+` FROM gallery WHERE id = $1`, id))
}

func (r *Repository) List(ctx context.Context, category string, featuredOnly bool, limit, offset int) ([]GalleryItem, int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+galleryColumns+`, COUNT(*) OVER() AS total_count
		FROM gallery
		WHERE ($1 = '' OR category = $1)
		  AND (NOT $2 OR is_featured = TRUE)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`, category, featuredOnly, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list gallery: %w", err)
	}
	defer rows.Close()

	var (
		out   []GalleryItem
		total int
	)
	for rows.Next() {
		var g GalleryItem
		if err := rows.Scan(
			&g.ID, &g.URL, &g.Caption, &g.Category, &g.IsFeatured,
			&g.UploadedBy, &g.CreatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan gallery row: %w", err)
		}
		out = append(out, g)
	}
	return out, total, rows.Err()
}

func (r *Repository) SetFeatured(ctx context.Context, id int64, featured bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE gallery SET is_featured = $2 WHERE id = $1`, id, featured)
	if err != nil {
		return fmt.Errorf("set gallery featured: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM gallery WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete gallery item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
