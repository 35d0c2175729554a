package reports

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store interface {
	Create(ctx context.Context, req CreateReportRequest) (*DailyReport, error)
	GetByID(ctx context.Context, id int64) (*DailyReport, error)
	ListByChild(ctx context.Context, childID int64, limit, offset int) ([]DailyReport, int, error)
	Delete(ctx context.Context, id int64) error
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Store {
	return &Repository{db: db}
}

const reportColumns = `id, child_id, date, mood, food_intake, sleep_quality, activity, teacher_note, created_by, created_at`

func scanReport(row pgx.Row) (*DailyReport, error) {
	var rep DailyReport
	err := row.Scan(
		&rep.ID, &rep.ChildID, &rep.Date, &rep.Mood, &rep.FoodIntake,
		&rep.SleepQuality, &rep.Activity, &rep.TeacherNote, &rep.CreatedBy, &rep.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan daily report: %w", err)
	}
	return &rep, nil
}

func (r *Repository) Create(ctx context.Context, req CreateReportRequest) (*DailyReport, error) {
	query := `
		INSERT INTO daily_reports (child_id, date, mood, food_intake, sleep_quality, activity, teacher_note, created_by)
		VALUES ($1, COALESCE($2, CURRENT_DATE), $3, $4, $5, $6, $7, $8)
		RETURNING ` + reportColumns

	return scanReport(r.db.QueryRow(ctx, query,
		req.ChildID, req.Date, req.Mood, req.FoodIntake,
		req.SleepQuality, req.Activity, req.TeacherNote, req.CreatedBy,
	))
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*DailyReport, error) {
	return scanReport(r.db.QueryRow(ctx, `SELECT `+reportColumns+` FROM daily_reports WHERE id = $1`, id))
}

func (r *Repository) ListByChild(ctx context.Context, childID int64, limit, offset int) ([]DailyReport, int, error) {
	var totalCount int
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM daily_reports WHERE child_id = $1`, childID,
	).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("count daily reports: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+reportColumns+` FROM daily_reports
		WHERE child_id = $1
		ORDER BY date DESC, id DESC
		LIMIT $2 OFFSET $3
	`, childID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list daily reports: %w", err)
	}
	defer rows.Close()

	var out []DailyReport
	for rows.Next() {
		var rep DailyReport
		if err := rows.Scan(
			&rep.ID, &rep.ChildID, &rep.Date, &rep.Mood, &rep.FoodIntake,
			&rep.SleepQuality, &rep.Activity, &rep.TeacherNote, &rep.CreatedBy, &rep.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan daily report row: %w", err)
		}
		out = append(out, rep)
	}
	return out, totalCount, rows.Err()
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM daily_reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete daily report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
