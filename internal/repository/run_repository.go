package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"sneakersync/internal/model"
)

// RunRepository records one row per scrape invocation in scrape_runs.
type RunRepository struct {
	DB *sql.DB
}

func (r *RunRepository) Migrate(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS scrape_runs (
			id          UUID PRIMARY KEY,
			brand       TEXT NOT NULL,
			source_url  TEXT NOT NULL,
			started_at  TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			seen        INT NOT NULL,
			inserted    INT NOT NULL,
			updated     INT NOT NULL,
			unchanged   INT NOT NULL,
			ineligible  INT NOT NULL,
			skipped     INT NOT NULL,
			failed      INT NOT NULL,
			published   INT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("scrape_runs: migrate: %w", err)
	}
	return nil
}

// Save inserts the run, assigning an id when the summary has none.
func (r *RunRepository) Save(ctx context.Context, s *model.RunSummary) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO scrape_runs
		(id, brand, source_url, started_at, finished_at, seen, inserted, updated, unchanged, ineligible, skipped, failed, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, s.ID, s.Brand, s.SourceURL, s.StartedAt, s.FinishedAt,
		s.Seen, s.Inserted, s.Updated, s.Unchanged, s.Ineligible, s.Skipped, s.Failed, s.Published)
	if err != nil {
		return fmt.Errorf("scrape_runs: save: %w", err)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (r *RunRepository) Recent(ctx context.Context, limit int) ([]model.RunSummary, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, brand, source_url, started_at, finished_at,
		       seen, inserted, updated, unchanged, ineligible, skipped, failed, published
		FROM scrape_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.RunSummary
	for rows.Next() {
		var s model.RunSummary
		if err := rows.Scan(&s.ID, &s.Brand, &s.SourceURL, &s.StartedAt, &s.FinishedAt,
			&s.Seen, &s.Inserted, &s.Updated, &s.Unchanged, &s.Ineligible, &s.Skipped, &s.Failed, &s.Published); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
