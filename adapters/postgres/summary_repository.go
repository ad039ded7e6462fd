// Package postgres persists analysis results behind the repository ports.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"gogrowth/domain/core"
	"gogrowth/models"
	"gogrowth/ports"
)

// summaryRepository implements the ResultRepository interface
type summaryRepository struct {
	db *sqlx.DB
}

// NewSummaryRepository creates a new strain-summary repository
func NewSummaryRepository(db *sqlx.DB) ports.ResultRepository {
	return &summaryRepository{db: db}
}

// Connect opens and pings a postgres connection
func Connect(url string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the summaries table if it does not exist
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	const schema = `CREATE TABLE IF NOT EXISTS strain_summaries (
		id              TEXT PRIMARY KEY,
		run_id          TEXT NOT NULL,
		file            TEXT NOT NULL,
		strain          TEXT NOT NULL,
		model           TEXT NOT NULL,
		bic             DOUBLE PRECISION NOT NULL,
		aic             DOUBLE PRECISION NOT NULL,
		y0              DOUBLE PRECISION NOT NULL,
		k               DOUBLE PRECISION NOT NULL,
		r               DOUBLE PRECISION NOT NULL,
		nu              DOUBLE PRECISION NOT NULL,
		q0              DOUBLE PRECISION NOT NULL,
		v               DOUBLE PRECISION NOT NULL,
		lag             DOUBLE PRECISION NOT NULL,
		lag_low         DOUBLE PRECISION NOT NULL,
		lag_high        DOUBLE PRECISION NOT NULL,
		max_growth_rate DOUBLE PRECISION NOT NULL,
		has_lag         BOOLEAN NOT NULL,
		has_nu          BOOLEAN NOT NULL,
		benchmark       BOOLEAN NOT NULL,
		fitness         DOUBLE PRECISION NOT NULL,
		outliers        JSONB,
		created_at      TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_strain_summaries_run ON strain_summaries (run_id);`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure strain_summaries schema: %w", err)
	}
	return nil
}

// SaveSummary inserts one per-strain result row
func (r *summaryRepository) SaveSummary(ctx context.Context, runID core.RunID, summary *models.StrainSummary) error {
	outliersJSON, err := json.Marshal(summary.Outliers)
	if err != nil {
		return fmt.Errorf("failed to marshal outliers: %w", err)
	}

	query := `INSERT INTO strain_summaries (
		id, run_id, file, strain, model, bic, aic,
		y0, k, r, nu, q0, v,
		lag, lag_low, lag_high, max_growth_rate,
		has_lag, has_nu, benchmark, fitness, outliers, created_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23
	)`

	_, err = r.db.ExecContext(ctx, query,
		summary.ID, runID, summary.File, summary.Strain, summary.Model, summary.BIC, summary.AIC,
		summary.Y0, summary.K, summary.R, summary.Nu, summary.Q0, summary.V,
		summary.Lag, summary.LagLow, summary.LagHigh, summary.MaxGrowth,
		summary.HasLag, summary.HasNu, summary.Benchmark, summary.Fitness, outliersJSON, summary.CreatedAt.Time(),
	)
	if err != nil {
		return fmt.Errorf("failed to save strain summary: %w", err)
	}
	return nil
}

// ListSummaries returns all summaries recorded for a run, oldest first
func (r *summaryRepository) ListSummaries(ctx context.Context, runID core.RunID) ([]models.StrainSummary, error) {
	query := `SELECT
		id, file, strain, model, bic, aic,
		y0, k, r, nu, q0, v,
		lag, lag_low, lag_high, max_growth_rate,
		has_lag, has_nu, benchmark, fitness, outliers, created_at
	FROM strain_summaries
	WHERE run_id = $1
	ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query strain summaries: %w", err)
	}
	defer rows.Close()

	var summaries []models.StrainSummary
	for rows.Next() {
		var s models.StrainSummary
		var outliersJSON []byte
		var createdAt time.Time
		err := rows.Scan(
			&s.ID, &s.File, &s.Strain, &s.Model, &s.BIC, &s.AIC,
			&s.Y0, &s.K, &s.R, &s.Nu, &s.Q0, &s.V,
			&s.Lag, &s.LagLow, &s.LagHigh, &s.MaxGrowth,
			&s.HasLag, &s.HasNu, &s.Benchmark, &s.Fitness, &outliersJSON, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan strain summary: %w", err)
		}
		s.CreatedAt = core.NewTimestamp(createdAt)
		if len(outliersJSON) > 0 {
			if err := json.Unmarshal(outliersJSON, &s.Outliers); err != nil {
				return nil, fmt.Errorf("failed to unmarshal outliers: %w", err)
			}
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate strain summaries: %w", err)
	}
	if summaries == nil {
		return nil, fmt.Errorf("%w: no summaries for run %s", core.ErrNotFound, runID)
	}
	return summaries, nil
}
