package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"marketintel/internal/domain/workflow"
	"marketintel/internal/metrics"
	"marketintel/pkg/errors"
)

// Compile-time check
var _ workflow.Repository = (*RunRepository)(nil)

// RunRepository implements workflow.Repository using Postgres. The full run
// summary is stored as a JSONB document keyed by run id.
type RunRepository struct {
	db DBTX
}

// NewRunRepository creates a new run repository
func NewRunRepository(db DBTX) *RunRepository {
	return &RunRepository{db: db}
}

// Migrate creates the runs table if it does not exist
func (r *RunRepository) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS runs (
			id            TEXT PRIMARY KEY,
			query         TEXT NOT NULL,
			market_domain TEXT NOT NULL,
			status        TEXT NOT NULL,
			run_data      JSONB NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`

	_, err := r.db.ExecContext(ctx, query)
	return errors.Wrap(err, "create runs table")
}

// Save upserts a run summary
func (r *RunRepository) Save(ctx context.Context, run *workflow.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return errors.Wrap(err, "marshal run")
	}

	query := `
		INSERT INTO runs (id, query, market_domain, status, run_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			run_data = EXCLUDED.run_data`

	_, err = r.db.ExecContext(ctx, query,
		run.ID, run.Query, run.MarketDomain, string(run.Status), data, time.Now(),
	)
	if err != nil {
		metrics.DBQueries.WithLabelValues("save_run", "error").Inc()
		return errors.Wrap(err, "save run")
	}

	metrics.DBQueries.WithLabelValues("save_run", "success").Inc()
	return nil
}

// Load retrieves a run by id
func (r *RunRepository) Load(ctx context.Context, id string) (*workflow.Run, error) {
	var data []byte

	query := `SELECT run_data FROM runs WHERE id = $1`

	if err := r.db.GetContext(ctx, &data, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(errors.ErrNotFound, "run %s", id)
		}
		metrics.DBQueries.WithLabelValues("load_run", "error").Inc()
		return nil, errors.Wrap(err, "load run")
	}

	var run workflow.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, errors.Wrap(err, "unmarshal run")
	}

	metrics.DBQueries.WithLabelValues("load_run", "success").Inc()
	return &run, nil
}

// List returns all runs, newest first
func (r *RunRepository) List(ctx context.Context) ([]*workflow.Run, error) {
	var rows [][]byte

	query := `SELECT run_data FROM runs ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		metrics.DBQueries.WithLabelValues("list_runs", "error").Inc()
		return nil, errors.Wrap(err, "list runs")
	}

	runs := make([]*workflow.Run, 0, len(rows))
	for _, data := range rows {
		var run workflow.Run
		if err := json.Unmarshal(data, &run); err != nil {
			return nil, errors.Wrap(err, "unmarshal run")
		}
		runs = append(runs, &run)
	}

	metrics.DBQueries.WithLabelValues("list_runs", "success").Inc()
	return runs, nil
}
