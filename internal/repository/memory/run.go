package memory

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"marketintel/internal/domain/workflow"
	"marketintel/pkg/errors"
)

// Compile-time check
var _ workflow.Repository = (*RunRepository)(nil)

// RunRepository is an in-memory workflow.Repository used for tests and for
// running without a database. Runs are stored as serialized snapshots so
// later mutation of a saved run does not leak into history.
type RunRepository struct {
	mu    sync.RWMutex
	runs  map[string][]byte
	order []string
}

// NewRunRepository creates an empty in-memory run repository
func NewRunRepository() *RunRepository {
	return &RunRepository{
		runs: make(map[string][]byte),
	}
}

// Save stores a snapshot of the run
func (r *RunRepository) Save(ctx context.Context, run *workflow.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return errors.Wrap(err, "marshal run")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runs[run.ID]; !exists {
		r.order = append(r.order, run.ID)
	}
	r.runs[run.ID] = data
	return nil
}

// Load retrieves a run by id
func (r *RunRepository) Load(ctx context.Context, id string) (*workflow.Run, error) {
	r.mu.RLock()
	data, ok := r.runs[id]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "run %s", id)
	}

	var run workflow.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, errors.Wrap(err, "unmarshal run")
	}
	return &run, nil
}

// List returns all runs, newest first
func (r *RunRepository) List(ctx context.Context) ([]*workflow.Run, error) {
	r.mu.RLock()
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	r.mu.RUnlock()

	// Newest first
	slices.Reverse(ids)

	runs := make([]*workflow.Run, 0, len(ids))
	for _, id := range ids {
		run, err := r.Load(ctx, id)
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}
