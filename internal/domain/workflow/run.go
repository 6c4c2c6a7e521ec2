package workflow

import (
	"context"
	"time"

	"marketintel/internal/domain/insight"
)

// Status is the run-level state machine
type Status string

const (
	StatusIdle       Status = "idle"
	StatusRunning    Status = "running"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelling Status = "cancelling"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether the status is a terminal state
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Run is the persisted summary of one end-to-end pipeline execution. It is
// mutated only by the orchestrator and becomes immutable once terminal.
type Run struct {
	ID              string                   `json:"id" db:"id"`
	Query           string                   `json:"query" db:"query"`
	MarketDomain    string                   `json:"market_domain" db:"market_domain"`
	Question        string                   `json:"question,omitempty" db:"question"`
	Status          Status                   `json:"status" db:"status"`
	FailedStep      string                   `json:"failed_step,omitempty" db:"failed_step"`
	Error           string                   `json:"error,omitempty" db:"error"`
	ReportDir       string                   `json:"report_dir,omitempty" db:"report_dir"`
	Trends          []insight.Trend          `json:"market_trends"`
	Opportunities   []insight.Opportunity    `json:"opportunities"`
	Recommendations []insight.Recommendation `json:"strategic_recommendations"`
	StartedAt       time.Time                `json:"started_at" db:"started_at"`
	EndedAt         time.Time                `json:"ended_at,omitzero" db:"ended_at"`
}

// Duration returns the run's wall-clock duration
func (r Run) Duration() time.Duration {
	if r.StartedAt.IsZero() {
		return 0
	}
	end := r.EndedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(r.StartedAt)
}

// Repository persists run history, keyed by run id. Save is atomic per id.
type Repository interface {
	Save(ctx context.Context, run *Run) error
	Load(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context) ([]*Run, error)
}
