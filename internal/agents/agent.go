package agents

import (
	"context"
	"sync"
	"time"

	"marketintel/internal/metrics"
	"marketintel/pkg/errors"
	"marketintel/pkg/logger"
)

// Status is the per-agent lifecycle state
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Outcome discriminates the three ways an invocation can end. Cancellation
// is deliberately distinct from failure: the orchestrator aborts the run and
// surfaces the context error, while a plain failure is reported as a
// structured result.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeFailed
	OutcomeCancelled
)

// Result is the outcome of one agent invocation
type Result struct {
	Agent   string
	Outcome Outcome
	Err     error
}

// Success reports whether the invocation completed normally
func (r Result) Success() bool { return r.Outcome == OutcomeOK }

// Snapshot is a point-in-time view of an agent, safe to hand to a polling
// caller while the agent is running.
type Snapshot struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Progress    int       `json:"progress"`
	CurrentTask string    `json:"current_task"`
	StartedAt   time.Time `json:"started_at,omitzero"`
	EndedAt     time.Time `json:"ended_at,omitzero"`
	Duration    float64   `json:"duration_seconds"`
	Error       string    `json:"error_message,omitempty"`
}

// Agent is one pipeline stage. Run mutates the shared pipeline context,
// adding the stage's own outputs; it never removes keys set by earlier
// stages.
type Agent interface {
	Name() string
	Description() string
	Snapshot() Snapshot
	Run(ctx context.Context, pc *Context) Result

	markCancelled()
}

// BaseAgent carries the lifecycle state every stage shares. Status fields
// are written only by the owning stage's Run/UpdateProgress but read
// concurrently by pollers, hence the mutex. An agent is reused across runs;
// each invocation overwrites the previous one's fields.
type BaseAgent struct {
	name        string
	description string
	log         *logger.Logger

	mu          sync.Mutex
	status      Status
	progress    int
	currentTask string
	startedAt   time.Time
	endedAt     time.Time
	errMsg      string
}

// NewBaseAgent creates the shared lifecycle state for a stage
func NewBaseAgent(name string, description string) *BaseAgent {
	return &BaseAgent{
		name:        name,
		description: description,
		status:      StatusIdle,
		log:         logger.Get().With("agent", name),
	}
}

// Name returns the agent's display name
func (a *BaseAgent) Name() string { return a.name }

// Description returns the agent's description
func (a *BaseAgent) Description() string { return a.description }

// Snapshot returns a consistent copy of the agent's current state
func (a *BaseAgent) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	var duration float64
	if !a.startedAt.IsZero() {
		end := a.endedAt
		if end.IsZero() {
			end = time.Now()
		}
		duration = end.Sub(a.startedAt).Seconds()
	}

	return Snapshot{
		Name:        a.name,
		Description: a.description,
		Status:      a.status,
		Progress:    a.progress,
		CurrentTask: a.currentTask,
		StartedAt:   a.startedAt,
		EndedAt:     a.endedAt,
		Duration:    duration,
		Error:       a.errMsg,
	}
}

// UpdateProgress reports a coarse progress milestone, clamped to [0, 100]
func (a *BaseAgent) UpdateProgress(progress int, task string) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	a.mu.Lock()
	a.progress = progress
	if task != "" {
		a.currentTask = task
	}
	a.mu.Unlock()

	a.log.Debugf("progress %d%% - %s", progress, task)
}

// run wraps a stage's execute with status tracking and the failure
// asymmetry: a context cancellation marks the agent cancelled and the
// orchestrator treats it as fatal; any other error marks the agent failed
// and is reported as a non-success Result instead of propagating.
func (a *BaseAgent) run(ctx context.Context, pc *Context, execute func(context.Context, *Context) error) Result {
	a.mu.Lock()
	a.status = StatusRunning
	a.startedAt = time.Now()
	a.endedAt = time.Time{}
	a.progress = 0
	a.errMsg = ""
	a.mu.Unlock()

	a.log.Infof("agent started")
	started := time.Now()

	err := execute(ctx, pc)

	switch {
	case err == nil:
		a.mu.Lock()
		a.status = StatusCompleted
		a.progress = 100
		a.endedAt = time.Now()
		a.mu.Unlock()

		metrics.ObserveAgent(a.name, "success", started)
		a.log.Infof("agent completed")
		return Result{Agent: a.name, Outcome: OutcomeOK}

	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		a.mu.Lock()
		a.status = StatusCancelled
		a.endedAt = time.Now()
		a.errMsg = err.Error()
		a.mu.Unlock()

		metrics.ObserveAgent(a.name, "cancelled", started)
		a.log.Warnf("agent cancelled")
		return Result{Agent: a.name, Outcome: OutcomeCancelled, Err: err}

	default:
		a.mu.Lock()
		a.status = StatusFailed
		a.endedAt = time.Now()
		a.errMsg = err.Error()
		a.mu.Unlock()

		metrics.ObserveAgent(a.name, "error", started)
		a.log.Errorf("agent failed: %v", err)
		return Result{Agent: a.name, Outcome: OutcomeFailed, Err: err}
	}
}

// markCancelled flips a still-running agent to cancelled. Used by the
// orchestrator's advisory cancel path.
func (a *BaseAgent) markCancelled() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status == StatusRunning {
		a.status = StatusCancelled
		a.endedAt = time.Now()
	}
}
