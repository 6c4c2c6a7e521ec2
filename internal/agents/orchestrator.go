package agents

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"marketintel/internal/domain/workflow"
	"marketintel/internal/metrics"
	"marketintel/pkg/errors"
	"marketintel/pkg/logger"
)

// Registry keys for the single-stage entry point
const (
	AgentReader     = "reader"
	AgentAnalyst    = "analyst"
	AgentStrategist = "strategist"
	AgentFormatter  = "formatter"
)

type stage struct {
	checkpoint int
	step       string
	agent      Agent
}

// WorkflowResult is the caller-facing outcome of a run: either a complete,
// fully populated result or a structured failure naming the failed step.
// Never a partially populated success.
type WorkflowResult struct {
	Success      bool          `json:"success"`
	RunID        string        `json:"run_id"`
	Query        string        `json:"query"`
	MarketDomain string        `json:"market_domain"`
	Question     string        `json:"question,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	EndedAt      time.Time     `json:"ended_at"`
	Duration     time.Duration `json:"duration"`
	FailedStep   string        `json:"failed_step,omitempty"`
	Error        string        `json:"error,omitempty"`
	Data         *Context      `json:"-"`
}

// WorkflowStatus is a point-in-time view of the whole pipeline, safe to
// poll from another goroutine while a run is in flight.
type WorkflowStatus struct {
	Status          workflow.Status     `json:"workflow_status"`
	CurrentStep     string              `json:"current_step"`
	Progress        int                 `json:"progress"`
	StartedAt       time.Time           `json:"started_at,omitzero"`
	EndedAt         time.Time           `json:"ended_at,omitzero"`
	DurationSeconds float64             `json:"duration_seconds"`
	Agents          map[string]Snapshot `json:"agent_statuses"`
}

// Orchestrator drives the four stages in a fixed sequence, owns run-level
// status, and persists completed runs to history.
type Orchestrator struct {
	agents  map[string]Agent
	stages  []stage
	history workflow.Repository
	log     *logger.Logger

	mu          sync.Mutex
	status      workflow.Status
	currentStep string
	progress    int
	startedAt   time.Time
	endedAt     time.Time
	cancelRun   context.CancelFunc
}

// NewOrchestrator wires the four stage agents and the history repository
func NewOrchestrator(reader Agent, analyst Agent, strategist Agent, formatter Agent, history workflow.Repository) *Orchestrator {
	return &Orchestrator{
		agents: map[string]Agent{
			AgentReader:     reader,
			AgentAnalyst:    analyst,
			AgentStrategist: strategist,
			AgentFormatter:  formatter,
		},
		stages: []stage{
			{10, "Data Collection", reader},
			{35, "Data Analysis", analyst},
			{65, "Strategic Planning", strategist},
			{85, "Report Generation", formatter},
		},
		history: history,
		status:  workflow.StatusIdle,
		log:     logger.Get().With("component", "orchestrator"),
	}
}

// RunWorkflow executes the full four-stage pipeline. Stage failures abort
// the remaining stages and come back as a structured failure with a nil
// error; cancellation is the one condition returned as an error.
func (o *Orchestrator) RunWorkflow(ctx context.Context, query string, marketDomain string, question string) (*WorkflowResult, error) {
	o.mu.Lock()
	if o.status == workflow.StatusRunning || o.status == workflow.StatusCancelling {
		o.mu.Unlock()
		return nil, errors.ErrWorkflowRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.cancelRun = cancel
	o.status = workflow.StatusRunning
	o.startedAt = time.Now()
	o.endedAt = time.Time{}
	o.progress = 0
	o.currentStep = ""
	startedAt := o.startedAt
	o.mu.Unlock()
	defer cancel()

	runID := uuid.NewString()
	o.log.Infof("starting market intelligence workflow for %s: %s", marketDomain, query)

	pc := &Context{
		Query:        query,
		MarketDomain: marketDomain,
		Question:     question,
	}

	for _, st := range o.stages {
		o.setStep(st.checkpoint, st.step)
		o.log.Infof("running %s", st.agent.Name())

		res := st.agent.Run(runCtx, pc)
		switch res.Outcome {
		case OutcomeOK:
			continue

		case OutcomeCancelled:
			o.finish(workflow.StatusCancelled)
			metrics.WorkflowRuns.WithLabelValues("cancelled").Inc()
			o.log.Warnf("workflow cancelled during %s", st.step)
			return nil, errors.Wrapf(res.Err, "%s cancelled", st.agent.Name())

		default:
			endedAt := o.finish(workflow.StatusFailed)
			metrics.WorkflowRuns.WithLabelValues("failed").Inc()
			o.log.Errorf("workflow failed at %s: %v", st.step, res.Err)
			return &WorkflowResult{
				Success:      false,
				RunID:        runID,
				Query:        query,
				MarketDomain: marketDomain,
				Question:     question,
				StartedAt:    startedAt,
				EndedAt:      endedAt,
				Duration:     endedAt.Sub(startedAt),
				FailedStep:   st.step,
				Error:        res.Err.Error(),
			}, nil
		}
	}

	o.mu.Lock()
	o.progress = 100
	o.currentStep = "Completed"
	o.status = workflow.StatusCompleted
	o.endedAt = time.Now()
	endedAt := o.endedAt
	o.mu.Unlock()

	duration := endedAt.Sub(startedAt)
	metrics.WorkflowRuns.WithLabelValues("completed").Inc()
	metrics.WorkflowDuration.Observe(duration.Seconds())

	result := &WorkflowResult{
		Success:      true,
		RunID:        runID,
		Query:        query,
		MarketDomain: marketDomain,
		Question:     question,
		StartedAt:    startedAt,
		EndedAt:      endedAt,
		Duration:     duration,
		Data:         pc,
	}

	o.saveToHistory(ctx, result, pc)

	o.log.Infof("workflow completed successfully in %.2f seconds", duration.Seconds())
	return result, nil
}

// RunAgent runs a single named stage. This is the caller's retry
// granularity: the workflow itself never retries a stage.
func (o *Orchestrator) RunAgent(ctx context.Context, name string, pc *Context) (Result, error) {
	agent, ok := o.agents[name]
	if !ok {
		return Result{}, errors.Wrapf(errors.ErrAgentNotFound, "agent %q", name)
	}

	o.log.Infof("running single agent: %s", name)
	return agent.Run(ctx, pc), nil
}

// Status is a pure read of run-level and per-agent state. Callable at any
// time, including before any run and concurrently with one.
func (o *Orchestrator) Status() WorkflowStatus {
	o.mu.Lock()
	status := o.status
	currentStep := o.currentStep
	progress := o.progress
	startedAt := o.startedAt
	endedAt := o.endedAt
	o.mu.Unlock()

	var duration float64
	if !startedAt.IsZero() {
		end := endedAt
		if end.IsZero() {
			end = time.Now()
		}
		duration = end.Sub(startedAt).Seconds()
	}

	snapshots := make(map[string]Snapshot, len(o.agents))
	for name, agent := range o.agents {
		snapshots[name] = agent.Snapshot()
	}

	return WorkflowStatus{
		Status:          status,
		CurrentStep:     currentStep,
		Progress:        progress,
		StartedAt:       startedAt,
		EndedAt:         endedAt,
		DurationSeconds: duration,
		Agents:          snapshots,
	}
}

// Cancel aborts an in-flight run: the run context is cancelled so in-flight
// external calls are actually abandoned, and any still-running agent is
// marked cancelled for pollers.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	if o.status != workflow.StatusRunning {
		o.mu.Unlock()
		return
	}
	o.status = workflow.StatusCancelling
	cancel := o.cancelRun
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	for _, agent := range o.agents {
		agent.markCancelled()
	}

	o.mu.Lock()
	o.status = workflow.StatusCancelled
	o.endedAt = time.Now()
	o.mu.Unlock()

	o.log.Infof("workflow cancelled")
}

func (o *Orchestrator) setStep(checkpoint int, step string) {
	o.mu.Lock()
	o.progress = checkpoint
	o.currentStep = step
	o.mu.Unlock()
}

// finish marks the run terminal unless cancellation already did
func (o *Orchestrator) finish(status workflow.Status) time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.status.Terminal() {
		o.status = status
	}
	if o.endedAt.IsZero() {
		o.endedAt = time.Now()
	}
	return o.endedAt
}

// saveToHistory persists the run summary. A save failure is logged but
// never flips a completed run to failed.
func (o *Orchestrator) saveToHistory(ctx context.Context, result *WorkflowResult, pc *Context) {
	run := &workflow.Run{
		ID:              result.RunID,
		Query:           result.Query,
		MarketDomain:    result.MarketDomain,
		Question:        result.Question,
		Status:          workflow.StatusCompleted,
		ReportDir:       pc.ReportDir,
		Trends:          pc.Trends,
		Opportunities:   pc.Opportunities,
		Recommendations: pc.Recommendations,
		StartedAt:       result.StartedAt,
		EndedAt:         result.EndedAt,
	}

	if err := o.history.Save(ctx, run); err != nil {
		o.log.Errorf("failed to save run %s to history: %v", run.ID[:8], err)
		return
	}
	o.log.Infof("run %s saved to history", run.ID[:8])
}
