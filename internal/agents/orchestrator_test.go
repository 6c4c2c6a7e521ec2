package agents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketintel/internal/domain/insight"
	"marketintel/internal/domain/workflow"
	"marketintel/internal/repository/memory"
	"marketintel/pkg/errors"
)

// newDegradedOrchestrator wires real stage agents whose every external
// collaborator fails. The pipeline must still complete on fallback data.
func newDegradedOrchestrator(t *testing.T, history workflow.Repository) *Orchestrator {
	t.Helper()
	search := &stubSearch{err: errors.ErrSourceUnavailable}
	news := &stubNews{latestErr: errors.ErrSourceUnavailable, trendingErr: errors.ErrSourceUnavailable}

	return NewOrchestrator(
		NewReaderAgent(search, news, &stubLLM{}, 8),
		NewAnalystAgent(&stubLLM{}),
		NewStrategistAgent(&stubLLM{}),
		NewFormatterAgent(&stubCharts{}, &stubExporter{}, t.TempDir()),
		history,
	)
}

func okAgent(name string) *stubAgent {
	return newStubAgent(name, func(ctx context.Context, pc *Context) error { return nil })
}

func TestOrchestrator_AllSourcesDownStillCompletes(t *testing.T) {
	history := memory.NewRunRepository()
	o := newDegradedOrchestrator(t, history)

	result, err := o.RunWorkflow(context.Background(), "AI adoption", "Healthcare", "")
	require.NoError(t, err)
	require.True(t, result.Success)

	pc := result.Data
	require.NotNil(t, pc)
	assert.Equal(t, 0, pc.TotalSources)

	require.Len(t, pc.Trends, 2)
	require.Len(t, pc.Opportunities, 2)
	for _, tr := range pc.Trends {
		assert.True(t, tr.IsFallback())
	}
	for _, op := range pc.Opportunities {
		assert.True(t, op.IsFallback())
	}
	assert.True(t, pc.Landscape.IsFallback())
	assert.NotEmpty(t, pc.Synthesis.ExecutiveSummary)
	assert.NotEmpty(t, pc.ReportContent)
	assert.NotEmpty(t, pc.ReportDir)

	st := o.Status()
	assert.Equal(t, workflow.StatusCompleted, st.Status)
	assert.Equal(t, 100, st.Progress)
	assert.Equal(t, "Completed", st.CurrentStep)

	runs, err := history.List(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, result.RunID, runs[0].ID)
	assert.Equal(t, workflow.StatusCompleted, runs[0].Status)
}

func TestOrchestrator_HistoryRoundTrip(t *testing.T) {
	history := memory.NewRunRepository()
	o := newDegradedOrchestrator(t, history)

	result, err := o.RunWorkflow(context.Background(), "robotics", "Manufacturing", "who leads?")
	require.NoError(t, err)
	require.True(t, result.Success)

	run, err := history.Load(context.Background(), result.RunID)
	require.NoError(t, err)
	assert.Equal(t, "robotics", run.Query)
	assert.Equal(t, "Manufacturing", run.MarketDomain)
	assert.Equal(t, "who leads?", run.Question)
	assert.Equal(t, result.Data.ReportDir, run.ReportDir)
	assert.Len(t, run.Trends, 2)
}

func TestOrchestrator_StageFailureAbortsRemainingStages(t *testing.T) {
	var strategistRan, formatterRan bool
	o := NewOrchestrator(
		okAgent("Reader Agent"),
		newStubAgent("Analyst Agent", func(ctx context.Context, pc *Context) error {
			return errors.Wrap(errors.ErrStageFailed, "analysis blew up")
		}),
		newStubAgent("Strategist Agent", func(ctx context.Context, pc *Context) error {
			strategistRan = true
			return nil
		}),
		newStubAgent("Formatter Agent", func(ctx context.Context, pc *Context) error {
			formatterRan = true
			return nil
		}),
		memory.NewRunRepository(),
	)

	result, err := o.RunWorkflow(context.Background(), "q", "d", "")

	require.NoError(t, err, "stage failure is a structured result, not an error")
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Equal(t, "Data Analysis", result.FailedStep)
	assert.Contains(t, result.Error, "analysis blew up")
	assert.Nil(t, result.Data)
	assert.False(t, strategistRan, "later stages never run after a failure")
	assert.False(t, formatterRan)
	assert.Equal(t, workflow.StatusFailed, o.Status().Status)
}

func TestOrchestrator_ReaderFailureLeavesHistoryEmpty(t *testing.T) {
	history := memory.NewRunRepository()
	o := NewOrchestrator(
		newStubAgent("Reader Agent", func(ctx context.Context, pc *Context) error {
			return errors.ErrSourceUnavailable
		}),
		okAgent("Analyst Agent"),
		okAgent("Strategist Agent"),
		okAgent("Formatter Agent"),
		history,
	)

	result, err := o.RunWorkflow(context.Background(), "q", "d", "")

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "Data Collection", result.FailedStep)

	runs, err := history.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs, "failed runs are never persisted")
}

func TestOrchestrator_CancellationReturnsError(t *testing.T) {
	started := make(chan struct{})
	o := NewOrchestrator(
		newStubAgent("Reader Agent", func(ctx context.Context, pc *Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		}),
		okAgent("Analyst Agent"),
		okAgent("Strategist Agent"),
		okAgent("Formatter Agent"),
		memory.NewRunRepository(),
	)

	type outcome struct {
		result *WorkflowResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := o.RunWorkflow(context.Background(), "q", "d", "")
		done <- outcome{result, err}
	}()

	<-started
	o.Cancel()

	select {
	case out := <-done:
		require.Error(t, out.err)
		assert.True(t, errors.Is(out.err, context.Canceled))
		assert.Nil(t, out.result)
	case <-time.After(5 * time.Second):
		t.Fatal("workflow did not stop after cancellation")
	}

	assert.Equal(t, workflow.StatusCancelled, o.Status().Status)
}

func TestOrchestrator_RejectsConcurrentRuns(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	o := NewOrchestrator(
		newStubAgent("Reader Agent", func(ctx context.Context, pc *Context) error {
			close(started)
			<-release
			return nil
		}),
		okAgent("Analyst Agent"),
		okAgent("Strategist Agent"),
		okAgent("Formatter Agent"),
		memory.NewRunRepository(),
	)

	go o.RunWorkflow(context.Background(), "first", "d", "")
	<-started

	_, err := o.RunWorkflow(context.Background(), "second", "d", "")
	assert.True(t, errors.Is(err, errors.ErrWorkflowRunning))

	close(release)
}

func TestOrchestrator_StatusBeforeAnyRun(t *testing.T) {
	o := NewOrchestrator(
		okAgent("Reader Agent"),
		okAgent("Analyst Agent"),
		okAgent("Strategist Agent"),
		okAgent("Formatter Agent"),
		memory.NewRunRepository(),
	)

	st := o.Status()
	assert.Equal(t, workflow.StatusIdle, st.Status)
	assert.Equal(t, 0, st.Progress)
	assert.Empty(t, st.CurrentStep)
	assert.Zero(t, st.DurationSeconds)
	require.Len(t, st.Agents, 4)
	for name, snap := range st.Agents {
		assert.Equal(t, StatusIdle, snap.Status, "agent %s", name)
	}

	// Status is a pure read
	assert.Equal(t, st.Status, o.Status().Status)
}

func TestOrchestrator_RunAgentByName(t *testing.T) {
	o := newDegradedOrchestrator(t, memory.NewRunRepository())
	pc := &Context{Query: "q", MarketDomain: "d"}

	res, err := o.RunAgent(context.Background(), AgentAnalyst, pc)
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.Len(t, pc.Trends, 2)

	_, err = o.RunAgent(context.Background(), "publisher", pc)
	assert.True(t, errors.Is(err, errors.ErrAgentNotFound))
}

func TestOrchestrator_CanRunAgainAfterCompletion(t *testing.T) {
	history := memory.NewRunRepository()
	o := newDegradedOrchestrator(t, history)

	first, err := o.RunWorkflow(context.Background(), "q1", "d", "")
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := o.RunWorkflow(context.Background(), "q2", "d", "")
	require.NoError(t, err)
	require.True(t, second.Success)
	assert.NotEqual(t, first.RunID, second.RunID)

	runs, err := history.List(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "q2", runs[0].Query, "newest first")
}

func TestOrchestrator_FallbackRecommendationFlowsIntoReport(t *testing.T) {
	o := newDegradedOrchestrator(t, memory.NewRunRepository())

	result, err := o.RunWorkflow(context.Background(), "q", "Fintech", "")
	require.NoError(t, err)
	require.True(t, result.Success)

	pc := result.Data
	require.Len(t, pc.Recommendations, 1)
	assert.Equal(t, "Market Entry Strategy", pc.Recommendations[0].Title)
	assert.Contains(t, pc.ReportContent, "Market Entry Strategy")
	assert.Equal(t, insight.LevelHigh, pc.Recommendations[0].Priority)
	assert.Equal(t, 1, pc.DashboardData.Summary.TotalRecommendations)
}
