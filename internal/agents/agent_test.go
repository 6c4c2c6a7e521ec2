package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketintel/pkg/errors"
)

func TestBaseAgent_RunSuccess(t *testing.T) {
	agent := newStubAgent("Test Agent", func(ctx context.Context, pc *Context) error {
		return nil
	})

	res := agent.Run(context.Background(), &Context{})

	require.True(t, res.Success())
	assert.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, "Test Agent", res.Agent)

	snap := agent.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 100, snap.Progress)
	assert.False(t, snap.StartedAt.IsZero())
	assert.False(t, snap.EndedAt.IsZero())
	assert.Empty(t, snap.Error)
}

func TestBaseAgent_RunFailureReturnsResultNotError(t *testing.T) {
	agent := newStubAgent("Test Agent", func(ctx context.Context, pc *Context) error {
		return errors.New("boom")
	})

	res := agent.Run(context.Background(), &Context{})

	require.False(t, res.Success())
	assert.Equal(t, OutcomeFailed, res.Outcome)
	require.Error(t, res.Err)

	snap := agent.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "boom", snap.Error)
}

func TestBaseAgent_RunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agent := newStubAgent("Test Agent", func(ctx context.Context, pc *Context) error {
		return ctx.Err()
	})

	res := agent.Run(ctx, &Context{})

	assert.Equal(t, OutcomeCancelled, res.Outcome)
	assert.True(t, errors.Is(res.Err, context.Canceled))
	assert.Equal(t, StatusCancelled, agent.Snapshot().Status)
}

func TestBaseAgent_ReuseOverwritesPreviousInvocation(t *testing.T) {
	fail := true
	agent := newStubAgent("Test Agent", func(ctx context.Context, pc *Context) error {
		if fail {
			return errors.New("first run fails")
		}
		return nil
	})

	agent.Run(context.Background(), &Context{})
	require.Equal(t, StatusFailed, agent.Snapshot().Status)

	fail = false
	agent.Run(context.Background(), &Context{})

	snap := agent.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Empty(t, snap.Error, "error message from the failed run must be cleared")
}

func TestBaseAgent_UpdateProgressClamps(t *testing.T) {
	agent := NewBaseAgent("Test Agent", "")

	agent.UpdateProgress(150, "too much")
	assert.Equal(t, 100, agent.Snapshot().Progress)

	agent.UpdateProgress(-5, "too little")
	assert.Equal(t, 0, agent.Snapshot().Progress)

	agent.UpdateProgress(42, "")
	snap := agent.Snapshot()
	assert.Equal(t, 42, snap.Progress)
	assert.Equal(t, "too little", snap.CurrentTask, "empty task label keeps the previous one")
}

func TestBaseAgent_SnapshotIdle(t *testing.T) {
	agent := NewBaseAgent("Test Agent", "does nothing yet")

	snap := agent.Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Zero(t, snap.Progress)
	assert.Zero(t, snap.Duration)
	assert.True(t, snap.StartedAt.IsZero())
}
