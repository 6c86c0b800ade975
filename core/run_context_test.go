package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunContext_EmitEventMergesStateDelta(t *testing.T) {
	emit := make(chan Event, 1)
	rc := newRunContextForTest(nil, emit, nil)

	rc.SetState("foo", "bar")
	v, ok := rc.GetState("foo")
	require.True(t, ok)
	assert.Equal(t, "bar", v)

	require.NoError(t, rc.EmitEvent(NewEvent(rc.InvocationID, "agent")))

	received := <-emit
	assert.Equal(t, "bar", received.Actions.StateDelta["foo"])
	assert.Empty(t, rc.StateDelta)
}

func TestRunContext_EmitEventRefreshesAfterResume(t *testing.T) {
	store := newStubStore(testKey, map[string]any{"unit": "Celsius"})
	emit := make(chan Event)
	resume := make(chan struct{}, 1)
	rc := newRunContextForTest(store, emit, resume)

	go func() {
		ev := <-emit
		_ = store.ApplyDelta(context.Background(), testKey, ev.Actions.StateDelta)
		_ = store.AppendEvent(context.Background(), testKey, ev)
		resume <- struct{}{}
	}()

	rc.SetState("unit", "Fahrenheit")
	require.NoError(t, rc.EmitEvent(NewEvent(rc.InvocationID, "agent")))

	v, ok := rc.Session.GetState("unit")
	require.True(t, ok)
	assert.Equal(t, "Fahrenheit", v)
	assert.Len(t, rc.Session.GetEvents(), 1)
}

func TestRunContext_PartialEventDoesNotWait(t *testing.T) {
	emit := make(chan Event, 1)
	resume := make(chan struct{})
	rc := newRunContextForTest(nil, emit, resume)

	rc.SetState("unit", "Celsius")

	ev := NewEvent(rc.InvocationID, "agent")
	ev.Partial = true

	require.NoError(t, rc.EmitEvent(ev))

	got := <-emit
	assert.True(t, got.Partial)
	assert.Empty(t, got.Actions.StateDelta)
	assert.Equal(t, "Celsius", rc.StateDelta["unit"])
}

func TestRunContext_EmitEventCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rc := newRunContextForTest(nil, make(chan Event), nil)
	rc.Context = ctx

	err := rc.EmitEvent(NewEvent(rc.InvocationID, "agent"))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunContext_WithAgentSharesLimiter(t *testing.T) {
	rc := newRunContextForTest(nil, make(chan Event, 1), nil)
	rc.SetState("pending", true)

	child := rc.WithAgent(AgentInfo{Name: "child"})

	assert.Equal(t, "child", child.GetAgentName())
	assert.Same(t, rc.Limiter, child.Limiter)
	assert.Empty(t, child.StateDelta)
	assert.Equal(t, rc.InvocationID, child.InvocationID)
}

func TestTurnLimiter(t *testing.T) {
	l := NewTurnLimiter(2)
	require.NoError(t, l.Increment())
	require.NoError(t, l.Increment())
	assert.Equal(t, 0, l.Remaining())

	err := l.Increment()
	assert.ErrorIs(t, err, ErrMaxTurnsExceeded)
	assert.Equal(t, 3, l.Count())

	assert.Equal(t, -1, NewTurnLimiter(0).Remaining())
}
