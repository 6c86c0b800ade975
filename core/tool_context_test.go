package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolContext_StateLayering(t *testing.T) {
	store := newStubStore(testKey, map[string]any{"unit": "Celsius", "name": "x"})
	rc := newRunContextForTest(store, make(chan Event, 1), nil)
	rc.SetState("name", "staged")

	tc := NewToolContext(rc, "call-1")

	unit, ok := tc.GetStateString("unit")
	require.True(t, ok)
	assert.Equal(t, "Celsius", unit)

	name, _ := tc.GetStateString("name")
	assert.Equal(t, "staged", name)

	tc.SetState("unit", "Fahrenheit")
	unit, _ = tc.GetStateString("unit")
	assert.Equal(t, "Fahrenheit", unit)

	// Tool writes stay local until the response event is emitted.
	v, _ := rc.GetState("unit")
	assert.Equal(t, "Celsius", v)

	_, ok = tc.GetStateString("missing")
	assert.False(t, ok)
}

func TestToolContext_ApplyActions(t *testing.T) {
	rc := newRunContextForTest(nil, make(chan Event, 1), nil)
	tc := NewToolContext(rc, "call-1")

	tc.SetState("k", "v")
	tc.TransferToAgent("greeting_agent")
	tc.Escalate()

	ev := NewFunctionResponseEvent(rc.InvocationID, "agent", "call-1", "transfer_to_agent", nil, nil)
	tc.ApplyActions(&ev)

	assert.Equal(t, "v", ev.Actions.StateDelta["k"])
	assert.Equal(t, "greeting_agent", ev.Actions.TransferToAgent)
	assert.True(t, ev.Actions.Escalate)
	assert.False(t, ev.Actions.SkipSummarization)
	assert.Equal(t, "agent", tc.AgentName())
	assert.Equal(t, "call-1", tc.FunctionCallID())
	assert.NoError(t, tc.Validate())
}
