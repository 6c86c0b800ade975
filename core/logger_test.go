package core

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/agentdemos/logging"
)

func TestContextLogging_CarriesScope(t *testing.T) {
	var buf bytes.Buffer

	rc := NewRunContext(
		context.Background(), testKey, "inv-1", AgentInfo{Name: "weather_agent"},
		NewTextContent(RoleUser, "hi"), make(chan Event, 1), nil, nil, nil, nil,
		logging.NewSlogLogger(logging.LogLevelDebug, "text", &buf),
	)

	rc.LogInfo("agent.run.start")
	assert.Contains(t, buf.String(), "msg=agent.run.start invocation=inv-1\n")

	buf.Reset()
	NewToolContext(rc, "call-7").LogDebug("tool.random_number.call", "result", 4)
	assert.Contains(t, buf.String(), "invocation=inv-1 agent=weather_agent function_call_id=call-7 result=4\n")

	buf.Reset()
	rc.WithAgent(AgentInfo{Name: "greeting_agent"}).LogWarn("agent.turn.limit")
	assert.Contains(t, buf.String(), "invocation=inv-1\n")
}

func TestWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	base := logging.NewSlogLogger(logging.LogLevelDebug, "text", &buf)

	outer := withAttrs(base, "a", 1)
	inner := withAttrs(outer, "b", 2)
	_ = withAttrs(outer, "c", 3)

	inner.Error("boom")
	assert.Contains(t, buf.String(), "msg=boom a=1 b=2\n")
	assert.Equal(t, base, inner.base)

	withAttrs(nil).Info("dropped")
}
