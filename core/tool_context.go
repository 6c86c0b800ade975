package core

import (
	"context"
	"fmt"
	"maps"
)

// ToolContext is what a tool sees of the run. Writes and transfer or
// escalation requests are collected as EventActions and only reach the
// session with the function response event. Log* calls carry the agent name
// and function call id.
type ToolContext struct {
	runCtx         *RunContext
	functionCallID string
	eventActions   EventActions

	contextLogging
}

// NewToolContext binds a tool call to its run.
func NewToolContext(runCtx *RunContext, functionCallID string) *ToolContext {
	return &ToolContext{
		runCtx:         runCtx,
		functionCallID: functionCallID,
		contextLogging: contextLogging{
			log: withAttrs(runCtx.Logger(), "agent", runCtx.Agent.Name, "function_call_id", functionCallID),
		},
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.runCtx.Context }

// SessionKey returns the key of the session the tool runs in.
func (tc *ToolContext) SessionKey() SessionKey { return tc.runCtx.Key }

// InvocationID returns the invocation the tool call belongs to.
func (tc *ToolContext) InvocationID() string { return tc.runCtx.InvocationID }

// FunctionCallID returns the function call ID associated with the tool invocation.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// AgentName returns the agent name associated with the tool invocation.
func (tc *ToolContext) AgentName() string { return tc.runCtx.Agent.Name }

// GetState returns values staged by this tool first, then the run state.
func (tc *ToolContext) GetState(k string) (any, bool) {
	if v, ok := tc.eventActions.StateDelta[k]; ok {
		return v, true
	}

	return tc.runCtx.GetState(k)
}

// GetStateString returns the state value for k when it holds a string.
func (tc *ToolContext) GetStateString(k string) (string, bool) {
	v, ok := tc.GetState(k)
	if !ok {
		return "", false
	}

	s, ok := v.(string)

	return s, ok
}

// SetState records a state mutation in the local EventActions delta. It is
// committed together with the function response event.
func (tc *ToolContext) SetState(k string, v any) {
	if tc.eventActions.StateDelta == nil {
		tc.eventActions.StateDelta = map[string]any{}
	}

	tc.eventActions.StateDelta[k] = v
}

// Actions returns the event actions accumulated in the tool context.
func (tc *ToolContext) Actions() *EventActions { return &tc.eventActions }

// SkipSummarization requests that post-processing summarization be bypassed.
func (tc *ToolContext) SkipSummarization() {
	tc.eventActions.SkipSummarization = true
}

// TransferToAgent signals orchestration to handoff control to another agent.
func (tc *ToolContext) TransferToAgent(name string) {
	tc.eventActions.TransferToAgent = name
	tc.LogInfo("tool.transfer.request", "to_agent", name)
}

// Escalate requests that the current agent stop and hand control back.
func (tc *ToolContext) Escalate() {
	tc.eventActions.Escalate = true
	tc.LogInfo("tool.escalate.request")
}

// ApplyActions copies the accumulated actions onto ev.
func (tc *ToolContext) ApplyActions(ev *Event) {
	if len(tc.eventActions.StateDelta) > 0 {
		if ev.Actions.StateDelta == nil {
			ev.Actions.StateDelta = map[string]any{}
		}
		maps.Copy(ev.Actions.StateDelta, tc.eventActions.StateDelta)
	}

	if tc.eventActions.TransferToAgent != "" {
		ev.Actions.TransferToAgent = tc.eventActions.TransferToAgent
	}

	ev.Actions.Escalate = ev.Actions.Escalate || tc.eventActions.Escalate
	ev.Actions.SkipSummarization = ev.Actions.SkipSummarization || tc.eventActions.SkipSummarization
}

// Validate performs a structural sanity check of the context.
func (tc *ToolContext) Validate() error {
	if tc.runCtx == nil || tc.functionCallID == "" {
		return fmt.Errorf("invalid ToolContext")
	}

	return nil
}
