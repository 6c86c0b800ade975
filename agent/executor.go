package agent

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hupe1980/agentdemos/core"
	"github.com/hupe1980/agentdemos/tool"
)

// callOutcome aggregates the orchestration signals raised by a batch of tool calls.
type callOutcome struct {
	transferTo string
	escalate   bool
}

// executeCalls runs every function call in order and emits exactly one
// function response event per call, carrying the actions the tool recorded
// on its ToolContext. Tool failures and panics become error responses.
func (a *ModelAgent) executeCalls(runCtx *core.RunContext, calls []core.FunctionCall) (callOutcome, error) {
	var outcome callOutcome

	registry := a.toolRegistry()

	for _, fc := range calls {
		if err := runCtx.Err(); err != nil {
			return outcome, err
		}

		toolCtx := core.NewToolContext(runCtx, fc.ID)

		runCtx.LogDebug("agent.function.start", "agent", a.Name(), "function", fc.Name, "function_call_id", fc.ID)

		start := time.Now()
		result, err := executeTool(runCtx, registry, toolCtx, fc)

		runCtx.LogInfo(
			"agent.function.executed",
			"agent", a.Name(),
			"function", fc.Name,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err != nil,
			"code", tool.CodeOf(err),
		)

		respEv := core.NewFunctionResponseEvent(runCtx.InvocationID, a.Name(), fc.ID, fc.Name, result, err)
		toolCtx.ApplyActions(&respEv)

		if err := runCtx.EmitEvent(respEv); err != nil {
			return outcome, err
		}

		if respEv.Actions.TransferToAgent != "" {
			outcome.transferTo = respEv.Actions.TransferToAgent
		}

		outcome.escalate = outcome.escalate || respEv.Actions.Escalate
	}

	return outcome, nil
}

// executeTool centralizes tool lookup, argument decoding and panic recovery.
func executeTool(runCtx *core.RunContext, registry map[string]tool.Tool, toolCtx *core.ToolContext, fc core.FunctionCall) (result any, err error) {
	impl, ok := registry[fc.Name]
	if !ok {
		return nil, tool.NewToolError(fc.Name, fmt.Sprintf("tool %s not found", fc.Name), tool.CodeNotFound)
	}

	args := map[string]any{}
	if fc.Arguments != "" {
		if err := json.Unmarshal([]byte(fc.Arguments), &args); err != nil {
			return nil, tool.NewToolError(fc.Name, fmt.Sprintf("failed to unmarshal args: %v", err), tool.CodeValidation)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			runCtx.LogError("agent.function.panic", "function", fc.Name, "recover", r, "stack", string(debug.Stack()))
			result = nil
			err = tool.NewToolError(fc.Name, fmt.Sprintf("panic recovered: %v", r), tool.CodePanic)
		}
	}()

	return impl.Call(toolCtx, args)
}
