package agent

import (
	"errors"
	"fmt"

	"github.com/hupe1980/agentdemos/core"
	"github.com/hupe1980/agentdemos/model"
	"github.com/hupe1980/agentdemos/tool"
)

// ErrNoFinalResponse is returned when a model closes its stream without a final response.
var ErrNoFinalResponse = errors.New("model returned no final response")

// ModelAgentOptions configures a ModelAgent instance.
//
// Use functional options with NewModelAgent to override defaults.
type ModelAgentOptions struct {
	Description        string
	Instruction        Instruction
	Tools              []tool.Tool
	OutputKey          string
	EnableStreaming    bool
	MaxHistoryMessages int
	DisallowTransfer   bool
}

// ModelAgent drives a language model through a tool calling loop.
//
// It supports:
//   - Instructions rendered as templates against session state
//   - Function calling with registered tools
//   - Delegation to sub agents through the transfer_to_agent tool
//   - Saving the final response under an output key in session state
//   - Optional streaming of partial responses
type ModelAgent struct {
	BaseAgent
	llm                model.Model
	instruction        Instruction
	tools              []tool.Tool
	outputKey          string
	enableStreaming    bool
	maxHistoryMessages int
	disallowTransfer   bool
	processors         []requestProcessor
}

// NewModelAgent creates a model backed agent. A nil model or a duplicate tool
// name is a construction error.
func NewModelAgent(name string, llm model.Model, optFns ...func(o *ModelAgentOptions)) (*ModelAgent, error) {
	if name == "" {
		return nil, errors.New("agent name must not be empty")
	}

	if llm == nil {
		return nil, fmt.Errorf("agent %q: model must not be nil", name)
	}

	opts := ModelAgentOptions{
		Instruction:        NewInstruction(fmt.Sprintf("You are %s, a helpful AI assistant.", name)),
		MaxHistoryMessages: 50,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	seen := map[string]bool{tool.TransferToolName: true}
	for _, t := range opts.Tools {
		if seen[t.Name()] {
			return nil, fmt.Errorf("agent %q: duplicate or reserved tool name %q", name, t.Name())
		}
		seen[t.Name()] = true
	}

	a := &ModelAgent{
		BaseAgent:          NewBaseAgent(name),
		llm:                llm,
		instruction:        opts.Instruction,
		tools:              append([]tool.Tool(nil), opts.Tools...),
		outputKey:          opts.OutputKey,
		enableStreaming:    opts.EnableStreaming,
		maxHistoryMessages: opts.MaxHistoryMessages,
		disallowTransfer:   opts.DisallowTransfer,
		processors:         defaultProcessors,
	}

	if opts.Description != "" {
		a.SetDescription(opts.Description)
	}

	a.bind(a)

	return a, nil
}

// Model returns the language model driving the agent.
func (a *ModelAgent) Model() model.Model { return a.llm }

// OutputKey returns the session state key the final response is saved under.
func (a *ModelAgent) OutputKey() string { return a.outputKey }

// Tools returns the registered tools in registration order.
func (a *ModelAgent) Tools() []tool.Tool { return append([]tool.Tool(nil), a.tools...) }

func (a *ModelAgent) transferTargets() []core.Agent {
	if a.disallowTransfer {
		return nil
	}
	return a.SubAgents()
}

// requestTools returns the tools exposed to the model for the next turn.
func (a *ModelAgent) requestTools() []tool.Tool {
	tools := a.Tools()

	if targets := a.transferTargets(); len(targets) > 0 {
		names := make([]string, len(targets))
		for i, t := range targets {
			names[i] = t.Name()
		}
		tools = append(tools, tool.NewTransferTool(names...))
	}

	return tools
}

func (a *ModelAgent) toolRegistry() map[string]tool.Tool {
	registry := make(map[string]tool.Tool)
	for _, t := range a.requestTools() {
		registry[t.Name()] = t
	}
	return registry
}

// Run implements core.Agent. Each iteration consumes one model turn from the
// shared limiter, emits the model response and executes the requested tools.
// The loop ends on a final text response, an escalation or a transfer, in
// which case the target agent continues the invocation.
func (a *ModelAgent) Run(runCtx *core.RunContext) error {
	runCtx.LogDebug("agent.run.start", "agent", a.Name())

	for {
		if err := runCtx.Err(); err != nil {
			return err
		}

		if err := runCtx.Limiter.Increment(); err != nil {
			runCtx.LogWarn("agent.turn.limit", "agent", a.Name(), "turns", runCtx.Limiter.Count())
			return err
		}

		req, err := a.buildRequest(runCtx)
		if err != nil {
			return fmt.Errorf("agent %s: %w", a.Name(), err)
		}

		resp, err := a.generate(runCtx, req)
		if err != nil {
			runCtx.LogError("agent.model.error", "agent", a.Name(), "error", err.Error())
			return fmt.Errorf("agent %s: %w", a.Name(), err)
		}

		ev := a.responseEvent(runCtx, resp)
		calls := ev.GetFunctionCalls()

		if len(calls) == 0 {
			ev.TurnComplete = true
			if text := ev.Text(); a.outputKey != "" && text != "" {
				runCtx.SetState(a.outputKey, text)
			}
		}

		if err := runCtx.EmitEvent(ev); err != nil {
			return err
		}

		if len(calls) == 0 {
			runCtx.LogDebug("agent.run.complete", "agent", a.Name(), "turns", runCtx.Limiter.Count())
			return nil
		}

		outcome, err := a.executeCalls(runCtx, calls)
		if err != nil {
			return err
		}

		if outcome.transferTo != "" {
			return a.transfer(runCtx, outcome.transferTo)
		}

		if outcome.escalate {
			runCtx.LogInfo("agent.escalated", "agent", a.Name())
			return nil
		}
	}
}

func (a *ModelAgent) buildRequest(runCtx *core.RunContext) (model.Request, error) {
	req := model.Request{Stream: a.enableStreaming}

	for _, p := range a.processors {
		if err := p.ProcessRequest(runCtx, &req, a); err != nil {
			return model.Request{}, fmt.Errorf("request processor %s failed: %w", p.Name(), err)
		}
	}

	return req, nil
}

// generate calls the model, forwarding partial chunks when streaming is
// enabled, and returns the final response.
func (a *ModelAgent) generate(runCtx *core.RunContext, req model.Request) (model.Response, error) {
	respCh, errCh := a.llm.Generate(runCtx.Context, req)

	var (
		final    model.Response
		hasFinal bool
	)

	for resp := range respCh {
		if !resp.Partial {
			final, hasFinal = resp, true
			continue
		}

		if !a.enableStreaming {
			continue
		}

		ev := core.NewEvent(runCtx.InvocationID, a.Name())
		content := resp.Content
		ev.Content = &content
		ev.Partial = true

		if err := runCtx.EmitEvent(ev); err != nil {
			return model.Response{}, err
		}
	}

	if err, ok := <-errCh; ok && err != nil {
		return model.Response{}, err
	}

	if !hasFinal {
		return model.Response{}, ErrNoFinalResponse
	}

	return final, nil
}

// responseEvent converts a final model response into an event. Function calls
// without an id get one so their responses can be matched.
func (a *ModelAgent) responseEvent(runCtx *core.RunContext, resp model.Response) core.Event {
	content := core.Content{Role: core.RoleAssistant, Parts: make([]core.Part, 0, len(resp.Content.Parts))}

	for _, p := range resp.Content.Parts {
		if fc, ok := p.(core.FunctionCallPart); ok && fc.FunctionCall.ID == "" {
			fc.FunctionCall.ID = "call_" + core.NewID()
			p = fc
		}
		content.Parts = append(content.Parts, p)
	}

	ev := core.NewEvent(runCtx.InvocationID, a.Name())
	ev.Content = &content

	return ev
}

// transfer hands the invocation to the named agent of the same tree.
func (a *ModelAgent) transfer(runCtx *core.RunContext, name string) error {
	target := Root(a).FindAgent(name)
	if target == nil {
		return fmt.Errorf("%w: %s", core.ErrAgentNotFound, name)
	}

	runCtx.LogInfo("agent.transfer", "from_agent", a.Name(), "to_agent", target.Name())

	return target.Run(runCtx.WithAgent(core.InfoOf(target)))
}
