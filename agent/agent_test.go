package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentdemos/core"
	"github.com/hupe1980/agentdemos/model"
	"github.com/hupe1980/agentdemos/session"
	"github.com/hupe1980/agentdemos/tool"
)

var harnessKey = core.SessionKey{AppName: "app", UserID: "user", SessionID: "s1"}

// harness plays the runner's part: it persists complete events, applies
// their state deltas and resumes the agent.
type harness struct {
	store  *session.InMemoryStore
	events []core.Event
}

func (h *harness) state(t *testing.T) map[string]any {
	t.Helper()
	sess, err := h.store.Get(context.Background(), harnessKey)
	require.NoError(t, err)
	return sess.StateSnapshot()
}

func (h *harness) complete() []core.Event {
	var out []core.Event
	for _, ev := range h.events {
		if !ev.Partial {
			out = append(out, ev)
		}
	}
	return out
}

func runAgent(t *testing.T, a core.Agent, state map[string]any, input string, maxTurns int) (*harness, error) {
	t.Helper()

	ctx := context.Background()
	h := &harness{store: session.NewInMemoryStore()}

	_, err := h.store.Create(ctx, harnessKey, state)
	require.NoError(t, err)

	content := core.NewTextContent(core.RoleUser, input)
	require.NoError(t, h.store.AppendEvent(ctx, harnessKey, core.NewUserContentEvent("inv-1", content)))

	sess, err := h.store.Get(ctx, harnessKey)
	require.NoError(t, err)

	emit := make(chan core.Event)
	resume := make(chan struct{})

	rc := core.NewRunContext(ctx, harnessKey, "inv-1", core.InfoOf(a), content, emit, resume, sess, h.store, core.NewTurnLimiter(maxTurns), nil)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(rc)
		close(emit)
	}()

	for ev := range emit {
		h.events = append(h.events, ev)
		if ev.Partial {
			continue
		}
		require.NoError(t, h.store.ApplyDelta(ctx, harnessKey, ev.Actions.StateDelta))
		require.NoError(t, h.store.AppendEvent(ctx, harnessKey, ev))
		resume <- struct{}{}
	}

	return h, <-errCh
}

type cityArgs struct {
	City string `json:"city" description:"The name of the city"`
}

func newWeatherTool() tool.Tool {
	return tool.NewFunc("get_weather", "Retrieves the weather report.", func(tc *core.ToolContext, args cityArgs) (any, error) {
		unit, _ := tc.GetStateString("unit")
		tc.SetState("last_city", args.City)
		return map[string]any{"status": "success", "report": "Cloudy in " + args.City, "unit": unit}, nil
	})
}

func TestNewModelAgent_Validation(t *testing.T) {
	llm := model.NewScriptedModel("test")

	_, err := NewModelAgent("", llm)
	assert.Error(t, err)

	_, err = NewModelAgent("a", nil)
	assert.Error(t, err)

	_, err = NewModelAgent("a", llm, func(o *ModelAgentOptions) {
		o.Tools = []tool.Tool{newWeatherTool(), newWeatherTool()}
	})
	assert.ErrorContains(t, err, "duplicate")

	_, err = NewModelAgent("a", llm, func(o *ModelAgentOptions) {
		o.Tools = []tool.Tool{tool.NewTransferTool()}
	})
	assert.ErrorContains(t, err, "reserved")

	a, err := NewModelAgent("a", llm, func(o *ModelAgentOptions) { o.Description = "Answers questions." })
	require.NoError(t, err)
	assert.Equal(t, "Answers questions.", a.Description())
	assert.Same(t, llm, a.Model())
}

func TestModelAgent_FinalTextSavedUnderOutputKey(t *testing.T) {
	llm := model.NewScriptedModel("test", model.TextResponse("It is sunny."))

	a, err := NewModelAgent("weather", llm, func(o *ModelAgentOptions) {
		o.Instruction = NewInstruction("Report in {{.unit}}.")
		o.OutputKey = "last_report"
	})
	require.NoError(t, err)

	h, err := runAgent(t, a, map[string]any{"unit": "Celsius"}, "Weather?", 0)
	require.NoError(t, err)

	require.Len(t, h.events, 1)
	final := h.events[0]
	assert.True(t, final.TurnComplete)
	assert.True(t, final.IsFinalResponse())
	assert.Equal(t, "weather", final.Author)
	assert.Equal(t, "It is sunny.", final.Actions.StateDelta["last_report"])
	assert.Equal(t, "It is sunny.", h.state(t)["last_report"])

	reqs := llm.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Report in Celsius.", reqs[0].Instructions)
	require.Len(t, reqs[0].Contents, 1)
	assert.Equal(t, "Weather?", reqs[0].Contents[0].Text())
	assert.Empty(t, reqs[0].Tools)
}

func TestModelAgent_ToolCallLoop(t *testing.T) {
	llm := model.NewScriptedModel("test",
		model.CallResponse("c1", "get_weather", map[string]any{"city": "London"}),
		model.TextResponse("Cloudy in London."),
	)

	a, err := NewModelAgent("weather", llm, func(o *ModelAgentOptions) {
		o.Tools = []tool.Tool{newWeatherTool()}
	})
	require.NoError(t, err)

	h, err := runAgent(t, a, map[string]any{"unit": "Fahrenheit"}, "Weather in London?", 0)
	require.NoError(t, err)

	require.Len(t, h.events, 3)

	calls := h.events[0].GetFunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "get_weather", calls[0].Name)
	assert.False(t, h.events[0].TurnComplete)

	responses := h.events[1].GetFunctionResponses()
	require.Len(t, responses, 1)
	assert.Equal(t, "c1", responses[0].ID)
	assert.Empty(t, responses[0].Error)
	assert.Equal(t, "Fahrenheit", responses[0].Response.(map[string]any)["unit"])
	assert.Equal(t, "London", h.events[1].Actions.StateDelta["last_city"])

	assert.Equal(t, "Cloudy in London.", h.events[2].Text())
	assert.Equal(t, "London", h.state(t)["last_city"])

	reqs := llm.Requests()
	require.Len(t, reqs, 2)
	require.Len(t, reqs[0].Tools, 1)
	assert.Equal(t, "get_weather", reqs[0].Tools[0].Function.Name)
	require.Len(t, reqs[1].Contents, 3)
	assert.Equal(t, core.RoleTool, reqs[1].Contents[2].Role)
}

func TestModelAgent_ToolFailuresAreReportedToModel(t *testing.T) {
	panicky := tool.NewFunctionTool("explode", "Always panics.", nil, func(*core.ToolContext, map[string]any) (any, error) {
		panic("kaboom")
	})

	llm := model.NewScriptedModel("test",
		model.Response{Content: core.Content{Role: core.RoleAssistant, Parts: []core.Part{
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "c1", Name: "missing", Arguments: "{}"}},
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "c2", Name: "explode", Arguments: "{}"}},
			core.FunctionCallPart{FunctionCall: core.FunctionCall{Name: "explode", Arguments: "{not json"}},
		}}},
		model.TextResponse("Sorry, the tools failed."),
	)

	a, err := NewModelAgent("agent", llm, func(o *ModelAgentOptions) {
		o.Tools = []tool.Tool{panicky}
	})
	require.NoError(t, err)

	h, err := runAgent(t, a, nil, "go", 0)
	require.NoError(t, err)
	require.Len(t, h.events, 5)

	missing := h.events[1].GetFunctionResponses()[0]
	assert.Contains(t, missing.Error, tool.CodeNotFound)

	exploded := h.events[2].GetFunctionResponses()[0]
	assert.Contains(t, exploded.Error, tool.CodePanic)
	assert.Contains(t, exploded.Error, "kaboom")

	malformed := h.events[3].GetFunctionResponses()[0]
	assert.Contains(t, malformed.Error, tool.CodeValidation)
	assert.NotEmpty(t, malformed.ID)
	assert.Equal(t, h.events[0].GetFunctionCalls()[2].ID, malformed.ID)

	assert.Equal(t, "Sorry, the tools failed.", h.events[4].Text())
}

func TestModelAgent_TransferToSubAgent(t *testing.T) {
	rootLLM := model.NewScriptedModel("root", model.CallResponse("t1", tool.TransferToolName, map[string]any{"agent_name": "greeting_agent"}))
	greetLLM := model.NewScriptedModel("greet", model.TextResponse("Hello there!"))

	greeter, err := NewModelAgent("greeting_agent", greetLLM, func(o *ModelAgentOptions) {
		o.Description = "Handles simple greetings."
	})
	require.NoError(t, err)

	root, err := NewModelAgent("root", rootLLM, func(o *ModelAgentOptions) { o.OutputKey = "last_report" })
	require.NoError(t, err)
	require.NoError(t, root.SetSubAgents(greeter))

	h, err := runAgent(t, root, nil, "Hi!", 0)
	require.NoError(t, err)
	require.Len(t, h.events, 3)

	assert.Equal(t, "root", h.events[1].Author)
	assert.Equal(t, "greeting_agent", h.events[1].Actions.TransferToAgent)

	final := h.events[2]
	assert.Equal(t, "greeting_agent", final.Author)
	assert.Equal(t, "Hello there!", final.Text())
	assert.NotContains(t, h.state(t), "last_report")

	rootReq := rootLLM.Requests()[0]
	assert.Contains(t, rootReq.Instructions, "- greeting_agent: Handles simple greetings.")
	require.Len(t, rootReq.Tools, 1)
	assert.Equal(t, tool.TransferToolName, rootReq.Tools[0].Function.Name)

	greetReq := greetLLM.Requests()[0]
	assert.Empty(t, greetReq.Tools)
	assert.Equal(t, "Hi!", greetReq.Contents[0].Text())
}

func TestModelAgent_DisallowTransfer(t *testing.T) {
	llm := model.NewScriptedModel("test", model.TextResponse("ok"))

	child, err := NewModelAgent("child", model.NewScriptedModel("child"))
	require.NoError(t, err)

	a, err := NewModelAgent("root", llm, func(o *ModelAgentOptions) { o.DisallowTransfer = true })
	require.NoError(t, err)
	require.NoError(t, a.SetSubAgents(child))

	_, err = runAgent(t, a, nil, "hi", 0)
	require.NoError(t, err)

	req := llm.Requests()[0]
	assert.Empty(t, req.Tools)
	assert.NotContains(t, req.Instructions, tool.TransferToolName)
}

func TestModelAgent_MaxTurns(t *testing.T) {
	roll := tool.NewFunctionTool("random_number", "Rolls.", nil, func(*core.ToolContext, map[string]any) (any, error) {
		return 3, nil
	})

	llm := model.NewFuncModel("looping", func(context.Context, model.Request) (model.Response, error) {
		return model.CallResponse("", "random_number", nil), nil
	})

	a, err := NewModelAgent("finder", llm, func(o *ModelAgentOptions) { o.Tools = []tool.Tool{roll} })
	require.NoError(t, err)

	h, err := runAgent(t, a, nil, "find an even number", 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMaxTurnsExceeded))

	// Three turns, each a call plus its response.
	assert.Len(t, h.events, 6)
}

func TestModelAgent_EscalationStopsLoop(t *testing.T) {
	giveUp := tool.NewFunctionTool("give_up", "Escalates.", nil, func(tc *core.ToolContext, _ map[string]any) (any, error) {
		tc.Escalate()
		return "escalated", nil
	})

	llm := model.NewScriptedModel("test", model.CallResponse("c1", "give_up", nil), model.TextResponse("never"))

	a, err := NewModelAgent("agent", llm, func(o *ModelAgentOptions) { o.Tools = []tool.Tool{giveUp} })
	require.NoError(t, err)

	h, err := runAgent(t, a, nil, "help", 0)
	require.NoError(t, err)
	require.Len(t, h.events, 2)
	assert.True(t, h.events[1].Actions.Escalate)
	assert.Equal(t, 1, llm.Remaining())
}

func TestModelAgent_StreamingEmitsPartials(t *testing.T) {
	llm := model.NewScriptedModel("test", model.TextResponse("one two three"))

	a, err := NewModelAgent("agent", llm, func(o *ModelAgentOptions) {
		o.EnableStreaming = true
		o.OutputKey = "out"
	})
	require.NoError(t, err)

	h, err := runAgent(t, a, nil, "count", 0)
	require.NoError(t, err)

	require.Len(t, h.events, 4)
	for _, ev := range h.events[:3] {
		assert.True(t, ev.Partial)
		assert.Empty(t, ev.Actions.StateDelta)
	}

	complete := h.complete()
	require.Len(t, complete, 1)
	assert.Equal(t, "one two three", complete[0].Text())
	assert.Equal(t, "one two three", h.state(t)["out"])
	assert.True(t, llm.Requests()[0].Stream)
}

func TestModelAgent_ModelError(t *testing.T) {
	boom := errors.New("boom")
	llm := model.NewFuncModel("failing", func(context.Context, model.Request) (model.Response, error) {
		return model.Response{}, boom
	})

	a, err := NewModelAgent("agent", llm)
	require.NoError(t, err)

	h, err := runAgent(t, a, nil, "hi", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Empty(t, h.events)
}

func TestModelAgent_HistoryWindowSkipsOrphanedToolResults(t *testing.T) {
	llm := model.NewScriptedModel("test",
		model.CallResponse("c1", "get_weather", map[string]any{"city": "Tokyo"}),
		model.TextResponse("done"),
	)

	a, err := NewModelAgent("agent", llm, func(o *ModelAgentOptions) {
		o.Tools = []tool.Tool{newWeatherTool()}
		o.MaxHistoryMessages = 1
	})
	require.NoError(t, err)

	_, err = runAgent(t, a, nil, "Tokyo?", 0)
	require.NoError(t, err)

	reqs := llm.Requests()
	require.Len(t, reqs, 2)
	assert.Empty(t, reqs[1].Contents)
}
