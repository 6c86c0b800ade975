package agent

import (
	"fmt"
	"strings"

	"github.com/hupe1980/agentdemos/core"
	"github.com/hupe1980/agentdemos/model"
	"github.com/hupe1980/agentdemos/tool"
)

// requestProcessor contributes one aspect of a model request.
type requestProcessor interface {
	Name() string
	ProcessRequest(runCtx *core.RunContext, req *model.Request, a *ModelAgent) error
}

// defaultProcessors run in order: instructions first, the transfer section
// then appends to them.
var defaultProcessors = []requestProcessor{
	instructionsProcessor{},
	transferProcessor{},
	contentsProcessor{},
	toolsProcessor{},
}

// instructionsProcessor renders the agent instruction.
type instructionsProcessor struct{}

func (instructionsProcessor) Name() string { return "instructions" }

func (instructionsProcessor) ProcessRequest(runCtx *core.RunContext, req *model.Request, a *ModelAgent) error {
	instructions, err := a.instruction.Render(runCtx)
	if err != nil {
		return err
	}

	req.Instructions = instructions

	runCtx.LogDebug("agent.instruction.resolved", "agent", a.Name(), "length", len(req.Instructions))

	return nil
}

// transferProcessor describes the sub agents the model may delegate to.
type transferProcessor struct{}

func (transferProcessor) Name() string { return "transfer" }

func (transferProcessor) ProcessRequest(_ *core.RunContext, req *model.Request, a *ModelAgent) error {
	subAgents := a.transferTargets()
	if len(subAgents) == 0 {
		return nil
	}

	var sb strings.Builder
	if req.Instructions != "" {
		sb.WriteString(req.Instructions)
		sb.WriteString("\n\n")
	}

	sb.WriteString("You can delegate to the following agents by calling the `")
	sb.WriteString(tool.TransferToolName)
	sb.WriteString("` function with the agent's name:\n")

	for _, sub := range subAgents {
		fmt.Fprintf(&sb, "- %s: %s\n", sub.Name(), sub.Description())
	}

	sb.WriteString("If none of them fits the request, answer it yourself.")

	req.Instructions = sb.String()

	return nil
}

// contentsProcessor adds the conversation history of the session.
type contentsProcessor struct{}

func (contentsProcessor) Name() string { return "contents" }

func (contentsProcessor) ProcessRequest(runCtx *core.RunContext, req *model.Request, a *ModelAgent) error {
	events := runCtx.GetSessionHistory()
	if a.maxHistoryMessages > 0 && len(events) > a.maxHistoryMessages {
		events = events[len(events)-a.maxHistoryMessages:]
	}

	// A truncated window must not open with tool results whose calls were cut off.
	for len(events) > 0 && events[0].Content.Role == core.RoleTool {
		events = events[1:]
	}

	contents := make([]core.Content, 0, len(events))
	for _, ev := range events {
		contents = append(contents, *ev.Content)
	}

	req.Contents = contents

	return nil
}

// toolsProcessor exposes registered tools plus the transfer tool.
type toolsProcessor struct{}

func (toolsProcessor) Name() string { return "tools" }

func (toolsProcessor) ProcessRequest(_ *core.RunContext, req *model.Request, a *ModelAgent) error {
	for _, t := range a.requestTools() {
		req.Tools = append(req.Tools, model.NewFunctionTool(t.Name(), t.Description(), t.Parameters()))
	}

	return nil
}
