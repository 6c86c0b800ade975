package tool

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/agentdemos/core"
)

// TransferToolName is the function name models use to delegate to a sub agent.
const TransferToolName = "transfer_to_agent"

// transferToAgentTool requests orchestration transfer to a named sub agent.
type transferToAgentTool struct {
	targets []string
}

// NewTransferTool constructs the transfer tool for the given candidate agents.
// An empty target list accepts any agent name.
func NewTransferTool(targets ...string) Tool {
	return &transferToAgentTool{targets: slices.Clone(targets)}
}

func (t *transferToAgentTool) Name() string { return TransferToolName }

func (t *transferToAgentTool) Description() string {
	desc := "Transfer the conversation to another agent by name. Use when another agent is better suited to answer."
	if len(t.targets) > 0 {
		desc += " Available agents: " + strings.Join(t.targets, ", ") + "."
	}
	return desc
}

func (t *transferToAgentTool) Parameters() map[string]any {
	agentName := map[string]any{"type": "string", "description": "Name of the agent to transfer to"}
	if len(t.targets) > 0 {
		agentName["enum"] = slices.Clone(t.targets)
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agent_name": agentName,
		},
		"required": []string{"agent_name"},
	}
}

func (t *transferToAgentTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	agentName, ok := args["agent_name"].(string)
	if !ok || agentName == "" {
		return nil, NewToolError(TransferToolName, "field 'agent_name' must be a non-empty string", CodeValidation)
	}

	if len(t.targets) > 0 && !slices.Contains(t.targets, agentName) {
		return nil, &ToolError{
			Tool:    TransferToolName,
			Message: fmt.Sprintf("unknown agent %q", agentName),
			Code:    CodeNotFound,
			Details: t.targets,
		}
	}

	tc.TransferToAgent(agentName)

	return map[string]any{"transferred": true, "agent_name": agentName}, nil
}
