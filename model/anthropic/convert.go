package anthropic

import (
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/hupe1980/agentdemos/core"
	"github.com/hupe1980/agentdemos/model"
)

// buildMessages maps contents onto Messages API turns. System contents are
// skipped (see systemBlocks). Tool results ride in a user turn, and
// consecutive tool contents share one so user and assistant keep alternating.
func buildMessages(contents []core.Content) []anthropic.MessageParam {
	var (
		msgs    []anthropic.MessageParam
		results []anthropic.ContentBlockParamUnion
	)

	flush := func() {
		if len(results) > 0 {
			msgs = append(msgs, anthropic.NewUserMessage(results...))
			results = nil
		}
	}

	for _, c := range contents {
		switch c.Role {
		case core.RoleSystem:
		case core.RoleTool:
			for _, fr := range c.FunctionResponses() {
				if fr.ID != "" {
					text, isErr := encodeToolResult(fr)
					results = append(results, anthropic.NewToolResultBlock(fr.ID, text, isErr))
				}
			}
		case core.RoleAssistant:
			flush()
			if blocks := assistantBlocks(c); len(blocks) > 0 {
				msgs = append(msgs, anthropic.NewAssistantMessage(blocks...))
			}
		default:
			flush()
			if text := c.Text(); text != "" {
				msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
			}
		}
	}

	flush()

	return msgs
}

func assistantBlocks(c core.Content) []anthropic.ContentBlockParamUnion {
	var blocks []anthropic.ContentBlockParamUnion

	if text := c.Text(); text != "" {
		blocks = append(blocks, anthropic.NewTextBlock(text))
	}

	for _, fc := range c.FunctionCalls() {
		input := map[string]any{}
		if fc.Arguments != "" {
			_ = json.Unmarshal([]byte(fc.Arguments), &input)
		}

		blocks = append(blocks, anthropic.NewToolUseBlock(fc.ID, input, fc.Name))
	}

	return blocks
}

// encodeToolResult returns the tool_result text and whether it reports an
// error.
func encodeToolResult(fr core.FunctionResponse) (string, bool) {
	if fr.Error != "" {
		return fr.Error, true
	}

	if s, ok := fr.Response.(string); ok {
		return s, false
	}

	b, err := json.Marshal(fr.Response)
	if err != nil {
		return fmt.Sprint(fr.Response), false
	}

	return string(b), false
}

// systemBlocks holds the instructions followed by any system contents.
func systemBlocks(req model.Request) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam

	if req.Instructions != "" {
		blocks = append(blocks, anthropic.TextBlockParam{Text: req.Instructions})
	}

	for _, c := range req.Contents {
		if text := c.Text(); c.Role == core.RoleSystem && text != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: text})
		}
	}

	return blocks
}

func buildTools(defs []model.ToolDefinition) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(defs))

	for _, d := range defs {
		schema := anthropic.ToolInputSchemaParam{Type: constant.Object("object")}
		if props, ok := d.Function.Parameters["properties"]; ok {
			schema.Properties = props
		}
		schema.Required = requiredList(d.Function.Parameters["required"])

		tool := anthropic.ToolUnionParamOfTool(schema, d.Function.Name)
		if d.Function.Description != "" {
			tool.OfTool.Description = anthropic.String(d.Function.Description)
		}

		tools = append(tools, tool)
	}

	return tools
}

// requiredList reads a schema's required list, built in code ([]string) or
// decoded from JSON ([]any).
func requiredList(v any) []string {
	switch req := v.(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}

	return nil
}
