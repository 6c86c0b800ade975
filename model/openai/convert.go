package openai

import (
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/agentdemos/core"
	"github.com/hupe1980/agentdemos/model"
)

// buildMessages maps contents onto chat messages. The instructions lead as a
// system message and each function response becomes its own tool message.
func buildMessages(req model.Request) []openai.ChatCompletionMessageParamUnion {
	var msgs []openai.ChatCompletionMessageParamUnion

	if req.Instructions != "" {
		msgs = append(msgs, openai.SystemMessage(req.Instructions))
	}

	for _, c := range req.Contents {
		switch c.Role {
		case core.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(c.Text()))
		case core.RoleUser:
			msgs = append(msgs, openai.UserMessage(c.Text()))
		case core.RoleTool:
			for _, fr := range c.FunctionResponses() {
				if fr.ID != "" {
					msgs = append(msgs, openai.ToolMessage(toolResultJSON(fr), fr.ID))
				}
			}
		case core.RoleAssistant:
			msgs = append(msgs, assistantMessage(c))
		default:
			if text := c.Text(); text != "" {
				msgs = append(msgs, openai.UserMessage(text))
			}
		}
	}

	return msgs
}

func assistantMessage(c core.Content) openai.ChatCompletionMessageParamUnion {
	calls := c.FunctionCalls()
	if len(calls) == 0 {
		return openai.AssistantMessage(c.Text())
	}

	msg := &openai.ChatCompletionAssistantMessageParam{Role: "assistant"}
	if text := c.Text(); text != "" {
		msg.Content.OfString = openai.String(text)
	}

	for _, fc := range calls {
		args := fc.Arguments
		if args == "" {
			args = "{}"
		}

		msg.ToolCalls = append(msg.ToolCalls, openai.ChatCompletionMessageToolCallParam{
			ID:       fc.ID,
			Type:     "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{Name: fc.Name, Arguments: args},
		})
	}

	return openai.ChatCompletionMessageParamUnion{OfAssistant: msg}
}

// toolResultJSON is the tool message body: strings pass through, errors
// become {"error": ...} and anything else is JSON encoded.
func toolResultJSON(fr core.FunctionResponse) string {
	if fr.Error != "" {
		b, _ := json.Marshal(map[string]string{"error": fr.Error})
		return string(b)
	}

	if s, ok := fr.Response.(string); ok {
		return s
	}

	b, err := json.Marshal(fr.Response)
	if err != nil {
		return fmt.Sprint(fr.Response)
	}

	return string(b)
}

func buildTools(defs []model.ToolDefinition) []openai.ChatCompletionToolParam {
	if len(defs) == 0 {
		return nil
	}

	tools := make([]openai.ChatCompletionToolParam, 0, len(defs))
	for _, d := range defs {
		tools = append(tools, openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        d.Function.Name,
				Description: openai.String(d.Function.Description),
				Parameters:  d.Function.Parameters,
			},
		})
	}

	return tools
}

// completionResponse converts the first choice of a non-streamed completion.
func completionResponse(resp *openai.ChatCompletion) model.Response {
	choice := resp.Choices[0]

	parts := make([]core.Part, 0, len(choice.Message.ToolCalls)+1)
	if choice.Message.Content != "" {
		parts = append(parts, core.TextPart{Text: choice.Message.Content})
	}

	for _, tc := range choice.Message.ToolCalls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		}})
	}

	return model.Response{
		ID:           resp.ID,
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: choice.FinishReason,
		Usage: &model.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
}
