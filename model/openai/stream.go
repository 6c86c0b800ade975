package openai

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/openai/openai-go"

	"github.com/hupe1980/agentdemos/core"
	"github.com/hupe1980/agentdemos/model"
)

// toolCallBuffer joins tool call deltas by their stream index.
type toolCallBuffer map[int64]*core.FunctionCall

func (b toolCallBuffer) add(delta openai.ChatCompletionChunkChoiceDeltaToolCall) {
	fc, ok := b[delta.Index]
	if !ok {
		fc = &core.FunctionCall{}
		b[delta.Index] = fc
	}

	if delta.ID != "" {
		fc.ID = delta.ID
	}
	if delta.Function.Name != "" {
		fc.Name = delta.Function.Name
	}
	fc.Arguments += delta.Function.Arguments
}

// response builds the final, non-partial response from the accumulated text
// and the buffered calls in index order.
func (b toolCallBuffer) response(id, finishReason, text string) model.Response {
	parts := make([]core.Part, 0, len(b)+1)
	if text != "" {
		parts = append(parts, core.TextPart{Text: text})
	}

	for _, idx := range slices.Sorted(maps.Keys(b)) {
		parts = append(parts, core.FunctionCallPart{FunctionCall: *b[idx]})
	}

	return model.Response{
		ID:           id,
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: finishReason,
	}
}

// stream forwards text deltas as partial responses and sends one final
// response once a choice reports its finish reason.
func (m *Model) stream(ctx context.Context, params openai.ChatCompletionNewParams, out chan<- model.Response) error {
	s := m.client.Chat.Completions.NewStreaming(ctx, params)
	defer s.Close()

	var text strings.Builder
	calls := toolCallBuffer{}

	for s.Next() {
		chunk := s.Current()

		for _, choice := range chunk.Choices {
			if d := choice.Delta.Content; d != "" {
				text.WriteString(d)

				partial := model.Response{ID: chunk.ID, Partial: true, Content: core.NewTextContent(core.RoleAssistant, d)}
				if err := send(ctx, out, partial); err != nil {
					return err
				}
			}

			for _, tc := range choice.Delta.ToolCalls {
				calls.add(tc)
			}

			if choice.FinishReason != "" {
				if err := send(ctx, out, calls.response(chunk.ID, choice.FinishReason, text.String())); err != nil {
					return err
				}
			}
		}
	}

	if err := s.Err(); err != nil {
		return fmt.Errorf("openai: stream: %w", err)
	}

	return nil
}
