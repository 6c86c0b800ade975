package model

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/hupe1980/agentdemos/core"
)

// ErrScriptExhausted is returned by ScriptedModel once every queued response was consumed.
var ErrScriptExhausted = errors.New("model: script exhausted")

// TextResponse builds a final assistant response carrying text.
func TextResponse(text string) Response {
	return Response{
		Content:      core.NewTextContent(core.RoleAssistant, text),
		FinishReason: FinishStop,
	}
}

// CallResponse builds a final assistant response requesting a single function
// call. args is JSON encoded; encoding failures yield an empty argument object.
func CallResponse(id, name string, args map[string]any) Response {
	raw, err := json.Marshal(args)
	if err != nil || args == nil {
		raw = []byte("{}")
	}

	return Response{
		Content: core.Content{
			Role: core.RoleAssistant,
			Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{
				ID:        id,
				Name:      name,
				Arguments: string(raw),
			}}},
		},
		FinishReason: FinishToolCalls,
	}
}

// ScriptedModel replays a fixed queue of responses, one per Generate call, and
// records every request it receives.
type ScriptedModel struct {
	info      Info
	mu        sync.Mutex
	responses []Response
	requests  []Request
}

// NewScriptedModel constructs a ScriptedModel replaying responses in order.
func NewScriptedModel(name string, responses ...Response) *ScriptedModel {
	return &ScriptedModel{
		info:      Info{Name: name, Provider: "scripted", SupportsTools: true},
		responses: responses,
	}
}

// Enqueue appends further responses to the script.
func (m *ScriptedModel) Enqueue(responses ...Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, responses...)
}

// Requests returns a copy of the requests seen so far.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Remaining returns the number of responses not yet consumed.
func (m *ScriptedModel) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.responses)
}

// Generate implements Model.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)

	var (
		next Response
		ok   bool
	)
	if len(m.responses) > 0 {
		next, m.responses, ok = m.responses[0], m.responses[1:], true
	}
	m.mu.Unlock()

	if !ok {
		return replay(ctx, nil, ErrScriptExhausted, req.Stream)
	}

	return replay(ctx, &next, nil, req.Stream)
}

// Info implements Model.
func (m *ScriptedModel) Info() Info { return m.info }

// FuncModel adapts a function deciding the next response from the request.
type FuncModel struct {
	info Info
	fn   func(ctx context.Context, req Request) (Response, error)
}

// NewFuncModel constructs a FuncModel.
func NewFuncModel(name string, fn func(ctx context.Context, req Request) (Response, error)) *FuncModel {
	return &FuncModel{
		info: Info{Name: name, Provider: "func", SupportsTools: true},
		fn:   fn,
	}
}

// Generate implements Model.
func (m *FuncModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	resp, err := m.fn(ctx, req)
	if err != nil {
		return replay(ctx, nil, err, req.Stream)
	}

	return replay(ctx, &resp, nil, req.Stream)
}

// Info implements Model.
func (m *FuncModel) Info() Info { return m.info }

// replay delivers a single final response (or error) on fresh channels. For
// streaming requests text is first emitted as word sized partial chunks.
func replay(ctx context.Context, resp *Response, err error, stream bool) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		if err != nil {
			errCh <- err
			return
		}

		if stream {
			for _, chunk := range chunks(resp.Content.Text()) {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{
					ID:      resp.ID,
					Partial: true,
					Content: core.NewTextContent(core.RoleAssistant, chunk),
				}:
				}
			}
		}

		final := *resp
		final.Partial = false
		if final.Content.Role == "" {
			final.Content.Role = core.RoleAssistant
		}

		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- final:
		}
	}()

	return respCh, errCh
}

// chunks splits text after each space keeping separators.
func chunks(text string) []string {
	var (
		out   []string
		start int
	)
	for i, r := range text {
		if r == ' ' {
			out = append(out, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}
