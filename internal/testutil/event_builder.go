package testutil

import (
	"github.com/hupe1980/agentdemos/core"
)

// EventBuilder constructs events in tests:
//
//	ev := NewEventBuilder().Author("weather").Invocation("inv-1").AssistantText("hello").Build()
//
// Chain only the parts you need.
type EventBuilder struct {
	author        string
	invocationID  string
	id            string
	role          string
	textParts     []string
	funcCalls     []core.FunctionCall
	funcResponses []core.FunctionResponse
	partial       bool
	turnComplete  bool
	errorMessage  string
	actions       core.EventActions
}

// NewEventBuilder creates a builder with default author "agent".
func NewEventBuilder() *EventBuilder { return &EventBuilder{author: "agent"} }

// Author sets the author of the event.
func (b *EventBuilder) Author(a string) *EventBuilder {
	b.author = a
	return b
}

// Invocation sets the invocation id.
func (b *EventBuilder) Invocation(id string) *EventBuilder {
	b.invocationID = id
	return b
}

// ID overrides the generated event id.
func (b *EventBuilder) ID(id string) *EventBuilder {
	b.id = id
	return b
}

// Partial marks the event as a streaming chunk.
func (b *EventBuilder) Partial() *EventBuilder {
	b.partial = true
	return b
}

// TurnComplete marks the end of a model turn.
func (b *EventBuilder) TurnComplete() *EventBuilder {
	b.turnComplete = true
	return b
}

// UserText appends a text part and sets the role to user.
func (b *EventBuilder) UserText(t string) *EventBuilder {
	b.role = core.RoleUser
	b.textParts = append(b.textParts, t)
	return b
}

// AssistantText appends a text part and sets the role to assistant.
func (b *EventBuilder) AssistantText(t string) *EventBuilder {
	b.role = core.RoleAssistant
	b.textParts = append(b.textParts, t)
	return b
}

// FunctionCall adds a function call with JSON encoded arguments.
func (b *EventBuilder) FunctionCall(id, name, args string) *EventBuilder {
	b.role = core.RoleAssistant
	b.funcCalls = append(b.funcCalls, core.FunctionCall{ID: id, Name: name, Arguments: args})
	return b
}

// FunctionResponse adds a tool result and sets the role to tool.
func (b *EventBuilder) FunctionResponse(id, name string, result any, err error) *EventBuilder {
	fr := core.FunctionResponse{ID: id, Name: name, Response: result}
	if err != nil {
		fr.Error = err.Error()
	}

	b.role = core.RoleTool
	b.funcResponses = append(b.funcResponses, fr)

	return b
}

// State stages a state change on the event.
func (b *EventBuilder) State(key string, value any) *EventBuilder {
	if b.actions.StateDelta == nil {
		b.actions.StateDelta = make(map[string]any)
	}
	b.actions.StateDelta[key] = value
	return b
}

// Escalate sets the escalate action with an optional message.
func (b *EventBuilder) Escalate(msg string) *EventBuilder {
	b.actions.Escalate = true
	b.errorMessage = msg
	return b
}

// Transfer requests a transfer to the named agent.
func (b *EventBuilder) Transfer(to string) *EventBuilder {
	b.actions.TransferToAgent = to
	return b
}

// Build returns the event.
func (b *EventBuilder) Build() core.Event {
	ev := core.NewEvent(b.invocationID, b.author)
	if b.id != "" {
		ev.ID = b.id
	}

	ev.Partial = b.partial
	ev.TurnComplete = b.turnComplete
	ev.ErrorMessage = b.errorMessage
	ev.Actions = b.actions

	parts := make([]core.Part, 0, len(b.textParts)+len(b.funcCalls)+len(b.funcResponses))
	for _, t := range b.textParts {
		parts = append(parts, core.TextPart{Text: t})
	}
	for _, fc := range b.funcCalls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: fc})
	}
	for _, fr := range b.funcResponses {
		parts = append(parts, core.FunctionResponsePart{FunctionResponse: fr})
	}

	if len(parts) > 0 {
		role := b.role
		if role == "" {
			role = core.RoleAssistant
		}
		ev.Content = &core.Content{Role: role, Parts: parts}
	}

	return ev
}
