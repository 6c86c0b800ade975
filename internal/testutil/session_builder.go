package testutil

import (
	"context"

	"github.com/hupe1980/agentdemos/core"
)

// SessionBuilder constructs sessions in tests:
//
//	sess := NewSessionBuilder("app", "user", "s1").State("k", "v").Events(ev1, ev2).Build()
type SessionBuilder struct {
	key    core.SessionKey
	state  map[string]any
	events []core.Event
}

// NewSessionBuilder creates a builder for the given session key.
func NewSessionBuilder(appName, userID, sessionID string) *SessionBuilder {
	return &SessionBuilder{
		key:   core.SessionKey{AppName: appName, UserID: userID, SessionID: sessionID},
		state: map[string]any{},
	}
}

// State sets a state entry.
func (b *SessionBuilder) State(key string, val any) *SessionBuilder {
	b.state[key] = val
	return b
}

// Events appends events to the history.
func (b *SessionBuilder) Events(evs ...core.Event) *SessionBuilder {
	b.events = append(b.events, evs...)
	return b
}

// Build returns the session.
func (b *SessionBuilder) Build() *core.Session {
	s := core.NewSession(b.key, b.state)
	for _, ev := range b.events {
		s.AddEvent(ev)
	}
	return s
}

// Seed stores the built session in store: it is created with the builder
// state and every event is appended in order.
func (b *SessionBuilder) Seed(store core.SessionStore) (*core.Session, error) {
	ctx := context.Background()

	if _, err := store.Create(ctx, b.key, b.state); err != nil {
		return nil, err
	}

	for _, ev := range b.events {
		if err := store.AppendEvent(ctx, b.key, ev); err != nil {
			return nil, err
		}
	}

	return store.Get(ctx, b.key)
}
