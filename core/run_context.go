package core

import (
	"context"
	"fmt"
	"maps"

	"github.com/hupe1980/agentdemos/logging"
)

// RunContext is the per-invocation scope an agent runs in: identifiers, the
// user message, the emit/resume handshake with the runner, the session
// snapshot and the turn limiter.
//
// SetState only stages values in StateDelta. EmitEvent moves the staged delta
// onto the next event; the runner persists it, signals Resume and the
// snapshot is reloaded. Log* calls carry the invocation id.
type RunContext struct {
	Context      context.Context
	Key          SessionKey
	InvocationID string
	Agent        AgentInfo
	UserContent  Content
	Emit         chan<- Event
	Resume       <-chan struct{}
	SessionStore SessionStore
	Session      *Session
	Limiter      *TurnLimiter
	StateDelta   map[string]any

	contextLogging
}

// NewRunContext constructs a RunContext with an empty state delta.
func NewRunContext(
	ctx context.Context,
	key SessionKey,
	invocationID string,
	agent AgentInfo,
	userContent Content,
	emit chan<- Event,
	resume <-chan struct{},
	sess *Session,
	sessionStore SessionStore,
	limiter *TurnLimiter,
	logger logging.Logger,
) *RunContext {
	if limiter == nil {
		limiter = NewTurnLimiter(0)
	}

	return &RunContext{
		Context:        ctx,
		Key:            key,
		InvocationID:   invocationID,
		Agent:          agent,
		UserContent:    userContent,
		Emit:           emit,
		Resume:         resume,
		Session:        sess,
		SessionStore:   sessionStore,
		Limiter:        limiter,
		StateDelta:     map[string]any{},
		contextLogging: contextLogging{log: withAttrs(logger, "invocation", invocationID)},
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// GetState returns a staged (delta) value if present, else the persisted session value.
func (rc *RunContext) GetState(k string) (any, bool) {
	if v, ok := rc.StateDelta[k]; ok {
		return v, true
	}

	if rc.Session != nil {
		return rc.Session.GetState(k)
	}

	return nil, false
}

// SetState stages a state mutation in the in-memory delta buffer.
func (rc *RunContext) SetState(k string, v any) { rc.StateDelta[k] = v }

// GetAgentName returns the logical agent name for this invocation.
func (rc *RunContext) GetAgentName() string { return rc.Agent.Name }

// GetSessionHistory returns conversation relevant events of the session snapshot.
func (rc *RunContext) GetSessionHistory() []Event {
	if rc.Session == nil {
		return []Event{}
	}

	return rc.Session.GetConversationHistory()
}

// WithAgent derives a context for another agent of the same invocation. The
// channels, store, session snapshot and limiter are shared; the delta is not.
func (rc *RunContext) WithAgent(info AgentInfo) *RunContext {
	return &RunContext{
		Context:        rc.Context,
		Key:            rc.Key,
		InvocationID:   rc.InvocationID,
		Agent:          info,
		UserContent:    rc.UserContent,
		Emit:           rc.Emit,
		Resume:         rc.Resume,
		SessionStore:   rc.SessionStore,
		Session:        rc.Session,
		Limiter:        rc.Limiter,
		StateDelta:     map[string]any{},
		contextLogging: rc.contextLogging,
	}
}

// RefreshSession reloads the session snapshot from the SessionStore.
func (rc *RunContext) RefreshSession() error {
	if rc.SessionStore == nil {
		return fmt.Errorf("session store not configured")
	}

	s, err := rc.SessionStore.Get(rc.Context, rc.Key)
	if err != nil {
		return err
	}

	rc.Session = s

	return nil
}

// EmitEvent emits ev. Partial events are sent as is. Complete events carry
// the pending StateDelta; EmitEvent then waits for the runner to persist the
// event and refreshes the session snapshot so later reads observe the
// committed state.
func (rc *RunContext) EmitEvent(ev Event) error {
	if ev.Partial {
		select {
		case <-rc.Context.Done():
			return rc.Context.Err()
		case rc.Emit <- ev:
			return nil
		}
	}

	if len(rc.StateDelta) > 0 {
		if ev.Actions.StateDelta == nil {
			ev.Actions.StateDelta = map[string]any{}
		}
		maps.Copy(ev.Actions.StateDelta, rc.StateDelta)
	}

	select {
	case <-rc.Context.Done():
		return rc.Context.Err()
	case rc.Emit <- ev:
	}

	rc.StateDelta = map[string]any{}

	if err := rc.WaitForResume(); err != nil {
		return err
	}

	if rc.SessionStore == nil {
		return nil
	}

	return rc.RefreshSession()
}

// WaitForResume blocks until Resume signals or context cancellation.
func (rc *RunContext) WaitForResume() error {
	if rc.Resume == nil {
		return nil
	}

	select {
	case <-rc.Resume:
		return nil
	case <-rc.Context.Done():
		return rc.Context.Err()
	}
}
