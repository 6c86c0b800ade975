package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentdemos/core"
	"github.com/hupe1980/agentdemos/logging"
	"github.com/hupe1980/agentdemos/session"
)

// Final response fallbacks used by Summarize.
const (
	NoFinalResponse  = "Agent did not produce a final response."
	NoEscalationText = "No specific message."
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// SessionStore persists sessions; defaults to an in-memory store.
	SessionStore core.SessionStore
	// Logger receives runner and agent logs.
	Logger logging.Logger
	// MaxTurns limits model calls per invocation; 0 means unlimited.
	MaxTurns int
	// EventBufferSize sets channel buffering for events.
	EventBufferSize int
}

// Runner coordinates agent execution: it loads the session, records the user
// message, runs the root agent, applies state deltas, persists history and
// streams events to the caller. Public methods are safe for concurrent use.
type Runner struct {
	appName string
	agent   core.Agent

	sessionStore    core.SessionStore
	logger          logging.Logger
	maxTurns        int
	eventBufferSize int

	activeRuns map[string]context.CancelFunc
	mu         sync.Mutex
}

// New constructs a Runner for appName with optional overrides.
func New(appName string, agent core.Agent, optFns ...func(o *Options)) *Runner {
	opts := Options{
		EventBufferSize: 100,
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.SessionStore == nil {
		opts.SessionStore = session.NewInMemoryStore()
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Runner{
		appName:         appName,
		agent:           agent,
		sessionStore:    opts.SessionStore,
		logger:          opts.Logger,
		maxTurns:        opts.MaxTurns,
		eventBufferSize: opts.EventBufferSize,
		activeRuns:      make(map[string]context.CancelFunc),
	}
}

// AppName returns the application the runner scopes sessions to.
func (r *Runner) AppName() string { return r.appName }

// Agent returns the root agent.
func (r *Runner) Agent() core.Agent { return r.agent }

// SessionStore returns the store sessions are persisted in.
func (r *Runner) SessionStore() core.SessionStore { return r.sessionStore }

// Run starts an asynchronous invocation of the root agent for a user message.
//
// Events are delivered on the returned event channel; the error channel yields
// at most one error and both channels are closed when the invocation ends.
// The session must exist, otherwise an error wrapping core.ErrSessionNotFound
// is returned.
func (r *Runner) Run(
	ctx context.Context,
	userID, sessionID string,
	userContent core.Content,
) (string, <-chan core.Event, <-chan error, error) {
	key := core.SessionKey{AppName: r.appName, UserID: userID, SessionID: sessionID}

	sess, err := r.sessionStore.Get(ctx, key)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to get session: %w", err)
	}

	invocationID := core.NewID()

	userEvent := core.NewUserContentEvent(invocationID, userContent)
	if err := r.sessionStore.AppendEvent(ctx, key, userEvent); err != nil {
		return "", nil, nil, fmt.Errorf("failed to append user event: %w", err)
	}

	sess.AddEvent(userEvent)

	ctx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	r.activeRuns[invocationID] = cancel
	r.mu.Unlock()

	eventsCh := make(chan core.Event, r.eventBufferSize)
	errorsCh := make(chan error, 1)
	agentEmit := make(chan core.Event, r.eventBufferSize)
	resumeCh := make(chan struct{}, 1)

	g, gctx := errgroup.WithContext(ctx)

	runCtx := core.NewRunContext(
		gctx,
		key,
		invocationID,
		core.InfoOf(r.agent),
		*userEvent.Content,
		agentEmit,
		resumeCh,
		sess,
		r.sessionStore,
		core.NewTurnLimiter(r.maxTurns),
		r.logger,
	)

	r.logger.Info("runner.invocation.start", "invocation", invocationID, "session", key.String(), "agent", r.agent.Name())

	g.Go(func() error {
		defer close(agentEmit)

		if err := r.agent.Run(runCtx); err != nil {
			return fmt.Errorf("agent execution failed: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		return r.processEvents(gctx, key, agentEmit, resumeCh, eventsCh)
	})

	go func() {
		defer func() {
			cancel()
			r.mu.Lock()
			delete(r.activeRuns, invocationID)
			r.mu.Unlock()
		}()

		err := g.Wait()
		if err != nil {
			r.logger.Error("runner.invocation.error", "invocation", invocationID, "error", err.Error())
			errorsCh <- err
		} else {
			r.logger.Info("runner.invocation.complete", "invocation", invocationID, "turns", runCtx.Limiter.Count())
		}

		close(eventsCh)
		close(errorsCh)
	}()

	return invocationID, eventsCh, errorsCh, nil
}

// RunSync runs an invocation to completion and returns every event it
// produced. Events collected before a failure are returned with the error.
func (r *Runner) RunSync(ctx context.Context, userID, sessionID string, userContent core.Content) ([]core.Event, error) {
	_, eventsCh, errorsCh, err := r.Run(ctx, userID, sessionID, userContent)
	if err != nil {
		return nil, err
	}

	var events []core.Event
	for ev := range eventsCh {
		events = append(events, ev)
	}

	return events, <-errorsCh
}

// Cancel cancels a running invocation by ID.
func (r *Runner) Cancel(invocationID string) error {
	r.mu.Lock()
	cancel, exists := r.activeRuns[invocationID]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("invocation %s not found", invocationID)
	}

	cancel()

	return nil
}

// processEvents persists complete events (state delta first, then the event
// itself), forwards every event to the caller and resumes the agent.
func (r *Runner) processEvents(
	ctx context.Context,
	key core.SessionKey,
	agentEmit <-chan core.Event,
	resumeCh chan<- struct{},
	eventsCh chan<- core.Event,
) error {
	for ev := range agentEmit {
		if !ev.Partial {
			if len(ev.Actions.StateDelta) > 0 {
				if err := r.sessionStore.ApplyDelta(ctx, key, ev.Actions.StateDelta); err != nil {
					return fmt.Errorf("failed to apply state delta: %w", err)
				}
				r.logger.Debug("runner.event.apply", "event_id", ev.ID, "keys", len(ev.Actions.StateDelta))
			}

			if err := r.sessionStore.AppendEvent(ctx, key, ev); err != nil {
				return fmt.Errorf("failed to append event to session: %w", err)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case eventsCh <- ev:
			r.logger.Debug("runner.event.delivered", "event_id", ev.ID, "author", ev.Author, "partial", ev.Partial)
		}

		if !ev.Partial {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case resumeCh <- struct{}{}:
			}
		}
	}

	return nil
}

// Result summarizes an invocation.
type Result struct {
	// FinalOutput is the text of the first final response, an escalation
	// notice or NoFinalResponse.
	FinalOutput string
	// LastAgent authored the final response.
	LastAgent  string
	ModelTurns int
	ToolCalls  int
	Escalated  bool
	Events     []core.Event
}

func (r Result) String() string {
	return fmt.Sprintf("%s (agent: %s, model turns: %d, tool calls: %d)", r.FinalOutput, r.LastAgent, r.ModelTurns, r.ToolCalls)
}

// Summarize extracts the final response of an invocation from its events.
// Model turns are counted as complete assistant events.
func Summarize(events []core.Event) Result {
	res := Result{FinalOutput: NoFinalResponse, Events: events}

	found := false

	for _, ev := range events {
		if ev.Partial {
			continue
		}

		if ev.Content != nil && ev.Content.Role == core.RoleAssistant {
			res.ModelTurns++
			res.ToolCalls += len(ev.GetFunctionCalls())
		}

		if found || !ev.IsFinalResponse() {
			continue
		}

		found = true
		res.LastAgent = ev.Author

		switch {
		case ev.Text() != "":
			res.FinalOutput = ev.Text()
		case ev.Actions.Escalate:
			res.Escalated = true
			msg := ev.ErrorMessage
			if msg == "" {
				msg = NoEscalationText
			}
			res.FinalOutput = "Agent escalated: " + msg
		}
	}

	return res
}

// IsMaxTurns reports whether err ended an invocation at the turn limit.
func IsMaxTurns(err error) bool { return errors.Is(err, core.ErrMaxTurnsExceeded) }
