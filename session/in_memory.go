package session

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/hupe1980/agentdemos/core"
)

// Compile-time interface compliance.
var _ core.SessionStore = (*InMemoryStore)(nil)

// InMemoryStore is a volatile SessionStore implementation storing sessions
// in process local maps keyed app → user → session. It is safe for
// concurrent access and best suited for tests or demos. Each returned session
// is cloned to prevent external mutation of internal state.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]map[string]map[string]*core.Session
}

// NewInMemoryStore constructs an empty in‑memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]map[string]map[string]*core.Session)}
}

// Create stores a new session seeded with a copy of state. An empty
// SessionID is replaced by a generated one.
func (s *InMemoryStore) Create(_ context.Context, key core.SessionKey, state map[string]any) (*core.Session, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	if key.SessionID == "" {
		key.SessionID = core.NewID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookupLocked(key); ok {
		return nil, fmt.Errorf("%w: %s", core.ErrSessionExists, key)
	}

	users, ok := s.sessions[key.AppName]
	if !ok {
		users = make(map[string]map[string]*core.Session)
		s.sessions[key.AppName] = users
	}

	byID, ok := users[key.UserID]
	if !ok {
		byID = make(map[string]*core.Session)
		users[key.UserID] = byID
	}

	sess := core.NewSession(key, state)
	byID[key.SessionID] = sess

	return sess.Clone(), nil
}

// Get returns a clone of an existing session.
func (s *InMemoryStore) Get(_ context.Context, key core.SessionKey) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.lookupLocked(key)
	if !ok {
		return nil, notFound(key)
	}

	return sess.Clone(), nil
}

// AppendEvent adds an event to an existing session.
func (s *InMemoryStore) AppendEvent(_ context.Context, key core.SessionKey, ev core.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.lookupLocked(key)
	if !ok {
		return notFound(key)
	}

	sess.AddEvent(ev)

	return nil
}

// ApplyDelta merges a key/value delta into the session state.
func (s *InMemoryStore) ApplyDelta(_ context.Context, key core.SessionKey, delta map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.lookupLocked(key)
	if !ok {
		return notFound(key)
	}

	if len(delta) > 0 {
		sess.ApplyStateDelta(delta)
	}

	return nil
}

// Delete removes a session.
func (s *InMemoryStore) Delete(_ context.Context, key core.SessionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookupLocked(key); !ok {
		return notFound(key)
	}

	delete(s.sessions[key.AppName][key.UserID], key.SessionID)

	return nil
}

// List returns clones of all sessions of a user ordered by session id.
func (s *InMemoryStore) List(_ context.Context, appName, userID string) ([]*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := s.sessions[appName][userID]

	out := make([]*core.Session, 0, len(byID))
	for _, sess := range byID {
		out = append(out, sess.Clone())
	}

	slices.SortFunc(out, func(a, b *core.Session) int { return strings.Compare(a.ID, b.ID) })

	return out, nil
}

// Storage returns the stored session itself rather than a clone. Mutations
// through it bypass the event history and are meant for tests and demos that
// need to change state outside of an agent run.
func (s *InMemoryStore) Storage(key core.SessionKey) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.lookupLocked(key)
	if !ok {
		return nil, notFound(key)
	}

	return sess, nil
}

func (s *InMemoryStore) lookupLocked(key core.SessionKey) (*core.Session, bool) {
	sess, ok := s.sessions[key.AppName][key.UserID][key.SessionID]
	return sess, ok
}

func notFound(key core.SessionKey) error {
	return fmt.Errorf("%w: %s", core.ErrSessionNotFound, key)
}
