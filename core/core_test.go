package core

import (
	"context"
	"sync"
)

// stubStore is a minimal single-session SessionStore for tests.
type stubStore struct {
	mu   sync.Mutex
	sess *Session
}

func newStubStore(key SessionKey, state map[string]any) *stubStore {
	return &stubStore{sess: NewSession(key, state)}
}

func (s *stubStore) Create(_ context.Context, key SessionKey, state map[string]any) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = NewSession(key, state)
	return s.sess.Clone(), nil
}

func (s *stubStore) Get(_ context.Context, key SessionKey) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil || s.sess.Key() != key {
		return nil, ErrSessionNotFound
	}
	return s.sess.Clone(), nil
}

func (s *stubStore) AppendEvent(_ context.Context, _ SessionKey, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess.AddEvent(ev)
	return nil
}

func (s *stubStore) ApplyDelta(_ context.Context, _ SessionKey, delta map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess.ApplyStateDelta(delta)
	return nil
}

func (s *stubStore) Delete(context.Context, SessionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = nil
	return nil
}

func (s *stubStore) List(context.Context, string, string) ([]*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return nil, nil
	}
	return []*Session{s.sess.Clone()}, nil
}

var testKey = SessionKey{AppName: "app", UserID: "user", SessionID: "s1"}

func newRunContextForTest(store SessionStore, emit chan Event, resume chan struct{}) *RunContext {
	var sess *Session
	if store != nil {
		sess, _ = store.Get(context.Background(), testKey)
	}

	return NewRunContext(
		context.Background(),
		testKey,
		"inv-1",
		AgentInfo{Name: "agent"},
		NewTextContent(RoleUser, "hi"),
		emit,
		resume,
		sess,
		store,
		nil,
		nil,
	)
}
