package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hupe1980/agentdemos/core"
)

// Compile-time interface compliance.
var _ core.SessionStore = (*RedisStore)(nil)

// RedisStoreOptions configure a RedisStore.
type RedisStoreOptions struct {
	// Prefix namespaces every key written by the store.
	Prefix string
	// TTL expires idle sessions; zero keeps them forever. Every write refreshes it.
	TTL time.Duration
}

// RedisStore is a durable SessionStore backed by Redis. Each session maps to
//
//	<prefix>:session:<app>:<user>:<id>:meta    hash  (id, app, user, created, updated)
//	<prefix>:session:<app>:<user>:<id>:state   hash  (state key -> JSON value)
//	<prefix>:session:<app>:<user>:<id>:events  list  (JSON encoded events)
//
// plus a per user index set <prefix>:index:<app>:<user> of session ids.
//
// State values round trip through JSON, so numbers read back as float64.
type RedisStore struct {
	client redis.UniversalClient
	opts   RedisStoreOptions
}

// NewRedisStore creates a RedisStore using client.
func NewRedisStore(client redis.UniversalClient, optFns ...func(o *RedisStoreOptions)) *RedisStore {
	opts := RedisStoreOptions{Prefix: "agentdemos"}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &RedisStore{client: client, opts: opts}
}

func (s *RedisStore) baseKey(key core.SessionKey) string {
	return fmt.Sprintf("%s:session:%s:%s:%s", s.opts.Prefix, key.AppName, key.UserID, key.SessionID)
}

func (s *RedisStore) metaKey(key core.SessionKey) string   { return s.baseKey(key) + ":meta" }
func (s *RedisStore) stateKey(key core.SessionKey) string  { return s.baseKey(key) + ":state" }
func (s *RedisStore) eventsKey(key core.SessionKey) string { return s.baseKey(key) + ":events" }

func (s *RedisStore) indexKey(appName, userID string) string {
	return fmt.Sprintf("%s:index:%s:%s", s.opts.Prefix, appName, userID)
}

// Create stores a new session seeded with state. An empty SessionID is
// replaced by a generated one.
func (s *RedisStore) Create(ctx context.Context, key core.SessionKey, state map[string]any) (*core.Session, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	if key.SessionID == "" {
		key.SessionID = core.NewID()
	}

	fields, err := encodeState(state)
	if err != nil {
		return nil, err
	}

	// The id field claims the key; everything else is written once the claim holds.
	created, err := s.client.HSetNX(ctx, s.metaKey(key), "id", key.SessionID).Result()
	if err != nil {
		return nil, fmt.Errorf("redis create session: %w", err)
	}

	if !created {
		return nil, fmt.Errorf("%w: %s", core.ErrSessionExists, key)
	}

	sess := core.NewSession(key, state)

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.metaKey(key),
			"app", key.AppName,
			"user", key.UserID,
			"created", sess.Created.Format(time.RFC3339Nano),
			"updated", sess.Updated.Format(time.RFC3339Nano),
		)

		if len(fields) > 0 {
			pipe.HSet(ctx, s.stateKey(key), fields)
		}

		pipe.SAdd(ctx, s.indexKey(key.AppName, key.UserID), key.SessionID)
		s.expire(ctx, pipe, key)

		return nil
	})
	if err != nil {
		// Release the claim so the key is not left half created.
		if delErr := s.client.Del(context.WithoutCancel(ctx), s.metaKey(key)).Err(); delErr != nil {
			err = errors.Join(err, delErr)
		}
		return nil, fmt.Errorf("redis create session: %w", err)
	}

	return sess, nil
}

// Get loads the session with its full state and event history.
func (s *RedisStore) Get(ctx context.Context, key core.SessionKey) (*core.Session, error) {
	var (
		metaCmd   *redis.MapStringStringCmd
		stateCmd  *redis.MapStringStringCmd
		eventsCmd *redis.StringSliceCmd
	)

	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		metaCmd = pipe.HGetAll(ctx, s.metaKey(key))
		stateCmd = pipe.HGetAll(ctx, s.stateKey(key))
		eventsCmd = pipe.LRange(ctx, s.eventsKey(key), 0, -1)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	meta := metaCmd.Val()
	if len(meta) == 0 {
		return nil, notFound(key)
	}

	state, err := decodeState(stateCmd.Val())
	if err != nil {
		return nil, err
	}

	sess := core.NewSession(key, state)

	for _, raw := range eventsCmd.Val() {
		var ev core.Event
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			return nil, fmt.Errorf("decode event of %s: %w", key, err)
		}
		sess.Events = append(sess.Events, ev)
	}

	if t, err := time.Parse(time.RFC3339Nano, meta["created"]); err == nil {
		sess.Created = t
	}
	if t, err := time.Parse(time.RFC3339Nano, meta["updated"]); err == nil {
		sess.Updated = t
	}

	return sess, nil
}

// AppendEvent appends ev to the session's event list.
func (s *RedisStore) AppendEvent(ctx context.Context, key core.SessionKey, ev core.Event) error {
	if err := s.mustExist(ctx, key); err != nil {
		return err
	}

	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, s.eventsKey(key), raw)
		pipe.HSet(ctx, s.metaKey(key), "updated", time.Now().UTC().Format(time.RFC3339Nano))
		s.expire(ctx, pipe, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis append event: %w", err)
	}

	return nil
}

// ApplyDelta merges delta into the session state hash.
func (s *RedisStore) ApplyDelta(ctx context.Context, key core.SessionKey, delta map[string]any) error {
	if err := s.mustExist(ctx, key); err != nil {
		return err
	}

	if len(delta) == 0 {
		return nil
	}

	fields, err := encodeState(delta)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.stateKey(key), fields)
		pipe.HSet(ctx, s.metaKey(key), "updated", time.Now().UTC().Format(time.RFC3339Nano))
		s.expire(ctx, pipe, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis apply delta: %w", err)
	}

	return nil
}

// Delete removes the session and its index entry.
func (s *RedisStore) Delete(ctx context.Context, key core.SessionKey) error {
	if err := s.mustExist(ctx, key); err != nil {
		return err
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.metaKey(key), s.stateKey(key), s.eventsKey(key))
		pipe.SRem(ctx, s.indexKey(key.AppName, key.UserID), key.SessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}

	return nil
}

// List returns all live sessions of a user ordered by session id. Index
// entries of expired sessions are pruned on the way.
func (s *RedisStore) List(ctx context.Context, appName, userID string) ([]*core.Session, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey(appName, userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list sessions: %w", err)
	}

	slices.Sort(ids)

	out := make([]*core.Session, 0, len(ids))

	for _, id := range ids {
		key := core.SessionKey{AppName: appName, UserID: userID, SessionID: id}

		sess, err := s.Get(ctx, key)
		if err != nil {
			if errors.Is(err, core.ErrSessionNotFound) {
				_ = s.client.SRem(ctx, s.indexKey(appName, userID), id).Err()
				continue
			}
			return nil, err
		}

		out = append(out, sess)
	}

	return out, nil
}

func (s *RedisStore) mustExist(ctx context.Context, key core.SessionKey) error {
	n, err := s.client.Exists(ctx, s.metaKey(key)).Result()
	if err != nil {
		return fmt.Errorf("redis exists: %w", err)
	}

	if n == 0 {
		return notFound(key)
	}

	return nil
}

func (s *RedisStore) expire(ctx context.Context, pipe redis.Pipeliner, key core.SessionKey) {
	if s.opts.TTL <= 0 {
		return
	}

	pipe.Expire(ctx, s.metaKey(key), s.opts.TTL)
	pipe.Expire(ctx, s.stateKey(key), s.opts.TTL)
	pipe.Expire(ctx, s.eventsKey(key), s.opts.TTL)
}

func encodeState(state map[string]any) (map[string]any, error) {
	fields := make(map[string]any, len(state))

	for k, v := range state {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode state %q: %w", k, err)
		}
		fields[k] = string(raw)
	}

	return fields, nil
}

func decodeState(fields map[string]string) (map[string]any, error) {
	state := make(map[string]any, len(fields))

	for k, raw := range fields {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("decode state %q: %w", k, err)
		}
		state[k] = v
	}

	return state, nil
}
