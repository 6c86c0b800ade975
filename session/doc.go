// Package session houses concrete implementations of core.SessionStore.
// The interface itself (and the Session struct) live in the core package so
// agents and the runner never depend on concrete storage.
//
// Two backends are provided: InMemoryStore for tests and single process demos,
// and RedisStore for sessions that outlive the process. Only the wiring layer
// (see internal/config) decides which one to instantiate.
package session
