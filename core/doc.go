// Package core provides the domain types, interfaces and execution contexts
// shared by the agent demos. It defines the abstractions for:
//
//   - Agents (named units of work arranged in a delegation tree)
//   - Sessions (stateful conversational containers with event history)
//   - Events (immutable communication + orchestration records)
//   - RunContext / ToolContext (scoped execution & tool sandboxing)
//   - The SessionStore interface implemented by package session
//
// Implementation concerns (persistence, concrete agents, model providers) live
// in sibling packages and only depend on the small interfaces defined here.
package core
