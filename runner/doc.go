// Package runner implements the orchestration layer that connects a root
// agent with a session store.
//
// # Responsibilities
//   - Load the session and record the user message before the agent runs
//   - Run the root agent and the event pump under one errgroup
//   - Apply state deltas and persist complete events before resuming the agent
//   - Stream events to the caller and cancel invocations on request
//
// Every invocation starts at the root agent; sub agents only take over through
// a transfer within the invocation. Summarize reduces the event stream to the
// final response text printed by the demos.
package runner
