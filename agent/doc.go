// Package agent contains the model driven agent and the hierarchy plumbing
// shared by every agent of a team.
//
// BaseAgent holds identity, the parent link and the sub agents. It enforces
// the single parent rule and resolves names depth first with FindAgent.
//
// ModelAgent runs the request, model, tool loop. Each model call consumes one
// turn of the invocation's TurnLimiter. Tool calls are executed in order and
// answered with one function response event each. When a coordinator has sub
// agents it is offered the transfer_to_agent tool; a transfer continues the
// invocation in the target agent with the same RunContext channels.
//
// Requests are assembled by a fixed chain of processors: instructions
// (rendered with text/template against session state), the transfer section,
// conversation history and tool definitions.
package agent
