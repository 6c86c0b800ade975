package core

// Agent is a member of a team tree. Run reads its input from the RunContext
// and reports everything through RunContext.EmitEvent. Implementations stop
// when the context is cancelled and return an error wrapping
// ErrMaxTurnsExceeded when the turn limiter refuses a model call.
type Agent interface {
	Name() string
	Description() string
	Run(runCtx *RunContext) error
	SubAgents() []Agent
	Parent() Agent
	FindAgent(name string) Agent
}

// AgentInfo is the identity of an agent as recorded on contexts.
type AgentInfo struct{ Name, Description string }

// InfoOf returns the AgentInfo of a.
func InfoOf(a Agent) AgentInfo {
	return AgentInfo{Name: a.Name(), Description: a.Description()}
}
