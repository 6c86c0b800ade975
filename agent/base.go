package agent

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/hupe1980/agentdemos/core"
)

// BaseAgent holds an agent's name, description and place in the team tree.
// Concrete agents embed it, call bind with themselves and add Run.
type BaseAgent struct {
	name        string
	description string
	self        core.Agent

	mu        sync.Mutex
	parent    core.Agent
	subAgents []core.Agent
}

// NewBaseAgent returns a BaseAgent described as "Agent <name>" until
// SetDescription is called.
func NewBaseAgent(name string) BaseAgent {
	return BaseAgent{
		name:        name,
		description: fmt.Sprintf("Agent %s", name),
	}
}

// bind makes tree lookups return the embedding agent.
func (b *BaseAgent) bind(self core.Agent) { b.self = self }

func (b *BaseAgent) Name() string        { return b.name }
func (b *BaseAgent) Description() string { return b.description }

// SetDescription replaces the description a coordinator sees when choosing
// whom to transfer to.
func (b *BaseAgent) SetDescription(desc string) { b.description = desc }

// SetSubAgents replaces the child set and assigns this agent as parent of each
// child. A child that already belongs to another agent, the agent itself, one
// of its ancestors and duplicate names are rejected; on error nothing changes.
func (b *BaseAgent) SetSubAgents(children ...core.Agent) error {
	ancestors := map[core.Agent]bool{}
	for p := b.Parent(); p != nil; p = p.Parent() {
		ancestors[p] = true
	}

	seen := map[string]bool{}

	for _, child := range children {
		if child == nil {
			return errors.New("sub agent must not be nil")
		}

		if child == b.self || child.Name() == b.name {
			return fmt.Errorf("agent %q cannot be its own sub agent", b.name)
		}

		if ancestors[child] {
			return fmt.Errorf("agent %q is an ancestor of %q", child.Name(), b.name)
		}

		if seen[child.Name()] {
			return fmt.Errorf("duplicate sub agent name %q", child.Name())
		}
		seen[child.Name()] = true

		if _, ok := child.(parentSetter); !ok {
			return fmt.Errorf("sub agent %q does not embed BaseAgent", child.Name())
		}

		if p := child.Parent(); p != nil && p != b.self {
			return fmt.Errorf("sub agent %q already has parent %q", child.Name(), p.Name())
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, child := range b.subAgents {
		child.(parentSetter).setParent(nil)
	}

	b.subAgents = make([]core.Agent, 0, len(children))

	for _, child := range children {
		child.(parentSetter).setParent(b.self)
		b.subAgents = append(b.subAgents, child)
	}

	return nil
}

type parentSetter interface {
	setParent(core.Agent)
}

func (b *BaseAgent) setParent(p core.Agent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.parent = p
}

// Parent is nil for the root.
func (b *BaseAgent) Parent() core.Agent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.parent
}

// SubAgents returns a copy of the children.
func (b *BaseAgent) SubAgents() []core.Agent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.subAgents)
}

// FindAgent searches this agent and its subtree depth first.
func (b *BaseAgent) FindAgent(name string) core.Agent {
	if b.name == name {
		return b.self
	}

	for _, child := range b.SubAgents() {
		if found := child.FindAgent(name); found != nil {
			return found
		}
	}

	return nil
}

// Root walks up the parent chain and returns the top of the tree.
func Root(a core.Agent) core.Agent {
	for a.Parent() != nil {
		a = a.Parent()
	}
	return a
}
