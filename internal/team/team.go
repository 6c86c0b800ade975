// Package team assembles the demo agents: the stateful weather team with its
// greeting and farewell sub agents, and the find-even agent.
package team

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/hupe1980/agentdemos/agent"
	"github.com/hupe1980/agentdemos/internal/tools"
	"github.com/hupe1980/agentdemos/model"
	"github.com/hupe1980/agentdemos/tool"
)

// Agent names.
const (
	GreetingAgentName = "greeting_agent"
	FarewellAgentName = "farewell_agent"
	WeatherAgentName  = "weather_agent_v4_stateful"
	FindEvenAgentName = "Find Even Agent"
)

const (
	greetingInstruction = "You are the Greeting Agent. Your ONLY task is to provide a friendly greeting using the 'say_hello' tool. Do nothing else."
	greetingDescription = "Handles simple greetings and hellos using the 'say_hello' tool."

	farewellInstruction = "You are the Farewell Agent. Your ONLY task is to provide a polite goodbye message using the 'say_goodbye' tool. Do not perform any other actions."
	farewellDescription = "Handles simple farewells and goodbyes using the 'say_goodbye' tool."

	weatherInstruction = "You are the main Weather Agent. Your job is to provide weather using 'get_weather_stateful'. " +
		"The tool will format the temperature based on user preference stored in state. " +
		"Delegate simple greetings to 'greeting_agent' and farewells to 'farewell_agent'. " +
		"Handle only weather requests, greetings, and farewells."
	weatherDescription = "Main agent: Provides weather (state-aware unit), delegates greetings/farewells, saves report to state."

	findEvenInstruction = "Your task is to find an even number"
)

// NewGreetingAgent builds the greeting sub agent.
func NewGreetingAgent(m model.Model) (*agent.ModelAgent, error) {
	return agent.NewModelAgent(GreetingAgentName, m, func(o *agent.ModelAgentOptions) {
		o.Instruction = agent.NewInstruction(greetingInstruction)
		o.Description = greetingDescription
		o.Tools = []tool.Tool{tools.NewSayHelloTool()}
	})
}

// NewFarewellAgent builds the farewell sub agent.
func NewFarewellAgent(m model.Model) (*agent.ModelAgent, error) {
	return agent.NewModelAgent(FarewellAgentName, m, func(o *agent.ModelAgentOptions) {
		o.Instruction = agent.NewInstruction(farewellInstruction)
		o.Description = farewellDescription
		o.Tools = []tool.Tool{tools.NewSayGoodbyeTool()}
	})
}

// NewWeatherAgent builds the stateful root agent. Both sub agents are
// required; the error names every missing one.
func NewWeatherAgent(m model.Model, greeting, farewell *agent.ModelAgent) (*agent.ModelAgent, error) {
	var missing []string
	if greeting == nil {
		missing = append(missing, GreetingAgentName+" definition missing")
	}
	if farewell == nil {
		missing = append(missing, FarewellAgentName+" definition missing")
	}

	if len(missing) > 0 {
		return nil, &PrerequisitesError{Missing: missing}
	}

	root, err := agent.NewModelAgent(WeatherAgentName, m, func(o *agent.ModelAgentOptions) {
		o.Instruction = agent.NewInstruction(weatherInstruction)
		o.Description = weatherDescription
		o.Tools = []tool.Tool{tools.NewGetWeatherStatefulTool()}
		o.OutputKey = tools.StateLastReport
	})
	if err != nil {
		return nil, err
	}

	if err := root.SetSubAgents(greeting, farewell); err != nil {
		return nil, err
	}

	return root, nil
}

// PrerequisitesError reports sub agents the root agent could not be built without.
type PrerequisitesError struct {
	Missing []string
}

func (e *PrerequisitesError) Error() string {
	return "cannot create stateful root agent, prerequisites missing: " + strings.Join(e.Missing, ", ")
}

// Models selects the model of every team member.
type Models struct {
	Greeting model.Model
	Farewell model.Model
	Root     model.Model
}

// Step records the outcome of building one agent.
type Step struct {
	Agent string
	Err   error
}

// WeatherTeam is the assembled stateful weather team.
type WeatherTeam struct {
	Root     *agent.ModelAgent
	Greeting *agent.ModelAgent
	Farewell *agent.ModelAgent
}

// NewWeatherTeam builds the sub agents, then the root. Every attempt is
// reported as a Step so callers can print progress. The returned error is
// non-nil when the root agent could not be built.
func NewWeatherTeam(models Models) (*WeatherTeam, []Step, error) {
	var (
		team  WeatherTeam
		steps []Step
		err   error
	)

	team.Greeting, err = NewGreetingAgent(models.Greeting)
	steps = append(steps, Step{Agent: GreetingAgentName, Err: err})

	team.Farewell, err = NewFarewellAgent(models.Farewell)
	steps = append(steps, Step{Agent: FarewellAgentName, Err: err})

	team.Root, err = NewWeatherAgent(models.Root, team.Greeting, team.Farewell)
	steps = append(steps, Step{Agent: WeatherAgentName, Err: err})
	if err != nil {
		return nil, steps, fmt.Errorf("build weather team: %w", err)
	}

	return &team, steps, nil
}

// NewFindEvenAgent builds the agent that keeps drawing random numbers until
// one is even.
func NewFindEvenAgent(m model.Model, rng *rand.Rand) (*agent.ModelAgent, error) {
	return agent.NewModelAgent(FindEvenAgentName, m, func(o *agent.ModelAgentOptions) {
		o.Instruction = agent.NewInstruction(findEvenInstruction)
		o.Tools = []tool.Tool{tools.NewRandomNumberTool(rng)}
	})
}

// IsPrerequisitesError reports whether err stems from missing sub agents.
func IsPrerequisitesError(err error) bool {
	var target *PrerequisitesError
	return errors.As(err, &target)
}
