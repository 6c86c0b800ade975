// Command weatherteam plays a stateful conversation with the weather agent
// team: a root weather agent that delegates greetings and farewells to two
// sub agents and keeps the temperature unit and its last report in session
// state.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hupe1980/agentdemos/internal/config"
	"github.com/hupe1980/agentdemos/internal/console"
	"github.com/hupe1980/agentdemos/internal/scenario"
	"github.com/hupe1980/agentdemos/internal/team"
	"github.com/hupe1980/agentdemos/runner"
)

func main() {
	envFile := flag.String("env", ".env", "path to a .env file, a missing file is ignored")
	scenarioPath := flag.String("scenario", "", "scenario YAML file (default: built-in weather conversation)")
	offline := flag.Bool("offline", false, "use the offline model instead of MODEL_GEMINI_2_0_FLASH")
	maxTurns := flag.Int("max-turns", 0, "model calls allowed per query (default: MAX_TURNS)")
	flag.Parse()

	if err := run(*envFile, *scenarioPath, *offline, *maxTurns); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(envFile, scenarioPath string, offline bool, maxTurns int) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	if maxTurns > 0 {
		cfg.MaxTurns = maxTurns
	}

	logger := cfg.NewLogger(os.Stderr)
	p := console.New(os.Stdout)

	modelID := cfg.GeminiModel
	if offline {
		modelID = team.OfflineModelName
	}

	m, err := cfg.NewModel(modelID)
	if err != nil {
		return err
	}

	p.Success("State-aware 'get_weather_stateful' tool defined.")

	wt, steps, err := team.NewWeatherTeam(team.Models{Greeting: m, Farewell: m, Root: m})
	printSteps(p, steps, m.Info().Name)

	if err != nil {
		return err
	}

	store, closeStore, err := cfg.NewSessionStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	p.Success("New %s session store created for state demonstration.", cfg.SessionBackend)

	sc, err := loadScenario(scenarioPath)
	if err != nil {
		return err
	}

	r := runner.New(sc.App, wt.Root, func(o *runner.Options) {
		o.SessionStore = store
		o.Logger = logger
		o.MaxTurns = cfg.MaxTurns
	})

	p.Success("Runner created for stateful root agent '%s' using stateful session service.", r.Agent().Name())

	return sc.Play(ctx, r, p)
}

func loadScenario(path string) (*scenario.Scenario, error) {
	if path == "" {
		return scenario.Default()
	}
	return scenario.Load(path)
}

var displayNames = map[string]string{
	team.GreetingAgentName: "Greeting",
	team.FarewellAgentName: "Farewell",
}

func printSteps(p *console.Printer, steps []team.Step, modelName string) {
	for _, s := range steps {
		if s.Agent == team.WeatherAgentName {
			printRootStep(p, s, modelName)
			continue
		}

		if s.Err != nil {
			p.Failure("Could not redefine %s agent. Error: %v", displayNames[s.Agent], s.Err)
			continue
		}

		p.Success("Agent '%s' redefined.", s.Agent)
	}
}

func printRootStep(p *console.Printer, s team.Step, modelName string) {
	if s.Err == nil {
		p.Success("Root agent '%s' created using model '%s'.", s.Agent, modelName)
		return
	}

	var prereq *team.PrerequisitesError
	if !errors.As(s.Err, &prereq) {
		p.Failure("Cannot create stateful root agent. Error: %v", s.Err)
		return
	}

	p.Failure("Cannot create stateful root agent. Prerequisites missing.")
	for _, missing := range prereq.Missing {
		p.Info(" - %s.", missing)
	}
}
