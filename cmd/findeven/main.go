// Command findeven runs a single agent that keeps calling its random_number
// tool until it finds an even number, bounded by a turn limit.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"github.com/hupe1980/agentdemos/core"
	"github.com/hupe1980/agentdemos/internal/config"
	"github.com/hupe1980/agentdemos/internal/console"
	"github.com/hupe1980/agentdemos/internal/team"
	"github.com/hupe1980/agentdemos/runner"
)

const (
	appName = "find_even"
	userID  = "user"
	input   = "Generate random numbers until you find an even number"
)

func main() {
	envFile := flag.String("env", ".env", "path to a .env file, a missing file is ignored")
	offline := flag.Bool("offline", false, "use the offline model instead of MODEL_GPT_4_O_MINI")
	maxTurns := flag.Int("max-turns", 0, "model calls allowed for the run (default: MAX_TURNS)")
	seed := flag.Uint64("seed", 0, "seed for the random_number tool, 0 picks a random one")
	flag.Parse()

	if err := run(*envFile, *offline, *maxTurns, *seed); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(envFile string, offline bool, maxTurns int, seed uint64) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	if maxTurns > 0 {
		cfg.MaxTurns = maxTurns
	}

	modelID := cfg.GPTModel
	if offline {
		modelID = team.OfflineModelName
	}

	m, err := cfg.NewModel(modelID)
	if err != nil {
		return err
	}

	var rng *rand.Rand
	if seed != 0 {
		rng = rand.New(rand.NewPCG(seed, seed))
	}

	a, err := team.NewFindEvenAgent(m, rng)
	if err != nil {
		return err
	}

	store, closeStore, err := cfg.NewSessionStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	sess, err := store.Create(ctx, core.SessionKey{AppName: appName, UserID: userID}, nil)
	if err != nil {
		return err
	}

	r := runner.New(appName, a, func(o *runner.Options) {
		o.SessionStore = store
		o.Logger = cfg.NewLogger(os.Stderr)
		o.MaxTurns = cfg.MaxTurns
	})

	p := console.New(os.Stdout)
	p.Query(input)

	events, err := r.RunSync(ctx, userID, sess.Key().SessionID, core.NewTextContent(core.RoleUser, input))
	res := runner.Summarize(events)

	if runner.IsMaxTurns(err) {
		p.Failure("Max turns (%d) exceeded", cfg.MaxTurns)
		p.Detail("Tool calls", res.ToolCalls)
		return err
	}
	if err != nil {
		return err
	}

	p.Response(res.FinalOutput)
	p.Detail("Agent", res.LastAgent)
	p.Detail("Model turns", res.ModelTurns)
	p.Detail("Tool calls", res.ToolCalls)

	return nil
}
