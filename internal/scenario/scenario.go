// Package scenario replays a scripted conversation against a runner and prints
// the transcript.
package scenario

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentdemos/core"
	"github.com/hupe1980/agentdemos/internal/console"
	"github.com/hupe1980/agentdemos/runner"
)

//go:embed weather_team.yaml
var defaultScenario []byte

// Scenario is a scripted conversation.
type Scenario struct {
	App          string         `yaml:"app"`
	User         string         `yaml:"user"`
	Session      string         `yaml:"session"`
	InitialState map[string]any `yaml:"initial_state"`
	Title        string         `yaml:"title"`
	Turns        []Turn         `yaml:"turns"`
	Report       []ReportItem   `yaml:"report"`
}

// Turn is one step of a scenario. SetState is written straight into the
// stored session before Query is sent; either may be empty, not both.
type Turn struct {
	Label    string         `yaml:"label"`
	Query    string         `yaml:"query"`
	SetState map[string]any `yaml:"set_state"`
}

// ReportItem names a state key printed once all turns are played.
type ReportItem struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
}

// Default returns the embedded weather team scenario.
func Default() (*Scenario, error) {
	return Parse(defaultScenario)
}

// Load reads a scenario file, expanding ${VAR} references from the
// environment.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from a CLI flag
	if err != nil {
		return nil, fmt.Errorf("scenario: load: %w", err)
	}

	return Parse(data)
}

// envRef matches ${VAR}; a bare $ stays literal.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(m []byte) []byte {
		return []byte(os.Getenv(string(m[2 : len(m)-1])))
	})
}

// Parse decodes and validates a scenario document, expanding ${VAR}
// references from the environment.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(expandEnv(data), &s); err != nil {
		return nil, fmt.Errorf("scenario: parse: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// Validate checks that the scenario can be played.
func (s *Scenario) Validate() error {
	if s.User == "" {
		return errors.New("scenario: user is required")
	}

	if len(s.Turns) == 0 {
		return errors.New("scenario: at least one turn is required")
	}

	for i, t := range s.Turns {
		if t.Query == "" && len(t.SetState) == 0 {
			return fmt.Errorf("scenario: turn %d (%q) has neither query nor set_state", i+1, t.Label)
		}
	}

	for i, item := range s.Report {
		if item.Key == "" {
			return fmt.Errorf("scenario: report item %d has no key", i+1)
		}
	}

	return nil
}

// directStorage is implemented by stores that hand out their stored session,
// see session.InMemoryStore.Storage.
type directStorage interface {
	Storage(key core.SessionKey) (*core.Session, error)
}

// Play creates the scenario session (replacing a leftover one), sends every
// turn through r and prints the transcript. It stops at the first failed turn.
func (s *Scenario) Play(ctx context.Context, r *runner.Runner, p *console.Printer) error {
	if s.App != "" && s.App != r.AppName() {
		return fmt.Errorf("scenario: app %q does not match runner app %q", s.App, r.AppName())
	}

	store := r.SessionStore()

	key, err := s.createSession(ctx, store, r.AppName())
	if err != nil {
		return err
	}

	p.Success("Session '%s' created for user '%s'.", key.SessionID, key.UserID)

	sess, err := store.Get(ctx, key)
	if err != nil {
		p.Failure("Error: Could not retrieve session.")
		return fmt.Errorf("scenario: %w", err)
	}

	p.State("Initial Session State", sess.StateSnapshot())

	if s.Title != "" {
		p.Section(s.Title)
	}

	for _, t := range s.Turns {
		if t.Label != "" {
			p.Section(t.Label)
		}

		if len(t.SetState) > 0 {
			if err := setState(ctx, store, key, t.SetState, p); err != nil {
				p.Failure("Error updating session state: %v", err)
				return fmt.Errorf("scenario: %w", err)
			}
		}

		if t.Query == "" {
			continue
		}

		p.Query(t.Query)

		events, err := r.RunSync(ctx, key.UserID, key.SessionID, core.NewTextContent(core.RoleUser, t.Query))
		p.Response(runner.Summarize(events).FinalOutput)

		if err != nil {
			p.Failure("Turn failed: %v", err)
			return fmt.Errorf("scenario: turn %q: %w", t.Label, err)
		}
	}

	final, err := store.Get(ctx, key)
	if err != nil {
		p.Failure("Error: Could not retrieve final session state.")
		return fmt.Errorf("scenario: %w", err)
	}

	p.Section("Inspecting Final Session State")

	state := final.StateSnapshot()
	for _, item := range s.Report {
		label := item.Label
		if label == "" {
			label = item.Key
		}
		p.Detail(label, state[item.Key])
	}

	return nil
}

func (s *Scenario) createSession(ctx context.Context, store core.SessionStore, appName string) (core.SessionKey, error) {
	key := core.SessionKey{AppName: appName, UserID: s.User, SessionID: s.Session}

	sess, err := store.Create(ctx, key, s.InitialState)
	if errors.Is(err, core.ErrSessionExists) {
		// Durable stores keep the session of a previous run.
		if err := store.Delete(ctx, key); err != nil {
			return core.SessionKey{}, fmt.Errorf("scenario: reset session: %w", err)
		}
		sess, err = store.Create(ctx, key, s.InitialState)
	}
	if err != nil {
		return core.SessionKey{}, fmt.Errorf("scenario: create session: %w", err)
	}

	return sess.Key(), nil
}

// setState mutates the stored session directly when the store allows it, so
// the change bypasses the event history. Other stores get a plain delta.
func setState(ctx context.Context, store core.SessionStore, key core.SessionKey, values map[string]any, p *console.Printer) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if ds, ok := store.(directStorage); ok {
		stored, err := ds.Storage(key)
		if err != nil {
			return err
		}

		for _, k := range keys {
			stored.SetState(k, values[k])
		}
	} else if err := store.ApplyDelta(ctx, key, values); err != nil {
		return err
	}

	for _, k := range keys {
		p.Info("--- Stored session state updated. Current '%s': %v ---", k, values[k])
	}

	return nil
}
