package team

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentdemos/core"
	"github.com/hupe1980/agentdemos/internal/tools"
	"github.com/hupe1980/agentdemos/model"
	"github.com/hupe1980/agentdemos/runner"
	"github.com/hupe1980/agentdemos/session"
)

const (
	appName   = "weather_tutorial_agent_team"
	userID    = "user_state_demo"
	sessionID = "session_state_demo_001"
)

func offlineModels() Models {
	m := OfflineModel()
	return Models{Greeting: m, Farewell: m, Root: m}
}

func TestNewWeatherTeam(t *testing.T) {
	team, steps, err := NewWeatherTeam(offlineModels())
	require.NoError(t, err)
	require.Len(t, steps, 3)

	for _, s := range steps {
		assert.NoError(t, s.Err, s.Agent)
	}

	assert.Equal(t, WeatherAgentName, team.Root.Name())
	assert.Equal(t, tools.StateLastReport, team.Root.OutputKey())
	assert.Len(t, team.Root.SubAgents(), 2)
	assert.Same(t, team.Greeting, team.Root.FindAgent(GreetingAgentName))
	assert.Same(t, team.Farewell, team.Root.FindAgent(FarewellAgentName))
	assert.Equal(t, "Handles simple greetings and hellos using the 'say_hello' tool.", team.Greeting.Description())
}

func TestNewWeatherTeam_MissingSubAgents(t *testing.T) {
	models := offlineModels()
	models.Greeting = nil

	team, steps, err := NewWeatherTeam(models)
	require.Error(t, err)
	assert.Nil(t, team)
	assert.True(t, IsPrerequisitesError(err))
	assert.Contains(t, err.Error(), "greeting_agent definition missing")
	assert.NotContains(t, err.Error(), "farewell_agent")

	require.Len(t, steps, 3)
	assert.Error(t, steps[0].Err)
	assert.NoError(t, steps[1].Err)
	assert.Error(t, steps[2].Err)

	_, err = NewWeatherAgent(OfflineModel(), nil, nil)
	var prereq *PrerequisitesError
	require.True(t, errors.As(err, &prereq))
	assert.Len(t, prereq.Missing, 2)
}

func askSync(t *testing.T, r *runner.Runner, query string) runner.Result {
	t.Helper()
	events, err := r.RunSync(context.Background(), userID, sessionID, core.NewTextContent(core.RoleUser, query))
	require.NoError(t, err)
	return runner.Summarize(events)
}

func TestWeatherTeam_StatefulConversation(t *testing.T) {
	team, _, err := NewWeatherTeam(offlineModels())
	require.NoError(t, err)

	store := session.NewInMemoryStore()
	key := core.SessionKey{AppName: appName, UserID: userID, SessionID: sessionID}
	_, err = store.Create(context.Background(), key, map[string]any{tools.StateTemperatureUnit: tools.Celsius})
	require.NoError(t, err)

	r := runner.New(appName, team.Root, func(o *runner.Options) { o.SessionStore = store })

	res := askSync(t, r, "What's the weather in London?")
	assert.Equal(t, "The weather in London is cloudy with a temperature of 15°C.", res.FinalOutput)
	assert.Equal(t, WeatherAgentName, res.LastAgent)

	stored, err := store.Storage(key)
	require.NoError(t, err)
	stored.SetState(tools.StateTemperatureUnit, tools.Fahrenheit)

	res = askSync(t, r, "Tell me the weather in New York.")
	assert.Equal(t, "The weather in New york is sunny with a temperature of 77°F.", res.FinalOutput)

	res = askSync(t, r, "Hi!")
	assert.Equal(t, "Hello, there!", res.FinalOutput)
	assert.Equal(t, GreetingAgentName, res.LastAgent)

	final, err := store.Get(context.Background(), key)
	require.NoError(t, err)

	state := final.StateSnapshot()
	assert.Equal(t, tools.Fahrenheit, state[tools.StateTemperatureUnit])
	assert.Equal(t, "The weather in New york is sunny with a temperature of 77°F.", state[tools.StateLastReport])
	assert.Equal(t, "New York", state[tools.StateLastCityChecked])
}

func TestWeatherTeam_Farewell(t *testing.T) {
	team, _, err := NewWeatherTeam(offlineModels())
	require.NoError(t, err)

	store := session.NewInMemoryStore()
	_, err = store.Create(context.Background(), core.SessionKey{AppName: appName, UserID: userID, SessionID: sessionID}, nil)
	require.NoError(t, err)

	r := runner.New(appName, team.Root, func(o *runner.Options) { o.SessionStore = store })

	res := askSync(t, r, "Goodbye!")
	assert.Equal(t, "Goodbye, Have a great day!", res.FinalOutput)
	assert.Equal(t, FarewellAgentName, res.LastAgent)

	res = askSync(t, r, "What's the weather in Paris?")
	assert.Equal(t, "Sorry, I don't have weather information for 'Paris'.", res.FinalOutput)

	res = askSync(t, r, "Tell me a joke")
	assert.Equal(t, offlineFallback, res.FinalOutput)
}

func TestFindEvenAgent(t *testing.T) {
	a, err := NewFindEvenAgent(OfflineModel(), rand.New(rand.NewPCG(42, 7)))
	require.NoError(t, err)
	assert.Equal(t, FindEvenAgentName, a.Name())

	store := session.NewInMemoryStore()
	_, err = store.Create(context.Background(), core.SessionKey{AppName: "find_even", UserID: "user", SessionID: "s1"}, nil)
	require.NoError(t, err)

	r := runner.New("find_even", a, func(o *runner.Options) {
		o.SessionStore = store
		o.MaxTurns = 20
	})

	events, err := r.RunSync(context.Background(), "user", "s1", core.NewTextContent(core.RoleUser, "Generate random numbers until you find an even number"))
	if runner.IsMaxTurns(err) {
		t.Skip("seed produced no even number within the turn limit")
	}
	require.NoError(t, err)

	res := runner.Summarize(events)
	assert.Regexp(t, `^Found an even number: \d*[02468]\.$`, res.FinalOutput)
	assert.Equal(t, res.ToolCalls+1, res.ModelTurns)
}

func TestOfflineModel_Routing(t *testing.T) {
	weatherTools := []model.ToolDefinition{
		model.NewFunctionTool("get_weather_stateful", "", nil),
		model.NewFunctionTool("transfer_to_agent", "", nil),
	}

	tests := []struct {
		name     string
		query    string
		wantCall string
		wantArgs string
		wantText string
	}{
		{name: "known city", query: "What's the weather in London?", wantCall: "get_weather_stateful", wantArgs: `{"city":"London"}`},
		{name: "multi word city", query: "Tell me the weather in New York.", wantCall: "get_weather_stateful", wantArgs: `{"city":"New York"}`},
		{name: "unknown city", query: "How is the weather in Berlin today?", wantCall: "get_weather_stateful", wantArgs: `{"city":"Berlin today"}`},
		{name: "greeting", query: "Hi!", wantCall: "transfer_to_agent", wantArgs: `{"agent_name":"greeting_agent"}`},
		{name: "farewell", query: "Bye then", wantCall: "transfer_to_agent", wantArgs: `{"agent_name":"farewell_agent"}`},
		{name: "hi inside word", query: "Which way?", wantText: offlineFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := route(model.Request{
				Contents: []core.Content{core.NewTextContent(core.RoleUser, tt.query)},
				Tools:    weatherTools,
			})

			ev := core.Event{Content: &resp.Content}
			if tt.wantCall == "" {
				assert.Empty(t, ev.GetFunctionCalls())
				assert.Equal(t, tt.wantText, ev.Text())
				return
			}

			calls := ev.GetFunctionCalls()
			require.Len(t, calls, 1)
			assert.Equal(t, tt.wantCall, calls[0].Name)
			assert.JSONEq(t, tt.wantArgs, calls[0].Arguments)
		})
	}
}

func TestOfflineModel_RandomNumberResults(t *testing.T) {
	req := func(result any) model.Request {
		return model.Request{
			Tools: []model.ToolDefinition{model.NewFunctionTool("random_number", "", nil)},
			Contents: []core.Content{
				core.NewTextContent(core.RoleUser, "find even"),
				{Role: core.RoleTool, Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{
					ID: "c1", Name: "random_number", Response: result,
				}}}},
			},
		}
	}

	assert.Equal(t, "Found an even number: 42.", route(req(42)).Content.Text())
	assert.Equal(t, "Found an even number: 8.", route(req(float64(8))).Content.Text())

	again := route(req(7))
	ev := core.Event{Content: &again.Content}
	require.Len(t, ev.GetFunctionCalls(), 1)
	assert.Equal(t, "random_number", ev.GetFunctionCalls()[0].Name)
}
