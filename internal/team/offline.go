package team

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/hupe1980/agentdemos/core"
	"github.com/hupe1980/agentdemos/model"
	"github.com/hupe1980/agentdemos/tool"
)

// OfflineModelName identifies the offline model in logs and config.
const OfflineModelName = "offline"

const offlineFallback = "I can only help with weather requests, greetings, and farewells."

var (
	knownCities   = []string{"new york", "london", "tokyo"}
	cityPattern   = regexp.MustCompile(`(?i)\b(?:in|for)\s+([^?.!,]+)`)
	greetingWords = []string{"hi", "hello", "hey", "good morning", "greetings"}
	farewellWords = []string{"bye", "goodbye", "see you", "farewell", "good night"}
	wordPattern   = regexp.MustCompile(`[a-z']+`)
)

// OfflineModel returns a deterministic stand-in for an LLM. It routes on the
// tools it is offered and on keywords of the latest user message:
//   - random_number is called until an even number comes back
//   - weather questions call the weather tool with the named city
//   - greetings and farewells are transferred to the matching sub agent, or
//     answered with say_hello / say_goodbye by the sub agent itself
//
// Tool results are turned into the final answer.
func OfflineModel() model.Model {
	return model.NewFuncModel(OfflineModelName, func(_ context.Context, req model.Request) (model.Response, error) {
		return route(req), nil
	})
}

func route(req model.Request) model.Response {
	if fr, ok := lastToolResult(req.Contents); ok && fr.Name != tool.TransferToolName && req.HasTool(fr.Name) {
		return answerToolResult(fr)
	}

	query := lastUserText(req.Contents)

	for _, name := range []string{"random_number", "say_hello", "say_goodbye"} {
		if req.HasTool(name) {
			return model.CallResponse("", name, nil)
		}
	}

	if city := extractCity(query); city != "" {
		for _, name := range []string{"get_weather_stateful", "get_weather"} {
			if req.HasTool(name) {
				return model.CallResponse("", name, map[string]any{"city": city})
			}
		}
	}

	if req.HasTool(tool.TransferToolName) {
		switch {
		case containsWord(query, greetingWords):
			return model.CallResponse("", tool.TransferToolName, map[string]any{"agent_name": GreetingAgentName})
		case containsWord(query, farewellWords):
			return model.CallResponse("", tool.TransferToolName, map[string]any{"agent_name": FarewellAgentName})
		}
	}

	return model.TextResponse(offlineFallback)
}

func answerToolResult(fr core.FunctionResponse) model.Response {
	if fr.Error != "" {
		return model.TextResponse("Sorry, the tool failed: " + fr.Error)
	}

	switch result := fr.Response.(type) {
	case string:
		return model.TextResponse(result)
	case map[string]any:
		if report, ok := result["report"].(string); ok {
			return model.TextResponse(report)
		}
		if msg, ok := result["error_message"].(string); ok {
			return model.TextResponse(msg)
		}
	}

	if fr.Name == "random_number" {
		n, ok := asInt(fr.Response)
		if ok && n%2 == 0 {
			return model.TextResponse(fmt.Sprintf("Found an even number: %d.", n))
		}
		return model.CallResponse("", "random_number", nil)
	}

	raw, _ := json.Marshal(fr.Response)

	return model.TextResponse(string(raw))
}

func lastToolResult(contents []core.Content) (core.FunctionResponse, bool) {
	if len(contents) == 0 {
		return core.FunctionResponse{}, false
	}

	last := contents[len(contents)-1]
	if last.Role != core.RoleTool {
		return core.FunctionResponse{}, false
	}

	if frs := last.FunctionResponses(); len(frs) > 0 {
		return frs[0], true
	}

	return core.FunctionResponse{}, false
}

func lastUserText(contents []core.Content) string {
	for i := len(contents) - 1; i >= 0; i-- {
		if contents[i].Role == core.RoleUser {
			return contents[i].Text()
		}
	}
	return ""
}

// extractCity finds a known city keeping the user's spelling, else the words
// following "in" or "for" when the query is about the weather.
func extractCity(query string) string {
	lower := strings.ToLower(query)

	for _, city := range knownCities {
		if i := strings.Index(lower, city); i >= 0 {
			return query[i : i+len(city)]
		}
	}

	if !strings.Contains(lower, "weather") {
		return ""
	}

	if m := cityPattern.FindStringSubmatch(query); m != nil {
		return strings.TrimSpace(m[1])
	}

	return ""
}

func containsWord(query string, words []string) bool {
	lower := strings.ToLower(query)
	tokens := wordPattern.FindAllString(lower, -1)

	for _, w := range words {
		if strings.Contains(w, " ") {
			if strings.Contains(lower, w) {
				return true
			}
			continue
		}
		if slices.Contains(tokens, w) {
			return true
		}
	}

	return false
}

// asInt accepts the numeric shapes a tool result takes in memory and after a
// JSON round trip.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), n == float64(int(n))
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	}
	return 0, false
}
