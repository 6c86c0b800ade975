package tools

import (
	"fmt"
	"strings"

	"github.com/hupe1980/agentdemos/core"
	"github.com/hupe1980/agentdemos/internal/util"
	"github.com/hupe1980/agentdemos/tool"
)

// State keys shared by the stateful weather tool and the demo scenario.
const (
	StateTemperatureUnit = "user_preference_temperature_unit"
	StateLastCityChecked = "last_city_checked_stateful"
	StateLastReport      = "last_weather_report"
)

// Temperature units understood by GetWeatherStateful.
const (
	Celsius    = "Celsius"
	Fahrenheit = "Fahrenheit"
)

var weatherReports = map[string]string{
	"newyork": "The weather in New York is sunny with a temperature of 25°C.",
	"london":  "It's cloudy in London with a temperature of 15°C.",
	"tokyo":   "Tokyo is experiencing light rain and a temperature of 18°C.",
}

type observation struct {
	tempC     float64
	condition string
}

// Mock data is stored in Celsius.
var observations = map[string]observation{
	"newyork": {tempC: 25, condition: "sunny"},
	"london":  {tempC: 15, condition: "cloudy"},
	"tokyo":   {tempC: 18, condition: "light rain"},
}

// normalizeCity lower-cases city and strips spaces: "New York" -> "newyork".
func normalizeCity(city string) string {
	return strings.ReplaceAll(strings.ToLower(city), " ", "")
}

func unknownCity(city string) map[string]any {
	return map[string]any{
		"status":        "error",
		"error_message": fmt.Sprintf("Sorry, I don't have weather information for '%s'.", city),
	}
}

// GetWeather returns the canned weather report for city.
func GetWeather(city string) map[string]any {
	report, ok := weatherReports[normalizeCity(city)]
	if !ok {
		return unknownCity(city)
	}

	return map[string]any{"status": "success", "report": report}
}

// State is the slice of session state access GetWeatherStateful needs.
// *core.ToolContext implements it.
type State interface {
	GetState(k string) (any, bool)
	SetState(k string, v any)
}

// GetWeatherStateful formats the weather for city in the temperature unit
// preferred in state and records the city on success. Only the exact value
// "Fahrenheit" switches the unit.
func GetWeatherStateful(state State, city string) map[string]any {
	unit := Celsius
	if v, ok := state.GetState(StateTemperatureUnit); ok {
		if s, ok := v.(string); ok {
			unit = s
		}
	}

	obs, ok := observations[normalizeCity(city)]
	if !ok {
		return unknownCity(city)
	}

	temp, symbol := obs.tempC, "°C"
	if unit == Fahrenheit {
		temp, symbol = obs.tempC*9/5+32, "°F"
	}

	report := fmt.Sprintf("The weather in %s is %s with a temperature of %.0f%s.", util.Capitalize(city), obs.condition, temp, symbol)

	state.SetState(StateLastCityChecked, city)

	return map[string]any{"status": "success", "report": report}
}

type cityArgs struct {
	City string `json:"city" description:"The name of the city (e.g. \"New York\", \"London\", \"Tokyo\")."`
}

// NewGetWeatherTool exposes GetWeather as get_weather.
func NewGetWeatherTool() tool.Tool {
	return tool.NewFunc("get_weather", "Retrieves the current weather report for a specified city.",
		func(tc *core.ToolContext, args cityArgs) (any, error) {
			tc.LogDebug("tool.get_weather.call", "city", args.City)
			return GetWeather(args.City), nil
		})
}

// NewGetWeatherStatefulTool exposes GetWeatherStateful as get_weather_stateful.
func NewGetWeatherStatefulTool() tool.Tool {
	return tool.NewFunc("get_weather_stateful", "Retrieves weather, converts temp unit based on session state.",
		func(tc *core.ToolContext, args cityArgs) (any, error) {
			unit, _ := tc.GetStateString(StateTemperatureUnit)
			tc.LogDebug("tool.get_weather_stateful.call", "city", args.City, "unit", unit)

			result := GetWeatherStateful(tc, args.City)

			if result["status"] == "success" {
				tc.LogDebug("tool.get_weather_stateful.state_updated", "key", StateLastCityChecked, "value", args.City)
			} else {
				tc.LogDebug("tool.get_weather_stateful.unknown_city", "city", args.City)
			}

			return result, nil
		})
}
