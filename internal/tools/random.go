package tools

import (
	"math/rand/v2"

	"github.com/hupe1980/agentdemos/core"
	"github.com/hupe1980/agentdemos/tool"
)

// Bounds of RandomNumber, both inclusive.
const (
	RandomMin = 1
	RandomMax = 100
)

// RandomNumber returns a uniform integer in [RandomMin, RandomMax]. A nil rng
// uses the global source.
func RandomNumber(rng *rand.Rand) int {
	if rng == nil {
		return RandomMin + rand.IntN(RandomMax-RandomMin+1)
	}

	return RandomMin + rng.IntN(RandomMax-RandomMin+1)
}

// NewRandomNumberTool exposes RandomNumber as random_number. The tool is not
// safe for concurrent calls when rng is non-nil.
func NewRandomNumberTool(rng *rand.Rand) tool.Tool {
	return tool.NewFunctionTool("random_number", "Returns a random integer between 1 and 100.", nil,
		func(tc *core.ToolContext, _ map[string]any) (any, error) {
			n := RandomNumber(rng)
			tc.LogDebug("tool.random_number.call", "result", n)
			return n, nil
		})
}
