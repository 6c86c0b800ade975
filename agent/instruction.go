package agent

import (
	"fmt"
	"maps"

	"github.com/hupe1980/agentdemos/core"
	"github.com/hupe1980/agentdemos/internal/util"
)

// InstructionFunc computes an instruction when a request is built.
type InstructionFunc func(runCtx *core.RunContext) (string, error)

// Instruction is the system prompt of an agent: a text/template rendered
// against the session state, or a function evaluated for every request.
//
// Templates see the committed session state overlaid with the changes staged
// in the current run, e.g. "Answer in {{.user_preference_temperature_unit}}."
type Instruction struct {
	text string
	fn   InstructionFunc
}

// NewInstruction returns a template instruction.
func NewInstruction(text string) Instruction { return Instruction{text: text} }

// NewDynamicInstruction returns an instruction computed by fn. The result is
// used as is.
func NewDynamicInstruction(fn InstructionFunc) Instruction { return Instruction{fn: fn} }

// IsDynamic reports whether the instruction is computed per request.
func (i Instruction) IsDynamic() bool { return i.fn != nil }

// Render produces the instruction for the next request of runCtx.
func (i Instruction) Render(runCtx *core.RunContext) (string, error) {
	if i.fn != nil {
		text, err := i.fn(runCtx)
		if err != nil {
			return "", fmt.Errorf("dynamic instruction: %w", err)
		}
		return text, nil
	}

	state := map[string]any{}
	if runCtx.Session != nil {
		state = runCtx.Session.StateSnapshot()
	}
	maps.Copy(state, runCtx.StateDelta)

	text, err := util.RenderTemplate(i.text, state)
	if err != nil {
		return "", fmt.Errorf("render instruction: %w", err)
	}

	return text, nil
}
