package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentdemos/core"
	"github.com/hupe1980/agentdemos/internal/util"
)

// Func is the signature wrapped by FunctionTool.
type Func func(tc *core.ToolContext, args map[string]any) (any, error)

// FunctionTool exposes a Go function as a Tool. Arguments are checked
// against the parameter schema before fn runs; any failure comes back as a
// *ToolError (VALIDATION_ERROR, EXECUTION_ERROR, or the code fn chose).
// It holds no mutable state and is safe for concurrent use.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          Func
}

var _ Tool = (*FunctionTool)(nil)

// NewFunctionTool wraps fn with an explicit schema. A nil schema declares a
// tool without arguments.
//
//	roll := NewFunctionTool("random_number", "Returns a random integer.", nil,
//	  func(*core.ToolContext, map[string]any) (any, error) {
//	    return rand.IntN(100) + 1, nil
//	  })
func NewFunctionTool(name, description string, parameters map[string]any, fn Func) *FunctionTool {
	if parameters == nil {
		parameters = map[string]any{"type": "object", "properties": map[string]any{}}
	}

	return &FunctionTool{name: name, description: description, parameters: parameters, fn: fn}
}

// NewFunctionToolFromStruct wraps fn with a schema derived from the fields
// of structType.
func NewFunctionToolFromStruct(name, description string, structType any, fn Func) *FunctionTool {
	return NewFunctionTool(name, description, util.CreateSchema(structType), fn)
}

// NewFunc wraps a function taking a typed argument struct. The schema comes
// from Args, whose json, description and enum tags document the parameters.
//
//	type weatherArgs struct {
//	  City string `json:"city" description:"The name of the city"`
//	}
//
//	weather := NewFunc("get_weather", "Retrieves the weather report.",
//	  func(tc *core.ToolContext, args weatherArgs) (any, error) {
//	    return lookup(args.City), nil
//	  })
func NewFunc[Args any](name, description string, fn func(tc *core.ToolContext, args Args) (any, error)) *FunctionTool {
	var zero Args

	return NewFunctionToolFromStruct(name, description, zero, func(tc *core.ToolContext, raw map[string]any) (any, error) {
		args, err := decodeArgs[Args](raw)
		if err != nil {
			return nil, &ToolError{Tool: name, Message: "decode arguments: " + err.Error(), Code: CodeValidation, Details: err}
		}

		return fn(tc, args)
	})
}

func decodeArgs[Args any](raw map[string]any) (Args, error) {
	var args Args

	b, err := json.Marshal(raw)
	if err != nil {
		return args, err
	}

	err = json.Unmarshal(b, &args)

	return args, err
}

func (t *FunctionTool) Name() string               { return t.name }
func (t *FunctionTool) Description() string        { return t.description }
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call validates args, runs the function and logs the outcome under
// tool.call.*. The context logger already carries the function call id.
func (t *FunctionTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	logger := tc.Logger()
	start := time.Now()

	logger.Debug("tool.call.start", "tool", t.name)

	if args == nil {
		args = map[string]any{}
	}

	if err := util.ValidateParameters(args, t.parameters); err != nil {
		logger.Warn("tool.call.validation_failed", "tool", t.name, "error", err)

		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeValidation,
			Details: err,
		}
	}

	result, err := t.fn(tc, args)
	if err != nil {
		te := t.asToolError(err)
		logger.Error("tool.call.error", "tool", t.name, "code", te.Code, "error", te.Message)

		return nil, te
	}

	logger.Info("tool.call.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}

func (t *FunctionTool) asToolError(err error) *ToolError {
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}

	return &ToolError{Tool: t.name, Message: err.Error(), Code: CodeExecution}
}
