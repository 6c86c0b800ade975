// Package tool implements the function calling subsystem that lets agents
// invoke Go functions with schema validated arguments and consistent error
// handling.
//
// FunctionTool adapts a plain function and a parameter schema, NewFunc derives
// the schema from a typed argument struct, and the transfer tool lets a
// coordinator hand the conversation to one of its sub agents.
package tool

import (
	"errors"
	"fmt"

	"github.com/hupe1980/agentdemos/core"
	"github.com/hupe1980/agentdemos/internal/util"
)

// Codes carried by ToolError. Tools may return their own.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodePanic      = "PANIC"
)

// Tool is a function the model may call.
type Tool interface {
	// Name is the function name the model calls, snake_case by convention.
	Name() string
	// Description tells the model when the tool is useful.
	Description() string
	// Parameters is the JSON schema of the argument object.
	Parameters() map[string]any
	// Call runs the tool. State changes and transfer requests go through tc.
	Call(tc *core.ToolContext, args map[string]any) (any, error)
}

// ValidationError is returned (inside a ToolError) when arguments do not
// match the schema.
type ValidationError = util.ValidationError

// ToolError is the error every tool failure is reported as. Its text ends up
// in the function response the model sees.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// NewToolError returns a ToolError without details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}

func (e *ToolError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
}

// Unwrap exposes Details when it is an error, so errors.As reaches a
// *ValidationError.
func (e *ToolError) Unwrap() error {
	err, _ := e.Details.(error)
	return err
}

// CodeOf returns the code of the first ToolError in err's chain, or "".
func CodeOf(err error) string {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}
