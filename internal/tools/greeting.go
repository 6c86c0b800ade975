package tools

import (
	"github.com/hupe1980/agentdemos/core"
	"github.com/hupe1980/agentdemos/tool"
)

// DefaultGreetingName is used when say_hello is called without a name.
const DefaultGreetingName = "there"

// SayHello greets name, falling back to DefaultGreetingName.
func SayHello(name string) string {
	if name == "" {
		name = DefaultGreetingName
	}

	return "Hello, " + name + "!"
}

// SayGoodbye returns the farewell message.
func SayGoodbye() string { return "Goodbye, Have a great day!" }

type helloArgs struct {
	Name string `json:"name,omitempty" description:"The name of the person to greet. Defaults to \"there\"."`
}

// NewSayHelloTool exposes SayHello as say_hello.
func NewSayHelloTool() tool.Tool {
	return tool.NewFunc("say_hello", "Provides a simple, friendly greeting.",
		func(tc *core.ToolContext, args helloArgs) (any, error) {
			tc.LogDebug("tool.say_hello.call", "name", args.Name)
			return SayHello(args.Name), nil
		})
}

// NewSayGoodbyeTool exposes SayGoodbye as say_goodbye.
func NewSayGoodbyeTool() tool.Tool {
	return tool.NewFunctionTool("say_goodbye", "Provides a simple farewell message to conclude the conversation.", nil,
		func(tc *core.ToolContext, _ map[string]any) (any, error) {
			tc.LogDebug("tool.say_goodbye.call")
			return SayGoodbye(), nil
		})
}
