// Package logging is the structured logging surface of the runtime.
//
// Runner, agents and tools log through the small Logger interface with
// dotted event names and key/value pairs. NewSlogLogger backs it with
// log/slog; NoOpLogger discards everything.
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", os.Stderr)
//	r := runner.New(appName, root, func(o *runner.Options) { o.Logger = logger })
package logging
