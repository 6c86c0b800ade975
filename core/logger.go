package core

import (
	"slices"

	"github.com/hupe1980/agentdemos/logging"
)

// scopedLogger adds a fixed set of key/value pairs to every record.
type scopedLogger struct {
	base  logging.Logger
	attrs []any
}

var _ logging.Logger = scopedLogger{}

// withAttrs scopes l. Scoping a scopedLogger extends its pairs instead of
// nesting, and a nil l logs nothing.
func withAttrs(l logging.Logger, attrs ...any) scopedLogger {
	switch s := l.(type) {
	case nil:
		return scopedLogger{base: logging.NoOpLogger{}, attrs: attrs}
	case scopedLogger:
		return scopedLogger{base: s.base, attrs: append(slices.Clip(s.attrs), attrs...)}
	default:
		return scopedLogger{base: l, attrs: attrs}
	}
}

func (l scopedLogger) args(extra []any) []any {
	if len(l.attrs) == 0 {
		return extra
	}
	return append(slices.Clip(l.attrs), extra...)
}

func (l scopedLogger) Debug(msg string, args ...any) { l.base.Debug(msg, l.args(args)...) }
func (l scopedLogger) Info(msg string, args ...any)  { l.base.Info(msg, l.args(args)...) }
func (l scopedLogger) Warn(msg string, args ...any)  { l.base.Warn(msg, l.args(args)...) }
func (l scopedLogger) Error(msg string, args ...any) { l.base.Error(msg, l.args(args)...) }

// contextLogging gives RunContext and ToolContext their Log* helpers.
type contextLogging struct {
	log scopedLogger
}

// Logger returns the scoped logger, for handing to code outside core.
func (c contextLogging) Logger() logging.Logger { return c.log }

func (c contextLogging) LogDebug(msg string, args ...any) { c.log.Debug(msg, args...) }
func (c contextLogging) LogInfo(msg string, args ...any)  { c.log.Info(msg, args...) }
func (c contextLogging) LogWarn(msg string, args ...any)  { c.log.Warn(msg, args...) }
func (c contextLogging) LogError(msg string, args ...any) { c.log.Error(msg, args...) }
