package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// LogLevel selects the minimum severity a Logger writes.
type LogLevel int

// Levels in increasing severity.
const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

var levels = [...]struct {
	name  string
	slog  slog.Level
	alias string
}{
	LogLevelDebug: {"DEBUG", slog.LevelDebug, ""},
	LogLevelInfo:  {"INFO", slog.LevelInfo, ""},
	LogLevelWarn:  {"WARN", slog.LevelWarn, "WARNING"},
	LogLevelError: {"ERROR", slog.LevelError, ""},
}

func (l LogLevel) valid() bool { return l >= 0 && int(l) < len(levels) }

func (l LogLevel) String() string {
	if !l.valid() {
		return fmt.Sprintf("LogLevel(%d)", int(l))
	}
	return levels[l].name
}

// Slog returns the matching slog level. Unknown values map to info.
func (l LogLevel) Slog() slog.Level {
	if !l.valid() {
		return slog.LevelInfo
	}
	return levels[l].slog
}

// ParseLevel reads a level name, ignoring case and surrounding blanks. An
// empty name means info.
func ParseLevel(s string) (LogLevel, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "" {
		return LogLevelInfo, nil
	}

	for i, lv := range levels {
		if name == lv.name || (lv.alias != "" && name == lv.alias) {
			return LogLevel(i), nil
		}
	}

	return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger is the structured logging surface the runtime depends on. Messages
// are dotted event names ("runner.invocation.start"), args are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter lets a *slog.Logger serve as a Logger.
type SlogAdapter struct {
	*slog.Logger
}

var _ Logger = (*SlogAdapter)(nil)

// NewSlogAdapter wraps logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewSlogLogger writes records at or above level to w, as logfmt style text
// when format is "text" and as JSON otherwise.
func NewSlogLogger(level LogLevel, format string, w io.Writer) Logger {
	opts := &slog.HandlerOptions{Level: level.Slog()}

	if strings.EqualFold(format, "text") {
		return NewSlogAdapter(slog.New(slog.NewTextHandler(w, opts)))
	}

	return NewSlogAdapter(slog.New(slog.NewJSONHandler(w, opts)))
}

// NoOpLogger drops everything.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...any) {}
func (NoOpLogger) Info(string, ...any)  {}
func (NoOpLogger) Warn(string, ...any)  {}
func (NoOpLogger) Error(string, ...any) {}
