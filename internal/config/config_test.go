package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentdemos/core"
	"github.com/hupe1980/agentdemos/internal/team"
	"github.com/hupe1980/agentdemos/logging"
	"github.com/hupe1980/agentdemos/session"
)

var envKeys = []string{
	"MODEL_GEMINI_2_0_FLASH", "MODEL_GPT_4_O_MINI",
	"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GOOGLE_API_KEY",
	"SESSION_BACKEND", "REDIS_ADDR", "REDIS_PREFIX",
	"LOG_LEVEL", "LOG_FORMAT", "MAX_TURNS",
}

// clearEnv unsets every config variable for the duration of the test.
// t.Setenv registers the restore, Unsetenv makes the variable absent so a
// .env file may fill it.
func clearEnv(t *testing.T) {
	t.Helper()

	for _, k := range envKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Empty(t, cfg.GeminiModel)
	assert.Equal(t, BackendMemory, cfg.SessionBackend)
	assert.Equal(t, DefaultRedisAddr, cfg.RedisAddr)
	assert.Equal(t, DefaultRedisPrefix, cfg.RedisPrefix)
	assert.Equal(t, logging.LogLevelError, cfg.LogLevel)
	assert.Equal(t, DefaultMaxTurns, cfg.MaxTurns)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"MAX_TURNS", "zero", "MAX_TURNS"},
		{"MAX_TURNS", "-3", "MAX_TURNS"},
		{"LOG_LEVEL", "loud", "LOG_LEVEL"},
		{"SESSION_BACKEND", "postgres", "SESSION_BACKEND"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_TURNS", "7")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"MODEL_GEMINI_2_0_FLASH=gemini-2.0-flash\nMAX_TURNS=99\nSESSION_BACKEND=Redis\n",
	), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.0-flash", cfg.GeminiModel)
	assert.Equal(t, 7, cfg.MaxTurns, "existing environment wins")
	assert.Equal(t, BackendRedis, cfg.SessionBackend)

	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestNewModel(t *testing.T) {
	cfg := &Config{GoogleAPIKey: "google-key", OpenAIAPIKey: "openai-key", AnthropicAPIKey: "anthropic-key"}

	tests := []struct {
		id           string
		wantName     string
		wantProvider string
	}{
		{"", team.OfflineModelName, "func"},
		{"offline", team.OfflineModelName, "func"},
		{"openai/gpt-4o-mini", "gpt-4o-mini", "openai"},
		{"gpt-4o", "gpt-4o", "openai"},
		{"o3-mini", "o3-mini", "openai"},
		{"anthropic/claude-3-5-haiku-latest", "claude-3-5-haiku-latest", "anthropic"},
		{"claude-sonnet-4-0", "claude-sonnet-4-0", "anthropic"},
		{"gemini-2.0-flash", "gemini-2.0-flash", "gemini"},
		{"gemini/gemini-2.0-flash", "gemini-2.0-flash", "gemini"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			m, err := cfg.NewModel(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, m.Info().Name)
			assert.Equal(t, tt.wantProvider, m.Info().Provider)
		})
	}
}

func TestNewModel_Errors(t *testing.T) {
	cfg := &Config{}

	_, err := cfg.NewModel("gemini-2.0-flash")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_API_KEY")

	_, err = cfg.NewModel("llama3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported model")

	_, err = cfg.NewModel("mistral/large")
	assert.Error(t, err)
}

func TestNewSessionStore(t *testing.T) {
	ctx := context.Background()

	store, closeFn, err := (&Config{SessionBackend: BackendMemory}).NewSessionStore(ctx)
	require.NoError(t, err)
	assert.IsType(t, &session.InMemoryStore{}, store)
	assert.NoError(t, closeFn())

	mr := miniredis.RunT(t)

	store, closeFn, err = (&Config{SessionBackend: BackendRedis, RedisAddr: mr.Addr(), RedisPrefix: "demo"}).NewSessionStore(ctx)
	require.NoError(t, err)
	assert.IsType(t, &session.RedisStore{}, store)

	_, err = store.Create(ctx, core.SessionKey{AppName: "app", UserID: "u", SessionID: "s"}, nil)
	require.NoError(t, err)
	assert.True(t, mr.Exists("demo:session:app:u:s:meta"))
	assert.NoError(t, closeFn())

	mr.Close()

	_, _, err = (&Config{SessionBackend: BackendRedis, RedisAddr: mr.Addr()}).NewSessionStore(ctx)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := (&Config{LogLevel: logging.LogLevelInfo, LogFormat: "text"}).NewLogger(&buf)
	logger.Debug("hidden")
	logger.Info("runner.invocation.start", "agent", "weather")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=runner.invocation.start")
	assert.Contains(t, buf.String(), "agent=weather")
}
