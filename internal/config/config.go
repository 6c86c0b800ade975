// Package config loads the demo settings from the environment and builds the
// models, session store and logger they describe.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/hupe1980/agentdemos/core"
	"github.com/hupe1980/agentdemos/internal/team"
	"github.com/hupe1980/agentdemos/logging"
	"github.com/hupe1980/agentdemos/model"
	anthropicmodel "github.com/hupe1980/agentdemos/model/anthropic"
	openaimodel "github.com/hupe1980/agentdemos/model/openai"
	"github.com/hupe1980/agentdemos/session"
)

// GeminiOpenAIBaseURL is Google's OpenAI compatible endpoint.
const GeminiOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// Session backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Defaults.
const (
	DefaultRedisAddr   = "localhost:6379"
	DefaultRedisPrefix = "agentdemos"
	DefaultMaxTurns    = 20
)

// Config holds every setting read from the environment.
type Config struct {
	// GeminiModel is the model id of the weather team (MODEL_GEMINI_2_0_FLASH).
	GeminiModel string
	// GPTModel is the model id of the find-even agent (MODEL_GPT_4_O_MINI).
	GPTModel string

	OpenAIAPIKey    string
	AnthropicAPIKey string
	GoogleAPIKey    string

	SessionBackend string
	RedisAddr      string
	RedisPrefix    string

	LogLevel  logging.LogLevel
	LogFormat string
	MaxTurns  int
}

// Load reads envFile into the process environment (a missing file is fine and
// variables already set win), then builds a Config from the environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := loadDotEnv(envFile); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}

	return FromEnv()
}

// FromEnv builds a Config from the process environment.
func FromEnv() (*Config, error) {
	cfg := &Config{
		GeminiModel:     strings.TrimSpace(os.Getenv("MODEL_GEMINI_2_0_FLASH")),
		GPTModel:        strings.TrimSpace(os.Getenv("MODEL_GPT_4_O_MINI")),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		GoogleAPIKey:    os.Getenv("GOOGLE_API_KEY"),
		SessionBackend:  strings.ToLower(envOr("SESSION_BACKEND", BackendMemory)),
		RedisAddr:       envOr("REDIS_ADDR", DefaultRedisAddr),
		RedisPrefix:     envOr("REDIS_PREFIX", DefaultRedisPrefix),
		LogFormat:       envOr("LOG_FORMAT", "text"),
		MaxTurns:        DefaultMaxTurns,
	}

	level, err := logging.ParseLevel(envOr("LOG_LEVEL", "error"))
	if err != nil {
		return nil, fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	if v := os.Getenv("MAX_TURNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("config: MAX_TURNS must be a positive integer, got %q", v)
		}
		cfg.MaxTurns = n
	}

	switch cfg.SessionBackend {
	case BackendMemory, BackendRedis:
	default:
		return nil, fmt.Errorf("config: unknown SESSION_BACKEND %q", cfg.SessionBackend)
	}

	return cfg, nil
}

// NewModel maps a model id to a provider:
//
//	"" or "offline"                   deterministic offline model
//	openai/<m>, gpt-*, o<digit>*      OpenAI
//	anthropic/<m>, claude-*           Anthropic
//	gemini/<m>, gemini-*              Gemini through its OpenAI compatible API
func (c *Config) NewModel(id string) (model.Model, error) {
	id = strings.TrimSpace(id)
	if id == "" || id == team.OfflineModelName {
		return team.OfflineModel(), nil
	}

	provider, name := splitModelID(id)

	switch provider {
	case "openai":
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			o.Model = name
			o.APIKey = c.OpenAIAPIKey
		}), nil
	case "anthropic":
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			o.Model = anthropic.Model(name)
			o.APIKey = c.AnthropicAPIKey
		}), nil
	case "gemini":
		if c.GoogleAPIKey == "" {
			return nil, fmt.Errorf("config: model %q needs GOOGLE_API_KEY", id)
		}
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			o.Model = name
			o.APIKey = c.GoogleAPIKey
			o.BaseURL = GeminiOpenAIBaseURL
			o.Provider = "gemini"
		}), nil
	default:
		return nil, fmt.Errorf("config: unsupported model %q", id)
	}
}

func splitModelID(id string) (provider, name string) {
	if p, n, ok := strings.Cut(id, "/"); ok {
		return strings.ToLower(p), n
	}

	lower := strings.ToLower(id)

	switch {
	case strings.HasPrefix(lower, "gpt-"):
		return "openai", id
	case len(lower) > 1 && lower[0] == 'o' && unicode.IsDigit(rune(lower[1])):
		return "openai", id
	case strings.HasPrefix(lower, "claude-"):
		return "anthropic", id
	case strings.HasPrefix(lower, "gemini-"):
		return "gemini", id
	}

	return "", id
}

// NewSessionStore builds the configured session store. The returned close
// function releases its connections.
func (c *Config) NewSessionStore(ctx context.Context) (core.SessionStore, func() error, error) {
	if c.SessionBackend != BackendRedis {
		return session.NewInMemoryStore(), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("config: connect redis at %s: %w", c.RedisAddr, err)
	}

	store := session.NewRedisStore(client, func(o *session.RedisStoreOptions) {
		o.Prefix = c.RedisPrefix
	})

	return store, client.Close, nil
}

// NewLogger returns a slog backed logger writing to w.
func (c *Config) NewLogger(w io.Writer) logging.Logger {
	return logging.NewSlogLogger(c.LogLevel, c.LogFormat, w)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
