// Package config provides configuration for the chat service.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	// EnvironmentProduction requires every credential to be present at startup.
	EnvironmentProduction = "production"

	// ModeMock swaps the completion provider for an in-process echo.
	ModeMock = "MOCK"

	// DevJWTSecret signs tokens outside production when JWT_SECRET is unset.
	DevJWTSecret = "dev-only-jwt-secret"

	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config holds the service configuration. It is resolved once at startup and
// never mutated afterwards.
type Config struct {
	// Server settings
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"ai-customer-support"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"5000"`
	InternalPort    int           `env:"INTERNAL_PORT" envDefault:"5001"`
	RPCAddr         string        `env:"RPC_ADDR"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`

	// Storage
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"sqlite3"`
	DatabaseURL   string `env:"DATABASE_URL" envDefault:"file:chat.db?cache=shared&mode=rwc"`

	// Locking
	RedisURL string        `env:"REDIS_URL"`
	LockTTL  time.Duration `env:"LOCK_TTL" envDefault:"30s"`

	// Identity
	JWTSecret string `env:"JWT_SECRET"`

	// Completion provider
	Mode                    string        `env:"CHAT_MODE"`
	LLMBaseURL              string        `env:"LLM_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	LLMAPIKey               string        `env:"LLM_API_KEY"`
	LLMModel                string        `env:"LLM_MODEL" envDefault:"openai/gpt-3.5-turbo"`
	LLMMaxTokens            int           `env:"LLM_MAX_TOKENS" envDefault:"500"`
	LLMTimeout              time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	LLMMaxRetries           int           `env:"LLM_MAX_RETRIES" envDefault:"2"`
	LLMRetryInitialInterval time.Duration `env:"LLM_RETRY_INITIAL_INTERVAL" envDefault:"500ms"`
	LLMSystemPrompt         string        `env:"LLM_SYSTEM_PROMPT"`
	LLMReferer              string        `env:"LLM_REFERER" envDefault:"http://localhost:5000"`
	LLMTitle                string        `env:"LLM_TITLE" envDefault:"AI Customer Support"`

	// Conversation rules
	MessageMaxChars    int `env:"MESSAGE_MAX_CHARS" envDefault:"32000"`
	ConflictMaxRetries int `env:"CONFLICT_MAX_RETRIES" envDefault:"3"`

	// WebSocket
	WSPingInterval time.Duration `env:"WS_PING_INTERVAL" envDefault:"30s"`

	// Tracing
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads an optional .env file and parses environment variables into Config.
func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.StorageDriver)
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.IsProduction() {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if !c.MockMode() && strings.TrimSpace(c.LLMAPIKey) == "" {
			return fmt.Errorf("LLM_API_KEY is required in production")
		}
	}

	if strings.TrimSpace(c.JWTSecret) == "" {
		c.JWTSecret = DevJWTSecret
	}
	if c.LLMMaxTokens <= 0 {
		c.LLMMaxTokens = 500
	}
	if c.LLMMaxRetries < 0 {
		c.LLMMaxRetries = 0
	}
	if c.ConflictMaxRetries < 0 {
		c.ConflictMaxRetries = 0
	}
	if c.LockTTL < time.Second {
		c.LockTTL = 30 * time.Second
	}
	return nil
}

// ExchangeBudget is the longest a single provider call may take, counting
// every retry and the backoff between them.
func (c *Config) ExchangeBudget() time.Duration {
	retries := c.LLMMaxRetries
	if retries < 0 {
		retries = 0
	}
	total := time.Duration(retries+1) * c.LLMTimeout

	// Upper bound of the exponential backoff: multiplier 1.5, jitter 0.5,
	// intervals capped at one minute.
	interval := c.LLMRetryInitialInterval
	for i := 0; i < retries; i++ {
		total += interval * 3 / 2
		interval = min(interval*3/2, time.Minute)
	}
	return total
}

// LockWait is how long a send waits for another exchange on the same
// conversation. The holder may run every conflict retry, and a crashed
// holder's lock lapses after LockTTL.
func (c *Config) LockWait() time.Duration {
	return time.Duration(c.ConflictMaxRetries+1)*c.ExchangeBudget() + c.LockTTL
}

// DrainTimeout bounds how long shutdown waits for running exchanges to
// persist their replies.
func (c *Config) DrainTimeout() time.Duration {
	return c.ExchangeBudget() + c.ShutdownTimeout
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvironmentProduction)
}

// MockMode reports whether the mock completion client is selected.
func (c *Config) MockMode() bool {
	return strings.EqualFold(c.Mode, ModeMock)
}

// Addr returns the public HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// InternalAddr returns the internal HTTP listen address.
func (c *Config) InternalAddr() string {
	return fmt.Sprintf(":%d", c.InternalPort)
}
