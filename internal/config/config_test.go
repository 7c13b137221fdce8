package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.HTTPPort)
	assert.Equal(t, DriverSQLite, cfg.StorageDriver)
	assert.Equal(t, "openai/gpt-3.5-turbo", cfg.LLMModel)
	assert.Equal(t, 500, cfg.LLMMaxTokens)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout)
	assert.Equal(t, ":5000", cfg.Addr())
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, DevJWTSecret, cfg.JWTSecret)
}

func TestLoadProductionRequiresCredentials(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("LLM_API_KEY", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "secret")
	_, err = Load()
	require.ErrorContains(t, err, "LLM_API_KEY")

	t.Setenv("LLM_API_KEY", "sk-test")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestLoadProductionMockModeSkipsProviderKey(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("CHAT_MODE", "mock")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.MockMode())
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := &Config{StorageDriver: "mysql", DatabaseURL: "x"}
	require.Error(t, cfg.Validate())
}

func TestExchangeBudgets(t *testing.T) {
	cfg := &Config{
		LLMTimeout:              60 * time.Second,
		LLMMaxRetries:           2,
		LLMRetryInitialInterval: time.Second,
		ConflictMaxRetries:      3,
		LockTTL:                 30 * time.Second,
		ShutdownTimeout:         10 * time.Second,
	}

	// three calls plus backoff waits of at most 1.5s and 2.25s
	budget := 180*time.Second + 1500*time.Millisecond + 2250*time.Millisecond
	assert.Equal(t, budget, cfg.ExchangeBudget())
	assert.Equal(t, 4*budget+30*time.Second, cfg.LockWait())
	assert.Equal(t, budget+10*time.Second, cfg.DrainTimeout())

	// the lock must outlast a full exchange, not a few seconds
	assert.Greater(t, cfg.LockWait(), cfg.LLMTimeout*3)
}

func TestLoadLockDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.LockTTL)
	assert.Greater(t, cfg.DrainTimeout(), cfg.LLMTimeout)
}
