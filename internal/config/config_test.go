package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	loader := NewLoader(NewEnvProvider())

	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "assignment_ai", cfg.Database.Database)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "gemini-2.5-flash", cfg.Generative.Model)
	assert.Equal(t, 3, cfg.Generative.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Generative.BaseDelay)
	assert.Equal(t, 10*time.Second, cfg.Generative.MaxDelay)
	assert.Equal(t, 3, cfg.Breaker.Threshold)
	assert.Equal(t, 60*time.Second, cfg.Breaker.Cooldown)
	assert.Equal(t, 1, cfg.Breaker.MaxHalfOpenProbes)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 10, cfg.RateLimit.MaxRequests)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "test-key")
	t.Setenv("GENERATIVE_MODEL", "gemini-custom")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("BREAKER_COOLDOWN", "30s")
	t.Setenv("RATE_LIMIT_MAX", "20")

	loader := NewLoader(NewEnvProvider())
	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.Generative.APIKey)
	assert.Equal(t, "gemini-custom", cfg.Generative.Model)
	assert.Equal(t, 5, cfg.Generative.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Breaker.Cooldown)
	assert.Equal(t, 20, cfg.RateLimit.MaxRequests)
}

func TestLegacyKeyNameFallback(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "legacy-key")

	loader := NewLoader(NewEnvProvider())
	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "legacy-key", cfg.Generative.APIKey)
}

func TestPrimaryKeyNameWins(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "primary-key")
	t.Setenv("GEMINI_API_KEY", "legacy-key")

	loader := NewLoader(NewEnvProvider())
	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "primary-key", cfg.Generative.APIKey)
}

func TestInvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("MAX_RETRIES", "not-a-number")
	t.Setenv("BREAKER_COOLDOWN", "not-a-duration")

	loader := NewLoader(NewEnvProvider())
	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Generative.MaxRetries)
	assert.Equal(t, 60*time.Second, cfg.Breaker.Cooldown)
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "google-api-key"), []byte("file-key\n"), 0600))

	provider := NewFileProvider(dir)
	assert.True(t, provider.IsAvailable(context.Background()))

	value, err := provider.GetSecret(context.Background(), "GOOGLE_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "file-key", value, "file contents should be trimmed")

	missing, err := provider.GetSecret(context.Background(), "NOT_THERE")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestChainProviderFallsThrough(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jwt-secret"), []byte("from-file"), 0600))
	t.Setenv("DB_PASSWORD", "from-env")

	chain := NewChainProvider(NewFileProvider(dir), NewEnvProvider())

	value, err := chain.GetSecret(context.Background(), "JWT_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "from-file", value)

	value, err = chain.GetSecret(context.Background(), "DB_PASSWORD")
	require.NoError(t, err)
	assert.Equal(t, "from-env", value)
}
