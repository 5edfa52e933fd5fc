package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// Generative AI upstream configuration
	Generative GenerativeConfig

	// Circuit breaker configuration
	Breaker BreakerConfig

	// Chat rate limit configuration
	RateLimit RateLimitConfig

	// Authentication configuration
	Auth AuthConfig

	// Server configuration
	Server ServerConfig
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// GenerativeConfig holds the generative AI upstream configuration
type GenerativeConfig struct {
	APIKey        string
	APIBase       string
	Model         string
	FallbackModel string
	MaxRetries    int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
}

// BreakerConfig holds circuit breaker thresholds
type BreakerConfig struct {
	Threshold         int
	Cooldown          time.Duration
	MaxHalfOpenProbes int
}

// RateLimitConfig holds the per-user chat rate limit
type RateLimitConfig struct {
	Window      time.Duration
	MaxRequests int
}

// AuthConfig holds authentication and authorization configuration
type AuthConfig struct {
	JWTSecret      string
	JWTExpiry      time.Duration
	SessionExpiry  time.Duration
	AllowAnonymous bool
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port    string
	GinMode string
}

// Loader handles loading configuration from various sources
type Loader struct {
	provider SecretProvider
}

// NewLoader creates a new configuration loader with the given secret provider
func NewLoader(provider SecretProvider) *Loader {
	return &Loader{
		provider: provider,
	}
}

// NewDefaultLoader creates a loader with the default provider chain:
// 1. File-based secrets (if available)
// 2. Environment variables (fallback)
func NewDefaultLoader() *Loader {
	providers := []SecretProvider{
		NewFileProvider("/var/secrets"), // Common secret mount path
		NewEnvProvider(),                // Always available fallback
	}

	return &Loader{
		provider: NewChainProvider(providers...),
	}
}

// Load loads the complete configuration
func (l *Loader) Load(ctx context.Context) (*Config, error) {
	cfg := &Config{}

	// Load Database config
	cfg.Database = DatabaseConfig{
		Host:     l.getString(ctx, "DB_HOST", "localhost"),
		Port:     l.getString(ctx, "DB_PORT", "5432"),
		Database: l.getString(ctx, "DB_NAME", "assignment_ai"),
		Username: l.getString(ctx, "DB_USER", "assignhub"),
		Password: l.getString(ctx, "DB_PASSWORD", ""),
		SSLMode:  l.getString(ctx, "DB_SSLMODE", "disable"),
	}

	// Load Redis config
	cfg.Redis = RedisConfig{
		Addr:     l.getString(ctx, "REDIS_ADDR", "localhost:6379"),
		Password: l.getString(ctx, "REDIS_PASSWORD", ""),
		DB:       l.getInt(ctx, "REDIS_DB", 0),
	}

	// Load Generative config. GOOGLE_API_KEY takes precedence over the
	// legacy GEMINI_API_KEY name.
	apiKey := l.getString(ctx, "GOOGLE_API_KEY", "")
	if apiKey == "" {
		apiKey = l.getString(ctx, "GEMINI_API_KEY", "")
	}
	cfg.Generative = GenerativeConfig{
		APIKey:        apiKey,
		APIBase:       l.getString(ctx, "GENERATIVE_API_BASE", ""),
		Model:         l.getString(ctx, "GENERATIVE_MODEL", "gemini-2.5-flash"),
		FallbackModel: l.getString(ctx, "FALLBACK_MODEL", "gemini-2.0-flash"),
		MaxRetries:    l.getInt(ctx, "MAX_RETRIES", 3),
		BaseDelay:     l.getDuration(ctx, "BASE_DELAY", 500*time.Millisecond),
		MaxDelay:      l.getDuration(ctx, "MAX_DELAY", 10*time.Second),
	}

	// Load Breaker config
	cfg.Breaker = BreakerConfig{
		Threshold:         l.getInt(ctx, "BREAKER_THRESHOLD", 3),
		Cooldown:          l.getDuration(ctx, "BREAKER_COOLDOWN", 60*time.Second),
		MaxHalfOpenProbes: l.getInt(ctx, "BREAKER_HALF_OPEN_PROBES", 1),
	}

	// Load RateLimit config
	cfg.RateLimit = RateLimitConfig{
		Window:      l.getDuration(ctx, "RATE_LIMIT_WINDOW", time.Minute),
		MaxRequests: l.getInt(ctx, "RATE_LIMIT_MAX", 10),
	}

	// Load Auth config
	cfg.Auth = AuthConfig{
		JWTSecret:      l.getString(ctx, "JWT_SECRET", ""),
		JWTExpiry:      l.getDuration(ctx, "JWT_EXPIRY", 24*time.Hour),
		SessionExpiry:  l.getDuration(ctx, "SESSION_EXPIRY", 7*24*time.Hour),
		AllowAnonymous: l.getBool(ctx, "ALLOW_ANONYMOUS", true),
	}

	// Load Server config
	cfg.Server = ServerConfig{
		Port:    l.getString(ctx, "PORT", "8080"),
		GinMode: l.getString(ctx, "GIN_MODE", "debug"),
	}

	return cfg, nil
}

// Helper methods for retrieving and parsing configuration values

func (l *Loader) getString(ctx context.Context, key, defaultValue string) string {
	value, err := l.provider.GetSecret(ctx, key)
	if err != nil || value == "" {
		return defaultValue
	}
	return value
}

func (l *Loader) getBool(ctx context.Context, key string, defaultValue bool) bool {
	value, err := l.provider.GetSecret(ctx, key)
	if err != nil || value == "" {
		return defaultValue
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func (l *Loader) getInt(ctx context.Context, key string, defaultValue int) int {
	value, err := l.provider.GetSecret(ctx, key)
	if err != nil || value == "" {
		return defaultValue
	}

	i, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return i
}

func (l *Loader) getDuration(ctx context.Context, key string, defaultValue time.Duration) time.Duration {
	value, err := l.provider.GetSecret(ctx, key)
	if err != nil || value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func (l *Loader) getSlice(ctx context.Context, key string, defaultValue []string) []string {
	value, err := l.provider.GetSecret(ctx, key)
	if err != nil || value == "" {
		return defaultValue
	}

	// Split by comma and trim whitespace
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}
	return result
}

// MustLoad loads configuration and panics on error
// Useful for application startup
func (l *Loader) MustLoad(ctx context.Context) *Config {
	cfg, err := l.Load(ctx)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
