package config

import (
	"context"
	"fmt"
	"os"
)

// EnvProvider resolves configuration keys directly from environment
// variables. It sits last in the default chain as the always-available
// fallback.
type EnvProvider struct{}

func NewEnvProvider() *EnvProvider {
	return &EnvProvider{}
}

// GetSecret reads the variable named key. An unset variable is an error so
// the chain can distinguish "not configured" from "configured empty".
func (e *EnvProvider) GetSecret(ctx context.Context, key string) (string, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", fmt.Errorf("environment variable %s not set", key)
	}
	return value, nil
}

// Name identifies the provider in logs
func (e *EnvProvider) Name() string {
	return "env"
}

// IsAvailable always reports true; the process environment is always there
func (e *EnvProvider) IsAvailable(ctx context.Context) bool {
	return true
}
