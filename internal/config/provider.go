package config

import (
	"context"
	"fmt"
	"strings"
)

// SecretProvider resolves configuration values from one backing source.
// Providers are composed into a chain; an empty value is treated the same as
// a miss so a later provider can fill it.
type SecretProvider interface {
	GetSecret(ctx context.Context, key string) (string, error)

	// Name identifies the provider in logs
	Name() string

	// IsAvailable reports whether the backing source can be consulted at all
	IsAvailable(ctx context.Context) bool
}

// ChainProvider consults its providers in order and returns the first
// non-empty value. Order encodes precedence: mounted secret files are listed
// before environment variables so deployed credentials win over shell state.
type ChainProvider struct {
	providers []SecretProvider
}

// NewChainProvider composes providers; earlier providers take precedence
func NewChainProvider(providers ...SecretProvider) *ChainProvider {
	return &ChainProvider{providers: providers}
}

// GetSecret returns the first non-empty value any available provider yields
// for key. When every provider misses, the error names those consulted.
func (c *ChainProvider) GetSecret(ctx context.Context, key string) (string, error) {
	var consulted []string

	for _, p := range c.providers {
		if !p.IsAvailable(ctx) {
			continue
		}
		consulted = append(consulted, p.Name())

		if value, err := p.GetSecret(ctx, key); err == nil && value != "" {
			return value, nil
		}
	}

	if len(consulted) == 0 {
		return "", fmt.Errorf("no provider available for key %s", key)
	}
	return "", fmt.Errorf("key %s not found in providers: %s", key, strings.Join(consulted, ", "))
}

// Name identifies the chain in logs
func (c *ChainProvider) Name() string {
	return "chain"
}

// IsAvailable reports whether at least one chained provider is available
func (c *ChainProvider) IsAvailable(ctx context.Context) bool {
	for _, p := range c.providers {
		if p.IsAvailable(ctx) {
			return true
		}
	}
	return false
}
