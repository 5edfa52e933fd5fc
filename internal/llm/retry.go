package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryConfig defines retry behavior for generate calls
type RetryConfig struct {
	MaxRetries int           // Retries on the primary model (total attempts = MaxRetries + 1)
	BaseDelay  time.Duration // Initial backoff delay
	MaxDelay   time.Duration // Backoff cap, independent of attempt count
}

// DefaultRetryConfig provides sensible defaults for retry behavior
var DefaultRetryConfig = RetryConfig{
	MaxRetries: 3,
	BaseDelay:  500 * time.Millisecond,
	MaxDelay:   10 * time.Second,
}

// generateFunc issues a single generation attempt
type generateFunc func(ctx context.Context, prompt, model string, keyViaQuery bool) (*GenerateResponse, error)

// CallResult carries a successful generation plus retry diagnostics
type CallResult struct {
	Response      *GenerateResponse
	Attempts      int
	UsedSecondary bool
}

// Caller wraps a Gemini client with bounded retry and a one-shot secondary
// model fallback.
type Caller struct {
	generate generateFunc
	config   RetryConfig
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewCaller creates a retry controller around the given client
func NewCaller(client *GeminiClient, config RetryConfig) *Caller {
	return newCaller(client.Generate, config)
}

func newCaller(fn generateFunc, config RetryConfig) *Caller {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = DefaultRetryConfig.BaseDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = DefaultRetryConfig.MaxDelay
	}

	return &Caller{
		generate: fn,
		config:   config,
		sleep:    sleepContext,
	}
}

// CallWithRetry attempts the primary model up to MaxRetries+1 times, backing
// off between attempts, then tries the secondary model once. Only transient
// errors retry; anything else propagates immediately, tagged with the attempt
// count so far. All returned errors are *CallError.
func (c *Caller) CallWithRetry(ctx context.Context, prompt, primary, secondary string) (*CallResult, error) {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		attempts = attempt + 1

		resp, err := c.generate(ctx, prompt, primary, false)
		if err == nil {
			return &CallResult{Response: resp, Attempts: attempts}, nil
		}
		lastErr = err

		if !IsTransient(err) {
			return nil, &CallError{Attempts: attempts, Err: err}
		}

		if attempt == c.config.MaxRetries {
			break
		}

		if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
			return nil, &CallError{Attempts: attempts, Err: fmt.Errorf("cancelled during retry backoff: %w", err)}
		}
	}

	// Primary exhausted; one shot at the secondary model, no retry loop.
	if secondary != "" && secondary != primary {
		resp, err := c.generate(ctx, prompt, secondary, false)
		if err == nil {
			return &CallResult{Response: resp, Attempts: attempts, UsedSecondary: true}, nil
		}

		// Some deployments reject header credentials; retry exactly once
		// with the key as a query parameter before giving up.
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.AuthFailure() {
			resp, err = c.generate(ctx, prompt, secondary, true)
			if err == nil {
				return &CallResult{Response: resp, Attempts: attempts, UsedSecondary: true}, nil
			}
		}
		return nil, &CallError{Attempts: attempts, UsedSecondary: true, Err: err}
	}

	return nil, &CallError{
		Attempts: attempts,
		Err:      fmt.Errorf("%w: %v", ErrModelUnavailable, lastErr),
	}
}

// backoff computes the delay before the next attempt: full-jitter capped
// exponential, jitter factor uniform in [0.5, 1.0)
func (c *Caller) backoff(attempt int) time.Duration {
	delay := float64(c.config.BaseDelay) * math.Pow(2, float64(attempt))
	jitter := 0.5 + rand.Float64()*0.5
	delay *= jitter

	if capped := float64(c.config.MaxDelay); delay > capped {
		delay = capped
	}
	return time.Duration(delay)
}

// sleepContext waits for d or until the context is done. No locks are held
// across this wait; other callers proceed while one is mid-backoff.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
