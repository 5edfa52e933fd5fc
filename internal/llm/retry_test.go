package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeGenerator scripts upstream outcomes and records every attempt
type fakeGenerator struct {
	responses []fakeOutcome
	calls     []fakeCall
}

type fakeOutcome struct {
	resp *GenerateResponse
	err  error
}

type fakeCall struct {
	model       string
	keyViaQuery bool
}

func (f *fakeGenerator) generate(ctx context.Context, prompt, model string, keyViaQuery bool) (*GenerateResponse, error) {
	f.calls = append(f.calls, fakeCall{model: model, keyViaQuery: keyViaQuery})
	i := len(f.calls) - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i].resp, f.responses[i].err
}

// newTestCaller builds a caller with no real sleeping
func newTestCaller(fake *fakeGenerator, maxRetries int) *Caller {
	c := newCaller(fake.generate, RetryConfig{MaxRetries: maxRetries, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond})
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

func textResponse(text string) *GenerateResponse {
	return &GenerateResponse{Text: text}
}

func TestCallWithRetrySucceedsFirstAttempt(t *testing.T) {
	fake := &fakeGenerator{responses: []fakeOutcome{{resp: textResponse("ok")}}}
	c := newTestCaller(fake, 3)

	result, err := c.CallWithRetry(context.Background(), "prompt", "primary-model", "")
	if err != nil {
		t.Fatalf("CallWithRetry() error = %v", err)
	}
	if result.Attempts != 1 {
		t.Errorf("Attempts = %d, expected 1", result.Attempts)
	}
	if result.UsedSecondary {
		t.Error("UsedSecondary = true, expected false")
	}
	if len(fake.calls) != 1 {
		t.Errorf("upstream invoked %d times, expected 1", len(fake.calls))
	}
}

func TestCallWithRetryTransientExhaustsAllAttempts(t *testing.T) {
	transient := &APIError{StatusCode: 503}
	fake := &fakeGenerator{responses: []fakeOutcome{{err: transient}}}
	c := newTestCaller(fake, 3)

	_, err := c.CallWithRetry(context.Background(), "prompt", "primary-model", "")
	if err == nil {
		t.Fatal("expected error")
	}

	// MaxRetries=3 means 4 total attempts on the primary.
	if len(fake.calls) != 4 {
		t.Errorf("upstream invoked %d times, expected 4", len(fake.calls))
	}

	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("error type = %T, expected *CallError", err)
	}
	if callErr.Attempts != 4 {
		t.Errorf("Attempts = %d, expected 4", callErr.Attempts)
	}
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("error should wrap ErrModelUnavailable, got %v", err)
	}
}

func TestCallWithRetryPermanentErrorNoRetry(t *testing.T) {
	permanent := &APIError{StatusCode: 400}
	fake := &fakeGenerator{responses: []fakeOutcome{{err: permanent}}}
	c := newTestCaller(fake, 3)

	_, err := c.CallWithRetry(context.Background(), "prompt", "primary-model", "secondary-model")
	if err == nil {
		t.Fatal("expected error")
	}

	if len(fake.calls) != 1 {
		t.Errorf("upstream invoked %d times, expected 1 (no retry on permanent error)", len(fake.calls))
	}

	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("error type = %T, expected *CallError", err)
	}
	if callErr.Attempts != 1 {
		t.Errorf("Attempts = %d, expected 1", callErr.Attempts)
	}
}

func TestCallWithRetryMissingCredentialNoRetry(t *testing.T) {
	fake := &fakeGenerator{responses: []fakeOutcome{{err: ErrMissingCredential}}}
	c := newTestCaller(fake, 3)

	_, err := c.CallWithRetry(context.Background(), "prompt", "primary-model", "")
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("error = %v, expected to wrap ErrMissingCredential", err)
	}
	if len(fake.calls) != 1 {
		t.Errorf("upstream invoked %d times, expected 1", len(fake.calls))
	}
}

func TestCallWithRetryFallsThroughToSecondary(t *testing.T) {
	transient := &APIError{StatusCode: 503}
	fake := &fakeGenerator{responses: []fakeOutcome{
		{err: transient},
		{err: transient},
		{err: transient},
		{err: transient},
		{resp: textResponse("from secondary")},
	}}
	c := newTestCaller(fake, 3)

	result, err := c.CallWithRetry(context.Background(), "prompt", "primary-model", "secondary-model")
	if err != nil {
		t.Fatalf("CallWithRetry() error = %v", err)
	}

	if !result.UsedSecondary {
		t.Error("UsedSecondary = false, expected true")
	}
	if result.Attempts != 4 {
		t.Errorf("Attempts = %d, expected 4 (secondary attempt not counted)", result.Attempts)
	}
	if got := fake.calls[4].model; got != "secondary-model" {
		t.Errorf("5th call model = %s, expected secondary-model", got)
	}
}

func TestCallWithRetrySecondaryAuthFallbackUsesQueryParam(t *testing.T) {
	transient := &APIError{StatusCode: 503}
	unauthorized := &APIError{StatusCode: 401}
	fake := &fakeGenerator{responses: []fakeOutcome{
		{err: transient},
		{err: transient},
		{err: transient},
		{err: transient},
		{err: unauthorized},
		{resp: textResponse("via query param")},
	}}
	c := newTestCaller(fake, 3)

	result, err := c.CallWithRetry(context.Background(), "prompt", "primary-model", "secondary-model")
	if err != nil {
		t.Fatalf("CallWithRetry() error = %v", err)
	}

	last := fake.calls[len(fake.calls)-1]
	if !last.keyViaQuery {
		t.Error("final attempt should pass the credential as a query parameter")
	}
	if !result.UsedSecondary {
		t.Error("UsedSecondary = false, expected true")
	}
}

func TestCallWithRetrySecondarySameAsPrimarySkipped(t *testing.T) {
	transient := &APIError{StatusCode: 429}
	fake := &fakeGenerator{responses: []fakeOutcome{{err: transient}}}
	c := newTestCaller(fake, 1)

	_, err := c.CallWithRetry(context.Background(), "prompt", "same-model", "same-model")
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("error = %v, expected ErrModelUnavailable", err)
	}
	if len(fake.calls) != 2 {
		t.Errorf("upstream invoked %d times, expected 2 (no secondary attempt)", len(fake.calls))
	}
}

func TestBackoffBounds(t *testing.T) {
	c := newCaller(nil, RetryConfig{MaxRetries: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 10 * time.Second})

	tests := []struct {
		attempt int
		min     time.Duration
		max     time.Duration
	}{
		{attempt: 0, min: 250 * time.Millisecond, max: 500 * time.Millisecond},
		{attempt: 1, min: 500 * time.Millisecond, max: time.Second},
		{attempt: 2, min: time.Second, max: 2 * time.Second},
		{attempt: 10, min: 10 * time.Second, max: 10 * time.Second}, // capped
	}

	for _, tt := range tests {
		for i := 0; i < 20; i++ {
			d := c.backoff(tt.attempt)
			if d < tt.min || d > tt.max {
				t.Errorf("backoff(%d) = %v, expected within [%v, %v]", tt.attempt, d, tt.min, tt.max)
			}
		}
	}
}

func TestAPIErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"network failure", 0, true},
		{"rate limited", 429, true},
		{"bad gateway", 502, true},
		{"unavailable", 503, true},
		{"gateway timeout", 504, true},
		{"bad request", 400, false},
		{"unauthorized", 401, false},
		{"forbidden", 403, false},
		{"not found", 404, false},
		{"server error", 500, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &APIError{StatusCode: tt.status}
			if got := err.Transient(); got != tt.transient {
				t.Errorf("Transient() = %v, expected %v for status %d", got, tt.transient, tt.status)
			}
		})
	}
}
