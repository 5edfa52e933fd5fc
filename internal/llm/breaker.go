package llm

import (
	"sync"
	"time"
)

// Breaker states as reported by Status. State is derived from the counters on
// every read; it is never stored.
const (
	StateClosed   = "CLOSED"
	StateOpen     = "OPEN"
	StateHalfOpen = "HALF_OPEN"
)

// BreakerConfig defines circuit breaker thresholds
type BreakerConfig struct {
	Threshold         int           // Failures before the circuit opens
	Cooldown          time.Duration // How long the circuit stays open
	MaxHalfOpenProbes int           // Probe requests allowed after cooldown
}

// DefaultBreakerConfig provides sensible defaults
var DefaultBreakerConfig = BreakerConfig{
	Threshold:         3,
	Cooldown:          60 * time.Second,
	MaxHalfOpenProbes: 1,
}

// BreakerStatus is a point-in-time view for observability
type BreakerStatus struct {
	State             string `json:"state"`
	Failures          int    `json:"failures"`
	CooldownRemaining int    `json:"cooldownRemaining,omitempty"` // seconds
}

// Breaker guards the upstream path against repeated failures. It trips open
// after Threshold consecutive recorded failures, cools down, then permits a
// bounded number of half-open probes before fully closing or re-opening.
//
// Probe slots are consumed via AttemptHalfOpen whenever failures > 0, even
// while the circuit is technically closed; a call during recovery from a
// partial failure burns a probe.
type Breaker struct {
	mu             sync.Mutex
	config         BreakerConfig
	failures       int
	lastFailure    time.Time
	halfOpenProbes int
	now            func() time.Time
}

// NewBreaker creates a circuit breaker. State is process-local and never
// persisted; a restart cold-starts closed.
func NewBreaker(config BreakerConfig) *Breaker {
	if config.Threshold <= 0 {
		config.Threshold = DefaultBreakerConfig.Threshold
	}
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultBreakerConfig.Cooldown
	}
	if config.MaxHalfOpenProbes <= 0 {
		config.MaxHalfOpenProbes = DefaultBreakerConfig.MaxHalfOpenProbes
	}

	return &Breaker{
		config: config,
		now:    time.Now,
	}
}

// IsOpen reports whether calls should be blocked. Once the cooldown has
// elapsed the breaker admits probes until the half-open budget is spent.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.config.Threshold {
		return false
	}

	if b.now().Sub(b.lastFailure) < b.config.Cooldown {
		return true
	}

	return b.halfOpenProbes >= b.config.MaxHalfOpenProbes
}

// RecordFailure counts a failed upstream call and restarts the cooldown
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.now()
	b.halfOpenProbes = 0
}

// RecordSuccess fully resets the breaker; success is not a decrement
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.halfOpenProbes = 0
}

// AttemptHalfOpen consumes one probe slot. Called immediately before issuing
// a request while failures > 0.
func (b *Breaker) AttemptHalfOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.halfOpenProbes++
}

// Failures returns the current failure count
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.failures
}

// Reset clears all state. Idempotent; exposed to the admin endpoint.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.lastFailure = time.Time{}
	b.halfOpenProbes = 0
}

// Status reports the derived state and remaining cooldown for observability
func (b *Breaker) Status() BreakerStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.config.Threshold {
		return BreakerStatus{State: StateClosed, Failures: b.failures}
	}

	elapsed := b.now().Sub(b.lastFailure)
	remaining := b.config.Cooldown - elapsed
	if remaining < 0 {
		remaining = 0
	}

	state := StateOpen
	if remaining == 0 && b.halfOpenProbes < b.config.MaxHalfOpenProbes {
		state = StateHalfOpen
	}

	return BreakerStatus{
		State:             state,
		Failures:          b.failures,
		CooldownRemaining: int(remaining.Seconds() + 0.999), // seconds, rounded up
	}
}
