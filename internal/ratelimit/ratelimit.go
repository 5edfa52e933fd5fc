// Package ratelimit provides an in-memory fixed-window request limiter keyed
// by caller identity.
package ratelimit

import (
	"sync"
	"time"
)

// Config defines limiter behavior
type Config struct {
	Window      time.Duration // Window length
	MaxRequests int           // Requests allowed per window
}

// DefaultConfig provides sensible defaults
var DefaultConfig = Config{
	Window:      time.Minute,
	MaxRequests: 10,
}

// Result reports the outcome of a limit check
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter int // Seconds until the window resets; set when rejected
}

// entry tracks one identity's current window
type entry struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window rate limiter. Entries are created lazily and
// swept once they have been idle past several windows, so the map stays
// bounded under identity churn.
type Limiter struct {
	mu      sync.Mutex
	config  Config
	entries map[string]*entry
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

// NewLimiter creates a limiter and starts its background sweep
func NewLimiter(config Config) *Limiter {
	if config.Window <= 0 {
		config.Window = DefaultConfig.Window
	}
	if config.MaxRequests <= 0 {
		config.MaxRequests = DefaultConfig.MaxRequests
	}

	l := &Limiter{
		config:  config,
		entries: make(map[string]*entry),
		now:     time.Now,
		done:    make(chan struct{}),
	}

	go l.sweepLoop()

	return l
}

// Check consumes one request slot for the identity. The first request, or a
// request after the window has elapsed, opens a fresh window with count 1.
func (l *Limiter) Check(identity string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	e, exists := l.entries[identity]
	if !exists || now.After(e.resetAt) {
		l.entries[identity] = &entry{count: 1, resetAt: now.Add(l.config.Window)}
		return Result{Allowed: true, Remaining: l.config.MaxRequests - 1}
	}

	if e.count >= l.config.MaxRequests {
		retryAfter := int(e.resetAt.Sub(now).Seconds() + 0.999)
		if retryAfter < 1 {
			retryAfter = 1
		}
		return Result{Allowed: false, Remaining: 0, RetryAfter: retryAfter}
	}

	e.count++
	return Result{Allowed: true, Remaining: l.config.MaxRequests - e.count}
}

// Limit returns the configured per-window maximum
func (l *Limiter) Limit() int {
	return l.config.MaxRequests
}

// Stats returns limiter statistics for observability
func (l *Limiter) Stats() map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	return map[string]interface{}{
		"tracked_identities": len(l.entries),
		"window_seconds":     int(l.config.Window.Seconds()),
		"max_requests":       l.config.MaxRequests,
	}
}

// Stop terminates the background sweep
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.done) })
}

// sweep removes entries whose window expired several windows ago
func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-3 * l.config.Window)
	for identity, e := range l.entries {
		if e.resetAt.Before(cutoff) {
			delete(l.entries, identity)
		}
	}
}

// sweepLoop runs periodic cleanup
func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(5 * l.config.Window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.done:
			return
		}
	}
}
