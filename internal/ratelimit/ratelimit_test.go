package ratelimit

import (
	"testing"
	"time"
)

func newTestLimiter(config Config) (*Limiter, *time.Time) {
	l := NewLimiter(config)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestCheckAllowsUpToMax(t *testing.T) {
	l, _ := newTestLimiter(Config{Window: time.Minute, MaxRequests: 10})
	defer l.Stop()

	for i := 0; i < 10; i++ {
		result := l.Check("user-1")
		if !result.Allowed {
			t.Fatalf("request %d rejected, expected all %d to pass", i+1, 10)
		}
		if expected := 10 - (i + 1); result.Remaining != expected {
			t.Errorf("request %d: Remaining = %d, expected %d", i+1, result.Remaining, expected)
		}
	}

	result := l.Check("user-1")
	if result.Allowed {
		t.Error("11th request in the same window should be rejected")
	}
	if result.RetryAfter <= 0 {
		t.Errorf("RetryAfter = %d, expected > 0", result.RetryAfter)
	}
}

func TestCheckWindowReset(t *testing.T) {
	l, now := newTestLimiter(Config{Window: time.Minute, MaxRequests: 10})
	defer l.Stop()

	for i := 0; i < 10; i++ {
		l.Check("user-1")
	}
	if l.Check("user-1").Allowed {
		t.Fatal("expected rejection at limit")
	}

	*now = now.Add(61 * time.Second)

	result := l.Check("user-1")
	if !result.Allowed {
		t.Error("request after window elapsed should be allowed")
	}
	if result.Remaining != 9 {
		t.Errorf("Remaining = %d after window reset, expected 9", result.Remaining)
	}
}

func TestCheckIdentitiesIsolated(t *testing.T) {
	l, _ := newTestLimiter(Config{Window: time.Minute, MaxRequests: 2})
	defer l.Stop()

	l.Check("user-a")
	l.Check("user-a")
	if l.Check("user-a").Allowed {
		t.Fatal("user-a should be exhausted")
	}

	if !l.Check("user-b").Allowed {
		t.Error("user-b should have its own window")
	}
}

func TestCheckRetryAfterCountsDown(t *testing.T) {
	l, now := newTestLimiter(Config{Window: time.Minute, MaxRequests: 1})
	defer l.Stop()

	l.Check("user-1")

	*now = now.Add(20 * time.Second)
	result := l.Check("user-1")
	if result.Allowed {
		t.Fatal("expected rejection")
	}
	if result.RetryAfter != 40 {
		t.Errorf("RetryAfter = %d, expected 40", result.RetryAfter)
	}
}

func TestSweepEvictsIdleEntries(t *testing.T) {
	l, now := newTestLimiter(Config{Window: time.Minute, MaxRequests: 10})
	defer l.Stop()

	l.Check("idle-user")
	l.Check("active-user")

	*now = now.Add(10 * time.Minute)
	l.Check("active-user")
	l.sweep()

	l.mu.Lock()
	_, idlePresent := l.entries["idle-user"]
	_, activePresent := l.entries["active-user"]
	l.mu.Unlock()

	if idlePresent {
		t.Error("idle entry should have been swept")
	}
	if !activePresent {
		t.Error("active entry should survive the sweep")
	}
}

func TestNewLimiterDefaults(t *testing.T) {
	l := NewLimiter(Config{})
	defer l.Stop()

	if l.config.Window != time.Minute {
		t.Errorf("Window = %v, expected 1m", l.config.Window)
	}
	if l.config.MaxRequests != 10 {
		t.Errorf("MaxRequests = %d, expected 10", l.config.MaxRequests)
	}
}
