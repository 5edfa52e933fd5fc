package store

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/assignhub/assignment-ai/internal/fallback"
)

// CircuitBreakerConfig defines circuit breaker configuration for the database
type CircuitBreakerConfig struct {
	MaxRequests   uint32        // Max requests allowed in half-open state
	Interval      time.Duration // Window for counting failures
	Timeout       time.Duration // Duration circuit stays open before trying recovery
	ReadyToTrip   func(counts gobreaker.Counts) bool
	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)
}

// DefaultCircuitBreakerConfig provides sensible defaults for the database
var DefaultCircuitBreakerConfig = CircuitBreakerConfig{
	MaxRequests: 1,
	Interval:    10 * time.Second, // Count failures over 10 seconds
	Timeout:     30 * time.Second, // Try recovery after 30 seconds
	ReadyToTrip: func(counts gobreaker.Counts) bool {
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= 3 && (counts.ConsecutiveFailures >= 5 || failureRatio >= 0.6)
	},
	OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
		fmt.Printf("Circuit breaker '%s' changed from %s to %s\n", name, from, to)
	},
}

// CircuitBreakerStore wraps a Store with circuit breaker protection so a
// struggling database degrades chat to context-free mode instead of stalling
// every request on connection timeouts.
type CircuitBreakerStore struct {
	store   *Store
	breaker *gobreaker.CircuitBreaker
}

// NewCircuitBreakerStore creates a circuit breaker wrapped assignment store
func NewCircuitBreakerStore(store *Store, name string, config CircuitBreakerConfig) *CircuitBreakerStore {
	settings := gobreaker.Settings{
		Name:          name,
		MaxRequests:   config.MaxRequests,
		Interval:      config.Interval,
		Timeout:       config.Timeout,
		ReadyToTrip:   config.ReadyToTrip,
		OnStateChange: config.OnStateChange,
	}

	return &CircuitBreakerStore{
		store:   store,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// AssignmentContext wraps the store's AssignmentContext with circuit breaker protection
func (cb *CircuitBreakerStore) AssignmentContext(ctx context.Context, id string) (*fallback.AssignmentContext, error) {
	result, err := cb.breaker.Execute(func() (interface{}, error) {
		return cb.store.AssignmentContext(ctx, id)
	})

	if err != nil {
		return nil, fmt.Errorf("circuit breaker: %w", err)
	}

	return result.(*fallback.AssignmentContext), nil
}

// GetAssignment wraps the store's GetAssignment with circuit breaker protection
func (cb *CircuitBreakerStore) GetAssignment(ctx context.Context, id string) (*Assignment, error) {
	result, err := cb.breaker.Execute(func() (interface{}, error) {
		return cb.store.GetAssignment(ctx, id)
	})

	if err != nil {
		return nil, fmt.Errorf("circuit breaker: %w", err)
	}

	return result.(*Assignment), nil
}

// ListAssignments wraps the store's ListAssignments with circuit breaker protection
func (cb *CircuitBreakerStore) ListAssignments(ctx context.Context) ([]Assignment, error) {
	result, err := cb.breaker.Execute(func() (interface{}, error) {
		return cb.store.ListAssignments(ctx)
	})

	if err != nil {
		return nil, fmt.Errorf("circuit breaker: %w", err)
	}

	return result.([]Assignment), nil
}

// CreateAssignment wraps the store's CreateAssignment with circuit breaker protection
func (cb *CircuitBreakerStore) CreateAssignment(ctx context.Context, a *Assignment) (*Assignment, error) {
	result, err := cb.breaker.Execute(func() (interface{}, error) {
		return cb.store.CreateAssignment(ctx, a)
	})

	if err != nil {
		return nil, fmt.Errorf("circuit breaker: %w", err)
	}

	return result.(*Assignment), nil
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreakerStore) State() gobreaker.State {
	return cb.breaker.State()
}

// Counts returns the current failure counts
func (cb *CircuitBreakerStore) Counts() gobreaker.Counts {
	return cb.breaker.Counts()
}
