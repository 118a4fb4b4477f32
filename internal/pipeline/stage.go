package pipeline

import (
	"context"
	"time"
)

// Stage is one unit of pipeline work. Execute receives a state snapshot
// and returns the replacement state. Implementations must not retain or
// mutate the snapshot after returning.
type Stage interface {
	ID() string
	Execute(ctx context.Context, state State) (State, error)
}

// RetryPolicy bounds transient-failure retries for one stage.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

// ExponentialBackoff returns a pure backoff schedule: base, 2*base,
// 4*base and so on for attempts 1, 2, 3.
func ExponentialBackoff(base time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return base << (attempt - 1)
	}
}

// NoRetry is a single-attempt policy.
func NoRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

func (p RetryPolicy) maxAttempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	if p.Backoff == nil {
		return 0
	}
	return p.Backoff(attempt)
}

// Node binds a stage into the graph with its retry budget, optional
// fallback stage, and gate participation.
type Node struct {
	Stage        Stage
	Retry        RetryPolicy
	Fallback     string
	UsesProvider bool
}

// StageFunc adapts a function to the Stage interface.
type StageFunc struct {
	Name string
	Fn   func(ctx context.Context, state State) (State, error)
}

func (s StageFunc) ID() string { return s.Name }

func (s StageFunc) Execute(ctx context.Context, state State) (State, error) {
	return s.Fn(ctx, state)
}
