package resilience

import (
	"context"
	"time"
)

// Executor chains the configured primitives around an operation. From the
// outside in: rate limiter, bulkhead, circuit breaker, retry, timeout. Each
// retry attempt gets its own timeout and the breaker sees one result per
// Execute.
type Executor struct {
	limiter  *RateLimiter
	bulkhead *Bulkhead
	breaker  *CircuitBreaker
	retry    *Retry
	timeout  *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an Executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) { e.limiter = rl }
}

func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) { e.bulkhead = b }
}

func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.breaker = cb }
}

func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) { e.retry = r }
}

// WithTimeout bounds each attempt by d.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = NewTimeout(TimeoutConfig{Timeout: d}) }
}

type step interface {
	Execute(ctx context.Context, op func(context.Context) error) error
}

// Execute runs op through the chain.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	// Innermost first.
	var steps []step
	if e.timeout != nil {
		steps = append(steps, e.timeout)
	}
	if e.retry != nil {
		steps = append(steps, e.retry)
	}
	if e.breaker != nil {
		steps = append(steps, e.breaker)
	}
	if e.bulkhead != nil {
		steps = append(steps, e.bulkhead)
	}
	if e.limiter != nil {
		steps = append(steps, e.limiter)
	}

	run := op
	for _, s := range steps {
		inner := run
		run = func(ctx context.Context) error { return s.Execute(ctx, inner) }
	}
	return run(ctx)
}
