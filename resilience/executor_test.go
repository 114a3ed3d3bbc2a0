package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExecutor_Empty(t *testing.T) {
	if err := NewExecutor().Execute(context.Background(), fail); !errors.Is(err, errQuery) {
		t.Errorf("err = %v", err)
	}
}

func TestExecutor_BreakerSeesRetriedResult(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour})
	e := NewExecutor(
		WithCircuitBreaker(cb),
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})),
	)

	calls := 0
	op := func(context.Context) error { calls++; return errQuery }

	_ = e.Execute(context.Background(), op)
	if calls != 3 {
		t.Errorf("calls = %d, want 3 attempts", calls)
	}
	if cb.Failures() != 1 {
		t.Errorf("breaker failures = %d, want 1 per Execute", cb.Failures())
	}
}

func TestExecutor_TimeoutPerAttempt(t *testing.T) {
	e := NewExecutor(
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond})),
		WithTimeout(10*time.Millisecond),
	)
	attempts := 0
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})
	if err != nil {
		t.Errorf("second attempt should succeed, got %v", err)
	}
}

func TestExecutor_OuterGuardsShortCircuit(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 1})
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})
	e := NewExecutor(WithRateLimiter(rl), WithBulkhead(b))

	if err := e.Execute(context.Background(), succeed); err != nil {
		t.Fatal(err)
	}
	if err := e.Execute(context.Background(), succeed); !errors.Is(err, ErrRateLimitExceeded) {
		t.Errorf("err = %v, want ErrRateLimitExceeded", err)
	}
	if b.Metrics().Active != 0 {
		t.Errorf("bulkhead slot leaked")
	}
}
