package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimiter_Burst(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 2})
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }
	rl.last = now

	if !rl.Allow() || !rl.Allow() {
		t.Fatal("burst of 2 should be allowed")
	}
	if rl.Allow() {
		t.Error("third call should be limited")
	}

	now = now.Add(500 * time.Millisecond)
	if rl.Allow() {
		t.Error("half a token is not enough")
	}
	now = now.Add(600 * time.Millisecond)
	if !rl.Allow() {
		t.Error("token should have refilled")
	}

	now = now.Add(time.Hour)
	if got := rl.Tokens(); got != 2 {
		t.Errorf("Tokens = %v, want capped at 2", got)
	}
}

func TestRateLimiter_Execute(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 1})
	ctx := context.Background()

	calls := 0
	op := func(context.Context) error { calls++; return nil }
	if err := rl.Execute(ctx, op); err != nil {
		t.Fatal(err)
	}
	if err := rl.Execute(ctx, op); !errors.Is(err, ErrRateLimitExceeded) {
		t.Errorf("err = %v, want ErrRateLimitExceeded", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d", calls)
	}
}
