package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry_Execute(t *testing.T) {
	errDenied := errors.New("denied")
	tests := []struct {
		name      string
		failFirst int
		err       error
		wantCalls int
		wantErr   error
	}{
		{"first try", 0, errQuery, 1, nil},
		{"recovers", 2, errQuery, 3, nil},
		{"gives up", 10, errQuery, 3, errQuery},
		{"not retryable", 10, errDenied, 1, errDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var retries []int
			r := NewRetry(RetryConfig{
				MaxAttempts:  3,
				InitialDelay: time.Millisecond,
				RetryIf:      func(err error) bool { return !errors.Is(err, errDenied) },
				OnRetry:      func(attempt int, _ error, _ time.Duration) { retries = append(retries, attempt) },
			})
			calls := 0
			err := r.Execute(context.Background(), func(context.Context) error {
				calls++
				if calls <= tt.failFirst {
					return tt.err
				}
				return nil
			})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if len(retries) != calls-1 {
				t.Errorf("OnRetry calls = %v", retries)
			}
		})
	}
}

func TestRetry_ContextCanceled(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := r.Execute(ctx, fail)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestRetry_Delay(t *testing.T) {
	r := NewRetry(RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond})
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
	for i, w := range want {
		if got := r.Delay(i + 1); got != w {
			t.Errorf("Delay(%d) = %v, want %v", i+1, got, w)
		}
	}

	constant := NewRetry(RetryConfig{InitialDelay: 50 * time.Millisecond, Multiplier: 1})
	if constant.Delay(4) != 50*time.Millisecond {
		t.Errorf("constant Delay(4) = %v", constant.Delay(4))
	}

	jittered := NewRetry(RetryConfig{InitialDelay: 100 * time.Millisecond, Jitter: true})
	for i := 0; i < 20; i++ {
		if d := jittered.Delay(1); d < 100*time.Millisecond || d >= 125*time.Millisecond {
			t.Fatalf("jittered Delay(1) = %v", d)
		}
	}
}
