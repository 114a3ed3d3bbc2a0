package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTimeout_Execute(t *testing.T) {
	tests := []struct {
		name    string
		op      func(context.Context) error
		wantErr error
	}{
		{"fast", func(context.Context) error { return nil }, nil},
		{"error passes through", func(context.Context) error { return errQuery }, errQuery},
		{"slow", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}, ErrTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			to := NewTimeout(TimeoutConfig{Timeout: 20 * time.Millisecond})
			if err := to.Execute(context.Background(), tt.op); !errors.Is(err, tt.wantErr) {
				t.Errorf("Execute = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTimeout_ParentCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewTimeout(TimeoutConfig{Timeout: time.Second}).Execute(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

func TestTimeout_Default(t *testing.T) {
	if d := NewTimeout(TimeoutConfig{}).Duration(); d != DefaultTimeout {
		t.Errorf("Duration = %v", d)
	}
}
