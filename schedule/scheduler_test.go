package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduler_AddValidation(t *testing.T) {
	s := New(Config{})
	defer s.Stop(context.Background())
	noop := func(context.Context) {}

	tests := []struct {
		name    string
		job     string
		spec    string
		fn      Job
		wantErr error
	}{
		{"empty name", "", DefaultSpec, noop, ErrEmptyName},
		{"nil job", "tick", DefaultSpec, nil, ErrNilJob},
		{"bad spec", "tick", "every hour", noop, ErrInvalidSpec},
		{"valid", "tick", DefaultSpec, noop, nil},
		{"duplicate", "tick", DefaultSpec, noop, ErrJobExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Add(tt.job, tt.spec, tt.fn)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Add = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(Config{})
	defer s.Stop(context.Background())

	var runs atomic.Int32
	if err := s.Add("invalidate", DefaultSpec, func(context.Context) { runs.Add(1) }); err != nil {
		t.Fatal(err)
	}
	if err := s.RunNow("invalidate"); err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}
	if runs.Load() != 1 {
		t.Errorf("runs = %d", runs.Load())
	}
	if err := s.RunNow("missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}

	jobs := s.Jobs()
	if len(jobs) != 1 || jobs[0].Name != "invalidate" || jobs[0].Runs != 1 || jobs[0].Spec != DefaultSpec {
		t.Errorf("Jobs = %+v", jobs)
	}
}

func TestScheduler_RecoversPanics(t *testing.T) {
	s := New(Config{})
	defer s.Stop(context.Background())

	var calls atomic.Int32
	_ = s.Add("flaky", DefaultSpec, func(context.Context) {
		calls.Add(1)
		panic("boom")
	})
	if err := s.RunNow("flaky"); err != nil {
		t.Fatal(err)
	}
	if err := s.RunNow("flaky"); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d", calls.Load())
	}
}

func TestScheduler_RunsOnSchedule(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for a one second tick")
	}
	s := New(Config{})

	fired := make(chan struct{}, 4)
	_ = s.Add("tick", "@every 1s", func(context.Context) {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run on schedule")
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestScheduler_StopCancelsJobContext(t *testing.T) {
	s := New(Config{})

	var ctxErr atomic.Value
	_ = s.Add("watch", DefaultSpec, func(ctx context.Context) {
		<-ctx.Done()
		ctxErr.Store(ctx.Err())
	})
	_ = s.Start()

	done := make(chan struct{})
	go func() {
		_ = s.RunNow("watch")
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	if err := s.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job not released by Stop")
	}
	if ctxErr.Load() != context.Canceled {
		t.Errorf("ctx err = %v", ctxErr.Load())
	}

	if err := s.Add("late", DefaultSpec, func(context.Context) {}); !errors.Is(err, ErrStopped) {
		t.Errorf("Add after Stop = %v, want ErrStopped", err)
	}
	if err := s.Start(); !errors.Is(err, ErrStopped) {
		t.Errorf("Start after Stop = %v, want ErrStopped", err)
	}
}

func TestValidateSpec(t *testing.T) {
	for _, spec := range []string{"@every 1h", "@hourly", "0 * * * *"} {
		if err := ValidateSpec(spec); err != nil {
			t.Errorf("ValidateSpec(%q) = %v", spec, err)
		}
	}
	if err := ValidateSpec("sometimes"); !errors.Is(err, ErrInvalidSpec) {
		t.Errorf("expected ErrInvalidSpec, got %v", err)
	}
}
