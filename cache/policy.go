package cache

import (
	"context"
	"time"
)

// Policy configures NameCache behavior.
type Policy struct {
	// SingleFlight collapses concurrent misses for the same name into one
	// resolution. Without it each concurrent miss resolves independently.
	SingleFlight bool

	// Recorder receives lookup and resolution events. Nil disables recording.
	Recorder Recorder
}

// DefaultPolicy returns the default policy: single-flight on, no recorder.
func DefaultPolicy() Policy {
	return Policy{
		SingleFlight: true,
	}
}

// Recorder observes cache activity, typically to export metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic and must return quickly.
type Recorder interface {
	// RecordLookup records a lookup that hit or missed the map.
	RecordLookup(ctx context.Context, hit bool)

	// RecordResolve records a resolver call, its duration and outcome.
	RecordResolve(ctx context.Context, duration time.Duration, loc Location, err error)

	// RecordInvalidation records a wholesale clear and the number of entries dropped.
	RecordInvalidation(ctx context.Context, reason string, dropped int)
}

type noopRecorder struct{}

func (noopRecorder) RecordLookup(context.Context, bool)                              {}
func (noopRecorder) RecordResolve(context.Context, time.Duration, Location, error) {}
func (noopRecorder) RecordInvalidation(context.Context, string, int)                {}
