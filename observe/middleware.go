package observe

import (
	"context"
	"time"

	"github.com/jonwraymond/thumbnails/cache"
)

// Middleware traces and logs resolver calls.
//
// Contract:
//   - Concurrency: Wrap returns a Resolver safe for concurrent use.
//   - Errors: errors from the wrapped Resolver are recorded and returned unchanged.
type Middleware struct {
	tracer Tracer
	logger Logger
}

// NewMiddleware creates a Middleware.
func NewMiddleware(tracer Tracer, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NewTracer(nil)
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, logger: logger}
}

// Wrap decorates next. Its method value is a cache.Middleware.
func (m *Middleware) Wrap(next cache.Resolver) cache.Resolver {
	return cache.ResolverFunc(func(ctx context.Context, name string) (cache.Location, error) {
		ctx, span := m.tracer.StartSpan(ctx, name)
		start := time.Now()

		loc, err := next.Resolve(ctx, name)

		duration := time.Since(start)
		m.tracer.EndSpan(span, loc, err)

		fields := []Field{
			F("transformation", name),
			F("outcome", Outcome(loc, err)),
			F("duration_ms", float64(duration.Milliseconds())),
		}
		switch {
		case err != nil:
			fields = append(fields, F("error", err.Error()))
			m.logger.Error(ctx, "transformation resolution failed", fields...)
		case loc.Found():
			path, _ := loc.Path()
			m.logger.Debug(ctx, "transformation resolved", append(fields, F("path", path))...)
		default:
			m.logger.Debug(ctx, "transformation not found", fields...)
		}
		return loc, err
	})
}

// MiddlewareFromObserver builds the resolver middleware and cache recorder for obs.
func MiddlewareFromObserver(obs Observer) (cache.Middleware, cache.Recorder, error) {
	if obs == nil {
		return nil, nil, ErrNilObserver
	}
	metrics, err := NewCacheMetrics(obs.Meter())
	if err != nil {
		return nil, nil, err
	}
	mw := NewMiddleware(NewTracer(obs.Tracer()), obs.Logger())
	return mw.Wrap, metrics, nil
}
