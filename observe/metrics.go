package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/thumbnails/cache"
)

// Metric names.
const (
	MetricLookups         = "thumbnails.cache.lookups"
	MetricResolveDuration = "thumbnails.cache.resolve.duration_ms"
	MetricInvalidations   = "thumbnails.cache.invalidations"
	MetricDropped         = "thumbnails.cache.dropped"
)

// CacheMetrics records NameCache activity as OpenTelemetry instruments.
// It implements cache.Recorder.
type CacheMetrics struct {
	lookups       metric.Int64Counter
	resolveHist   metric.Float64Histogram
	invalidations metric.Int64Counter
	dropped       metric.Int64Counter
}

// NewCacheMetrics creates the cache instruments on meter.
func NewCacheMetrics(meter metric.Meter) (*CacheMetrics, error) {
	lookups, err := meter.Int64Counter(
		MetricLookups,
		metric.WithDescription("Name lookups by result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	resolveHist, err := meter.Float64Histogram(
		MetricResolveDuration,
		metric.WithDescription("Repository resolution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	invalidations, err := meter.Int64Counter(
		MetricInvalidations,
		metric.WithDescription("Wholesale cache clears by reason"),
		metric.WithUnit("{clear}"),
	)
	if err != nil {
		return nil, err
	}

	dropped, err := meter.Int64Counter(
		MetricDropped,
		metric.WithDescription("Entries discarded by cache clears"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	return &CacheMetrics{
		lookups:       lookups,
		resolveHist:   resolveHist,
		invalidations: invalidations,
		dropped:       dropped,
	}, nil
}

// RecordLookup counts a lookup as a hit or miss.
func (m *CacheMetrics) RecordLookup(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordResolve records the resolver duration with an outcome attribute.
func (m *CacheMetrics) RecordResolve(ctx context.Context, duration time.Duration, loc cache.Location, err error) {
	m.resolveHist.Record(ctx, float64(duration.Milliseconds()),
		metric.WithAttributes(attribute.String("outcome", Outcome(loc, err))))
}

// RecordInvalidation counts a clear and the entries it dropped.
func (m *CacheMetrics) RecordInvalidation(ctx context.Context, reason string, dropped int) {
	opt := metric.WithAttributes(attribute.String("reason", reason))
	m.invalidations.Add(ctx, 1, opt)
	m.dropped.Add(ctx, int64(dropped), opt)
}

// Outcome classifies a resolution as found, absent or error.
func Outcome(loc cache.Location, err error) string {
	switch {
	case err != nil:
		return "error"
	case loc.Found():
		return "found"
	default:
		return "absent"
	}
}

var _ cache.Recorder = (*CacheMetrics)(nil)
