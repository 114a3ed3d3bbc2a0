package transform

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/thumbnails/health"
)

// CacheCheckerName is the name CacheChecker registers under.
const CacheCheckerName = "transformation-cache"

// CacheChecker reports the transformation cache contents.
type CacheChecker struct {
	svc *Service
}

// NewCacheChecker creates a checker for svc.
func NewCacheChecker(svc *Service) *CacheChecker {
	return &CacheChecker{svc: svc}
}

func (c *CacheChecker) Name() string {
	return CacheCheckerName
}

// Check is always healthy; the cache holds no external resources. The result
// details carry the counters and the cached entries.
func (c *CacheChecker) Check(ctx context.Context) health.Result {
	start := time.Now()
	details, _ := c.Info(ctx)
	msg := fmt.Sprintf("%d transformation names cached", details["size"])
	return health.Healthy(msg).WithDetails(details).WithDuration(time.Since(start))
}

// Info returns counters and the cached entries, name to path or "absent".
func (c *CacheChecker) Info(context.Context) (map[string]any, error) {
	stats := c.svc.Stats()
	entries := c.svc.Entries()

	present, absent := 0, 0
	names := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Location.Found() {
			present++
		} else {
			absent++
		}
		names[e.Name] = e.Location.String()
	}

	details := map[string]any{
		"size":          stats.Size,
		"present":       present,
		"absent":        absent,
		"generation":    stats.Generation,
		"hits":          stats.Hits,
		"misses":        stats.Misses,
		"resolutions":   stats.Resolutions,
		"failures":      stats.Failures,
		"invalidations": stats.Invalidations,
		"entries":       names,
	}
	if !stats.LastInvalidation.IsZero() {
		details["last_invalidation"] = stats.LastInvalidation.UTC().Format(time.RFC3339)
	}
	return details, nil
}

var _ health.InfoChecker = (*CacheChecker)(nil)
