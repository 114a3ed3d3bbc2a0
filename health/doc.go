// Package health reports whether the thumbnails daemon can serve lookups.
//
// Components implement Checker. An Aggregator runs the registered checkers
// concurrently under a shared deadline and folds their results into one
// Status: any unhealthy component makes the whole daemon unhealthy, and any
// degraded one makes it degraded.
//
// The HTTP handlers expose the aggregate the way container orchestrators
// expect it:
//
//	agg := health.NewAggregator()
//	agg.Register(transform.CacheCheckerName, transform.NewCacheChecker(svc))
//	agg.Register("repository", health.NewPingChecker("repository", ping))
//	health.RegisterHandlers(mux, agg)
//
// /healthz answers as long as the process runs, /readyz reflects the
// aggregate and /health returns the per-component report as JSON.
package health
