// Package observe provides logging, tracing and metrics for name resolution.
//
// It owns exporter setup and exposes a cache.Recorder backed by OpenTelemetry
// instruments plus a cache.Middleware that traces and logs resolver calls.
// Nothing here touches the repository.
package observe
