// Package server is the HTTP surface of thumbnailsd.
//
// Routes:
//
//	GET  /transformations/{name}                  resolve and adapt a transformation
//	GET  /diagnostics/transformations             cache entries and counters
//	POST /diagnostics/transformations/invalidate  drop every cached name
//	GET  /healthz, /readyz, /health               liveness, readiness, report
//	GET  /metrics                                 Prometheus exposition, when configured
//
// Callers present a bearer token. The lookup route opens a repository
// session with it, so the definition is adapted at the caller's privilege
// level while the name itself is resolved by the service user. Both
// diagnostics routes require the admin role.
package server
