package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/jonwraymond/thumbnails/health"
	"github.com/jonwraymond/thumbnails/observe"
	"github.com/jonwraymond/thumbnails/repository"
	"github.com/jonwraymond/thumbnails/resilience"
	"github.com/jonwraymond/thumbnails/transform"
)

// DefaultAdminRole may invalidate the cache when Config.AdminRole is empty.
const DefaultAdminRole = "thumbnails-admin"

// Config configures a Server.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Service    *transform.Service
	Repository repository.Repository

	// Health backs /healthz, /readyz and /health. Nil creates an aggregator
	// holding only the cache checker.
	Health *health.Aggregator

	// Metrics is mounted on /metrics when set.
	Metrics http.Handler

	// Invalidations throttles the manual invalidation route. Default: one
	// per second with a burst of five.
	Invalidations *resilience.RateLimiter

	// AdminRole is required to invalidate. Default: DefaultAdminRole
	AdminRole string

	Logger observe.Logger
}

// Server serves the routes listed in the package documentation.
type Server struct {
	svc       *transform.Service
	repo      repository.Repository
	checker   *transform.CacheChecker
	limiter   *resilience.RateLimiter
	adminRole string
	logger    observe.Logger

	handler http.Handler
	http    *http.Server
}

func New(config Config) (*Server, error) {
	if config.Service == nil {
		return nil, ErrNilService
	}
	if config.Repository == nil {
		return nil, ErrNilRepository
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.Invalidations == nil {
		config.Invalidations = resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 1, Burst: 5})
	}
	if config.AdminRole == "" {
		config.AdminRole = DefaultAdminRole
	}

	s := &Server{
		svc:       config.Service,
		repo:      config.Repository,
		checker:   transform.NewCacheChecker(config.Service),
		limiter:   config.Invalidations,
		adminRole: config.AdminRole,
		logger:    config.Logger.With(observe.F("component", "http")),
	}

	agg := config.Health
	if agg == nil {
		agg = health.NewAggregator()
		agg.Register(transform.CacheCheckerName, s.checker)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /transformations/{name}", s.handleTransformation)
	mux.HandleFunc("GET /diagnostics/transformations", s.handleDiagnostics)
	mux.HandleFunc("POST /diagnostics/transformations/invalidate", s.handleInvalidate)
	health.RegisterHandlers(mux, agg)
	if config.Metrics != nil {
		mux.Handle("GET /metrics", config.Metrics)
	}
	s.handler = s.logRequests(mux)

	s.http = &http.Server{
		Addr:         config.Addr,
		Handler:      s.handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s, nil
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.handler }

// Serve accepts connections on ln until Shutdown. It returns nil after a
// graceful shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info(context.Background(), "http listening", observe.F("addr", ln.Addr().String()))
	if err := s.http.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on the configured address and serves.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug(r.Context(), "http request",
			observe.F("method", r.Method),
			observe.F("path", r.URL.Path),
			observe.F("status", rec.status),
			observe.F("duration_ms", time.Since(start).Milliseconds()))
	})
}
