package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonwraymond/thumbnails/auth"
	"github.com/jonwraymond/thumbnails/repository"
	"github.com/jonwraymond/thumbnails/resilience"
	"github.com/jonwraymond/thumbnails/server"
	"github.com/jonwraymond/thumbnails/transform"
)

var signingKey = []byte("server-test-signing-key")

type fixture struct {
	server *server.Server
	svc    *transform.Service
	store  *repository.Store
	tokens *auth.TokenIssuer
}

func newFixture(t *testing.T, limiter *resilience.RateLimiter) *fixture {
	t.Helper()
	ctx := context.Background()

	tokens, err := auth.NewTokenIssuer(signingKey, "thumbnails", "", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	store, err := repository.NewStore(repository.StoreConfig{
		Backend: repository.NewMemoryBackend(),
		Authenticator: auth.NewJWTAuthenticator(auth.JWTConfig{Issuer: "thumbnails"},
			auth.NewStaticKeyProvider(signingKey)),
		Authorizer: auth.NewPathRBACAuthorizer(auth.RBACConfig{Roles: map[string]auth.RoleConfig{
			"service":          {AllowedPaths: []string{"/"}},
			"reader":           {AllowedPaths: []string{"/conf"}},
			"guest":            {AllowedPaths: []string{"/conf/global"}},
			"thumbnails-admin": {AllowedPaths: []string{"/"}},
		}}),
	})
	if err != nil {
		t.Fatal(err)
	}
	nodes := []*repository.Node{
		{
			Path:         "/conf/global/thumbnails/small",
			ResourceType: transform.ResourceType,
			Properties:   map[string]any{transform.PropertyName: "small"},
		},
		{
			Path:       "/conf/global/thumbnails/small/resize",
			Properties: map[string]any{transform.PropertyHandlerType: "resize", "width": 100},
		},
		{
			Path:         "/conf/private/thumbnails/secret",
			ResourceType: transform.ResourceType,
			Properties:   map[string]any{transform.PropertyName: "secret"},
		},
	}
	if err := repository.Seed(ctx, store, nodes); err != nil {
		t.Fatal(err)
	}

	user, err := transform.NewServiceUser(transform.ServiceUserConfig{
		Repository: store,
		Issuer:     tokens,
		Roles:      []string{"service"},
	})
	if err != nil {
		t.Fatal(err)
	}
	svc, err := transform.NewService(transform.ServiceConfig{Opener: user})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Close)

	srv, err := server.New(server.Config{
		Service:       svc,
		Repository:    store,
		Invalidations: limiter,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
	})
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{server: srv, svc: svc, store: store, tokens: tokens}
}

func (f *fixture) token(t *testing.T, principal string, roles ...string) string {
	t.Helper()
	tok, err := f.tokens.Issue(principal, auth.AuthMethodJWT, roles...)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (f *fixture) do(method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

func TestNew_Validation(t *testing.T) {
	if _, err := server.New(server.Config{}); !errors.Is(err, server.ErrNilService) {
		t.Errorf("err = %v, want ErrNilService", err)
	}
	svc, err := transform.NewService(transform.ServiceConfig{
		Opener: transform.SessionOpenerFunc(func(context.Context) (repository.Session, error) {
			return nil, repository.ErrAccessDenied
		}),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := server.New(server.Config{Service: svc}); !errors.Is(err, server.ErrNilRepository) {
		t.Errorf("err = %v, want ErrNilRepository", err)
	}
}

func TestTransformation_Found(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodGet, "/transformations/small", f.token(t, "alice", "reader"))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body %s", rec.Code, rec.Body)
	}
	got := decode[transform.Transformation](t, rec)
	if got.Name != "small" || got.Path != "/conf/global/thumbnails/small" {
		t.Errorf("got %+v", got)
	}
	if len(got.Handlers) != 1 || got.Handlers[0].Type != "resize" {
		t.Fatalf("handlers = %+v", got.Handlers)
	}
	if got.Handlers[0].Properties["width"] != float64(100) {
		t.Errorf("width = %v", got.Handlers[0].Properties["width"])
	}
	if n := f.store.OpenSessions(); n != 0 {
		t.Errorf("open sessions = %d, want 0", n)
	}
}

func TestTransformation_Errors(t *testing.T) {
	f := newFixture(t, nil)
	reader := f.token(t, "alice", "reader")
	guest := f.token(t, "bob", "guest")

	tests := []struct {
		name  string
		path  string
		token string
		want  int
	}{
		{"no token", "/transformations/small", "", http.StatusUnauthorized},
		{"bad token", "/transformations/small", "not-a-jwt", http.StatusUnauthorized},
		{"unknown name", "/transformations/huge", reader, http.StatusNotFound},
		{"cached but unreadable", "/transformations/secret", guest, http.StatusNotFound},
		{"readable by reader", "/transformations/secret", reader, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodGet, tt.path, tt.token)
			if rec.Code != tt.want {
				t.Errorf("code = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
		})
	}

	// The guest's failed adaptation left the resolved path in place.
	loc, err := f.svc.Lookup(context.Background(), "#secret")
	if err != nil {
		t.Fatal(err)
	}
	if p, ok := loc.Path(); !ok || p != "/conf/private/thumbnails/secret" {
		t.Errorf("cached location = %v", loc)
	}
}

func TestDiagnostics(t *testing.T) {
	f := newFixture(t, nil)
	reader := f.token(t, "alice", "reader")
	f.do(http.MethodGet, "/transformations/small", reader)
	f.do(http.MethodGet, "/transformations/huge", reader)

	if rec := f.do(http.MethodGet, "/diagnostics/transformations", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous code = %d, want 401", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/diagnostics/transformations", reader); rec.Code != http.StatusForbidden {
		t.Errorf("reader code = %d, want 403", rec.Code)
	}

	rec := f.do(http.MethodGet, "/diagnostics/transformations", f.token(t, "root", "thumbnails-admin"))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	info := decode[map[string]any](t, rec)
	if info["size"] != float64(2) || info["present"] != float64(1) || info["absent"] != float64(1) {
		t.Errorf("counts = size %v present %v absent %v", info["size"], info["present"], info["absent"])
	}
	entries, _ := info["entries"].(map[string]any)
	if entries["#small"] != "/conf/global/thumbnails/small" || entries["#huge"] != "absent" {
		t.Errorf("entries = %v", entries)
	}
}

func TestInvalidate(t *testing.T) {
	f := newFixture(t, resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 0.001, Burst: 1}))
	reader := f.token(t, "alice", "reader")
	admin := f.token(t, "root", "thumbnails-admin")
	f.do(http.MethodGet, "/transformations/small", reader)
	f.do(http.MethodGet, "/transformations/huge", reader)

	if rec := f.do(http.MethodPost, "/diagnostics/transformations/invalidate", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous code = %d, want 401", rec.Code)
	}
	if rec := f.do(http.MethodPost, "/diagnostics/transformations/invalidate", reader); rec.Code != http.StatusForbidden {
		t.Errorf("reader code = %d, want 403", rec.Code)
	}
	if n := f.svc.Stats().Size; n != 2 {
		t.Fatalf("size after rejected invalidations = %d, want 2", n)
	}

	rec := f.do(http.MethodPost, "/diagnostics/transformations/invalidate", admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin code = %d, body %s", rec.Code, rec.Body)
	}
	if got := decode[server.InvalidateResponse](t, rec); got.Dropped != 2 {
		t.Errorf("dropped = %d, want 2", got.Dropped)
	}
	if n := f.svc.Stats().Size; n != 0 {
		t.Errorf("size after invalidation = %d", n)
	}

	rec = f.do(http.MethodPost, "/diagnostics/transformations/invalidate", admin)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second admin code = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if rec := f.do(http.MethodGet, "/diagnostics/transformations/invalidate", admin); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET invalidate code = %d, want 405", rec.Code)
	}
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	f := newFixture(t, nil)
	for _, path := range []string{"/healthz", "/readyz", "/health", "/metrics"} {
		if rec := f.do(http.MethodGet, path, ""); rec.Code != http.StatusOK {
			t.Errorf("%s code = %d", path, rec.Code)
		}
	}
}

func TestServeAndShutdown(t *testing.T) {
	f := newFixture(t, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- f.server.Serve(ln) }()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + ln.Addr().String() + "/healthz")
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := f.server.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	if err := <-done; err != nil {
		t.Errorf("Serve returned %v after shutdown", err)
	}
}
