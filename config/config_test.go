package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/thumbnails/secret"
	"github.com/jonwraymond/thumbnails/transform"
)

const testKey = "0123456789abcdef-test-key"

func parse(t *testing.T, doc string) (*Config, error) {
	t.Helper()
	return Parse(context.Background(), strings.NewReader(doc))
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := parse(t, "auth:\n  signing_key: "+testKey+"\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" || cfg.Repository.Backend != BackendMemory {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if len(cfg.Cache.SearchRoots) != 3 || cfg.Cache.SearchRoots[0] != "/conf" {
		t.Errorf("search roots = %v", cfg.Cache.SearchRoots)
	}
	if cfg.Cache.ResourceType != transform.ResourceType || cfg.Cache.InvalidationSpec != "@every 1h" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if !cfg.Cache.SingleFlight {
		t.Error("single flight should default on")
	}
}

func TestParse_Overrides(t *testing.T) {
	doc := `
http:
  addr: 127.0.0.1:9000
  read_timeout: 2s
repository:
  backend: clover
  dir: /var/lib/thumbnails
  query_timeout: 750ms
cache:
  search_roots: [/conf, /apps/conf]
  invalidation_spec: "@every 30m"
auth:
  signing_key: ` + testKey + `
  service_roles: [reader]
  rbac:
    default_role: reader
    roles:
      reader:
        allowed_paths: [/conf, /apps]
        denied_paths: [/conf/private]
observe:
  service_name: thumbs
  logging:
    enabled: true
    level: debug
`
	cfg, err := parse(t, doc)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.HTTP.Addr != "127.0.0.1:9000" || cfg.HTTP.ReadTimeout != 2*time.Second {
		t.Errorf("http = %+v", cfg.HTTP)
	}
	if cfg.HTTP.WriteTimeout != 30*time.Second {
		t.Errorf("unset write_timeout lost its default: %v", cfg.HTTP.WriteTimeout)
	}
	if cfg.Repository.QueryTimeout != 750*time.Millisecond || cfg.Repository.Dir != "/var/lib/thumbnails" {
		t.Errorf("repository = %+v", cfg.Repository)
	}
	if len(cfg.Cache.SearchRoots) != 2 {
		t.Errorf("search roots = %v", cfg.Cache.SearchRoots)
	}
	reader, ok := cfg.Auth.RBAC.Roles["reader"]
	if !ok || len(reader.DeniedPaths) != 1 || cfg.Auth.RBAC.DefaultRole != "reader" {
		t.Errorf("rbac = %+v", cfg.Auth.RBAC)
	}
	if cfg.Observe.ServiceName != "thumbs" || cfg.Observe.Logging.Level != "debug" {
		t.Errorf("observe = %+v", cfg.Observe)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
		want    string
	}{
		{"missing key", "http:\n  addr: localhost:1\n", ErrInvalid, "SigningKey"},
		{"short key", "auth:\n  signing_key: short\n", ErrInvalid, "SigningKey"},
		{"bad backend", "repository:\n  backend: postgres\nauth:\n  signing_key: " + testKey, ErrInvalid, "Backend"},
		{"relative root", "cache:\n  search_roots: [conf]\nauth:\n  signing_key: " + testKey, ErrInvalid, "SearchRoots"},
		{"no roots", "cache:\n  search_roots: []\nauth:\n  signing_key: " + testKey, ErrInvalid, "SearchRoots"},
		{"bad spec", "cache:\n  invalidation_spec: sometimes\nauth:\n  signing_key: " + testKey, ErrInvalid, "invalidation_spec"},
		{"dir without clover", "repository:\n  dir: /tmp/x\nauth:\n  signing_key: " + testKey, ErrInvalid, "clover"},
		{"bad log level", "observe:\n  logging:\n    level: loud\nauth:\n  signing_key: " + testKey, ErrInvalid, "observe"},
		{"zero rate", "http:\n  invalidate_rate: 0\nauth:\n  signing_key: " + testKey, ErrInvalid, "InvalidateRate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.doc)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestParse_UnknownField(t *testing.T) {
	_, err := parse(t, "cache:\n  ttl: 5m\n")
	if err == nil || !strings.Contains(err.Error(), "ttl") {
		t.Errorf("err = %v, want unknown field error", err)
	}
}

func TestParse_EnvAndSecrets(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "signing"), []byte(testKey+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("THUMBS_SECRET_DIR", dir)
	t.Setenv("THUMBS_ADDR", "127.0.0.1:7070")

	doc := `
http:
  addr: ${THUMBS_ADDR}
secrets:
  providers:
    file:
      dir: ${THUMBS_SECRET_DIR}
auth:
  signing_key: secretref:file:signing
`
	cfg, err := parse(t, doc)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.HTTP.Addr != "127.0.0.1:7070" {
		t.Errorf("addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Auth.SigningKey != testKey {
		t.Errorf("signing key not resolved: %q", cfg.Auth.SigningKey)
	}

	t.Setenv("THUMBS_SIGNING", testKey)
	cfg, err = parse(t, "auth:\n  signing_key: secretref:env:THUMBS_SIGNING\n")
	if err != nil || cfg.Auth.SigningKey != testKey {
		t.Errorf("env secret = %q, %v", cfg.Auth.SigningKey, err)
	}
}

func TestParse_SecretErrors(t *testing.T) {
	if _, err := parse(t, "http:\n  addr: ${THUMBS_NOT_SET_ANYWHERE}\n"); !errors.Is(err, secret.ErrMissingEnv) {
		t.Errorf("missing env err = %v", err)
	}
	if _, err := parse(t, "auth:\n  signing_key: secretref:vault:k\n"); !errors.Is(err, secret.ErrUnknownProvider) {
		t.Errorf("unknown provider err = %v", err)
	}
	if _, err := parse(t, "secrets:\n  providers:\n    vault: {}\nauth:\n  signing_key: "+testKey); !errors.Is(err, secret.ErrUnknownProvider) {
		t.Errorf("unregistered provider err = %v", err)
	}
}

func TestLoad(t *testing.T) {
	if _, err := Load(context.Background(), ""); !errors.Is(err, ErrNoPath) {
		t.Errorf("err = %v", err)
	}
	if _, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v", err)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("auth:\n  signing_key: "+testKey+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Auth.SigningKey != testKey {
		t.Errorf("key = %q", cfg.Auth.SigningKey)
	}
}
