package config

import (
	"time"

	"github.com/jonwraymond/thumbnails/auth"
	"github.com/jonwraymond/thumbnails/observe"
	"github.com/jonwraymond/thumbnails/repository"
	"github.com/jonwraymond/thumbnails/schedule"
	"github.com/jonwraymond/thumbnails/transform"
)

// Backends accepted in RepositoryConfig.Backend.
const (
	BackendMemory = "memory"
	BackendClover = "clover"
)

// Config is the thumbnailsd configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Repository RepositoryConfig `yaml:"repository"`
	Cache      CacheConfig      `yaml:"cache"`
	Auth       AuthConfig       `yaml:"auth"`
	Secrets    SecretsConfig    `yaml:"secrets"`
	Observe    observe.Config   `yaml:"observe"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`

	// InvalidateRate limits manual invalidations per second.
	InvalidateRate  float64 `yaml:"invalidate_rate" validate:"gt=0"`
	InvalidateBurst int     `yaml:"invalidate_burst" validate:"gte=1"`
}

// RepositoryConfig selects and seeds the content repository.
type RepositoryConfig struct {
	Backend string `yaml:"backend" validate:"oneof=memory clover"`

	// Dir holds clover data. Empty keeps clover in memory.
	Dir string `yaml:"dir"`

	// Seed is a YAML node file loaded at startup.
	Seed string `yaml:"seed"`

	QueryTimeout time.Duration `yaml:"query_timeout" validate:"gt=0"`
}

// CacheConfig configures transformation name resolution.
type CacheConfig struct {
	SearchRoots      []string `yaml:"search_roots" validate:"min=1,dive,startswith=/"`
	ResourceType     string   `yaml:"resource_type" validate:"required"`
	InvalidationSpec string   `yaml:"invalidation_spec" validate:"required"`
	SingleFlight     bool     `yaml:"single_flight"`
}

// AuthConfig configures caller and service-user tokens.
type AuthConfig struct {
	// SigningKey may be a secret reference such as secretref:env:KEY.
	SigningKey string        `yaml:"signing_key" validate:"required,min=16"`
	Issuer     string        `yaml:"issuer" validate:"required"`
	Audience   string        `yaml:"audience"`
	TokenTTL   time.Duration `yaml:"token_ttl" validate:"gt=0"`

	ServicePrincipal   string   `yaml:"service_principal" validate:"required"`
	ServiceRoles       []string `yaml:"service_roles"`
	MaxServiceSessions int      `yaml:"max_service_sessions" validate:"gte=1"`

	// AdminRole is required to invalidate the cache over HTTP.
	AdminRole string `yaml:"admin_role" validate:"required"`

	// RBAC decides per-path reads. No roles allows every read.
	RBAC auth.RBACConfig `yaml:"rbac"`
}

// SecretsConfig configures secret providers by name, e.g. file: {dir: /run/secrets}.
type SecretsConfig struct {
	Strict    bool                      `yaml:"strict"`
	Providers map[string]map[string]any `yaml:"providers"`
}

// Defaults returns a configuration that passes Validate once a signing key
// is set.
func Defaults() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			InvalidateRate:  1,
			InvalidateBurst: 5,
		},
		Repository: RepositoryConfig{
			Backend:      BackendMemory,
			QueryTimeout: repository.DefaultQueryTimeout,
		},
		Cache: CacheConfig{
			SearchRoots:      transform.DefaultSearchRoots(),
			ResourceType:     transform.ResourceType,
			InvalidationSpec: schedule.DefaultSpec,
			SingleFlight:     true,
		},
		Auth: AuthConfig{
			Issuer:             "thumbnails",
			TokenTTL:           15 * time.Minute,
			ServicePrincipal:   transform.DefaultServicePrincipal,
			MaxServiceSessions: transform.DefaultMaxServiceSessions,
			AdminRole:          "thumbnails-admin",
		},
		Secrets: SecretsConfig{
			Strict:    true,
			Providers: map[string]map[string]any{"env": {}, "file": {}},
		},
		Observe: observe.Config{
			ServiceName: "thumbnailsd",
			Tracing:     observe.TracingConfig{Exporter: "none", SamplePct: 1},
			Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
		},
	}
}
