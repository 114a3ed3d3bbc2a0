package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/thumbnails/schedule"
	"github.com/jonwraymond/thumbnails/secret"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads, resolves and validates the file at path.
func Load(ctx context.Context, path string) (*Config, error) {
	if path == "" {
		return nil, ErrNoPath
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(ctx, bytes.NewReader(data))
}

// Parse is Load for an already opened document.
func Parse(ctx context.Context, r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	expanded, err := secret.ExpandEnvStrict(string(raw))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := Defaults()
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	if err := cfg.ResolveSecrets(ctx); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolver builds a secret resolver from the configured providers.
func (c *Config) Resolver() (*secret.Resolver, error) {
	r := secret.NewResolver(c.Secrets.Strict)
	for name, settings := range c.Secrets.Providers {
		p, err := secret.DefaultRegistry.Create(name, settings)
		if err != nil {
			return nil, fmt.Errorf("config: secrets: %w", err)
		}
		r.Register(p)
	}
	return r, nil
}

// ResolveSecrets replaces secret references in the signing key.
func (c *Config) ResolveSecrets(ctx context.Context) error {
	r, err := c.Resolver()
	if err != nil {
		return err
	}
	defer r.Close()

	key, err := r.ResolveValue(ctx, c.Auth.SigningKey)
	if err != nil {
		return fmt.Errorf("config: auth.signing_key: %w", err)
	}
	c.Auth.SigningKey = key
	return nil
}

// Validate checks struct tags, the invalidation schedule and the observe section.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("%w: %s failed %q", ErrInvalid, first.Namespace(), first.Tag())
		}
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := schedule.ValidateSpec(c.Cache.InvalidationSpec); err != nil {
		return fmt.Errorf("%w: cache.invalidation_spec: %w", ErrInvalid, err)
	}
	if err := c.Observe.Validate(); err != nil {
		return fmt.Errorf("%w: observe: %w", ErrInvalid, err)
	}
	if c.Repository.Backend == BackendMemory && c.Repository.Dir != "" {
		return fmt.Errorf("%w: repository.dir requires the clover backend", ErrInvalid)
	}
	return nil
}
