// Package config loads the thumbnailsd configuration from YAML.
//
// Loading runs in a fixed order: strict environment expansion of the raw
// document, YAML decoding over Defaults, secret reference resolution for the
// signing key, then validation with struct tags and cross-field checks.
//
//	cfg, err := config.Load(ctx, "/etc/thumbnails/config.yaml")
package config
