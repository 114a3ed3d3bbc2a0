// Package secret expands environment variables and resolves secret
// references in configuration values, such as the signing key the service
// user and callers authenticate with.
//
// A value may reference a secret in full or inline:
//
//	signing_key: secretref:file:/run/secrets/thumbnails-signing-key
//	signing_key: secretref:env:THUMBNAILS_SIGNING_KEY
//	header: Bearer secretref:env:API_TOKEN
//
// Two providers are built in: "env" reads an environment variable and "file"
// reads a file, trimming the trailing newline. Both are registered in
// DefaultRegistry.
package secret
