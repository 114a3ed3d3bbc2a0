package secret

import "errors"

var (
	// ErrMissingEnv is returned when ${VAR} names an unset variable.
	ErrMissingEnv = errors.New("secret: missing environment variables")

	// ErrUnknownProvider is returned for a reference to an unregistered provider.
	ErrUnknownProvider = errors.New("secret: provider not registered")

	// ErrProviderExists is returned when a factory name is registered twice.
	ErrProviderExists = errors.New("secret: provider already registered")

	// ErrInvalidProvider is returned for an empty name or nil factory.
	ErrInvalidProvider = errors.New("secret: invalid provider registration")

	// ErrNotFound is returned by a provider that has no value for a reference.
	ErrNotFound = errors.New("secret: not found")

	// ErrEmptySecret is returned in strict mode when a provider yields "".
	ErrEmptySecret = errors.New("secret: empty value")
)
