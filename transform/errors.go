package transform

import "errors"

var (
	// ErrAccessFailure is returned when no service session can be opened.
	// It wraps the repository error and is never cached.
	ErrAccessFailure = errors.New("transform: repository access failed")

	// ErrNilOpener is returned when a resolver or service has no session opener.
	ErrNilOpener = errors.New("transform: session opener is nil")

	// ErrNilRepository is returned when a service user has no repository.
	ErrNilRepository = errors.New("transform: repository is nil")

	// ErrNilReader is returned when Transformation is called without a reader.
	ErrNilReader = errors.New("transform: resource reader is nil")

	// ErrNoSearchRoots is returned when every configured search root is empty.
	ErrNoSearchRoots = errors.New("transform: no search roots configured")

	// ErrNotTransformation is returned when a node has another resource type.
	ErrNotTransformation = errors.New("transform: node is not a transformation")
)
