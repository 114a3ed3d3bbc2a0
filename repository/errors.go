package repository

import "errors"

var (
	// ErrAccessDenied indicates the credentials or identity may not read the node.
	ErrAccessDenied = errors.New("repository: access denied")

	// ErrNotFound indicates no readable node exists at the path.
	ErrNotFound = errors.New("repository: node not found")

	// ErrUnsupportedLanguage indicates a query language other than JCR-SQL2.
	ErrUnsupportedLanguage = errors.New("repository: unsupported query language")

	// ErrInvalidStatement indicates a statement that does not parse.
	ErrInvalidStatement = errors.New("repository: invalid statement")

	// ErrSessionClosed indicates use of a session after Close.
	ErrSessionClosed = errors.New("repository: session closed")

	// ErrInvalidPath indicates a path that is not absolute.
	ErrInvalidPath = errors.New("repository: invalid path")

	// ErrNilBackend indicates a Store without a Backend.
	ErrNilBackend = errors.New("repository: backend is nil")
)
