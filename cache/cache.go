package cache

import (
	"context"
	"errors"
	"unicode/utf8"
)

// MaxNameLength is the maximum allowed length for a transformation name.
const MaxNameLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilResolver = errors.New("cache: resolver is nil")
	ErrInvalidName = errors.New("cache: name is invalid")
	ErrNameTooLong = errors.New("cache: name exceeds max length")
)

// Location is the cached outcome of resolving a name: a repository path or a
// confirmed absence. The zero value is not a valid outcome.
type Location struct {
	path  string
	state locationState
}

type locationState uint8

const (
	stateUnset locationState = iota
	statePresent
	stateAbsent
)

// Present returns a Location pointing at path.
func Present(path string) Location {
	return Location{path: path, state: statePresent}
}

// Absent returns a Location recording that no match exists.
func Absent() Location {
	return Location{state: stateAbsent}
}

// Path returns the resolved path and true, or "" and false when absent.
func (l Location) Path() (string, bool) {
	if l.state != statePresent {
		return "", false
	}
	return l.path, true
}

// Found reports whether the name resolved to a path.
func (l Location) Found() bool {
	return l.state == statePresent
}

// Valid reports whether l is Present or Absent.
func (l Location) Valid() bool {
	return l.state != stateUnset
}

func (l Location) String() string {
	switch l.state {
	case statePresent:
		return l.path
	case stateAbsent:
		return "absent"
	default:
		return "unset"
	}
}

// Entry is a single cached name and its outcome.
type Entry struct {
	Name     string
	Location Location
}

// Resolver computes the Location of a name on a cache miss.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Resolve should honor cancellation/deadlines of the underlying store.
// - Errors: a name with no match is Absent(), not an error. Errors are never cached.
type Resolver interface {
	Resolve(ctx context.Context, name string) (Location, error)
}

// ResolverFunc is an adapter to allow ordinary functions to be used as Resolvers.
type ResolverFunc func(ctx context.Context, name string) (Location, error)

// Resolve calls f(ctx, name).
func (f ResolverFunc) Resolve(ctx context.Context, name string) (Location, error) {
	return f(ctx, name)
}

// ValidateName checks that name can be resolved: it needs a sentinel rune
// followed by at least one more byte. The rest of the name is opaque.
func ValidateName(name string) error {
	_, size := utf8.DecodeRuneInString(name)
	if size == 0 || len(name) == size {
		return ErrInvalidName
	}
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}
