package repository

import (
	"context"

	"github.com/jonwraymond/thumbnails/auth"
)

// Credentials authenticate a Login. Token is a bearer token understood by the
// repository's authenticator.
type Credentials struct {
	Token string
}

// Repository hands out sessions.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: bad credentials return an error matching ErrAccessDenied.
type Repository interface {
	Login(ctx context.Context, creds Credentials) (Session, error)
}

// ResourceReader reads nodes visible to a session's identity.
type ResourceReader interface {
	// Node returns the node at path, or ErrNotFound. Nodes the identity may
	// not read are reported as ErrAccessDenied.
	Node(ctx context.Context, path string) (*Node, error)

	// Children returns the readable direct children of path in path order.
	Children(ctx context.Context, path string) ([]*Node, error)
}

// Session is an authenticated, closable view of the repository.
//
// Contract:
// - Concurrency: a session may be shared, but Close ends it for every user.
// - Ownership: the opener must Close the session exactly once.
// - Iterators returned by Find stop with ErrSessionClosed once the session closes.
type Session interface {
	ResourceReader

	// ID returns a unique session identifier.
	ID() string

	// Identity returns the identity the session was opened for.
	Identity() *auth.Identity

	// Find runs a query. Only LanguageSQL2 is accepted.
	Find(ctx context.Context, statement, language string) (NodeIterator, error)

	// Close releases the session. Later calls return ErrSessionClosed.
	Close() error
}

// NodeIterator is a lazy, single-pass result sequence.
//
//	for it.Next() {
//		n := it.Node()
//	}
//	if err := it.Err(); err != nil { ... }
type NodeIterator interface {
	Next() bool
	Node() *Node
	Err() error
}

// SliceIterator iterates a fixed slice of nodes.
type SliceIterator struct {
	nodes []*Node
	pos   int
	cur   *Node
	err   error
	stop  func() error
}

// NewSliceIterator returns an iterator over nodes. check, when non-nil, runs
// before every step and ends iteration with its error.
func NewSliceIterator(nodes []*Node, check func() error) *SliceIterator {
	return &SliceIterator{nodes: nodes, stop: check}
}

func (it *SliceIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if it.stop != nil {
		if err := it.stop(); err != nil {
			it.err = err
			it.cur = nil
			return false
		}
	}
	if it.pos >= len(it.nodes) {
		it.cur = nil
		return false
	}
	it.cur = it.nodes[it.pos]
	it.pos++
	return true
}

func (it *SliceIterator) Node() *Node { return it.cur }
func (it *SliceIterator) Err() error  { return it.err }

// Collect drains it into a slice.
func Collect(it NodeIterator) ([]*Node, error) {
	var nodes []*Node
	for it.Next() {
		nodes = append(nodes, it.Node())
	}
	return nodes, it.Err()
}
