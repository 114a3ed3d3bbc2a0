package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Backend persists nodes for a Store. It performs no access control.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Ownership: returned nodes belong to the caller.
// - Ordering: Children and Select return nodes in path order.
type Backend interface {
	Get(ctx context.Context, path string) (*Node, error)
	Put(ctx context.Context, n *Node) error

	// Delete removes path and its subtree and returns the removed nodes.
	Delete(ctx context.Context, path string) ([]*Node, error)

	Children(ctx context.Context, path string) ([]*Node, error)
	Select(ctx context.Context, stmt *Statement) ([]*Node, error)
	Close() error
}

// MemoryBackend keeps nodes in a map.
type MemoryBackend struct {
	mu    sync.RWMutex
	nodes map[string]*Node
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{nodes: make(map[string]*Node)}
}

func (b *MemoryBackend) Get(_ context.Context, path string) (*Node, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, ok := b.nodes[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return n.Clone(), nil
}

func (b *MemoryBackend) Put(_ context.Context, n *Node) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nodes[n.Path] = n.Clone()
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, path string) ([]*Node, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var removed []*Node
	for p, n := range b.nodes {
		if p == path || IsDescendant(path, p) {
			removed = append(removed, n)
			delete(b.nodes, p)
		}
	}
	if len(removed) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	sortByPath(removed)
	return removed, nil
}

func (b *MemoryBackend) Children(_ context.Context, path string) ([]*Node, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var children []*Node
	for _, n := range b.nodes {
		if n.Path != "/" && n.Parent() == path {
			children = append(children, n.Clone())
		}
	}
	sortByPath(children)
	return children, nil
}

func (b *MemoryBackend) Select(ctx context.Context, stmt *Statement) ([]*Node, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var matches []*Node
	for _, n := range b.nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if stmt.Match(n) {
			matches = append(matches, n.Clone())
		}
	}
	sortByPath(matches)
	return matches, nil
}

// Len returns the number of stored nodes.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.nodes)
}

func (b *MemoryBackend) Close() error { return nil }

func sortByPath(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool {
		return strings.Compare(nodes[i].Path, nodes[j].Path) < 0
	})
}

var _ Backend = (*MemoryBackend)(nil)
