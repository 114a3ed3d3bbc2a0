package transform

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jonwraymond/thumbnails/auth"
	"github.com/jonwraymond/thumbnails/repository"
)

func definition(path, name string) *repository.Node {
	return &repository.Node{
		Path:         path,
		ResourceType: ResourceType,
		Properties:   map[string]any{PropertyName: name},
	}
}

func handler(path, typ string, props map[string]any) *repository.Node {
	p := map[string]any{PropertyHandlerType: typ}
	for k, v := range props {
		p[k] = v
	}
	return &repository.Node{Path: path, Properties: p}
}

// newStore returns an unauthenticated store seeded with nodes.
func newStore(t *testing.T, nodes ...*repository.Node) *repository.Store {
	t.Helper()
	s, err := repository.NewStore(repository.StoreConfig{Backend: repository.NewMemoryBackend()})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	seed(t, s, nodes...)
	return s
}

func seed(t *testing.T, s *repository.Store, nodes ...*repository.Node) {
	t.Helper()
	if err := repository.Seed(context.Background(), s, nodes); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
}

// storeOpener opens anonymous sessions on a store and counts them.
type storeOpener struct {
	store *repository.Store
	opens atomic.Int32
}

func (o *storeOpener) OpenServiceSession(ctx context.Context) (repository.Session, error) {
	o.opens.Add(1)
	return o.store.Login(ctx, repository.Credentials{})
}

// spySession records Close calls and fails Find on request.
type spySession struct {
	mu         sync.Mutex
	statements []string
	closes     int

	findErr error
	iterErr error
	nodes   []*repository.Node
}

func (s *spySession) ID() string               { return "spy" }
func (s *spySession) Identity() *auth.Identity { return auth.AnonymousIdentity() }

func (s *spySession) Node(context.Context, string) (*repository.Node, error) {
	return nil, repository.ErrNotFound
}

func (s *spySession) Children(context.Context, string) ([]*repository.Node, error) {
	return nil, nil
}

func (s *spySession) Find(_ context.Context, statement, _ string) (repository.NodeIterator, error) {
	s.mu.Lock()
	s.statements = append(s.statements, statement)
	s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.iterErr != nil {
		served := false
		return repository.NewSliceIterator(s.nodes, func() error {
			if served {
				return s.iterErr
			}
			served = true
			return nil
		}), nil
	}
	return repository.NewSliceIterator(s.nodes, nil), nil
}

func (s *spySession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *spySession) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

func (s *spySession) lastStatement() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.statements) == 0 {
		return ""
	}
	return s.statements[len(s.statements)-1]
}

func spyOpener(s *spySession) SessionOpener {
	return SessionOpenerFunc(func(context.Context) (repository.Session, error) {
		return s, nil
	})
}

var errBackend = errors.New("backend unavailable")
