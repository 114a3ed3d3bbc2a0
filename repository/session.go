package repository

import (
	"context"
	"sync/atomic"

	"github.com/jonwraymond/thumbnails/auth"
)

type session struct {
	id       string
	identity *auth.Identity
	store    *Store
	closed   atomic.Bool
}

func (s *session) ID() string               { return s.id }
func (s *session) Identity() *auth.Identity { return s.identity }

func (s *session) check() error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	return nil
}

func (s *session) Find(ctx context.Context, statement, language string) (NodeIterator, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.store.find(ctx, s, statement, language)
}

func (s *session) Node(ctx context.Context, path string) (*Node, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.store.node(ctx, s, path)
}

func (s *session) Children(ctx context.Context, path string) ([]*Node, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.store.children(ctx, s, path)
}

func (s *session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrSessionClosed
	}
	s.store.open.Add(-1)
	return nil
}
