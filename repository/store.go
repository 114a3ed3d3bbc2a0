package repository

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/thumbnails/auth"
	"github.com/jonwraymond/thumbnails/events"
	"github.com/jonwraymond/thumbnails/observe"
	"github.com/jonwraymond/thumbnails/resilience"
)

// DefaultQueryTimeout bounds a single Find.
const DefaultQueryTimeout = 5 * time.Second

// StoreConfig configures a Store.
type StoreConfig struct {
	Backend Backend

	// Publisher receives a CHANGED event for every written or removed node.
	// Nil disables publication.
	Publisher events.Publisher

	// Authenticator verifies login tokens. Nil makes every session anonymous.
	Authenticator auth.Authenticator

	// Authorizer decides per-path reads. Default: allow all.
	Authorizer auth.Authorizer

	// QueryTimeout bounds Find. Default: DefaultQueryTimeout
	QueryTimeout time.Duration

	Logger observe.Logger
}

// Store implements Repository over a Backend.
type Store struct {
	backend   Backend
	publisher events.Publisher
	guard     *Guard
	queries   *resilience.Executor
	logger    observe.Logger

	open        atomic.Int64
	unannounced atomic.Int64
}

// NewStore creates a store.
func NewStore(config StoreConfig) (*Store, error) {
	if config.Backend == nil {
		return nil, ErrNilBackend
	}
	if config.QueryTimeout <= 0 {
		config.QueryTimeout = DefaultQueryTimeout
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	return &Store{
		backend:   config.Backend,
		publisher: config.Publisher,
		guard:     NewGuard(config.Authenticator, config.Authorizer),
		queries:   resilience.NewExecutor(resilience.WithTimeout(config.QueryTimeout)),
		logger:    config.Logger.With(observe.F("component", "repository")),
	}, nil
}

// Login authenticates creds and opens a session.
func (s *Store) Login(ctx context.Context, creds Credentials) (Session, error) {
	id, err := s.guard.Authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}
	sess := &session{
		id:       uuid.NewString(),
		identity: id,
		store:    s,
	}
	s.open.Add(1)
	s.logger.Debug(ctx, "session opened",
		observe.F("session", sess.id), observe.F("principal", id.Principal))
	return sess, nil
}

// OpenSessions returns the number of sessions not yet closed.
func (s *Store) OpenSessions() int64 {
	return s.open.Load()
}

// Put writes n and publishes a change event. A failed publish is logged and
// counted by Unannounced; the write itself has succeeded.
func (s *Store) Put(ctx context.Context, n *Node) error {
	p, err := CleanPath(n.Path)
	if err != nil {
		return err
	}
	n = n.Clone()
	n.Path = p
	if n.PrimaryType == "" {
		n.PrimaryType = DefaultPrimaryType
	}
	if err := s.backend.Put(ctx, n); err != nil {
		return fmt.Errorf("repository: put %s: %w", p, err)
	}
	s.publish(ctx, n)
	return nil
}

// Delete removes path and its subtree and publishes a change event per node.
func (s *Store) Delete(ctx context.Context, path string) error {
	p, err := CleanPath(path)
	if err != nil {
		return err
	}
	removed, err := s.backend.Delete(ctx, p)
	if err != nil {
		return err
	}
	for _, n := range removed {
		s.publish(ctx, n)
	}
	return nil
}

// Unannounced returns how many writes committed without a change event.
// Caches relying on events stay stale for those until their next periodic
// clear.
func (s *Store) Unannounced() int64 {
	return s.unannounced.Load()
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) publish(ctx context.Context, n *Node) {
	if s.publisher == nil {
		return
	}
	e := events.ResourceEvent(events.TopicResourceChanged, n.Path, n.ResourceType)
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.unannounced.Add(1)
		s.logger.Warn(ctx, "change event not published",
			observe.F("path", n.Path), observe.F("error", err.Error()))
	}
}

func (s *Store) find(ctx context.Context, sess *session, statement, language string) (NodeIterator, error) {
	if language != LanguageSQL2 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}
	stmt, err := ParseStatement(statement)
	if err != nil {
		return nil, err
	}

	var matches []*Node
	err = s.queries.Execute(ctx, func(ctx context.Context) error {
		var err error
		matches, err = s.backend.Select(ctx, stmt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("repository: query failed: %w", err)
	}

	readable := matches[:0]
	for _, n := range matches {
		ok, err := s.guard.CanRead(ctx, sess.identity, n.Path)
		if err != nil {
			return nil, err
		}
		if ok {
			readable = append(readable, n)
		}
	}
	s.logger.Debug(ctx, "query executed",
		observe.F("session", sess.id), observe.F("statement", statement), observe.F("results", len(readable)))
	return NewSliceIterator(readable, sess.check), nil
}

func (s *Store) node(ctx context.Context, sess *session, path string) (*Node, error) {
	p, err := CleanPath(path)
	if err != nil {
		return nil, err
	}
	ok, err := s.guard.CanRead(ctx, sess.identity, p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccessDenied, p)
	}
	return s.backend.Get(ctx, p)
}

func (s *Store) children(ctx context.Context, sess *session, path string) ([]*Node, error) {
	parent, err := s.node(ctx, sess, path)
	if err != nil {
		return nil, err
	}
	all, err := s.backend.Children(ctx, parent.Path)
	if err != nil {
		return nil, err
	}
	readable := all[:0]
	for _, n := range all {
		ok, err := s.guard.CanRead(ctx, sess.identity, n.Path)
		if err != nil {
			return nil, err
		}
		if ok {
			readable = append(readable, n)
		}
	}
	return readable, nil
}

var _ Repository = (*Store)(nil)
