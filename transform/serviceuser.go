package transform

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonwraymond/thumbnails/auth"
	"github.com/jonwraymond/thumbnails/observe"
	"github.com/jonwraymond/thumbnails/repository"
	"github.com/jonwraymond/thumbnails/resilience"
)

// DefaultServicePrincipal is the principal service sessions log in as.
const DefaultServicePrincipal = "thumbnails-service"

// DefaultMaxServiceSessions caps concurrently open service sessions.
const DefaultMaxServiceSessions = 16

// SessionOpener opens a repository session scoped to one query.
//
// Contract:
//   - Ownership: the caller must Close the returned session exactly once.
//   - Errors: a credential or configuration problem returns an error matching
//     repository.ErrAccessDenied.
type SessionOpener interface {
	OpenServiceSession(ctx context.Context) (repository.Session, error)
}

// SessionOpenerFunc adapts a function to SessionOpener.
type SessionOpenerFunc func(ctx context.Context) (repository.Session, error)

func (f SessionOpenerFunc) OpenServiceSession(ctx context.Context) (repository.Session, error) {
	return f(ctx)
}

// ServiceUserConfig configures a ServiceUser.
type ServiceUserConfig struct {
	Repository repository.Repository

	// Issuer mints the login token. Nil logs in without a token, which only an
	// unauthenticated repository accepts.
	Issuer *auth.TokenIssuer

	// Principal. Default: DefaultServicePrincipal
	Principal string

	Roles []string

	// MaxSessions open at once. Default: DefaultMaxServiceSessions
	MaxSessions int

	// MaxWait for a free session slot. Default: 1s
	MaxWait time.Duration

	// Breaker guards Login. Nil means every open reaches the repository.
	// An open breaker fails lookups without a login until it resets.
	Breaker *resilience.CircuitBreaker

	// Retry retries Login failures within one open. Nil means one Login per
	// open. Use Transient as RetryIf so access denials are not retried.
	Retry *resilience.Retry

	Logger observe.Logger
}

// ServiceUser opens service sessions by logging in with a freshly issued token.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Sessions: at most MaxSessions are open at once; a slot is released when
//     the session is closed.
type ServiceUser struct {
	repo      repository.Repository
	issuer    *auth.TokenIssuer
	principal string
	roles     []string
	slots     *resilience.Bulkhead
	breaker   *resilience.CircuitBreaker
	login     *resilience.Executor
	logger    observe.Logger
}

// NewServiceUser creates a ServiceUser.
func NewServiceUser(config ServiceUserConfig) (*ServiceUser, error) {
	if config.Repository == nil {
		return nil, ErrNilRepository
	}
	if config.Principal == "" {
		config.Principal = DefaultServicePrincipal
	}
	if config.MaxSessions <= 0 {
		config.MaxSessions = DefaultMaxServiceSessions
	}
	if config.MaxWait <= 0 {
		config.MaxWait = time.Second
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	logger := config.Logger.With(observe.F("component", "service-user"), observe.F("principal", config.Principal))

	var steps []resilience.ExecutorOption
	if config.Breaker != nil {
		steps = append(steps, resilience.WithCircuitBreaker(config.Breaker))
	}
	if config.Retry != nil {
		steps = append(steps, resilience.WithRetry(config.Retry))
	}

	return &ServiceUser{
		repo:      config.Repository,
		issuer:    config.Issuer,
		principal: config.Principal,
		roles:     config.Roles,
		slots: resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: config.MaxSessions,
			MaxWait:       config.MaxWait,
		}),
		breaker: config.Breaker,
		login:   resilience.NewExecutor(steps...),
		logger:  logger,
	}, nil
}

// Transient reports whether a login error may succeed on retry.
func Transient(err error) bool {
	return err != nil &&
		!errors.Is(err, repository.ErrAccessDenied) &&
		!errors.Is(err, auth.ErrMissingSigningKey) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// OpenServiceSession logs in as the service principal.
func (u *ServiceUser) OpenServiceSession(ctx context.Context) (repository.Session, error) {
	if err := u.slots.Acquire(ctx); err != nil {
		return nil, err
	}

	var sess repository.Session
	err := u.login.Execute(ctx, func(ctx context.Context) error {
		var creds repository.Credentials
		if u.issuer != nil {
			token, err := u.issuer.Issue(u.principal, auth.AuthMethodService, u.roles...)
			if err != nil {
				return err
			}
			creds.Token = token
		}
		s, err := u.repo.Login(ctx, creds)
		if err != nil {
			return err
		}
		sess = s
		return nil
	})
	if err != nil {
		u.slots.Release()
		u.logger.Error(ctx, "service login failed", observe.F("error", err.Error()))
		return nil, err
	}
	return &serviceSession{Session: sess, release: u.slots.Release}, nil
}

// ServiceUserStats reports session slots and the login circuit. Circuit is
// StateClosed when no breaker is configured.
type ServiceUserStats struct {
	Active   int
	Rejected int64
	Circuit  resilience.State
}

// Stats returns current counters.
func (u *ServiceUser) Stats() ServiceUserStats {
	m := u.slots.Metrics()
	stats := ServiceUserStats{Active: m.Active, Rejected: m.Rejected, Circuit: resilience.StateClosed}
	if u.breaker != nil {
		stats.Circuit = u.breaker.State()
	}
	return stats
}

type serviceSession struct {
	repository.Session
	once    sync.Once
	release func()
}

func (s *serviceSession) Close() error {
	err := s.Session.Close()
	s.once.Do(s.release)
	return err
}

var _ SessionOpener = (*ServiceUser)(nil)
