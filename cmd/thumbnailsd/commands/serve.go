package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/thumbnails/auth"
	"github.com/jonwraymond/thumbnails/cache"
	"github.com/jonwraymond/thumbnails/config"
	"github.com/jonwraymond/thumbnails/events"
	"github.com/jonwraymond/thumbnails/health"
	"github.com/jonwraymond/thumbnails/observe"
	"github.com/jonwraymond/thumbnails/observe/exporters"
	"github.com/jonwraymond/thumbnails/repository"
	"github.com/jonwraymond/thumbnails/repository/clover"
	"github.com/jonwraymond/thumbnails/resilience"
	"github.com/jonwraymond/thumbnails/schedule"
	"github.com/jonwraymond/thumbnails/server"
	"github.com/jonwraymond/thumbnails/transform"
)

func (c *CLI) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the lookup daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx, configPath(cmd))
			if err != nil {
				return err
			}
			cfg.Observe.Version = Version
			d, err := newDaemon(ctx, cfg)
			if err != nil {
				return err
			}
			return d.run(ctx)
		},
	}
}

// daemon owns every long-lived component of a running thumbnailsd.
type daemon struct {
	cfg       *config.Config
	obs       observe.Observer
	logger    observe.Logger
	bus       *events.Bus
	store     *repository.Store
	user      *transform.ServiceUser
	svc       *transform.Service
	scheduler *schedule.Scheduler
	health    *health.Aggregator
	server    *server.Server
}

func newDaemon(ctx context.Context, cfg *config.Config) (*daemon, error) {
	d := &daemon{cfg: cfg}
	if err := d.build(ctx); err != nil {
		_ = d.close(context.Background())
		return nil, err
	}
	return d, nil
}

func (d *daemon) build(ctx context.Context) error {
	cfg := d.cfg
	var err error
	if d.obs, err = observe.NewObserver(ctx, cfg.Observe); err != nil {
		return fmt.Errorf("observe: %w", err)
	}
	d.logger = d.obs.Logger()
	d.bus = events.NewBus(events.BusConfig{Logger: d.logger})

	if d.store, err = d.openStore(ctx); err != nil {
		return err
	}

	key := []byte(cfg.Auth.SigningKey)
	issuer, err := auth.NewTokenIssuer(key, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	d.user, err = transform.NewServiceUser(transform.ServiceUserConfig{
		Repository:  d.store,
		Issuer:      issuer,
		Principal:   cfg.Auth.ServicePrincipal,
		Roles:       cfg.Auth.ServiceRoles,
		MaxSessions: cfg.Auth.MaxServiceSessions,
		Logger:      d.logger,
	})
	if err != nil {
		return err
	}

	mw, recorder, err := observe.MiddlewareFromObserver(d.obs)
	if err != nil {
		return err
	}
	d.svc, err = transform.NewService(transform.ServiceConfig{
		Opener:              d.user,
		SearchRoots:         cfg.Cache.SearchRoots,
		ResourceType:        cfg.Cache.ResourceType,
		DisableSingleFlight: !cfg.Cache.SingleFlight,
		Recorder:            recorder,
		Middleware:          []cache.Middleware{mw},
		Logger:              d.logger,
	})
	if err != nil {
		return err
	}

	d.scheduler = schedule.New(schedule.Config{Logger: d.logger})
	if err = d.svc.Bind(d.bus, d.scheduler, cfg.Cache.InvalidationSpec); err != nil {
		return err
	}

	d.health = health.NewAggregator()
	d.health.Register(transform.CacheCheckerName, transform.NewCacheChecker(d.svc))
	d.health.Register("repository", health.NewPingChecker("repository", d.pingRepository))
	d.health.Register("memory", health.NewMemoryChecker(health.MemoryCheckerConfig{}))

	srvCfg := server.Config{
		Addr:         cfg.HTTP.Addr,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		Service:      d.svc,
		Repository:   d.store,
		Health:       d.health,
		Invalidations: resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:  cfg.HTTP.InvalidateRate,
			Burst: cfg.HTTP.InvalidateBurst,
		}),
		AdminRole: cfg.Auth.AdminRole,
		Logger:    d.logger,
	}
	if cfg.Observe.Metrics.Enabled && cfg.Observe.Metrics.Exporter == "prometheus" {
		srvCfg.Metrics = exporters.MetricsHandler()
	}
	d.server, err = server.New(srvCfg)
	return err
}

func (d *daemon) openStore(ctx context.Context) (*repository.Store, error) {
	cfg := d.cfg
	var backend repository.Backend
	switch cfg.Repository.Backend {
	case config.BackendClover:
		b, err := clover.Open(clover.Config{Dir: cfg.Repository.Dir})
		if err != nil {
			return nil, err
		}
		backend = b
	default:
		backend = repository.NewMemoryBackend()
	}

	var authz auth.Authorizer
	if len(cfg.Auth.RBAC.Roles) > 0 {
		authz = auth.NewPathRBACAuthorizer(cfg.Auth.RBAC)
	}
	store, err := repository.NewStore(repository.StoreConfig{
		Backend:   backend,
		Publisher: d.bus,
		Authenticator: auth.NewJWTAuthenticator(
			auth.JWTConfig{Issuer: cfg.Auth.Issuer, Audience: cfg.Auth.Audience},
			auth.NewStaticKeyProvider([]byte(cfg.Auth.SigningKey))),
		Authorizer:   authz,
		QueryTimeout: cfg.Repository.QueryTimeout,
		Logger:       d.logger,
	})
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	if cfg.Repository.Seed != "" {
		nodes, err := repository.LoadSeed(cfg.Repository.Seed)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		if err := repository.Seed(ctx, store, nodes); err != nil {
			_ = store.Close()
			return nil, err
		}
		d.logger.Info(ctx, "repository seeded",
			observe.F("file", cfg.Repository.Seed), observe.F("nodes", len(nodes)))
	}
	return store, nil
}

func (d *daemon) pingRepository(ctx context.Context) error {
	sess, err := d.user.OpenServiceSession(ctx)
	if err != nil {
		return err
	}
	return sess.Close()
}

// run serves until ctx is cancelled or the listener fails, then shuts down.
func (d *daemon) run(ctx context.Context) error {
	if err := d.scheduler.Start(); err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- d.server.ListenAndServe() }()

	var err error
	select {
	case <-ctx.Done():
		d.logger.Info(context.Background(), "shutting down")
	case err = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), d.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if serr := d.server.Shutdown(shutdownCtx); serr != nil {
		err = errors.Join(err, serr)
	}
	return errors.Join(err, d.close(shutdownCtx))
}

// close releases whatever newDaemon managed to build.
func (d *daemon) close(ctx context.Context) error {
	var errs []error
	if d.scheduler != nil {
		errs = append(errs, d.scheduler.Stop(ctx))
	}
	if d.svc != nil {
		d.svc.Close()
	}
	if d.bus != nil {
		errs = append(errs, d.bus.Close())
	}
	if d.store != nil {
		errs = append(errs, d.store.Close())
	}
	if d.obs != nil {
		errs = append(errs, d.obs.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
