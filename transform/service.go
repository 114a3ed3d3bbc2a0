package transform

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonwraymond/thumbnails/cache"
	"github.com/jonwraymond/thumbnails/events"
	"github.com/jonwraymond/thumbnails/observe"
	"github.com/jonwraymond/thumbnails/repository"
	"github.com/jonwraymond/thumbnails/schedule"
)

// JobName is the scheduler job that clears the cache.
const JobName = "transformation-cache-invalidation"

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Opener SessionOpener

	// SearchRoots in precedence order. Default: DefaultSearchRoots()
	SearchRoots []string

	// ResourceType of definition nodes and of the change events that clear the
	// cache. Default: ResourceType
	ResourceType string

	// DisableSingleFlight lets concurrent misses for one name each query.
	DisableSingleFlight bool

	// Recorder receives cache activity, typically observe.CacheMetrics.
	Recorder cache.Recorder

	// Middleware wraps the query resolver, outermost first.
	Middleware []cache.Middleware

	Logger observe.Logger
}

// Service caches transformation locations and adapts them for callers.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Caching: only the path (or its absence) is cached. Adaptation runs on
//     every call with the caller's reader and never changes the cache.
//   - Errors: resolution errors are returned and not cached. Adaptation
//     failures from a missing or unreadable node yield (nil, false, nil).
type Service struct {
	cache        *cache.NameCache
	resolver     *QueryResolver
	resourceType string
	logger       observe.Logger

	mu   sync.Mutex
	subs []*events.Subscription
}

// NewService creates a Service.
func NewService(config ServiceConfig) (*Service, error) {
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	resolver, err := NewQueryResolver(ResolverConfig{
		Opener:       config.Opener,
		SearchRoots:  config.SearchRoots,
		ResourceType: config.ResourceType,
		Logger:       config.Logger,
	})
	if err != nil {
		return nil, err
	}

	policy := cache.DefaultPolicy()
	policy.SingleFlight = !config.DisableSingleFlight
	policy.Recorder = config.Recorder

	c, err := cache.NewNameCache(cache.Chain(resolver, config.Middleware...), policy)
	if err != nil {
		return nil, err
	}
	return &Service{
		cache:        c,
		resolver:     resolver,
		resourceType: resolver.ResourceType(),
		logger:       config.Logger.With(observe.F("component", "transform")),
	}, nil
}

// Resolver returns the underlying query resolver.
func (s *Service) Resolver() *QueryResolver {
	return s.resolver
}

// Lookup returns the cached location for name, resolving it on a miss.
func (s *Service) Lookup(ctx context.Context, name string) (cache.Location, error) {
	return s.cache.Lookup(ctx, name)
}

// Transformation returns the transformation called name as seen by reader.
func (s *Service) Transformation(ctx context.Context, reader repository.ResourceReader, name string) (*Transformation, bool, error) {
	if reader == nil {
		return nil, false, ErrNilReader
	}
	loc, err := s.cache.Lookup(ctx, name)
	if err != nil {
		return nil, false, err
	}
	path, ok := loc.Path()
	if !ok {
		return nil, false, nil
	}

	t, err := Adapt(ctx, reader, path)
	switch {
	case err == nil:
		return t, true, nil
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, repository.ErrAccessDenied),
		errors.Is(err, ErrNotTransformation):
		s.logger.Debug(ctx, "cached transformation not usable",
			observe.F("name", name), observe.F("path", path), observe.F("error", err.Error()))
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("transform: adapt %s: %w", path, err)
	}
}

// Entries returns a point-in-time copy of the cache.
func (s *Service) Entries() []cache.Entry {
	return s.cache.Snapshot()
}

// Stats returns cache counters.
func (s *Service) Stats() cache.Stats {
	return s.cache.Stats()
}

// HandleEvent clears the cache. Filtering happens in the bus subscription.
func (s *Service) HandleEvent(ctx context.Context, e events.Event) {
	dropped := s.cache.Invalidate(ctx, cache.ReasonEvent)
	s.logger.Debug(ctx, "cache cleared",
		observe.F("reason", cache.ReasonEvent),
		observe.F("topic", e.Topic),
		observe.F("path", e.StringProperty(events.PropertyPath)),
		observe.F("dropped", dropped))
}

// Run clears the cache on a scheduler tick.
func (s *Service) Run(ctx context.Context) {
	dropped := s.cache.Invalidate(ctx, cache.ReasonTick)
	s.logger.Debug(ctx, "cache cleared", observe.F("reason", cache.ReasonTick), observe.F("dropped", dropped))
}

// InvalidateAll clears the cache on request and returns the dropped count.
func (s *Service) InvalidateAll(ctx context.Context) int {
	dropped := s.cache.Invalidate(ctx, cache.ReasonManual)
	s.logger.Info(ctx, "cache cleared", observe.F("reason", cache.ReasonManual), observe.F("dropped", dropped))
	return dropped
}

// Bind subscribes to transformation change events on bus and registers the
// periodic clear with scheduler. Either may be nil. An empty spec uses
// schedule.DefaultSpec.
func (s *Service) Bind(bus *events.Bus, scheduler *schedule.Scheduler, spec string) error {
	var sub *events.Subscription
	if bus != nil {
		var err error
		sub, err = bus.Subscribe(
			events.TopicResourceChanged,
			events.PropertyEquals(events.PropertyResourceType, s.resourceType),
			s.HandleEvent,
		)
		if err != nil {
			return fmt.Errorf("transform: subscribe: %w", err)
		}
	}

	if scheduler != nil {
		if spec == "" {
			spec = schedule.DefaultSpec
		}
		if err := scheduler.Add(JobName, spec, s.Run); err != nil {
			if sub != nil {
				sub.Unsubscribe()
			}
			return fmt.Errorf("transform: schedule: %w", err)
		}
	}

	if sub != nil {
		s.mu.Lock()
		s.subs = append(s.subs, sub)
		s.mu.Unlock()
	}
	return nil
}

// Close removes the event subscriptions made by Bind.
func (s *Service) Close() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}
