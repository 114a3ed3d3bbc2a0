package cache

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Invalidation reasons passed to Invalidate.
const (
	ReasonEvent  = "event"
	ReasonTick   = "tick"
	ReasonManual = "manual"
)

// NameCache is an in-memory name resolution cache.
//
// Contract:
// - Concurrency: safe for concurrent use. Hits take only a read lock.
// - Resolution runs without holding the map lock.
// - Errors from the Resolver propagate to the caller and are never cached.
type NameCache struct {
	resolver Resolver
	policy   Policy
	recorder Recorder
	group    singleflight.Group

	mu         sync.RWMutex
	entries    map[string]Location
	generation uint64
	clearedAt  time.Time

	hits          atomic.Int64
	misses        atomic.Int64
	resolutions   atomic.Int64
	failures      atomic.Int64
	invalidations atomic.Int64
	discarded     atomic.Int64
}

// NewNameCache creates a cache that resolves misses with resolver.
func NewNameCache(resolver Resolver, policy Policy) (*NameCache, error) {
	if resolver == nil {
		return nil, ErrNilResolver
	}
	recorder := policy.Recorder
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &NameCache{
		resolver: resolver,
		policy:   policy,
		recorder: recorder,
		entries:  make(map[string]Location),
	}, nil
}

// Lookup returns the cached Location for name, resolving and storing it on a miss.
func (c *NameCache) Lookup(ctx context.Context, name string) (Location, error) {
	if err := ValidateName(name); err != nil {
		return Location{}, err
	}

	c.mu.RLock()
	loc, ok := c.entries[name]
	gen := c.generation
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
		c.recorder.RecordLookup(ctx, true)
		return loc, nil
	}

	c.misses.Add(1)
	c.recorder.RecordLookup(ctx, false)

	if !c.policy.SingleFlight {
		return c.resolveAndStore(ctx, name, gen)
	}

	// The generation is part of the key so a call started after a clear never
	// joins a resolution that started before it. The shared resolution is
	// detached from the caller that started it; every caller waits only on its
	// own context.
	key := strconv.FormatUint(gen, 10) + "\x00" + name
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		return c.resolveAndStore(shared, name, gen)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return Location{}, res.Err
		}
		return res.Val.(Location), nil
	case <-ctx.Done():
		return Location{}, ctx.Err()
	}
}

func (c *NameCache) resolveAndStore(ctx context.Context, name string, gen uint64) (Location, error) {
	start := time.Now()
	loc, err := c.resolver.Resolve(ctx, name)
	c.recorder.RecordResolve(ctx, time.Since(start), loc, err)
	c.resolutions.Add(1)

	if err != nil {
		c.failures.Add(1)
		return Location{}, err
	}
	if !loc.Valid() {
		loc = Absent()
	}

	c.mu.Lock()
	if c.generation == gen {
		c.entries[name] = loc
	} else {
		c.discarded.Add(1)
	}
	c.mu.Unlock()

	return loc, nil
}

// Invalidate discards every entry and returns how many were dropped.
func (c *NameCache) Invalidate(ctx context.Context, reason string) int {
	c.mu.Lock()
	dropped := len(c.entries)
	c.entries = make(map[string]Location)
	c.generation++
	c.clearedAt = time.Now()
	c.mu.Unlock()

	c.invalidations.Add(1)
	c.recorder.RecordInvalidation(ctx, reason, dropped)
	return dropped
}

// InvalidateAll discards every entry.
func (c *NameCache) InvalidateAll() int {
	return c.Invalidate(context.Background(), ReasonManual)
}

// Snapshot returns a point-in-time copy of the cache, sorted by name.
func (c *NameCache) Snapshot() []Entry {
	c.mu.RLock()
	entries := make([]Entry, 0, len(c.entries))
	for name, loc := range c.entries {
		entries = append(entries, Entry{Name: name, Location: loc})
	}
	c.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// Len returns the number of cached names.
func (c *NameCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns cache counters.
func (c *NameCache) Stats() Stats {
	c.mu.RLock()
	size := len(c.entries)
	gen := c.generation
	clearedAt := c.clearedAt
	c.mu.RUnlock()

	return Stats{
		Size:             size,
		Generation:       gen,
		LastInvalidation: clearedAt,
		Hits:             c.hits.Load(),
		Misses:           c.misses.Load(),
		Resolutions:      c.resolutions.Load(),
		Failures:         c.failures.Load(),
		Invalidations:    c.invalidations.Load(),
		Discarded:        c.discarded.Load(),
	}
}

// Stats contains NameCache counters.
type Stats struct {
	Size             int
	Generation       uint64
	LastInvalidation time.Time
	Hits             int64
	Misses           int64
	Resolutions      int64
	Failures         int64
	Invalidations    int64

	// Discarded counts resolutions that finished after a clear and were not stored.
	Discarded int64
}
