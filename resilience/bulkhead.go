package resilience

import (
	"context"
	"sync"
	"time"
)

// BulkheadConfig configures a Bulkhead.
type BulkheadConfig struct {
	// MaxConcurrent slots. Default: 10
	MaxConcurrent int

	// MaxWait for a slot. Zero fails at once when full.
	MaxWait time.Duration
}

// Bulkhead is a counting semaphore with rejection stats.
//
// Acquire and Release may happen on different goroutines, so a slot can be
// held for the lifetime of a resource such as a session.
type Bulkhead struct {
	sem     chan struct{}
	maxWait time.Duration

	mu       sync.Mutex
	peak     int
	rejected int64
}

// NewBulkhead creates a Bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}
	return &Bulkhead{
		sem:     make(chan struct{}, config.MaxConcurrent),
		maxWait: config.MaxWait,
	}
}

// Acquire takes a slot, waiting up to MaxWait.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		b.acquired()
		return nil
	default:
	}
	if b.maxWait <= 0 {
		b.reject()
		return ErrBulkheadFull
	}

	timer := time.NewTimer(b.maxWait)
	defer timer.Stop()
	select {
	case b.sem <- struct{}{}:
		b.acquired()
		return nil
	case <-timer.C:
		b.reject()
		return ErrBulkheadFull
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (b *Bulkhead) Release() {
	select {
	case <-b.sem:
	default:
	}
}

// Execute holds a slot while op runs.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}
	defer b.Release()
	return op(ctx)
}

// BulkheadMetrics reports slot usage.
type BulkheadMetrics struct {
	Active        int
	MaxActive     int
	MaxConcurrent int
	Rejected      int64
}

// Metrics returns current usage.
func (b *Bulkhead) Metrics() BulkheadMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BulkheadMetrics{
		Active:        len(b.sem),
		MaxActive:     b.peak,
		MaxConcurrent: cap(b.sem),
		Rejected:      b.rejected,
	}
}

func (b *Bulkhead) acquired() {
	b.mu.Lock()
	b.peak = max(b.peak, len(b.sem))
	b.mu.Unlock()
}

func (b *Bulkhead) reject() {
	b.mu.Lock()
	b.rejected++
	b.mu.Unlock()
}
