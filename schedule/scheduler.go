package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonwraymond/thumbnails/observe"
)

// DefaultSpec is the default invalidation tick.
const DefaultSpec = "@every 1h"

// Job is a unit of scheduled work.
type Job func(ctx context.Context)

// Config configures a Scheduler.
type Config struct {
	// Location for time-of-day specs. Default: UTC
	Location *time.Location

	Logger observe.Logger
}

// JobInfo describes a registered job.
type JobInfo struct {
	Name     string
	Spec     string
	Next     time.Time
	Prev     time.Time
	Runs     int64
	LastRun  time.Time
	Duration time.Duration
}

type entry struct {
	id      cron.EntryID
	spec    string
	job     Job
	running sync.Mutex

	runs     int64
	lastRun  time.Time
	duration time.Duration
}

// Scheduler runs named jobs.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Jobs: a job never runs concurrently with itself; panics are recovered and logged.
type Scheduler struct {
	cron   *cron.Cron
	logger observe.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	jobs    map[string]*entry
	started bool
	stopped bool
}

// New creates a stopped scheduler.
func New(config Config) *Scheduler {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	logger := config.Logger.With(observe.F("component", "schedule"))
	cl := cronLogger{logger: logger}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(config.Location),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
			cron.WithLogger(cl),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*entry),
	}
}

// Add registers job under name with a cron spec such as "@every 1h".
func (s *Scheduler) Add(name, spec string, job Job) error {
	if name == "" {
		return ErrEmptyName
	}
	if job == nil {
		return ErrNilJob
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobExists, name)
	}

	e := &entry{spec: spec, job: job}
	id, err := s.cron.AddFunc(spec, func() { s.run(name, e) })
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidSpec, spec, err)
	}
	e.id = id
	s.jobs[name] = e

	s.logger.Info(s.ctx, "job added", observe.F("job", name), observe.F("spec", spec))
	return nil
}

// RunNow runs a registered job synchronously, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	e, ok := s.jobs[name]
	stopped := s.stopped
	s.mu.Unlock()

	if stopped {
		return ErrStopped
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	s.run(name, e)
	return nil
}

func (s *Scheduler) run(name string, e *entry) {
	e.running.Lock()
	defer e.running.Unlock()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(s.ctx, "job panicked", observe.F("job", name), observe.F("panic", fmt.Sprint(r)))
		}
		d := time.Since(start)
		s.mu.Lock()
		e.runs++
		e.lastRun = start
		e.duration = d
		s.mu.Unlock()
		s.logger.Debug(s.ctx, "job finished", observe.F("job", name), observe.F("duration_ms", d.Milliseconds()))
	}()
	e.job(s.ctx)
}

// Start begins running jobs. Starting twice is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if !s.started {
		s.started = true
		s.cron.Start()
		s.logger.Info(s.ctx, "scheduler started", observe.F("jobs", len(s.jobs)))
	}
	return nil
}

// Stop halts scheduling, cancels the job context and waits for running jobs
// until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info(ctx, "scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Jobs returns the registered jobs sorted by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for name, e := range s.jobs {
		ce := s.cron.Entry(e.id)
		infos = append(infos, JobInfo{
			Name:     name,
			Spec:     e.spec,
			Next:     ce.Next,
			Prev:     ce.Prev,
			Runs:     e.runs,
			LastRun:  e.lastRun,
			Duration: e.duration,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// ValidateSpec reports whether spec parses with the scheduler's parser.
func ValidateSpec(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidSpec, spec, err)
	}
	return nil
}

// cronLogger adapts observe.Logger to cron.Logger.
type cronLogger struct {
	logger observe.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(context.Background(), "cron: "+msg, fields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fs := append(fields(keysAndValues), observe.F("error", err.Error()))
	l.logger.Error(context.Background(), "cron: "+msg, fs...)
}

func fields(keysAndValues []interface{}) []observe.Field {
	fs := make([]observe.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fs = append(fs, observe.F(fmt.Sprint(keysAndValues[i]), keysAndValues[i+1]))
	}
	return fs
}

var _ cron.Logger = cronLogger{}
