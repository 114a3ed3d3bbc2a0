package health

import (
	"context"
	"time"
)

// Status is the state a component reports.
type Status int

const (
	StatusHealthy Status = iota
	StatusDegraded
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Worse returns the more severe of s and other.
func (s Status) Worse(other Status) Status {
	if other > s {
		return other
	}
	return s
}

// Result is the outcome of one check.
type Result struct {
	Status    Status
	Message   string
	Details   map[string]any
	Duration  time.Duration
	Timestamp time.Time
	Error     error
}

// Healthy returns a healthy result stamped with the current time.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message, Timestamp: time.Now()}
}

// Degraded returns a degraded result stamped with the current time.
func Degraded(message string) Result {
	return Result{Status: StatusDegraded, Message: message, Timestamp: time.Now()}
}

// Unhealthy returns an unhealthy result carrying err.
func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Error: err, Timestamp: time.Now()}
}

func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

func (r Result) WithDuration(d time.Duration) Result {
	r.Duration = d
	return r
}

// Checker is implemented by every component that reports health.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// InfoChecker is a Checker that can also describe its internal state.
// The diagnostics endpoints use Info to dump cache contents.
type InfoChecker interface {
	Checker
	Info(ctx context.Context) (map[string]any, error)
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

func (f *CheckerFunc) Name() string                     { return f.name }
func (f *CheckerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }

// PingChecker turns a reachability probe into a Checker. A nil error is
// healthy, a slow success past Slow is degraded, and any error is unhealthy.
type PingChecker struct {
	name string
	ping func(context.Context) error
	slow time.Duration
}

// NewPingChecker returns a PingChecker. The daemon pings the repository by
// opening and closing a service session.
func NewPingChecker(name string, ping func(context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

// Slow sets the latency above which a successful ping reports degraded.
// Zero disables the threshold.
func (p *PingChecker) Slow(d time.Duration) *PingChecker {
	p.slow = d
	return p
}

func (p *PingChecker) Name() string { return p.name }

func (p *PingChecker) Check(ctx context.Context) Result {
	if p.ping == nil {
		return Unhealthy("no probe configured", ErrNilPing)
	}
	start := time.Now()
	err := p.ping(ctx)
	elapsed := time.Since(start)
	if err != nil {
		return Unhealthy(p.name+" unreachable", err).WithDuration(elapsed)
	}
	if p.slow > 0 && elapsed > p.slow {
		return Degraded(p.name + " slow").WithDuration(elapsed)
	}
	return Healthy(p.name + " reachable").WithDuration(elapsed)
}
