package schedule

import "errors"

var (
	// ErrEmptyName indicates a job without a name.
	ErrEmptyName = errors.New("schedule: job name is empty")

	// ErrNilJob indicates a nil job function.
	ErrNilJob = errors.New("schedule: job is nil")

	// ErrJobExists indicates a duplicate job name.
	ErrJobExists = errors.New("schedule: job already exists")

	// ErrJobNotFound indicates an unknown job name.
	ErrJobNotFound = errors.New("schedule: job not found")

	// ErrInvalidSpec indicates a schedule expression cron cannot parse.
	ErrInvalidSpec = errors.New("schedule: invalid spec")

	// ErrStopped indicates use of a stopped scheduler.
	ErrStopped = errors.New("schedule: scheduler stopped")
)
