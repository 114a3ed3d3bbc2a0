package health

import "errors"

var (
	// ErrCheckFailed is attached to unhealthy results that have no cause of their own.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout is attached to checks that missed the aggregate deadline.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound is returned by Aggregator.Check for an unknown name.
	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrNilPing is returned by a PingChecker built without a ping function.
	ErrNilPing = errors.New("health: nil ping function")
)
