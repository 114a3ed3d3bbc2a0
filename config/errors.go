package config

import "errors"

var (
	// ErrNoPath is returned when Load is called without a path.
	ErrNoPath = errors.New("config: path is empty")

	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("config: invalid configuration")
)
