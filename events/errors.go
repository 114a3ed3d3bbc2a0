package events

import "errors"

var (
	// ErrBusClosed is returned when publishing to or subscribing on a closed bus.
	ErrBusClosed = errors.New("events: bus is closed")

	// ErrNilHandler is returned when subscribing with a nil handler.
	ErrNilHandler = errors.New("events: handler is nil")

	// ErrEmptyTopic is returned when a topic is empty.
	ErrEmptyTopic = errors.New("events: topic is empty")
)
