package configevent

import "errors"

// Sentinel errors for the event bus.
var (
	// ErrBusClosed is returned when publishing or subscribing on a closed
	// bus.
	ErrBusClosed = errors.New("config event bus is closed")

	// ErrQueueFull is returned when a component's queue cannot accept
	// another event; the event is dropped.
	ErrQueueFull = errors.New("config event queue is full")

	// ErrNilHandler is returned when subscribing with a nil handler.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrInvalidComponentID is returned for an empty component id.
	ErrInvalidComponentID = errors.New("invalid component id")
)
