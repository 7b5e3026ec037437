// Package component tracks live widget instances and routes their UI
// events.
//
// A rendered widget registers an Instance handle under its component id.
// The interaction router discovers instances through the Registry, attaches
// click/hover listeners, and watches instance properties for dataChange
// triggers. The canvas runtime delivers UI events by calling Emit.
package component

import (
	"errors"
)

// UIEvent is a user-interface event type deliverable to listeners.
type UIEvent string

// UI events.
const (
	UIEventClick UIEvent = "click"
	UIEventHover UIEvent = "hover"
)

// PropertyCallback observes one property's value changes.
type PropertyCallback func(old, new any)

// Instance is the contract a live widget exposes to the interaction layer.
type Instance interface {
	// ID returns the component id the instance is rendered for.
	ID() string

	// Property returns the current value of a named property.
	Property(name string) (any, bool)

	// WatchProperty observes a property. The callback fires only when the
	// value actually changes. The returned function removes the watch.
	WatchProperty(name string, fn PropertyCallback) (func(), error)
}

// Sentinel errors.
var (
	// ErrInstanceNotFound is returned when no live instance is registered
	// for a component id.
	ErrInstanceNotFound = errors.New("no live instance for component")

	// ErrAlreadyRegistered is returned when registering a second instance
	// under the same component id.
	ErrAlreadyRegistered = errors.New("instance already registered for component")
)
