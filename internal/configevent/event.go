// Package configevent is the pub/sub channel for configuration change
// events.
//
// Events are delivered asynchronously so emitters never block on
// subscribers, with per-subscriber isolation: one handler's error or panic
// never suppresses delivery to the others. Delivery order is preserved per
// component id by a single ordered queue per component; no ordering is
// guaranteed across different components.
package configevent

import (
	"time"

	"github.com/sashad/cardcore/internal/configstate"
)

// Wildcard subscribes a handler to every component's events.
const Wildcard = "*"

// EventContext carries the cross-cutting flags computed by the integration
// bridge for one change.
type EventContext struct {
	// ShouldTriggerExecution marks changes that require the data-source
	// collaborator to re-execute.
	ShouldTriggerExecution bool `json:"shouldTriggerExecution"`

	// ChangedFields lists the dotted paths that differ between OldConfig
	// and NewConfig.
	ChangedFields []string `json:"changedFields,omitempty"`

	// Forced marks cross-component interaction writes that bypassed
	// deduplication.
	Forced bool `json:"forced,omitempty"`
}

// ChangeEvent is one configuration change, as seen by subscribers.
type ChangeEvent struct {
	ComponentID   string                          `json:"componentId"`
	ComponentType string                          `json:"componentType,omitempty"`
	Section       configstate.Section             `json:"section,omitempty"`
	OldConfig     configstate.WidgetConfiguration `json:"oldConfig"`
	NewConfig     configstate.WidgetConfiguration `json:"newConfig"`
	Timestamp     time.Time                       `json:"timestamp"`
	Source        configstate.Source              `json:"source"`
	Context       EventContext                    `json:"context"`
}

// Handler processes change events.
type Handler interface {
	HandleConfigChange(ev ChangeEvent) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ev ChangeEvent) error

// HandleConfigChange implements Handler.
func (f HandlerFunc) HandleConfigChange(ev ChangeEvent) error {
	return f(ev)
}
