// Package interaction implements declarative interaction rules for dashboard
// widgets: trigger events (click, hover, data change) routed to responses
// (navigation jumps, property modification on this or another component).
//
// The Router binds rule sets to live component instances and executes
// responses with batching so that multiple rules firing on the same trigger
// do not clobber each other's writes.
package interaction

import (
	"fmt"
)

// EventType is the trigger event of an interaction rule.
type EventType string

// Supported trigger events.
const (
	EventClick      EventType = "click"
	EventHover      EventType = "hover"
	EventDataChange EventType = "dataChange"
)

// Valid reports whether the event type is one of the supported triggers.
func (e EventType) Valid() bool {
	switch e {
	case EventClick, EventHover, EventDataChange:
		return true
	}
	return false
}

// ConditionType selects how a condition is evaluated.
type ConditionType string

// Supported condition types.
const (
	ConditionComparison ConditionType = "comparison"
	ConditionRange      ConditionType = "range"
	ConditionExpression ConditionType = "expression"
)

// Operator is the comparison operator for comparison conditions.
type Operator string

// Supported comparison operators.
const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "notEquals"
	OpGreaterThan Operator = "greaterThan"
	OpLessThan    Operator = "lessThan"
	OpContains    Operator = "contains"
)

// Condition gates response execution on the triggering value.
//
// For comparison conditions, Value is the comparand. For range conditions,
// Value is a "min-max" string. For expression conditions, Value is the
// expression source with ${value} bound to the triggering value.
type Condition struct {
	Type     ConditionType `json:"type"`
	Operator Operator      `json:"operator,omitempty"`
	Value    any           `json:"value,omitempty"`
}

// ActionType is the kind of response an interaction executes.
type ActionType string

// Supported response actions.
const (
	ActionJump   ActionType = "jump"
	ActionModify ActionType = "modify"
)

// JumpConfig describes a navigation response.
type JumpConfig struct {
	// URL is the navigation target.
	URL string `json:"url"`

	// Target is "self" (same view, default) or "blank" (new view).
	Target string `json:"target,omitempty"`
}

// ModifyConfig describes a property-modification response.
type ModifyConfig struct {
	TargetComponentID string `json:"targetComponentId"`
	TargetProperty    string `json:"targetProperty"`
	UpdateValue       any    `json:"updateValue"`
}

// Response is one action executed when an interaction fires.
type Response struct {
	Action ActionType    `json:"action"`
	Jump   *JumpConfig   `json:"jumpConfig,omitempty"`
	Modify *ModifyConfig `json:"modifyConfig,omitempty"`
}

// Config is one declarative interaction rule.
type Config struct {
	ID    string    `json:"id"`
	Event EventType `json:"event"`

	// Condition, when present, gates response execution.
	Condition *Condition `json:"condition,omitempty"`

	// WatchedProperty is the property observed for dataChange events.
	// Required when Event is EventDataChange.
	WatchedProperty string `json:"watchedProperty,omitempty"`

	Responses []Response `json:"responses"`
}

// Validate checks the structural invariants of a rule. An invalid rule is
// not an error for the owning component; the router logs it and leaves it
// inert.
func (c *Config) Validate() error {
	if !c.Event.Valid() {
		return fmt.Errorf("%w: event %q", ErrInvalidEvent, c.Event)
	}
	if c.Event == EventDataChange && c.WatchedProperty == "" {
		return ErrMissingWatchedProperty
	}
	for i, resp := range c.Responses {
		if err := resp.validate(); err != nil {
			return fmt.Errorf("response %d: %w", i, err)
		}
	}
	return nil
}

func (r *Response) validate() error {
	switch r.Action {
	case ActionJump:
		if r.Jump == nil || r.Jump.URL == "" {
			return ErrMissingJumpConfig
		}
	case ActionModify:
		if r.Modify == nil || r.Modify.TargetComponentID == "" || r.Modify.TargetProperty == "" {
			return ErrMissingModifyTarget
		}
	default:
		return fmt.Errorf("%w: action %q", ErrInvalidAction, r.Action)
	}
	return nil
}
