package interaction

import "errors"

// Sentinel errors for interaction rule validation and binding.
var (
	// ErrInvalidEvent is returned for an unknown trigger event type.
	ErrInvalidEvent = errors.New("invalid interaction event type")

	// ErrInvalidAction is returned for an unknown response action.
	ErrInvalidAction = errors.New("invalid interaction response action")

	// ErrMissingWatchedProperty is returned when a dataChange rule does not
	// name the property to observe.
	ErrMissingWatchedProperty = errors.New("dataChange interaction requires watchedProperty")

	// ErrMissingJumpConfig is returned when a jump response has no URL.
	ErrMissingJumpConfig = errors.New("jump response requires jumpConfig with url")

	// ErrMissingModifyTarget is returned when a modify response lacks a
	// target component or property.
	ErrMissingModifyTarget = errors.New("modify response requires targetComponentId and targetProperty")

	// ErrInvalidRange is returned when a range condition value is not a
	// parseable "min-max" string.
	ErrInvalidRange = errors.New("invalid range condition value")
)
