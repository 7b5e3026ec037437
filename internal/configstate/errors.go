package configstate

import "errors"

// Sentinel errors for the configuration store.
var (
	// ErrComponentNotFound is returned when no configuration exists for a
	// component id.
	ErrComponentNotFound = errors.New("configuration not found for component")

	// ErrVersionNotFound is returned when a requested version is not in
	// the retained history.
	ErrVersionNotFound = errors.New("configuration version not found")

	// ErrInvalidSection is returned for an unknown configuration section.
	ErrInvalidSection = errors.New("invalid configuration section")

	// ErrTemplateNotFound is returned when applying an unregistered
	// template.
	ErrTemplateNotFound = errors.New("configuration template not found")

	// ErrTemplateExists is returned when registering a duplicate template
	// id.
	ErrTemplateExists = errors.New("configuration template already registered")

	// ErrMissingParameter is returned when a required template parameter
	// has no value and no default.
	ErrMissingParameter = errors.New("required template parameter missing")

	// ErrImportMalformed is returned when an imported document is not
	// valid JSON for a widget configuration.
	ErrImportMalformed = errors.New("malformed configuration document")
)
