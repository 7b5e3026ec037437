package datasource

import "errors"

// Sentinel errors for data source parsing and execution.
var (
	// ErrMissingType is returned when a dataSource layer has no type tag.
	ErrMissingType = errors.New("data source config missing type")

	// ErrUnknownType is returned for an unrecognized type tag.
	ErrUnknownType = errors.New("unknown data source type")

	// ErrNoFetcher is returned when no fetcher is registered for a type.
	ErrNoFetcher = errors.New("no fetcher registered for data source type")

	// ErrExecutorClosed is returned when triggering a closed executor.
	ErrExecutorClosed = errors.New("data source executor is closed")
)
