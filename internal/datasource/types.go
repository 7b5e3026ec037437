// Package datasource executes data acquisition for widgets.
//
// A widget's dataSource configuration layer is polymorphic by its "type"
// tag. The Executor debounces execution requests, coalesces them by
// configuration content hash, and guards result application with a
// per-component sequence number so a slow stale fetch can never overwrite
// a newer result.
package datasource

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type tags a data source configuration.
type Type string

// Supported data source types.
const (
	TypeStatic         Type = "static"
	TypeAPI            Type = "api"
	TypeWebSocket      Type = "websocket"
	TypeMultiSource    Type = "multi-source"
	TypeDataMapping    Type = "data-mapping"
	TypeSourceBindings Type = "data-source-bindings"
)

// Valid reports whether t is a known data source type.
func (t Type) Valid() bool {
	switch t {
	case TypeStatic, TypeAPI, TypeWebSocket, TypeMultiSource, TypeDataMapping, TypeSourceBindings:
		return true
	}
	return false
}

// Config is a parsed data source configuration.
type Config struct {
	Type Type `json:"type"`

	// Static data, returned as-is for TypeStatic.
	Data any `json:"data,omitempty"`

	// HTTP acquisition (TypeAPI).
	URL     string            `json:"url,omitempty"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`

	// Device query fields, forwarded untouched to the fetcher.
	DeviceID    string   `json:"deviceId,omitempty"`
	MetricsList []string `json:"metricsList,omitempty"`
	Aggregation string   `json:"aggregation,omitempty"`

	// RefreshInterval is the requested re-execution period in seconds,
	// scheduled by the hosting runtime.
	RefreshInterval int `json:"refreshInterval,omitempty"`

	// Sources are sub-configurations for TypeMultiSource. Each must carry
	// a Key to label its slot in the merged result.
	Sources []Config `json:"sources,omitempty"`
	Key     string   `json:"key,omitempty"`

	// Mapping renames result fields for TypeDataMapping and
	// TypeSourceBindings.
	Mapping map[string]string `json:"mapping,omitempty"`
}

// ParseConfig decodes a raw dataSource layer into a Config.
func ParseConfig(raw map[string]any) (Config, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return Config{}, fmt.Errorf("datasource config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("datasource config: %w", err)
	}
	if cfg.Type == "" {
		return Config{}, ErrMissingType
	}
	if !cfg.Type.Valid() {
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownType, cfg.Type)
	}
	return cfg, nil
}

// Result is the outcome of one execution, stored per component.
type Result struct {
	ComponentID string    `json:"componentId"`
	Data        any       `json:"data"`
	FetchedAt   time.Time `json:"fetchedAt"`

	// Seq is the execution sequence that produced this result.
	Seq int64 `json:"seq"`
}
