package configbridge

import (
	"strings"
	"sync"

	"github.com/sashad/cardcore/internal/configstate"
)

// TriggerRegistry decides whether a configuration change requires the
// data-source collaborator to re-execute. Any dataSource-layer change
// triggers; component- and base-layer changes trigger only when a changed
// field matches a registered data-binding path for the component type.
type TriggerRegistry struct {
	mu    sync.RWMutex
	paths map[string][]string
}

// deviceBindingPaths always count as dynamic parameters, for every
// component type.
var deviceBindingPaths = []string{
	"base.deviceId",
	"base.metricsList",
}

// NewTriggerRegistry creates an empty registry.
func NewTriggerRegistry() *TriggerRegistry {
	return &TriggerRegistry{paths: make(map[string][]string)}
}

// RegisterBindingPaths records the dotted configuration paths that act as
// data-binding parameters for a component type. Repeated calls append.
func (r *TriggerRegistry) RegisterBindingPaths(componentType string, paths ...string) {
	r.mu.Lock()
	r.paths[componentType] = append(r.paths[componentType], paths...)
	r.mu.Unlock()
}

// BindingPaths returns the registered paths for a component type.
func (r *TriggerRegistry) BindingPaths(componentType string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.paths[componentType]))
	copy(out, r.paths[componentType])
	return out
}

// ShouldTrigger applies the dynamic-parameter heuristic.
func (r *TriggerRegistry) ShouldTrigger(componentType string, section configstate.Section, changedFields []string) bool {
	if section == configstate.SectionDataSource {
		return true
	}
	if section == configstate.SectionInteraction {
		return false
	}

	r.mu.RLock()
	registered := r.paths[componentType]
	r.mu.RUnlock()

	for _, field := range changedFields {
		// Full-document replaces carry no section; a change inside the
		// dataSource layer still triggers.
		if pathMatches(field, "dataSource") {
			return true
		}
		for _, path := range deviceBindingPaths {
			if pathMatches(field, path) {
				return true
			}
		}
		for _, path := range registered {
			if pathMatches(field, path) {
				return true
			}
		}
	}
	return false
}

// pathMatches reports whether a changed field equals a binding path or
// lies beneath it.
func pathMatches(field, path string) bool {
	return field == path || strings.HasPrefix(field, path+".")
}
