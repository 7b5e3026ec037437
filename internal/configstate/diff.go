package configstate

import (
	"fmt"
	"reflect"
	"sort"
)

// DiffKind classifies one field-level difference.
type DiffKind string

// Diff kinds.
const (
	DiffAdded   DiffKind = "added"
	DiffRemoved DiffKind = "removed"
	DiffChanged DiffKind = "changed"
)

// FieldDiff is one field-level difference between two configurations.
type FieldDiff struct {
	Path string   `json:"path"`
	Kind DiffKind `json:"kind"`
	Old  any      `json:"old,omitempty"`
	New  any      `json:"new,omitempty"`
}

// CompareVersions returns the recursive field-level differences between two
// retained versions of id's configuration.
func (m *Manager) CompareVersions(id string, a, b int64) ([]FieldDiff, error) {
	m.mu.Lock()
	st, ok := m.states[id]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, id)
	}
	snapA, okA := st.snapshots[a]
	snapB, okB := st.snapshots[b]
	m.mu.Unlock()

	if !okA {
		return nil, fmt.Errorf("%w: %s v%d", ErrVersionNotFound, id, a)
	}
	if !okB {
		return nil, fmt.Errorf("%w: %s v%d", ErrVersionNotFound, id, b)
	}

	return DiffConfigurations(snapA, snapB)
}

// DiffConfigurations computes the recursive field-level differences between
// two configuration documents. Volatile metadata timestamps are excluded.
func DiffConfigurations(old, new WidgetConfiguration) ([]FieldDiff, error) {
	oldMap, err := old.asMap()
	if err != nil {
		return nil, err
	}
	newMap, err := new.asMap()
	if err != nil {
		return nil, err
	}

	stripVolatile(oldMap)
	stripVolatile(newMap)

	diffs := diffMaps("", oldMap, newMap)
	sort.Slice(diffs, func(i, j int) bool { return diffs[i].Path < diffs[j].Path })
	return diffs, nil
}

func stripVolatile(doc map[string]any) {
	if meta, ok := doc["metadata"].(map[string]any); ok {
		delete(meta, "createdAt")
		delete(meta, "updatedAt")
	}
}

func diffMaps(prefix string, old, new map[string]any) []FieldDiff {
	var diffs []FieldDiff

	for key, oldVal := range old {
		path := joinPath(prefix, key)
		newVal, exists := new[key]
		if !exists {
			diffs = append(diffs, FieldDiff{Path: path, Kind: DiffRemoved, Old: oldVal})
			continue
		}

		oldMap, oldIsMap := oldVal.(map[string]any)
		newMap, newIsMap := newVal.(map[string]any)
		if oldIsMap && newIsMap {
			diffs = append(diffs, diffMaps(path, oldMap, newMap)...)
			continue
		}

		if !reflect.DeepEqual(oldVal, newVal) {
			diffs = append(diffs, FieldDiff{Path: path, Kind: DiffChanged, Old: oldVal, New: newVal})
		}
	}

	for key, newVal := range new {
		if _, exists := old[key]; !exists {
			diffs = append(diffs, FieldDiff{Path: joinPath(prefix, key), Kind: DiffAdded, New: newVal})
		}
	}

	return diffs
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// ChangedPaths returns just the dotted paths from a diff, for callers that
// only need to know which fields moved.
func ChangedPaths(diffs []FieldDiff) []string {
	paths := make([]string, 0, len(diffs))
	for _, d := range diffs {
		paths = append(paths, d.Path)
	}
	return paths
}
