// Package configstate is the authoritative versioned store for widget
// configuration.
//
// Each component id owns exactly one WidgetConfiguration split into four
// independently-updatable layers: base (display, style, device binding),
// component (type-specific properties), dataSource, and interaction. Writes
// are deduplicated by content hash, serialized per (component, section) by
// a drop-on-contention lock, and announced to observers through a debounced
// Change notification.
//
// The store retains a bounded version history with per-version snapshots,
// supporting rollback and recursive field-level diffs, and carries a
// registrable, priority-ordered validation rule set with a short-TTL result
// cache.
package configstate
