package interaction

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ConfigWriter is the forced configuration write path interaction
// responses flush through. Implemented by the integration bridge.
type ConfigWriter interface {
	UpdateForInteraction(ctx context.Context, componentID, section string, payload map[string]any) error
}

// Navigator executes jump responses. The default implementation logs the
// navigation; a host embedding the router supplies a real one.
type Navigator interface {
	Navigate(url, target string) error
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(url, target string) error

// Navigate calls f.
func (f NavigatorFunc) Navigate(url, target string) error { return f(url, target) }

// Configuration sections a modify response can land in.
const (
	sectionBase        = "base"
	sectionComponent   = "component"
	sectionDataSource  = "dataSource"
	sectionInteraction = "interaction"
)

// baseFields classifies undotted target properties that belong to the
// base layer. Everything else undotted lands in the component layer.
var baseFields = map[string]struct{}{
	"title":           {},
	"visible":         {},
	"opacity":         {},
	"backgroundColor": {},
	"borderColor":     {},
	"borderRadius":    {},
	"padding":         {},
	"margin":          {},
	"deviceId":        {},
	"metricsList":     {},
}

// classifyProperty resolves a modify response's target property into a
// configuration section and the property path within it. Dotted
// properties use their first segment when it names a section
// ("component.color" → component/"color"); undotted properties fall back
// to the base-field table.
func classifyProperty(property string) (section, path string) {
	if i := strings.IndexByte(property, '.'); i > 0 {
		switch head := property[:i]; head {
		case sectionBase, sectionComponent, sectionDataSource, sectionInteraction:
			return head, property[i+1:]
		}
	}
	if _, ok := baseFields[property]; ok {
		return sectionBase, property
	}
	return sectionComponent, property
}

// batch accumulates the responses fired by one trigger so that N modify
// responses produce one tiered write per (target, section) instead of N
// partial writes racing each other.
type batch struct {
	// writes is target id → section → property path → value. Later
	// assignments to the same path overwrite earlier ones.
	writes map[string]map[string]map[string]any

	// order remembers first-seen target ids so flushes are deterministic.
	order []string
}

func newBatch() *batch {
	return &batch{writes: make(map[string]map[string]map[string]any)}
}

// addModify records one modify response. Last write wins per property.
func (b *batch) addModify(m *ModifyConfig) {
	section, path := classifyProperty(m.TargetProperty)
	target := b.writes[m.TargetComponentID]
	if target == nil {
		target = make(map[string]map[string]any)
		b.writes[m.TargetComponentID] = target
		b.order = append(b.order, m.TargetComponentID)
	}
	if target[section] == nil {
		target[section] = make(map[string]any)
	}
	target[section][path] = m.UpdateValue
}

// flush issues one write per (target, section) bucket. Failures are
// logged and do not abort the remaining buckets.
func (b *batch) flush(ctx context.Context, writer ConfigWriter, logger *zap.Logger) {
	for _, targetID := range b.order {
		sections := make([]string, 0, len(b.writes[targetID]))
		for section := range b.writes[targetID] {
			sections = append(sections, section)
		}
		sort.Strings(sections)

		for _, section := range sections {
			payload := expandPaths(b.writes[targetID][section])
			if err := writer.UpdateForInteraction(ctx, targetID, section, payload); err != nil {
				logger.Warn("interaction write failed",
					zap.String("target", targetID),
					zap.String("section", section),
					zap.Error(err))
			}
		}
	}
}

// expandPaths turns flat dotted paths into nested maps so a path like
// "series.color" merges as {"series": {"color": v}}.
func expandPaths(flat map[string]any) map[string]any {
	out := make(map[string]any, len(flat))
	for path, value := range flat {
		parts := strings.Split(path, ".")
		node := out
		for _, key := range parts[:len(parts)-1] {
			child, ok := node[key].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[key] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = value
	}
	return out
}
