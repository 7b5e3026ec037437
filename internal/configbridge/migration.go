package configbridge

import (
	"time"

	"go.uber.org/zap"

	"github.com/sashad/cardcore/internal/configstate"
)

// Legacy documents carried device-binding fields inside the component
// layer, sometimes nested under a "customize" sub-object. The current
// layer split owns them in base.

// hasLegacyDeviceFields reports whether the component layer still carries
// pre-split device bindings.
func hasLegacyDeviceFields(cfg configstate.WidgetConfiguration) bool {
	if cfg.Component == nil {
		return false
	}
	if _, ok := cfg.Component["deviceId"]; ok {
		return true
	}
	if _, ok := cfg.Component["metricsList"]; ok {
		return true
	}
	if customize, ok := cfg.Component["customize"].(map[string]any); ok {
		if _, ok := customize["deviceId"]; ok {
			return true
		}
		if _, ok := customize["metricsList"]; ok {
			return true
		}
	}
	return false
}

// MigrateDocument applies the device-field migration to a standalone
// document, stamping the migration markers. It reports whether anything
// changed.
func MigrateDocument(cfg configstate.WidgetConfiguration) (configstate.WidgetConfiguration, bool) {
	if !hasLegacyDeviceFields(cfg) {
		return cfg, false
	}
	migrated := migrateDeviceFields(cfg)
	now := time.Now().UTC()
	migrated.Metadata.MigrationVersion = configstate.SchemaVersion
	migrated.Metadata.MigratedAt = &now
	return migrated, true
}

// EnsureMigrated migrates a configuration whose component layer still
// carries legacy device-binding fields, writing the migrated form back
// once. Already-migrated (or unknown) configurations pass through
// untouched. When the migrated form fails validation the original is
// returned so reads never break; the condition is logged.
func (b *Bridge) EnsureMigrated(id string) (configstate.WidgetConfiguration, bool) {
	cfg, ok := b.manager.GetConfiguration(id)
	if !ok {
		return configstate.WidgetConfiguration{}, false
	}
	migrated, changed := MigrateDocument(cfg)
	if !changed {
		return cfg, true
	}

	if !b.manager.SetConfiguration(id, migrated, configstate.SourceSystem) {
		b.logger.Warn("device-field migration rejected, serving unmigrated configuration",
			zap.String("component", id))
		return cfg, true
	}

	b.logger.Info("migrated legacy device fields",
		zap.String("component", id),
		zap.String("migrationVersion", configstate.SchemaVersion))
	return migrated, true
}

// migrateDeviceFields moves deviceId/metricsList (directly or under
// customize) from the component layer into base, removing them from
// component.
func migrateDeviceFields(cfg configstate.WidgetConfiguration) configstate.WidgetConfiguration {
	out := cfg.Clone()
	if out.Component == nil {
		return out
	}

	adopt := func(m map[string]any) {
		if v, ok := m["deviceId"]; ok {
			if s, ok := v.(string); ok && out.Base.DeviceID == "" {
				out.Base.DeviceID = s
			}
			delete(m, "deviceId")
		}
		if v, ok := m["metricsList"]; ok {
			if list := toStringList(v); list != nil && len(out.Base.MetricsList) == 0 {
				out.Base.MetricsList = list
			}
			delete(m, "metricsList")
		}
	}

	adopt(out.Component)
	if customize, ok := out.Component["customize"].(map[string]any); ok {
		adopt(customize)
		if len(customize) == 0 {
			delete(out.Component, "customize")
		}
	}
	return out
}

func toStringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil
			}
			out = append(out, s)
		}
		return out
	}
	return nil
}
