package configstate

import (
	"fmt"
	"sort"

	"github.com/sashad/cardcore/internal/datasource"
)

// Severity grades a validation issue. Errors block persistence unless the
// write skips validation; warnings never block.
type Severity string

// Issue severities.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding, located by dotted field path.
type Issue struct {
	Path     string   `json:"path"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Rule     string   `json:"rule,omitempty"`
}

// ValidationResult is the outcome of validating a configuration.
type ValidationResult struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// ValidationContext carries optional component context into rules.
type ValidationContext struct {
	ComponentID   string         `json:"componentId,omitempty"`
	ComponentType string         `json:"componentType,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
}

// ValidationRule is a registrable check. Rules run in ascending priority
// order; all findings are collected.
type ValidationRule struct {
	Name     string
	Priority int
	Check    func(cfg *WidgetConfiguration, vctx *ValidationContext) []Issue
}

// RegisterValidationRule adds a rule to the validation set.
func (m *Manager) RegisterValidationRule(rule ValidationRule) {
	m.rulesMu.Lock()
	m.rules = append(m.rules, rule)
	sort.SliceStable(m.rules, func(i, j int) bool {
		return m.rules[i].Priority < m.rules[j].Priority
	})
	m.rulesMu.Unlock()

	// Cached results were produced by the old rule set.
	m.valCache.Clear()
}

// Validate runs structural checks and all registered rules against cfg.
// Results are cached by (content hash, context hash) for a short TTL so
// rapid re-validation of an unchanged document is free.
func (m *Manager) Validate(cfg *WidgetConfiguration, vctx *ValidationContext) ValidationResult {
	contentHash, err := m.hasher.Sum(cfg)
	if err != nil {
		return ValidationResult{
			Errors: []Issue{{
				Path:     "",
				Message:  fmt.Sprintf("configuration is not serializable: %v", err),
				Severity: SeverityError,
			}},
		}
	}

	ctxHash := "none"
	if vctx != nil {
		if h, err := m.hasher.Sum(vctx); err == nil {
			ctxHash = h
		}
	}
	cacheKey := contentHash + "|" + ctxHash

	if cached, ok := m.valCache.Get(cacheKey); ok {
		return cached
	}

	var issues []Issue

	m.rulesMu.RLock()
	rules := make([]ValidationRule, len(m.rules))
	copy(rules, m.rules)
	m.rulesMu.RUnlock()

	for _, rule := range rules {
		for _, issue := range rule.Check(cfg, vctx) {
			if issue.Rule == "" {
				issue.Rule = rule.Name
			}
			issues = append(issues, issue)
		}
	}

	result := ValidationResult{Valid: true}
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityError:
			result.Valid = false
			result.Errors = append(result.Errors, issue)
		default:
			result.Warnings = append(result.Warnings, issue)
		}
	}

	m.valCache.Set(cacheKey, result)
	return result
}

// registerBuiltinRules installs the structural checks every configuration
// is held to.
func (m *Manager) registerBuiltinRules() {
	m.rules = append(m.rules,
		ValidationRule{
			Name:     "base-structure",
			Priority: 0,
			Check:    checkBaseStructure,
		},
		ValidationRule{
			Name:     "datasource-type",
			Priority: 0,
			Check:    checkDataSourceType,
		},
		ValidationRule{
			Name:     "interaction-entries",
			Priority: 10,
			Check:    checkInteractionEntries,
		},
	)
	sort.SliceStable(m.rules, func(i, j int) bool {
		return m.rules[i].Priority < m.rules[j].Priority
	})
}

func checkBaseStructure(cfg *WidgetConfiguration, _ *ValidationContext) []Issue {
	var issues []Issue
	if cfg.Base.Opacity != nil && (*cfg.Base.Opacity < 0 || *cfg.Base.Opacity > 1) {
		issues = append(issues, Issue{
			Path:     "base.opacity",
			Message:  fmt.Sprintf("opacity %v outside [0, 1]", *cfg.Base.Opacity),
			Severity: SeverityError,
		})
	}
	if cfg.Base.MetricsList != nil && cfg.Base.DeviceID == "" && len(cfg.Base.MetricsList) > 0 {
		issues = append(issues, Issue{
			Path:     "base.deviceId",
			Message:  "metricsList set without a bound device",
			Severity: SeverityWarning,
		})
	}
	return issues
}

func checkDataSourceType(cfg *WidgetConfiguration, _ *ValidationContext) []Issue {
	raw, ok := cfg.DataSource["type"]
	if !ok {
		return nil
	}
	typ, ok := raw.(string)
	if !ok || !datasource.Type(typ).Valid() {
		return []Issue{{
			Path:     "dataSource.type",
			Message:  fmt.Sprintf("unknown data source type %v", raw),
			Severity: SeverityError,
		}}
	}
	return nil
}

// checkInteractionEntries surfaces misconfigured interaction rules as
// warnings. A bad entry is inert at runtime, never a reason to reject the
// whole document.
func checkInteractionEntries(cfg *WidgetConfiguration, _ *ValidationContext) []Issue {
	var issues []Issue
	for i, ic := range cfg.Interaction {
		if err := ic.Validate(); err != nil {
			issues = append(issues, Issue{
				Path:     fmt.Sprintf("interaction[%d]", i),
				Message:  err.Error(),
				Severity: SeverityWarning,
			})
		}
	}
	return issues
}
