package configstate

import (
	"testing"
	"time"
)

func floatPtr(f float64) *float64 { return &f }

func TestValidate_StructuralErrors(t *testing.T) {
	m := newTestManager(t)

	tests := []struct {
		name    string
		mutate  func(cfg *WidgetConfiguration)
		valid   bool
		errPath string
	}{
		{
			name:   "empty config is valid",
			mutate: func(cfg *WidgetConfiguration) {},
			valid:  true,
		},
		{
			name: "opacity out of range",
			mutate: func(cfg *WidgetConfiguration) {
				cfg.Base.Opacity = floatPtr(1.5)
			},
			valid:   false,
			errPath: "base.opacity",
		},
		{
			name: "unknown datasource type",
			mutate: func(cfg *WidgetConfiguration) {
				cfg.DataSource["type"] = "carrier-pigeon"
			},
			valid:   false,
			errPath: "dataSource.type",
		},
		{
			name: "known datasource type",
			mutate: func(cfg *WidgetConfiguration) {
				cfg.DataSource["type"] = "api"
				cfg.DataSource["url"] = "http://example.com/telemetry"
			},
			valid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewWidgetConfiguration()
			tt.mutate(&cfg)

			res := m.Validate(&cfg, nil)
			if res.Valid != tt.valid {
				t.Fatalf("Valid = %v, want %v (errors: %+v)", res.Valid, tt.valid, res.Errors)
			}
			if !tt.valid {
				found := false
				for _, issue := range res.Errors {
					if issue.Path == tt.errPath {
						found = true
					}
				}
				if !found {
					t.Errorf("no error at path %q, got %+v", tt.errPath, res.Errors)
				}
			}
		})
	}
}

func TestValidate_InteractionWarningsDoNotBlock(t *testing.T) {
	m := newTestManager(t)
	cfg := NewWidgetConfiguration()
	// dataChange without watchedProperty: inert, warned, not blocking.
	cfg.Interaction = append(cfg.Interaction, interactionConfigMissingWatch())

	res := m.Validate(&cfg, nil)
	if !res.Valid {
		t.Fatalf("misconfigured interaction blocked validation: %+v", res.Errors)
	}
	if len(res.Warnings) == 0 {
		t.Error("expected a warning for the inert interaction entry")
	}
}

func TestValidate_RegisteredRule(t *testing.T) {
	m := newTestManager(t)
	m.RegisterValidationRule(ValidationRule{
		Name:     "title-required",
		Priority: 100,
		Check: func(cfg *WidgetConfiguration, _ *ValidationContext) []Issue {
			if cfg.Base.Title == "" {
				return []Issue{{Path: "base.title", Message: "title required", Severity: SeverityError}}
			}
			return nil
		},
	})

	cfg := NewWidgetConfiguration()
	res := m.Validate(&cfg, nil)
	if res.Valid {
		t.Fatal("rule violation not reported")
	}
	if res.Errors[len(res.Errors)-1].Rule != "title-required" {
		t.Errorf("issue rule = %q, want title-required", res.Errors[len(res.Errors)-1].Rule)
	}

	cfg.Base.Title = "ok"
	if res := m.Validate(&cfg, nil); !res.Valid {
		t.Errorf("satisfied rule still reported: %+v", res.Errors)
	}
}

func TestValidate_BlocksWrite(t *testing.T) {
	m := newTestManager(t)

	cfg := NewWidgetConfiguration()
	cfg.Base.Opacity = floatPtr(7)

	if m.SetConfiguration("w1", cfg, SourceUser) {
		t.Error("write with blocking validation error succeeded")
	}
	if m.SetConfiguration("w1", cfg, SourceUser, SkipValidation()) == false {
		t.Error("write with SkipValidation rejected")
	}
}

func TestValidate_ResultCached(t *testing.T) {
	m := newTestManager(t, WithValidationCacheTTL(time.Minute))

	calls := 0
	m.RegisterValidationRule(ValidationRule{
		Name: "counter",
		Check: func(cfg *WidgetConfiguration, _ *ValidationContext) []Issue {
			calls++
			return nil
		},
	})

	cfg := NewWidgetConfiguration()
	cfg.Base.Title = "cached"

	m.Validate(&cfg, nil)
	m.Validate(&cfg, nil)
	m.Validate(&cfg, nil)

	if calls != 1 {
		t.Errorf("rule ran %d times for identical content, want 1 (cached)", calls)
	}

	// Different context misses the cache.
	m.Validate(&cfg, &ValidationContext{ComponentType: "gauge-dashboard"})
	if calls != 2 {
		t.Errorf("rule ran %d times after context change, want 2", calls)
	}
}
