package configstate

import (
	"encoding/json"
	"testing"

	"github.com/sashad/cardcore/internal/interaction"
)

// interactionConfigMissingWatch builds a dataChange rule without a watched
// property, the canonical inert misconfiguration.
func interactionConfigMissingWatch() interaction.Config {
	return interaction.Config{
		ID:    "bad-1",
		Event: interaction.EventDataChange,
		Responses: []interaction.Response{{
			Action: interaction.ActionModify,
			Modify: &interaction.ModifyConfig{
				TargetComponentID: "w2",
				TargetProperty:    "component.color",
				UpdateValue:       "red",
			},
		}},
	}
}

func TestBaseConfig_JSONRoundTrip(t *testing.T) {
	visible := true
	opacity := 0.5
	in := BaseConfig{
		Title:       "Temp",
		Visible:     &visible,
		Opacity:     &opacity,
		DeviceID:    "dev-1",
		MetricsList: []string{"temperature", "humidity"},
		Extra: map[string]any{
			"customFont": "mono",
		},
	}

	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	// Extra keys flatten into the object.
	var flat map[string]any
	if err := json.Unmarshal(raw, &flat); err != nil {
		t.Fatalf("unmarshal to map: %v", err)
	}
	if flat["customFont"] != "mono" {
		t.Errorf("Extra key not flattened: %v", flat)
	}
	if flat["title"] != "Temp" {
		t.Errorf("typed key missing: %v", flat)
	}
	if _, leaked := flat["Extra"]; leaked {
		t.Error("Extra field leaked as its own key")
	}

	var out BaseConfig
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if out.Title != in.Title || out.DeviceID != in.DeviceID {
		t.Errorf("typed fields lost: %+v", out)
	}
	if out.Extra["customFont"] != "mono" {
		t.Errorf("extra fields lost: %+v", out.Extra)
	}
	if len(out.MetricsList) != 2 {
		t.Errorf("metricsList lost: %+v", out.MetricsList)
	}
}

func TestBaseConfig_TypedFieldWinsOnCollision(t *testing.T) {
	in := BaseConfig{
		Title: "typed",
		Extra: map[string]any{"title": "extra"},
	}
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	var flat map[string]any
	if err := json.Unmarshal(raw, &flat); err != nil {
		t.Fatal(err)
	}
	if flat["title"] != "typed" {
		t.Errorf("title = %v, want typed field to win", flat["title"])
	}
}

func TestWidgetConfiguration_NormalizeLayers(t *testing.T) {
	var cfg WidgetConfiguration
	cfg.normalize()

	if cfg.Component == nil || cfg.DataSource == nil || cfg.Interaction == nil {
		t.Error("normalize left a nil layer")
	}
	if cfg.Metadata.Version != SchemaVersion {
		t.Errorf("metadata version = %q, want %q", cfg.Metadata.Version, SchemaVersion)
	}
}

func TestWidgetConfiguration_CloneIsDeep(t *testing.T) {
	cfg := NewWidgetConfiguration()
	cfg.Component["nested"] = map[string]any{"v": 1}

	clone := cfg.Clone()
	clone.Component["nested"].(map[string]any)["v"] = 2

	if cfg.Component["nested"].(map[string]any)["v"] != float64(1) &&
		cfg.Component["nested"].(map[string]any)["v"] != 1 {
		t.Error("clone shares nested maps with original")
	}
}

func TestSection_Valid(t *testing.T) {
	for _, s := range Sections {
		if !s.Valid() {
			t.Errorf("Section(%q).Valid() = false", s)
		}
	}
	if Section("styles").Valid() {
		t.Error("unknown section reported valid")
	}
}
