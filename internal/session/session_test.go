package session

import (
	"sync"
	"testing"
	"time"

	"github.com/sashad/cardcore/internal/component"
	"github.com/sashad/cardcore/internal/configevent"
	"github.com/sashad/cardcore/internal/configstate"
	"github.com/sashad/cardcore/internal/interaction"
)

// settle waits out coalescing, notify debounce, and bus delivery.
func settle() { time.Sleep(200 * time.Millisecond) }

func newTestSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	s, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestRegisterWidgetAppliesDefaults(t *testing.T) {
	s := newTestSession(t)
	if err := s.RegisterWidget("w1", "gauge-dashboard"); err != nil {
		t.Fatalf("RegisterWidget: %v", err)
	}
	settle()

	cfg, ok := s.Manager().GetConfiguration("w1")
	if !ok {
		t.Fatal("configuration missing after registration")
	}
	if cfg.Base.Title != "Gauge" {
		t.Errorf("default base title not applied: %q", cfg.Base.Title)
	}
	if cfg.Component["max"] != 100.0 {
		t.Errorf("default component layer not applied: %+v", cfg.Component)
	}

	if err := s.RegisterWidget("w2", "teleporter"); err == nil {
		t.Error("unknown widget type must be rejected")
	}
}

func TestInteractionCrossComponentBatch(t *testing.T) {
	s := newTestSession(t)
	for _, w := range []struct{ id, typ string }{
		{"w2", "gauge-dashboard"},
		{"w3", "switch"},
	} {
		if err := s.RegisterWidget(w.id, w.typ); err != nil {
			t.Fatalf("RegisterWidget(%s): %v", w.id, err)
		}
	}
	settle()

	w2 := component.NewHandle("w2", map[string]any{"temperature": 10})
	w3 := component.NewHandle("w3", nil)
	if err := s.AttachInstance(w2); err != nil {
		t.Fatalf("AttachInstance(w2): %v", err)
	}
	if err := s.AttachInstance(w3); err != nil {
		t.Fatalf("AttachInstance(w3): %v", err)
	}

	// Two dataChange rules on w2, both writing w3's component.color.
	rules := []interaction.Config{
		{
			ID:              "i1",
			Event:           interaction.EventDataChange,
			WatchedProperty: "temperature",
			Responses: []interaction.Response{{
				Action: interaction.ActionModify,
				Modify: &interaction.ModifyConfig{
					TargetComponentID: "w3",
					TargetProperty:    "component.color",
					UpdateValue:       "orange",
				},
			}},
		},
		{
			ID:              "i2",
			Event:           interaction.EventDataChange,
			WatchedProperty: "temperature",
			Responses: []interaction.Response{{
				Action: interaction.ActionModify,
				Modify: &interaction.ModifyConfig{
					TargetComponentID: "w3",
					TargetProperty:    "component.color",
					UpdateValue:       "red",
				},
			}},
		},
	}
	if !s.Bridge().UpdateConfiguration("w2", configstate.SectionInteraction, rules) {
		t.Fatal("interaction update rejected")
	}
	settle()

	// Count writes landing on w3.
	var mu sync.Mutex
	var w3Events []configevent.ChangeEvent
	if _, err := s.Bus().Subscribe("w3", configevent.HandlerFunc(func(ev configevent.ChangeEvent) error {
		mu.Lock()
		w3Events = append(w3Events, ev)
		mu.Unlock()
		return nil
	})); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	w2.SetProperty("temperature", 42)
	settle()

	cfg, ok := s.Manager().GetConfiguration("w3")
	if !ok {
		t.Fatal("w3 configuration missing")
	}
	if cfg.Component["color"] != "red" {
		t.Errorf("last-listed response must win: color = %v", cfg.Component["color"])
	}

	mu.Lock()
	defer mu.Unlock()
	if len(w3Events) != 1 {
		t.Fatalf("batched responses must produce exactly one write to w3, got %d", len(w3Events))
	}
	if !w3Events[0].Context.Forced {
		t.Error("interaction write should be forced")
	}
	if w3Events[0].Source != configstate.SourceInteraction {
		t.Errorf("source = %q", w3Events[0].Source)
	}
}

func TestRemoveWidgetReleasesEverything(t *testing.T) {
	s := newTestSession(t)
	if err := s.RegisterWidget("w1", "text-info"); err != nil {
		t.Fatalf("RegisterWidget: %v", err)
	}
	settle()
	if err := s.AttachInstance(component.NewHandle("w1", nil)); err != nil {
		t.Fatalf("AttachInstance: %v", err)
	}

	s.RemoveWidget("w1")
	settle()

	if s.Manager().HasConfiguration("w1") {
		t.Error("manager state should be gone")
	}
	if _, ok := s.Components().Get("w1"); ok {
		t.Error("instance should be unregistered")
	}
}
