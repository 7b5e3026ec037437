package interaction

import (
	"testing"

	"github.com/sashad/cardcore/internal/component"
)

func jumpRule(id, url string) Config {
	return Config{
		ID:    id,
		Event: EventClick,
		Responses: []Response{
			{Action: ActionJump, Jump: &JumpConfig{URL: url}},
		},
	}
}

func modifyRule(id string, event EventType, watched, target, property string, value any) Config {
	return Config{
		ID:              id,
		Event:           event,
		WatchedProperty: watched,
		Responses: []Response{
			{Action: ActionModify, Modify: &ModifyConfig{
				TargetComponentID: target,
				TargetProperty:    property,
				UpdateValue:       value,
			}},
		},
	}
}

func newTestRouter(t *testing.T) (*Router, *component.Registry, *recordingWriter) {
	t.Helper()
	registry := component.NewRegistry()
	writer := &recordingWriter{}
	return NewRouter(registry, writer), registry, writer
}

func TestRouterConfigsThenInstance(t *testing.T) {
	router, registry, writer := newTestRouter(t)

	router.RegisterComponentConfigs("w1", []Config{
		modifyRule("i1", EventClick, "", "w2", "component.color", "red"),
	})
	// No instance yet, so a click cannot arrive. Register the instance and
	// drive the event through the registry.
	if err := router.RegisterComponentInstance(component.NewHandle("w1", nil)); err != nil {
		t.Fatalf("RegisterComponentInstance: %v", err)
	}

	if n := registry.Emit("w1", component.UIEventClick); n != 1 {
		t.Fatalf("expected 1 click listener, got %d", n)
	}
	if len(writer.calls) != 1 {
		t.Fatalf("expected 1 write, got %d", len(writer.calls))
	}
	if writer.calls[0].componentID != "w2" || writer.calls[0].payload["color"] != "red" {
		t.Errorf("unexpected write %+v", writer.calls[0])
	}
}

func TestRouterInstanceThenConfigs(t *testing.T) {
	router, registry, writer := newTestRouter(t)

	if err := router.RegisterComponentInstance(component.NewHandle("w1", nil)); err != nil {
		t.Fatalf("RegisterComponentInstance: %v", err)
	}
	router.RegisterComponentConfigs("w1", []Config{
		modifyRule("i1", EventClick, "", "w2", "component.color", "green"),
	})

	if n := registry.Emit("w1", component.UIEventClick); n != 1 {
		t.Fatalf("expected 1 click listener, got %d", n)
	}
	if len(writer.calls) != 1 || writer.calls[0].payload["color"] != "green" {
		t.Fatalf("binding order should not matter, calls=%+v", writer.calls)
	}
}

func TestRouterDataChangeBatch(t *testing.T) {
	router, _, writer := newTestRouter(t)
	handle := component.NewHandle("w2", map[string]any{"temperature": 10})

	// Two rules on the same watched property, both targeting the same
	// remote path with different values.
	router.RegisterComponentConfigs("w2", []Config{
		modifyRule("i1", EventDataChange, "temperature", "w3", "component.color", "orange"),
		modifyRule("i2", EventDataChange, "temperature", "w3", "component.color", "red"),
	})
	if err := router.RegisterComponentInstance(handle); err != nil {
		t.Fatalf("RegisterComponentInstance: %v", err)
	}

	handle.SetProperty("temperature", 42)

	if len(writer.calls) != 1 {
		t.Fatalf("same-tick responses must coalesce into one write, got %d", len(writer.calls))
	}
	if got := writer.calls[0].payload["color"]; got != "red" {
		t.Errorf("color = %v, want last-listed value red", got)
	}

	// Setting the same value again must not fire.
	writer.calls = nil
	handle.SetProperty("temperature", 42)
	if len(writer.calls) != 0 {
		t.Errorf("unchanged property fired %d writes", len(writer.calls))
	}
}

func TestRouterDataChangeCondition(t *testing.T) {
	router, _, writer := newTestRouter(t)
	handle := component.NewHandle("w2", map[string]any{"temperature": 10})

	cfg := modifyRule("i1", EventDataChange, "temperature", "w3", "visible", false)
	cfg.Condition = &Condition{Type: ConditionComparison, Operator: OpGreaterThan, Value: 30}
	router.RegisterComponentConfigs("w2", []Config{cfg})
	if err := router.RegisterComponentInstance(handle); err != nil {
		t.Fatalf("RegisterComponentInstance: %v", err)
	}

	handle.SetProperty("temperature", 20)
	if len(writer.calls) != 0 {
		t.Fatal("condition below threshold must not fire")
	}
	handle.SetProperty("temperature", 35)
	if len(writer.calls) != 1 {
		t.Fatalf("condition above threshold should fire once, got %d", len(writer.calls))
	}
}

func TestRouterJumpImmediate(t *testing.T) {
	var jumps []string
	registry := component.NewRegistry()
	writer := &recordingWriter{}
	router := NewRouter(registry, writer, WithNavigator(NavigatorFunc(func(url, target string) error {
		jumps = append(jumps, url+"|"+target)
		return nil
	})))

	router.RegisterComponentConfigs("w1", []Config{jumpRule("i1", "https://example.com/detail")})
	if err := router.RegisterComponentInstance(component.NewHandle("w1", nil)); err != nil {
		t.Fatalf("RegisterComponentInstance: %v", err)
	}

	registry.Emit("w1", component.UIEventClick)
	if len(jumps) != 1 || jumps[0] != "https://example.com/detail|self" {
		t.Fatalf("jumps = %v", jumps)
	}
	if len(writer.calls) != 0 {
		t.Error("jump must not produce configuration writes")
	}
}

func TestRouterInvalidEntrySkipped(t *testing.T) {
	router, registry, writer := newTestRouter(t)

	bad := Config{ID: "bad", Event: EventDataChange} // missing watchedProperty
	good := modifyRule("good", EventClick, "", "w2", "title", "ok")
	router.RegisterComponentConfigs("w1", []Config{bad, good})
	if err := router.RegisterComponentInstance(component.NewHandle("w1", nil)); err != nil {
		t.Fatalf("RegisterComponentInstance: %v", err)
	}

	registry.Emit("w1", component.UIEventClick)
	if len(writer.calls) != 1 {
		t.Fatalf("valid sibling should still bind, got %d writes", len(writer.calls))
	}
}

func TestRouterReRegisterReplacesListeners(t *testing.T) {
	router, registry, writer := newTestRouter(t)
	if err := router.RegisterComponentInstance(component.NewHandle("w1", nil)); err != nil {
		t.Fatalf("RegisterComponentInstance: %v", err)
	}

	router.RegisterComponentConfigs("w1", []Config{
		modifyRule("i1", EventClick, "", "w2", "title", "first"),
	})
	router.RegisterComponentConfigs("w1", []Config{
		modifyRule("i2", EventClick, "", "w2", "title", "second"),
	})

	if n := registry.Emit("w1", component.UIEventClick); n != 1 {
		t.Fatalf("old listeners must be torn down, got %d listeners", n)
	}
	if len(writer.calls) != 1 || writer.calls[0].payload["title"] != "second" {
		t.Fatalf("expected only the replacement rule to fire, calls=%+v", writer.calls)
	}
}

func TestRouterInstanceReplacementRebinds(t *testing.T) {
	router, registry, writer := newTestRouter(t)

	router.RegisterComponentConfigs("w2", []Config{
		modifyRule("i1", EventDataChange, "temperature", "w3", "component.color", "red"),
		modifyRule("i2", EventClick, "", "w3", "title", "clicked"),
	})

	oldHandle := component.NewHandle("w2", map[string]any{"temperature": 10})
	if err := router.RegisterComponentInstance(oldHandle); err != nil {
		t.Fatalf("RegisterComponentInstance(old): %v", err)
	}
	oldHandle.SetProperty("temperature", 20)
	if len(writer.calls) != 1 {
		t.Fatalf("expected 1 write from old handle, got %d", len(writer.calls))
	}

	// A re-render replaces the live instance under the same id. The rule
	// set must move onto the new handle.
	newHandle := component.NewHandle("w2", map[string]any{"temperature": 20})
	if err := router.RegisterComponentInstance(newHandle); err != nil {
		t.Fatalf("RegisterComponentInstance(new): %v", err)
	}

	newHandle.SetProperty("temperature", 42)
	if len(writer.calls) != 2 {
		t.Fatalf("dataChange on replacement handle produced %d total writes, want 2", len(writer.calls))
	}
	if n := registry.Emit("w2", component.UIEventClick); n != 1 {
		t.Errorf("expected 1 click listener on replacement handle, got %d", n)
	}
	if len(writer.calls) != 3 {
		t.Errorf("click on replacement handle produced %d total writes, want 3", len(writer.calls))
	}

	// The defunct handle must be fully detached.
	oldHandle.SetProperty("temperature", 99)
	if len(writer.calls) != 3 {
		t.Errorf("stale handle still bound: %d total writes", len(writer.calls))
	}
}

func TestRouterUnregister(t *testing.T) {
	router, registry, writer := newTestRouter(t)
	handle := component.NewHandle("w2", map[string]any{"v": 1})

	router.RegisterComponentConfigs("w2", []Config{
		modifyRule("i1", EventDataChange, "v", "w3", "title", "x"),
		modifyRule("i2", EventClick, "", "w3", "title", "y"),
	})
	if err := router.RegisterComponentInstance(handle); err != nil {
		t.Fatalf("RegisterComponentInstance: %v", err)
	}

	router.Unregister("w2")
	router.Unregister("w2") // idempotent

	handle.SetProperty("v", 2)
	registry.Emit("w2", component.UIEventClick)
	if len(writer.calls) != 0 {
		t.Fatalf("unregistered component fired %d writes", len(writer.calls))
	}
}
