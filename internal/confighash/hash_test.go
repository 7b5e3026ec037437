package confighash

import (
	"testing"
)

func TestSum_Deterministic(t *testing.T) {
	doc := map[string]any{
		"base":      map[string]any{"title": "Temp Sensor", "opacity": 0.8},
		"component": map[string]any{"color": "#ff0000"},
	}

	h1, err := Sum(doc)
	if err != nil {
		t.Fatalf("Sum() error: %v", err)
	}
	h2, err := Sum(doc)
	if err != nil {
		t.Fatalf("Sum() error: %v", err)
	}
	if h1 != h2 {
		t.Errorf("hash not deterministic: %s vs %s", h1, h2)
	}
}

func TestSum_KeyOrderIndependent(t *testing.T) {
	// Maps with the same content built in different insertion orders must
	// hash identically. Go maps have no order, so exercise this through
	// structurally identical nested documents instead.
	a := map[string]any{
		"component": map[string]any{"b": 2, "a": 1, "c": 3},
		"base":      map[string]any{"title": "x"},
	}
	b := map[string]any{
		"base":      map[string]any{"title": "x"},
		"component": map[string]any{"c": 3, "a": 1, "b": 2},
	}

	ha, _ := Sum(a)
	hb, _ := Sum(b)
	if ha != hb {
		t.Errorf("hash differs for identical documents: %s vs %s", ha, hb)
	}
}

func TestSum_IgnoresVolatileTimestamps(t *testing.T) {
	a := map[string]any{
		"base": map[string]any{"title": "x"},
		"metadata": map[string]any{
			"version":   "1.0",
			"updatedAt": "2024-01-01T00:00:00Z",
			"createdAt": "2024-01-01T00:00:00Z",
		},
	}
	b := map[string]any{
		"base": map[string]any{"title": "x"},
		"metadata": map[string]any{
			"version":   "1.0",
			"updatedAt": "2025-06-15T12:34:56Z",
			"createdAt": "2023-11-11T11:11:11Z",
		},
	}

	ha, _ := Sum(a)
	hb, _ := Sum(b)
	if ha != hb {
		t.Errorf("timestamp-only change altered hash: %s vs %s", ha, hb)
	}
}

func TestSum_ForcedUpdateStampPerturbs(t *testing.T) {
	a := map[string]any{
		"base":     map[string]any{"title": "x"},
		"metadata": map[string]any{"version": "1.0"},
	}
	b := map[string]any{
		"base":     map[string]any{"title": "x"},
		"metadata": map[string]any{"version": "1.0", "lastForcedUpdate": int64(12345)},
	}

	ha, _ := Sum(a)
	hb, _ := Sum(b)
	if ha == hb {
		t.Error("lastForcedUpdate stamp did not perturb hash")
	}
}

func TestSum_DistinguishesContent(t *testing.T) {
	tests := []struct {
		name string
		a, b map[string]any
	}{
		{
			name: "different value",
			a:    map[string]any{"base": map[string]any{"title": "a"}},
			b:    map[string]any{"base": map[string]any{"title": "b"}},
		},
		{
			name: "different key",
			a:    map[string]any{"base": map[string]any{"title": "a"}},
			b:    map[string]any{"base": map[string]any{"name": "a"}},
		},
		{
			name: "array order matters",
			a:    map[string]any{"base": map[string]any{"metricsList": []any{"t", "h"}}},
			b:    map[string]any{"base": map[string]any{"metricsList": []any{"h", "t"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ha, _ := Sum(tt.a)
			hb, _ := Sum(tt.b)
			if ha == hb {
				t.Errorf("distinct documents hash identically: %s", ha)
			}
		})
	}
}

func TestSum_StructAndMapAgree(t *testing.T) {
	type base struct {
		Title string `json:"title"`
	}
	type doc struct {
		Base base `json:"base"`
	}

	hs, err := Sum(doc{Base: base{Title: "x"}})
	if err != nil {
		t.Fatalf("Sum(struct) error: %v", err)
	}
	hm, err := Sum(map[string]any{"base": map[string]any{"title": "x"}})
	if err != nil {
		t.Fatalf("Sum(map) error: %v", err)
	}
	if hs != hm {
		t.Errorf("struct and equivalent map hash differently: %s vs %s", hs, hm)
	}
}

func TestSum_Unserializable(t *testing.T) {
	if _, err := Sum(map[string]any{"f": func() {}}); err == nil {
		t.Error("expected error for unserializable value")
	}
}

func TestHasher_Equal(t *testing.T) {
	h := NewHasher()
	a := map[string]any{"base": map[string]any{"title": "x"}}
	b := map[string]any{"base": map[string]any{"title": "x"}}
	c := map[string]any{"base": map[string]any{"title": "y"}}

	if !h.Equal(a, b) {
		t.Error("Equal(a, b) = false for identical content")
	}
	if h.Equal(a, c) {
		t.Error("Equal(a, c) = true for different content")
	}
	if h.Equal(a, map[string]any{"f": func() {}}) {
		t.Error("Equal with unserializable value = true")
	}
}

func TestWithIgnoredPaths(t *testing.T) {
	h := NewHasher(WithIgnoredPaths("base.title"))
	a := map[string]any{"base": map[string]any{"title": "a", "deviceId": "d1"}}
	b := map[string]any{"base": map[string]any{"title": "b", "deviceId": "d1"}}

	if !h.Equal(a, b) {
		t.Error("custom ignored path not stripped")
	}
}
