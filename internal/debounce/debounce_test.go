package debounce

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_SingleCall(t *testing.T) {
	var fired atomic.Int32
	d := New(10*time.Millisecond, func() { fired.Add(1) })

	d.Call()

	time.Sleep(50 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("fired = %d, want 1", got)
	}
}

func TestDebouncer_CoalescesBurst(t *testing.T) {
	var fired atomic.Int32
	d := New(15*time.Millisecond, func() { fired.Add(1) })

	for i := 0; i < 10; i++ {
		d.Call()
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(60 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("fired = %d, want 1 for a burst", got)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	var fired atomic.Int32
	d := New(10*time.Millisecond, func() { fired.Add(1) })

	d.Call()
	d.Cancel()

	time.Sleep(40 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("fired = %d after Cancel, want 0", got)
	}
	if d.Pending() {
		t.Error("Pending() = true after Cancel")
	}
}

func TestDebouncer_Flush(t *testing.T) {
	var fired atomic.Int32
	d := New(time.Hour, func() { fired.Add(1) })

	d.Call()
	d.Flush()

	if got := fired.Load(); got != 1 {
		t.Errorf("fired = %d after Flush, want 1", got)
	}

	// Flush with nothing pending is a no-op.
	d.Flush()
	if got := fired.Load(); got != 1 {
		t.Errorf("fired = %d after second Flush, want 1", got)
	}
}

func TestCache_GetSet(t *testing.T) {
	c := NewCache[string, int](time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get on empty cache returned ok")
	}

	c.Set("a", 42)
	v, ok := c.Get("a")
	if !ok || v != 42 {
		t.Errorf("Get(a) = %d, %v; want 42, true", v, ok)
	}
}

func TestCache_Expiry(t *testing.T) {
	c := NewCache[string, int](5 * time.Millisecond)
	c.Set("a", 1)

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Error("expired entry still returned")
	}
}

func TestCache_MaxSize(t *testing.T) {
	c := NewCache(time.Minute, WithMaxSize[string, int](2))
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestCache_DeleteFunc(t *testing.T) {
	c := NewCache[string, int](time.Minute)
	c.Set("w1:base", 1)
	c.Set("w1:component", 2)
	c.Set("w2:base", 3)

	c.DeleteFunc(func(k string) bool { return k[:2] == "w1" })

	if _, ok := c.Get("w1:base"); ok {
		t.Error("w1:base survived DeleteFunc")
	}
	if _, ok := c.Get("w2:base"); !ok {
		t.Error("w2:base removed by DeleteFunc")
	}
}
