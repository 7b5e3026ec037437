package component

import (
	"reflect"
	"sync"
)

// Handle is the standard Instance implementation backing rendered widgets.
// It holds a property map and notifies watchers when a property's value
// actually changes.
type Handle struct {
	id string

	mu       sync.RWMutex
	props    map[string]any
	watchers map[string]map[uint64]PropertyCallback
	nextID   uint64
}

// NewHandle creates an instance handle for a component id.
func NewHandle(id string, initial map[string]any) *Handle {
	props := make(map[string]any, len(initial))
	for k, v := range initial {
		props[k] = v
	}
	return &Handle{
		id:       id,
		props:    props,
		watchers: make(map[string]map[uint64]PropertyCallback),
	}
}

// ID implements Instance.
func (h *Handle) ID() string { return h.id }

// Property implements Instance.
func (h *Handle) Property(name string) (any, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.props[name]
	return v, ok
}

// WatchProperty implements Instance. The callback fires on value change
// only; setting a property to its current value is silent.
func (h *Handle) WatchProperty(name string, fn PropertyCallback) (func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.watchers[name] == nil {
		h.watchers[name] = make(map[uint64]PropertyCallback)
	}
	h.nextID++
	id := h.nextID
	h.watchers[name][id] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.watchers[name]; ok {
			delete(set, id)
		}
	}, nil
}

// SetProperty updates a property, notifying watchers when the value
// changed.
func (h *Handle) SetProperty(name string, value any) {
	h.mu.Lock()
	old, had := h.props[name]
	if had && reflect.DeepEqual(old, value) {
		h.mu.Unlock()
		return
	}
	h.props[name] = value

	var callbacks []PropertyCallback
	for _, fn := range h.watchers[name] {
		callbacks = append(callbacks, fn)
	}
	h.mu.Unlock()

	for _, fn := range callbacks {
		fn(old, value)
	}
}

// SetProperties applies several property updates.
func (h *Handle) SetProperties(props map[string]any) {
	for k, v := range props {
		h.SetProperty(k, v)
	}
}
