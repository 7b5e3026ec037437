package component

import (
	"fmt"
	"sync"
)

// Registry maps component ids to live instances and dispatches UI events
// to attached listeners.
type Registry struct {
	mu        sync.RWMutex
	instances map[string]Instance
	listeners map[string]map[UIEvent]map[uint64]func()
	nextID    uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		instances: make(map[string]Instance),
		listeners: make(map[string]map[UIEvent]map[uint64]func()),
	}
}

// Register stores inst under its component id.
func (r *Registry) Register(inst Instance) error {
	if inst == nil || inst.ID() == "" {
		return fmt.Errorf("instance must carry a component id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.instances[inst.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, inst.ID())
	}
	r.instances[inst.ID()] = inst
	return nil
}

// Unregister removes the instance and all its UI listeners. Safe to call
// for an unknown id.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	delete(r.instances, id)
	delete(r.listeners, id)
	r.mu.Unlock()
}

// Get returns the live instance for id.
func (r *Registry) Get(id string) (Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[id]
	return inst, ok
}

// AddListener attaches a UI-event listener to the instance registered for
// id. It fails when no instance is present, mirroring a missing element at
// bind time. The returned function detaches the listener.
func (r *Registry) AddListener(id string, event UIEvent, fn func()) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.instances[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
	}

	if r.listeners[id] == nil {
		r.listeners[id] = make(map[UIEvent]map[uint64]func())
	}
	if r.listeners[id][event] == nil {
		r.listeners[id][event] = make(map[uint64]func())
	}

	r.nextID++
	listenerID := r.nextID
	r.listeners[id][event][listenerID] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if events, ok := r.listeners[id]; ok {
			delete(events[event], listenerID)
		}
	}, nil
}

// Emit delivers a UI event to every listener attached to id. It returns
// the number of listeners invoked.
func (r *Registry) Emit(id string, event UIEvent) int {
	r.mu.RLock()
	var fns []func()
	if events, ok := r.listeners[id]; ok {
		for _, fn := range events[event] {
			fns = append(fns, fn)
		}
	}
	r.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// IDs returns the ids of all registered instances.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.instances))
	for id := range r.instances {
		out = append(out, id)
	}
	return out
}
