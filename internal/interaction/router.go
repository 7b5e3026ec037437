package interaction

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/sashad/cardcore/internal/component"
)

// bindState tracks how far a component has progressed toward live
// listeners.
type bindState int

const (
	stateUnregistered bindState = iota
	stateConfigRegistered
	stateFullyBound
)

// Router maps component ids to interaction rule sets and binds them to
// live component instances. Config registration and instance registration
// may arrive in either order; the router converges to the same bound
// state regardless.
type Router struct {
	registry *component.Registry
	writer   ConfigWriter
	nav      Navigator
	eval     ExpressionEvaluator
	logger   *zap.Logger

	mu       sync.Mutex
	bindings map[string]*componentBinding
}

type componentBinding struct {
	configs   []Config
	state     bindState
	teardowns []func()
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithNavigator overrides the jump handler.
func WithNavigator(nav Navigator) RouterOption {
	return func(r *Router) {
		r.nav = nav
	}
}

// WithEvaluator sets the expression-condition evaluator.
func WithEvaluator(eval ExpressionEvaluator) RouterOption {
	return func(r *Router) {
		r.eval = eval
	}
}

// WithLogger sets the router's logger.
func WithLogger(logger *zap.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// NewRouter creates a router dispatching modify responses through writer
// and resolving live instances through registry.
func NewRouter(registry *component.Registry, writer ConfigWriter, opts ...RouterOption) *Router {
	r := &Router{
		registry: registry,
		writer:   writer,
		logger:   zap.NewNop(),
		bindings: make(map[string]*componentBinding),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.nav == nil {
		logger := r.logger
		r.nav = NavigatorFunc(func(url, target string) error {
			logger.Info("navigate", zap.String("url", url), zap.String("target", target))
			return nil
		})
	}
	return r
}

// RegisterComponentConfigs replaces the rule set for a component. Existing
// listeners are torn down first, so repeated registration is always safe.
// Invalid entries are logged and left inert; valid siblings still bind.
// Binding happens immediately when a live instance is already registered,
// otherwise it is deferred until the instance arrives.
func (r *Router) RegisterComponentConfigs(id string, configs []Config) {
	valid := make([]Config, 0, len(configs))
	for _, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			r.logger.Warn("skipping invalid interaction entry",
				zap.String("component", id),
				zap.String("entry", cfg.ID),
				zap.Error(err))
			continue
		}
		valid = append(valid, cfg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.bindings[id]
	if b == nil {
		b = &componentBinding{}
		r.bindings[id] = b
	}
	r.teardownLocked(b)
	b.configs = valid
	b.state = stateConfigRegistered
	r.tryBindLocked(id, b)
}

// RegisterComponentInstance records a live instance for a component and
// binds any rule set already registered for it. Replacing the instance of
// an already-bound component (a re-render) moves all listeners and
// property watches onto the new handle.
func (r *Router) RegisterComponentInstance(inst component.Instance) error {
	if inst == nil || inst.ID() == "" {
		return component.ErrInstanceNotFound
	}

	r.registry.Unregister(inst.ID())
	if err := r.registry.Register(inst); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bindings[inst.ID()]; ok {
		r.teardownLocked(b)
		r.tryBindLocked(inst.ID(), b)
	}
	return nil
}

// Unregister tears down all listeners and watches for a component and
// forgets its rule set. Calling it for an unknown id is a no-op.
func (r *Router) Unregister(id string) {
	r.mu.Lock()
	b, ok := r.bindings[id]
	if ok {
		r.teardownLocked(b)
		delete(r.bindings, id)
	}
	r.mu.Unlock()
}

// Close unregisters every component.
func (r *Router) Close() {
	r.mu.Lock()
	for id, b := range r.bindings {
		r.teardownLocked(b)
		delete(r.bindings, id)
	}
	r.mu.Unlock()
}

// tryBindLocked attaches listeners when a live instance exists. A missing
// instance leaves the component in ConfigRegistered until one arrives.
func (r *Router) tryBindLocked(id string, b *componentBinding) {
	inst, ok := r.registry.Get(id)
	if !ok {
		return
	}

	// One click/hover listener per event type present in the rule set;
	// firing evaluates every matching entry so same-tick responses batch.
	for _, event := range []EventType{EventClick, EventHover} {
		if !r.hasEventLocked(b, event) {
			continue
		}
		event := event
		unsub, err := r.registry.AddListener(id, component.UIEvent(event), func() {
			r.fire(id, event, nil)
		})
		if err != nil {
			r.logger.Warn("listener binding skipped",
				zap.String("component", id),
				zap.String("event", string(event)),
				zap.Error(err))
			continue
		}
		b.teardowns = append(b.teardowns, unsub)
	}

	// One watch per distinct watched property.
	for _, prop := range r.watchedPropertiesLocked(b) {
		prop := prop
		unsub, err := inst.WatchProperty(prop, func(_, newValue any) {
			r.fireDataChange(id, prop, newValue)
		})
		if err != nil {
			r.logger.Warn("property watch skipped",
				zap.String("component", id),
				zap.String("property", prop),
				zap.Error(err))
			continue
		}
		b.teardowns = append(b.teardowns, unsub)
	}

	b.state = stateFullyBound
}

func (r *Router) hasEventLocked(b *componentBinding, event EventType) bool {
	for _, cfg := range b.configs {
		if cfg.Event == event {
			return true
		}
	}
	return false
}

func (r *Router) watchedPropertiesLocked(b *componentBinding) []string {
	seen := make(map[string]struct{})
	var props []string
	for _, cfg := range b.configs {
		if cfg.Event != EventDataChange {
			continue
		}
		if _, dup := seen[cfg.WatchedProperty]; dup {
			continue
		}
		seen[cfg.WatchedProperty] = struct{}{}
		props = append(props, cfg.WatchedProperty)
	}
	return props
}

func (r *Router) teardownLocked(b *componentBinding) {
	for _, td := range b.teardowns {
		td()
	}
	b.teardowns = nil
	if b.state == stateFullyBound {
		b.state = stateConfigRegistered
	}
}

// fire runs every rule for a UI event through the response pipeline as
// one batch.
func (r *Router) fire(id string, event EventType, value any) {
	r.mu.Lock()
	b, ok := r.bindings[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	var matched []Config
	for _, cfg := range b.configs {
		if cfg.Event == event {
			matched = append(matched, cfg)
		}
	}
	r.mu.Unlock()

	r.execute(id, matched, value)
}

// fireDataChange runs every dataChange rule watching prop, so multiple
// rules triggered by one property change flush as a single batch.
func (r *Router) fireDataChange(id, prop string, value any) {
	r.mu.Lock()
	b, ok := r.bindings[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	var matched []Config
	for _, cfg := range b.configs {
		if cfg.Event == EventDataChange && cfg.WatchedProperty == prop {
			matched = append(matched, cfg)
		}
	}
	r.mu.Unlock()

	r.execute(id, matched, value)
}

// execute evaluates conditions and dispatches responses. Jumps run
// immediately in listed order; modifies accumulate into the batch and
// flush as one tiered write per target layer.
func (r *Router) execute(sourceID string, configs []Config, value any) {
	if len(configs) == 0 {
		return
	}

	b := newBatch()
	for _, cfg := range configs {
		pass, err := EvaluateCondition(cfg.Condition, value, r.eval)
		if err != nil {
			r.logger.Warn("condition evaluation failed",
				zap.String("component", sourceID),
				zap.String("entry", cfg.ID),
				zap.Error(err))
			continue
		}
		if !pass {
			continue
		}
		for _, resp := range cfg.Responses {
			switch resp.Action {
			case ActionJump:
				target := resp.Jump.Target
				if target == "" {
					target = "self"
				}
				if err := r.nav.Navigate(resp.Jump.URL, target); err != nil {
					r.logger.Warn("jump failed",
						zap.String("component", sourceID),
						zap.String("url", resp.Jump.URL),
						zap.Error(err))
				}
			case ActionModify:
				b.addModify(resp.Modify)
			}
		}
	}

	b.flush(context.Background(), r.writer, r.logger)
}
