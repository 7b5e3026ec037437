// Package configbridge is the facade in front of the configuration state
// manager: the single write path for UI panels, migration code, and the
// interaction engine.
//
// The bridge owns the cross-cutting behaviors the manager does not know
// about: a short deduplication window that suppresses identical repeated
// writes, coalescing of rapid non-base edits into one manager write, the
// dynamic-parameter heuristic deciding whether a change must re-execute
// the component's data source, one-time structural migration of legacy
// documents, and fan-out of change events on the shared bus.
package configbridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sashad/cardcore/internal/confighash"
	"github.com/sashad/cardcore/internal/configevent"
	"github.com/sashad/cardcore/internal/configstate"
	"github.com/sashad/cardcore/internal/debounce"
)

const (
	defaultDedupWindow   = 50 * time.Millisecond
	defaultCoalesceDelay = 50 * time.Millisecond
)

// Collaborator is the data-source executor the bridge notifies when a
// change requires re-execution.
type Collaborator interface {
	ClearCache(componentID string)
	Trigger(ctx context.Context, componentID, componentType string, cfg map[string]any) error
}

type writeKey struct {
	componentID string
	section     configstate.Section
}

type pendingWrite struct {
	debouncer *debounce.Debouncer
	payload   any
	source    configstate.Source
}

// Bridge adapts callers to the configuration state manager.
type Bridge struct {
	manager  *configstate.Manager
	bus      *configevent.Bus
	triggers *TriggerRegistry
	executor Collaborator
	logger   *zap.Logger

	dedupWindow   time.Duration
	coalesceDelay time.Duration
	dedup         *debounce.Cache[writeKey, string]

	mu      sync.Mutex
	pending map[writeKey]*pendingWrite
	types   map[string]string
	closed  bool

	unwatch func()
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithCollaborator wires the data-source executor.
func WithCollaborator(c Collaborator) BridgeOption {
	return func(b *Bridge) { b.executor = c }
}

// WithTriggerRegistry replaces the default empty trigger registry.
func WithTriggerRegistry(r *TriggerRegistry) BridgeOption {
	return func(b *Bridge) { b.triggers = r }
}

// WithBridgeLogger sets the bridge's logger.
func WithBridgeLogger(logger *zap.Logger) BridgeOption {
	return func(b *Bridge) { b.logger = logger }
}

// WithDedupWindow overrides the identical-write suppression window.
func WithDedupWindow(d time.Duration) BridgeOption {
	return func(b *Bridge) { b.dedupWindow = d }
}

// WithCoalesceDelay overrides the non-base write coalescing delay.
func WithCoalesceDelay(d time.Duration) BridgeOption {
	return func(b *Bridge) { b.coalesceDelay = d }
}

// New creates a bridge over manager and bus and subscribes to the
// manager's change stream.
func New(manager *configstate.Manager, bus *configevent.Bus, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		manager:       manager,
		bus:           bus,
		logger:        zap.NewNop(),
		dedupWindow:   defaultDedupWindow,
		coalesceDelay: defaultCoalesceDelay,
		pending:       make(map[writeKey]*pendingWrite),
		types:         make(map[string]string),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.triggers == nil {
		b.triggers = NewTriggerRegistry()
	}
	b.dedup = debounce.NewCache[writeKey, string](b.dedupWindow)
	b.unwatch = manager.Watch(b.onManagerChange)
	return b
}

// Triggers exposes the trigger registry so catalogs can feed it binding
// paths.
func (b *Bridge) Triggers() *TriggerRegistry { return b.triggers }

// RegisterComponent initializes configuration state for a widget and
// records its component type for the trigger heuristic.
func (b *Bridge) RegisterComponent(componentID, componentType string) {
	b.mu.Lock()
	b.types[componentID] = componentType
	b.mu.Unlock()
	b.manager.InitializeConfiguration(componentID)
}

// RemoveComponent releases all bridge and manager state for a widget.
func (b *Bridge) RemoveComponent(componentID string) {
	b.mu.Lock()
	delete(b.types, componentID)
	for key, pw := range b.pending {
		if key.componentID == componentID {
			pw.debouncer.Cancel()
			delete(b.pending, key)
		}
	}
	b.mu.Unlock()

	b.dedup.DeleteFunc(func(key writeKey) bool {
		return key.componentID == componentID
	})
	b.manager.RemoveConfiguration(componentID)
	b.bus.RemoveComponent(componentID)
	if b.executor != nil {
		b.executor.ClearCache(componentID)
	}
}

// GetConfiguration reads a component's configuration, migrating legacy
// documents on first access.
func (b *Bridge) GetConfiguration(componentID string) (configstate.WidgetConfiguration, bool) {
	return b.EnsureMigrated(componentID)
}

// UpdateConfiguration is the standard write path for one configuration
// section. An identical payload repeated within the dedup window is
// suppressed. Base-layer writes go to the manager immediately; other
// sections coalesce rapid successive edits into a single merged write.
// The return value reports whether the write was accepted (not whether
// it has been applied yet).
func (b *Bridge) UpdateConfiguration(componentID string, section configstate.Section, payload any) bool {
	if !section.Valid() {
		return false
	}

	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return false
	}

	b.EnsureMigrated(componentID)

	key := writeKey{componentID, section}
	if hash, err := confighash.Sum(payload); err == nil {
		if prev, ok := b.dedup.Get(key); ok && prev == hash {
			b.logger.Debug("duplicate write suppressed",
				zap.String("component", componentID),
				zap.String("section", string(section)))
			return false
		}
		b.dedup.Set(key, hash)
	}

	if section == configstate.SectionBase {
		return b.manager.UpdateSection(componentID, section, payload, configstate.SourceUser)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	pw := b.pending[key]
	if pw == nil {
		pw = &pendingWrite{source: configstate.SourceUser}
		pw.debouncer = debounce.New(b.coalesceDelay, func() {
			b.flushPending(key)
		})
		b.pending[key] = pw
	}
	pw.payload = mergePayload(pw.payload, payload)
	pw.debouncer.Call()
	return true
}

// mergePayload folds a coalesced write's payloads together. Map payloads
// deep-merge; anything else (the interaction list, say) is replace-whole
// so the last edit in the burst wins.
func mergePayload(prev, next any) any {
	pm, prevIsMap := prev.(map[string]any)
	nm, nextIsMap := next.(map[string]any)
	if prevIsMap && nextIsMap {
		return configstate.DeepMerge(pm, nm)
	}
	return next
}

// flushPending commits a coalesced section write once its burst settles.
func (b *Bridge) flushPending(key writeKey) {
	b.mu.Lock()
	pw, ok := b.pending[key]
	if !ok || pw.payload == nil {
		b.mu.Unlock()
		return
	}
	payload := pw.payload
	source := pw.source
	pw.payload = nil
	b.mu.Unlock()

	if !b.manager.UpdateSection(key.componentID, key.section, payload, source) {
		b.logger.Debug("coalesced write rejected",
			zap.String("component", key.componentID),
			zap.String("section", string(key.section)))
	}
}

// Flush forces all coalesced writes through immediately.
func (b *Bridge) Flush() {
	b.mu.Lock()
	debouncers := make([]*debounce.Debouncer, 0, len(b.pending))
	for _, pw := range b.pending {
		debouncers = append(debouncers, pw.debouncer)
	}
	b.mu.Unlock()

	for _, d := range debouncers {
		d.Flush()
	}
}

// UpdateForInteraction performs a cross-component forced write on behalf
// of an interaction response. It bypasses the dedup cache and forces the
// manager write so the target observes the update even when the new value
// hashes identically to the current one.
func (b *Bridge) UpdateForInteraction(_ context.Context, componentID, section string, payload map[string]any) error {
	sec := configstate.Section(section)
	if !sec.Valid() {
		return fmt.Errorf("%w: %q", configstate.ErrInvalidSection, section)
	}
	if !b.manager.UpdateSection(componentID, sec, payload, configstate.SourceInteraction, configstate.Forced()) {
		return fmt.Errorf("forced update for %s/%s rejected", componentID, section)
	}
	return nil
}

// onManagerChange turns manager change notifications into bus events and
// drives the data-source collaborator.
func (b *Bridge) onManagerChange(change configstate.Change) {
	var changed []string
	if diffs, err := configstate.DiffConfigurations(change.Old, change.New); err == nil {
		changed = configstate.ChangedPaths(diffs)
	} else {
		b.logger.Warn("configuration diff failed",
			zap.String("component", change.ComponentID),
			zap.Error(err))
	}

	b.mu.Lock()
	componentType := b.types[change.ComponentID]
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return
	}

	shouldTrigger := b.triggers.ShouldTrigger(componentType, change.Section, changed)

	ev := configevent.ChangeEvent{
		ComponentID:   change.ComponentID,
		ComponentType: componentType,
		Section:       change.Section,
		OldConfig:     change.Old,
		NewConfig:     change.New,
		Timestamp:     time.Now(),
		Source:        change.Source,
		Context: configevent.EventContext{
			ShouldTriggerExecution: shouldTrigger,
			ChangedFields:          changed,
			Forced:                 change.Forced,
		},
	}
	if err := b.bus.Publish(ev); err != nil {
		b.logger.Warn("change event dropped",
			zap.String("component", change.ComponentID),
			zap.Error(err))
	}

	if shouldTrigger && b.executor != nil {
		b.executor.ClearCache(change.ComponentID)
		if len(change.New.DataSource) > 0 {
			if err := b.executor.Trigger(context.Background(), change.ComponentID, componentType, change.New.DataSource); err != nil {
				b.logger.Warn("data source trigger failed",
					zap.String("component", change.ComponentID),
					zap.Error(err))
			}
		}
	}
}

// Close stops watching the manager and cancels coalesced writes still in
// flight.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, pw := range b.pending {
		pw.debouncer.Cancel()
	}
	b.mu.Unlock()

	if b.unwatch != nil {
		b.unwatch()
	}
}
