package configstate

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sashad/cardcore/internal/confighash"
	"github.com/sashad/cardcore/internal/debounce"
	"github.com/sashad/cardcore/internal/interaction"
)

const (
	defaultNotifyDelay = 30 * time.Millisecond
	defaultHistoryCap  = 50
	defaultValCacheTTL = 5 * time.Second
)

// lockKey guards one write scope: a (component, section) pair, or the whole
// document when section is empty.
type lockKey struct {
	id      string
	section Section
}

// componentState is the stored state for one component id.
type componentState struct {
	config  WidgetConfiguration
	version Version

	// history holds retained versions oldest-first, current last.
	history []Version

	// snapshots holds a deep copy of the configuration at each retained
	// version, keyed by version number, for restore and diff.
	snapshots map[int64]WidgetConfiguration
}

// Manager is the authoritative versioned configuration store.
//
// Writes go through SetConfiguration (full replace) or UpdateSection
// (single-layer merge). Both deduplicate by content hash, reject reentrant
// writes to a locked scope, and emit a debounced Change to registered
// observers. The write lock for a scope is released only after the
// debounced notification has fired.
type Manager struct {
	mu     sync.Mutex
	states map[string]*componentState
	locks  map[lockKey]struct{}

	obsMu     sync.RWMutex
	observers map[uint64]func(Change)
	nextObsID uint64

	rulesMu sync.RWMutex
	rules   []ValidationRule

	tmplMu    sync.RWMutex
	templates map[string]Template

	hasher      *confighash.Hasher
	valCache    *debounce.Cache[string, ValidationResult]
	notifyDelay time.Duration
	historyCap  int
	logger      *zap.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithNotifyDelay sets the change-notification debounce window.
func WithNotifyDelay(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.notifyDelay = d
	}
}

// WithHistoryCap bounds the retained version history per component.
func WithHistoryCap(n int) ManagerOption {
	return func(m *Manager) {
		m.historyCap = n
	}
}

// WithValidationCacheTTL sets the validation-result cache TTL.
func WithValidationCacheTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.valCache = debounce.NewCache[string, ValidationResult](ttl)
	}
}

// NewManager creates a configuration store.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		states:      make(map[string]*componentState),
		locks:       make(map[lockKey]struct{}),
		observers:   make(map[uint64]func(Change)),
		templates:   make(map[string]Template),
		hasher:      confighash.NewHasher(),
		valCache:    debounce.NewCache[string, ValidationResult](defaultValCacheTTL),
		notifyDelay: defaultNotifyDelay,
		historyCap:  defaultHistoryCap,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.registerBuiltinRules()
	return m
}

// Watch registers an observer for debounced change notifications. The
// returned function removes the observer.
func (m *Manager) Watch(fn func(Change)) (unsubscribe func()) {
	m.obsMu.Lock()
	id := m.nextObsID
	m.nextObsID++
	m.observers[id] = fn
	m.obsMu.Unlock()

	return func() {
		m.obsMu.Lock()
		delete(m.observers, id)
		m.obsMu.Unlock()
	}
}

// InitializeConfiguration creates an empty configuration for id if none
// exists. It reports whether a configuration was created.
func (m *Manager) InitializeConfiguration(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.states[id]; exists {
		return false
	}
	m.initializeLocked(id)
	return true
}

// initializeLocked creates version 1 for id. Caller holds m.mu.
func (m *Manager) initializeLocked(id string) *componentState {
	cfg := NewWidgetConfiguration()
	hash, err := m.hasher.Sum(cfg)
	if err != nil {
		// Empty configurations always hash; keep a sentinel on the
		// impossible path so versions stay comparable.
		hash = "0"
	}

	st := &componentState{
		config: cfg,
		version: Version{
			Number:      1,
			ContentHash: hash,
			Timestamp:   time.Now(),
			Source:      SourceSystem,
			ChangeType:  "initialize",
		},
		snapshots: make(map[int64]WidgetConfiguration),
	}
	st.history = []Version{st.version}
	st.snapshots[1] = cfg.Clone()
	m.states[id] = st
	return st
}

// HasConfiguration reports whether a configuration exists for id.
func (m *Manager) HasConfiguration(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.states[id]
	return ok
}

// GetConfiguration returns a deep copy of the configuration for id.
func (m *Manager) GetConfiguration(id string) (WidgetConfiguration, bool) {
	m.mu.Lock()
	st, ok := m.states[id]
	if !ok {
		m.mu.Unlock()
		return WidgetConfiguration{}, false
	}
	cfg := st.config.Clone()
	m.mu.Unlock()
	return cfg, true
}

// RemoveConfiguration drops all stored state for id: configuration,
// version history, snapshots, and cached validation results.
func (m *Manager) RemoveConfiguration(id string) {
	m.mu.Lock()
	delete(m.states, id)
	for key := range m.locks {
		if key.id == id {
			delete(m.locks, key)
		}
	}
	m.mu.Unlock()
}

// SetConfiguration replaces the full configuration document for id.
//
// It returns false without mutating state when the new content hashes
// identically to the current version, when the document-level write lock is
// held, or when validation reports errors (unless SkipValidation). On
// success a new version is stored and a debounced Change fires.
func (m *Manager) SetConfiguration(id string, cfg WidgetConfiguration, source Source, opts ...WriteOption) bool {
	return m.setConfiguration(id, cfg, source, "replace", applyWriteOptions(opts))
}

func (m *Manager) setConfiguration(id string, cfg WidgetConfiguration, source Source, changeType string, o writeOptions) bool {
	cfg.normalize()

	newHash, err := m.hasher.Sum(cfg)
	if err != nil {
		m.logger.Warn("configuration not hashable, write rejected",
			zap.String("componentId", id), zap.Error(err))
		return false
	}

	if !o.skipValidation {
		res := m.Validate(&cfg, nil)
		if !res.Valid {
			m.logger.Warn("configuration validation failed, write rejected",
				zap.String("componentId", id),
				zap.Int("errors", len(res.Errors)))
			return false
		}
	}

	m.mu.Lock()
	st, ok := m.states[id]
	if !ok {
		st = m.initializeLocked(id)
	}

	key := lockKey{id: id}
	if m.scopeLockedLocked(id, "") {
		m.mu.Unlock()
		return false
	}
	if !o.forced && st.version.ContentHash == newHash {
		m.mu.Unlock()
		return false
	}

	m.locks[key] = struct{}{}

	old := st.config.Clone()
	cfg.Metadata.UpdatedAt = time.Now()
	if cfg.Metadata.CreatedAt.IsZero() {
		cfg.Metadata.CreatedAt = old.Metadata.CreatedAt
	}

	next := Version{
		Number:      st.version.Number + 1,
		ContentHash: newHash,
		Timestamp:   time.Now(),
		Source:      source,
		ChangeType:  changeType,
	}
	st.config = cfg.Clone()
	st.version = next
	st.history = append(st.history, next)
	st.snapshots[next.Number] = st.config.Clone()
	m.pruneHistoryLocked(st)

	change := Change{
		ComponentID: id,
		Old:         old,
		New:         st.config.Clone(),
		Version:     next.Number,
		Source:      source,
		Forced:      o.forced,
	}
	m.mu.Unlock()

	m.scheduleNotify(key, change)
	return true
}

// UpdateSection merges a partial payload into exactly one configuration
// section of id. Different sections of the same component update
// concurrently; a second write to the same section while its debounced
// notification is pending returns false.
//
// With Forced, the write bypasses hash deduplication: a forced-update
// timestamp is stamped into metadata so the resulting version is observable
// even when the visible payload reproduces a prior hash.
func (m *Manager) UpdateSection(id string, section Section, payload any, source Source, opts ...WriteOption) bool {
	o := applyWriteOptions(opts)

	if !section.Valid() {
		m.logger.Warn("update rejected for unknown section",
			zap.String("componentId", id), zap.String("section", string(section)))
		return false
	}

	m.mu.Lock()
	st, ok := m.states[id]
	if !ok {
		st = m.initializeLocked(id)
	}
	current := st.config.Clone()
	currentHash := st.version.ContentHash
	nextNumber := st.version.Number + 1

	key := lockKey{id: id, section: section}
	if m.scopeLockedLocked(id, section) {
		m.mu.Unlock()
		return false
	}
	m.mu.Unlock()

	updated, err := mergeSection(current, section, payload)
	if err != nil {
		m.logger.Warn("section payload rejected",
			zap.String("componentId", id),
			zap.String("section", string(section)),
			zap.Error(err))
		return false
	}

	if o.forced {
		updated.Metadata.LastForcedUpdate = time.Now().UnixNano()
	}

	newHash, err := m.hasher.Sum(updated)
	if err != nil {
		m.logger.Warn("merged configuration not hashable",
			zap.String("componentId", id), zap.Error(err))
		return false
	}
	if !o.forced && newHash == currentHash {
		return false
	}

	if !o.skipValidation {
		res := m.Validate(&updated, nil)
		if !res.Valid {
			m.logger.Warn("section update validation failed",
				zap.String("componentId", id),
				zap.String("section", string(section)),
				zap.Int("errors", len(res.Errors)))
			return false
		}
	}

	m.mu.Lock()
	st, ok = m.states[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	// Re-check under the lock: a concurrent write may have advanced the
	// version or taken the scope while we merged.
	if m.scopeLockedLocked(id, section) || st.version.Number+1 != nextNumber {
		m.mu.Unlock()
		return false
	}
	m.locks[key] = struct{}{}

	old := st.config.Clone()
	updated.Metadata.UpdatedAt = time.Now()

	next := Version{
		Number:      nextNumber,
		ContentHash: newHash,
		Timestamp:   time.Now(),
		Source:      source,
		ChangeType:  "section:" + string(section),
	}
	st.config = updated.Clone()
	st.version = next
	st.history = append(st.history, next)
	st.snapshots[next.Number] = st.config.Clone()
	m.pruneHistoryLocked(st)

	change := Change{
		ComponentID: id,
		Section:     section,
		Old:         old,
		New:         st.config.Clone(),
		Version:     next.Number,
		Source:      source,
		Forced:      o.forced,
	}
	m.mu.Unlock()

	m.scheduleNotify(key, change)
	return true
}

// mergeSection applies a section payload onto a configuration copy.
// Map-valued sections deep-merge; the interaction list is replaced whole.
func mergeSection(cfg WidgetConfiguration, section Section, payload any) (WidgetConfiguration, error) {
	switch section {
	case SectionInteraction:
		raw, err := json.Marshal(payload)
		if err != nil {
			return cfg, fmt.Errorf("interaction payload: %w", err)
		}
		var list []interaction.Config
		if err := json.Unmarshal(raw, &list); err != nil {
			return cfg, fmt.Errorf("interaction payload: %w", err)
		}
		if list == nil {
			list = []interaction.Config{}
		}
		cfg.Interaction = list

	case SectionBase:
		payloadMap, err := toMap(payload)
		if err != nil {
			return cfg, fmt.Errorf("base payload: %w", err)
		}
		baseMap, err := toMap(cfg.Base)
		if err != nil {
			return cfg, err
		}
		merged := DeepMerge(baseMap, payloadMap)
		var base BaseConfig
		if err := fromMap(merged, &base); err != nil {
			return cfg, fmt.Errorf("base payload: %w", err)
		}
		cfg.Base = base

	case SectionComponent:
		payloadMap, err := toMap(payload)
		if err != nil {
			return cfg, fmt.Errorf("component payload: %w", err)
		}
		cfg.Component = DeepMerge(cloneMap(cfg.Component), payloadMap)

	case SectionDataSource:
		payloadMap, err := toMap(payload)
		if err != nil {
			return cfg, fmt.Errorf("dataSource payload: %w", err)
		}
		cfg.DataSource = DeepMerge(cloneMap(cfg.DataSource), payloadMap)

	default:
		return cfg, ErrInvalidSection
	}
	return cfg, nil
}

// scopeLockedLocked reports whether a write to (id, section) would conflict
// with a held lock. A document-level lock conflicts with every section; a
// section lock conflicts with its own section and with document-level
// writes. Caller holds m.mu.
func (m *Manager) scopeLockedLocked(id string, section Section) bool {
	if section == "" {
		for key := range m.locks {
			if key.id == id {
				return true
			}
		}
		return false
	}
	if _, held := m.locks[lockKey{id: id}]; held {
		return true
	}
	_, held := m.locks[lockKey{id: id, section: section}]
	return held
}

// scheduleNotify fires the change after the debounce window and releases
// the write lock once delivery has completed, success or failure.
func (m *Manager) scheduleNotify(key lockKey, change Change) {
	time.AfterFunc(m.notifyDelay, func() {
		defer func() {
			m.mu.Lock()
			delete(m.locks, key)
			m.mu.Unlock()
		}()
		m.deliver(change)
	})
}

// deliver invokes all observers, isolating panics per observer.
func (m *Manager) deliver(change Change) {
	m.obsMu.RLock()
	observers := make([]func(Change), 0, len(m.observers))
	for _, fn := range m.observers {
		observers = append(observers, fn)
	}
	m.obsMu.RUnlock()

	for _, fn := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error("configuration observer panicked",
						zap.String("componentId", change.ComponentID),
						zap.Any("panic", r))
				}
			}()
			fn(change)
		}()
	}
}

// pruneHistoryLocked trims history and snapshots to the configured cap.
// Caller holds m.mu.
func (m *Manager) pruneHistoryLocked(st *componentState) {
	for len(st.history) > m.historyCap {
		dropped := st.history[0]
		st.history = st.history[1:]
		delete(st.snapshots, dropped.Number)
	}
}

// CurrentVersion returns the current version entry for id.
func (m *Manager) CurrentVersion(id string) (Version, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.states[id]
	if !ok {
		return Version{}, false
	}
	return st.version, true
}

// GetVersionHistory returns the retained version history for id,
// oldest first.
func (m *Manager) GetVersionHistory(id string) []Version {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.states[id]
	if !ok {
		return nil
	}
	out := make([]Version, len(st.history))
	copy(out, st.history)
	return out
}

// RestoreToVersion restores id's configuration to a retained version. The
// restore is a new write: it produces a fresh version entry tagged
// SourceRestore whose content hash equals the restored snapshot's.
func (m *Manager) RestoreToVersion(id string, versionNumber int64) error {
	m.mu.Lock()
	st, ok := m.states[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrComponentNotFound, id)
	}
	snapshot, ok := st.snapshots[versionNumber]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s v%d", ErrVersionNotFound, id, versionNumber)
	}
	restored := snapshot.Clone()
	m.mu.Unlock()

	if !m.setConfiguration(id, restored, SourceRestore, "restore", writeOptions{skipValidation: true}) {
		return fmt.Errorf("restore of %s to v%d rejected", id, versionNumber)
	}
	return nil
}

// Export serializes id's configuration document as JSON.
func (m *Manager) Export(id string) ([]byte, error) {
	cfg, ok := m.GetConfiguration(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, id)
	}
	return json.MarshalIndent(cfg, "", "  ")
}

// Import replaces id's configuration from an exported JSON document.
// A document whose content hash matches the current configuration is a
// no-op, preserving the idempotent round-trip property.
func (m *Manager) Import(id string, data []byte, opts ...WriteOption) error {
	var cfg WidgetConfiguration
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrImportMalformed, err)
	}
	m.setConfiguration(id, cfg, SourceImport, "import", applyWriteOptions(opts))
	return nil
}

// writeOptions carry the optional flags of a write.
type writeOptions struct {
	skipValidation bool
	forced         bool
}

// WriteOption configures a single write.
type WriteOption func(*writeOptions)

// SkipValidation disables validation for this write. Blocking validation
// errors are otherwise fatal to the write.
func SkipValidation() WriteOption {
	return func(o *writeOptions) {
		o.skipValidation = true
	}
}

// Forced bypasses content-hash deduplication so the write is observable
// even when its payload reproduces the current hash. Used by the
// cross-component interaction path.
func Forced() WriteOption {
	return func(o *writeOptions) {
		o.forced = true
	}
}

func applyWriteOptions(opts []WriteOption) writeOptions {
	var o writeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
