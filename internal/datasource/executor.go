package datasource

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sashad/cardcore/internal/confighash"
	"github.com/sashad/cardcore/internal/debounce"
)

const (
	defaultDebounceDelay = 300 * time.Millisecond
	defaultFetchTimeout  = 15 * time.Second
)

// Executor runs data acquisition per component. Rapid-fire triggers for
// one component debounce into a single execution of the last settled
// configuration; a settled configuration whose content hash matches the
// cached result is not re-fetched; a completion that lost the race to a
// newer execution is discarded.
type Executor struct {
	fetchers      *FetcherRegistry
	debounceDelay time.Duration
	fetchTimeout  time.Duration
	onResult      func(Result)
	logger        *zap.Logger

	mu     sync.Mutex
	comps  map[string]*componentExec
	closed bool
	wg     sync.WaitGroup
}

type componentExec struct {
	debouncer *debounce.Debouncer

	pending     Config
	pendingType string
	pendingHash string

	// seq is the latest issued execution; appliedSeq the newest applied.
	seq        int64
	appliedSeq int64

	// resultHash is the config hash the cached result was fetched for.
	resultHash string
	result     *Result
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithDebounceDelay overrides the per-component debounce window.
func WithDebounceDelay(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.debounceDelay = d }
}

// WithFetchTimeout bounds each fetch.
func WithFetchTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.fetchTimeout = d }
}

// WithResultHandler registers a callback invoked for each applied result.
func WithResultHandler(fn func(Result)) ExecutorOption {
	return func(e *Executor) { e.onResult = fn }
}

// WithExecutorLogger sets the executor's logger.
func WithExecutorLogger(logger *zap.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = logger }
}

// NewExecutor creates an executor over the given fetcher registry.
func NewExecutor(fetchers *FetcherRegistry, opts ...ExecutorOption) *Executor {
	e := &Executor{
		fetchers:      fetchers,
		debounceDelay: defaultDebounceDelay,
		fetchTimeout:  defaultFetchTimeout,
		logger:        zap.NewNop(),
		comps:         make(map[string]*componentExec),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Trigger requests execution of a component's dataSource configuration.
// The request debounces with other triggers for the same component; only
// the last configuration in the window executes. Returns nil immediately
// when the settled configuration matches the cached result.
func (e *Executor) Trigger(_ context.Context, componentID, componentType string, rawCfg map[string]any) error {
	cfg, err := ParseConfig(rawCfg)
	if err != nil {
		return err
	}
	hash, err := confighash.Sum(cfg)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrExecutorClosed
	}

	c := e.comps[componentID]
	if c == nil {
		c = &componentExec{}
		c.debouncer = debounce.New(e.debounceDelay, func() {
			e.execute(componentID)
		})
		e.comps[componentID] = c
	}

	// Identical settled content with a live cached result is a no-op.
	if hash == c.resultHash && c.result != nil {
		e.logger.Debug("data source execution coalesced",
			zap.String("component", componentID),
			zap.String("hash", hash))
		return nil
	}

	c.pending = cfg
	c.pendingType = componentType
	c.pendingHash = hash
	c.debouncer.Call()
	return nil
}

// execute runs after the debounce window settles.
func (e *Executor) execute(componentID string) {
	e.mu.Lock()
	c, ok := e.comps[componentID]
	if !ok || e.closed {
		e.mu.Unlock()
		return
	}
	cfg := c.pending
	hash := c.pendingHash
	c.seq++
	seq := c.seq
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), e.fetchTimeout)
		defer cancel()
		data, err := e.fetchers.Fetch(ctx, cfg)
		if err != nil {
			e.logger.Warn("data source fetch failed",
				zap.String("component", componentID),
				zap.String("type", string(cfg.Type)),
				zap.Error(err))
			return
		}

		result := Result{
			ComponentID: componentID,
			Data:        data,
			FetchedAt:   time.Now(),
			Seq:         seq,
		}

		e.mu.Lock()
		defer e.mu.Unlock()
		if seq < c.seq || seq <= c.appliedSeq {
			// A newer execution was issued or applied while this fetch
			// was in flight.
			e.logger.Debug("stale data source result discarded",
				zap.String("component", componentID),
				zap.Int64("seq", seq),
				zap.Int64("latest", c.seq))
			return
		}
		c.appliedSeq = seq
		c.result = &result
		c.resultHash = hash

		if e.onResult != nil {
			fn := e.onResult
			go fn(result)
		}
	}()
}

// Result returns the last applied result for a component.
func (e *Executor) Result(componentID string) (Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.comps[componentID]
	if !ok || c.result == nil {
		return Result{}, false
	}
	return *c.result, true
}

// ClearCache drops the cached result for a component so the next trigger
// re-fetches even with identical configuration.
func (e *Executor) ClearCache(componentID string) {
	e.mu.Lock()
	if c, ok := e.comps[componentID]; ok {
		c.result = nil
		c.resultHash = ""
	}
	e.mu.Unlock()
}

// Remove cancels pending work and forgets all state for a component.
func (e *Executor) Remove(componentID string) {
	e.mu.Lock()
	if c, ok := e.comps[componentID]; ok {
		c.debouncer.Cancel()
		delete(e.comps, componentID)
	}
	e.mu.Unlock()
}

// Close cancels all pending executions and waits for in-flight fetches.
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	for _, c := range e.comps {
		c.debouncer.Cancel()
	}
	e.mu.Unlock()

	e.wg.Wait()
}
