package datasource

import (
	"context"
	"fmt"
	"sync"
)

// Fetcher acquires data for one data source type.
type Fetcher interface {
	Fetch(ctx context.Context, cfg Config) (any, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, cfg Config) (any, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, cfg Config) (any, error) { return f(ctx, cfg) }

// FetcherRegistry maps type tags to fetchers.
type FetcherRegistry struct {
	mu       sync.RWMutex
	fetchers map[Type]Fetcher
}

// NewFetcherRegistry creates a registry preloaded with the built-in
// fetchers: static, api, websocket, and multi-source fan-out.
func NewFetcherRegistry() *FetcherRegistry {
	r := &FetcherRegistry{fetchers: make(map[Type]Fetcher)}
	r.Register(TypeStatic, FetcherFunc(fetchStatic))
	r.Register(TypeAPI, NewHTTPFetcher(nil))
	r.Register(TypeWebSocket, NewWebSocketFetcher())
	r.Register(TypeMultiSource, &multiSourceFetcher{registry: r})
	return r
}

// Register installs (or replaces) the fetcher for a type.
func (r *FetcherRegistry) Register(t Type, f Fetcher) {
	r.mu.Lock()
	r.fetchers[t] = f
	r.mu.Unlock()
}

// Lookup returns the fetcher for a type.
func (r *FetcherRegistry) Lookup(t Type) (Fetcher, error) {
	r.mu.RLock()
	f, ok := r.fetchers[t]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoFetcher, t)
	}
	return f, nil
}

// Fetch resolves the fetcher for cfg.Type and runs it.
func (r *FetcherRegistry) Fetch(ctx context.Context, cfg Config) (any, error) {
	f, err := r.Lookup(cfg.Type)
	if err != nil {
		return nil, err
	}
	data, err := f.Fetch(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return applyMapping(data, cfg.Mapping), nil
}

// fetchStatic returns the inline data verbatim.
func fetchStatic(_ context.Context, cfg Config) (any, error) {
	return cfg.Data, nil
}

// multiSourceFetcher fans out to each sub-source and merges keyed
// results. A failing sub-source fails the whole fetch.
type multiSourceFetcher struct {
	registry *FetcherRegistry
}

func (m *multiSourceFetcher) Fetch(ctx context.Context, cfg Config) (any, error) {
	merged := make(map[string]any, len(cfg.Sources))
	for i, sub := range cfg.Sources {
		key := sub.Key
		if key == "" {
			key = fmt.Sprintf("source%d", i)
		}
		data, err := m.registry.Fetch(ctx, sub)
		if err != nil {
			return nil, fmt.Errorf("sub-source %q: %w", key, err)
		}
		merged[key] = data
	}
	return merged, nil
}

// applyMapping renames top-level result fields per the configured
// mapping. Non-map results and empty mappings pass through unchanged.
func applyMapping(data any, mapping map[string]string) any {
	if len(mapping) == 0 {
		return data
	}
	src, ok := data.(map[string]any)
	if !ok {
		return data
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		if renamed, ok := mapping[k]; ok {
			out[renamed] = v
		} else {
			out[k] = v
		}
	}
	return out
}
