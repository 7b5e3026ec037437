// Package confighash computes deterministic digests of configuration
// documents.
//
// A digest is computed over a canonical form of the document: JSON with
// recursively sorted object keys and volatile metadata timestamps removed.
// Two configurations that differ only in key order or in update timestamps
// therefore hash identically, which is what the no-op detection throughout
// the configuration core relies on.
package confighash

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Volatile metadata fields stripped before hashing. The forced-update stamp
// is deliberately NOT in this list: forced cross-component writes perturb
// the hash through it.
var defaultIgnoredPaths = []string{
	"metadata.createdAt",
	"metadata.updatedAt",
}

// Hasher computes content hashes with a configurable ignore list.
type Hasher struct {
	ignored []string
}

// Option configures a Hasher.
type Option func(*Hasher)

// WithIgnoredPaths replaces the default ignored dotted paths.
func WithIgnoredPaths(paths ...string) Option {
	return func(h *Hasher) {
		h.ignored = paths
	}
}

// NewHasher creates a Hasher. By default it ignores
// metadata.createdAt and metadata.updatedAt.
func NewHasher(opts ...Option) *Hasher {
	h := &Hasher{ignored: defaultIgnoredPaths}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Sum returns the hex-encoded xxhash64 digest of v's canonical form.
// v must be JSON-serializable.
func (h *Hasher) Sum(v any) (string, error) {
	canonical, err := h.canonicalBytes(v)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(xxhash.Sum64(canonical), 16), nil
}

// Equal reports whether two values hash identically. It returns false if
// either value cannot be hashed.
func (h *Hasher) Equal(a, b any) bool {
	ha, err := h.Sum(a)
	if err != nil {
		return false
	}
	hb, err := h.Sum(b)
	if err != nil {
		return false
	}
	return ha == hb
}

// Sum computes a digest with the default ignore list.
func Sum(v any) (string, error) {
	return NewHasher().Sum(v)
}

// canonicalBytes normalizes v through a JSON round trip, strips ignored
// paths, and serializes with sorted keys.
func (h *Hasher) canonicalBytes(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal for hashing: %w", err)
	}

	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return nil, fmt.Errorf("normalize for hashing: %w", err)
	}

	for _, path := range h.ignored {
		removePath(normalized, path)
	}

	var sb strings.Builder
	if err := writeCanonical(&sb, normalized); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// removePath deletes a dotted path from a normalized document.
func removePath(v any, path string) {
	parts := strings.Split(path, ".")
	current, ok := v.(map[string]any)
	if !ok {
		return
	}
	for i, part := range parts {
		if i == len(parts)-1 {
			delete(current, part)
			return
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			return
		}
		current = next
	}
}

// writeCanonical serializes a normalized value with sorted object keys.
func writeCanonical(sb *strings.Builder, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			keyJSON, err := json.Marshal(k)
			if err != nil {
				return err
			}
			sb.Write(keyJSON)
			sb.WriteByte(':')
			if err := writeCanonical(sb, val[k]); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
		return nil

	case []any:
		sb.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := writeCanonical(sb, item); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
		return nil

	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return err
		}
		sb.Write(raw)
		return nil
	}
}
