package mesh

import (
	"fmt"
	"os"
	"sync/atomic"
)

// KeyRotator selects provider API keys round-robin via an atomic counter.
// No health tracking is kept across calls: the driver decides when to move
// on to another key by calling Next again.
type KeyRotator struct {
	keys    []string
	counter atomic.Uint64
}

// NewKeyRotator builds a rotator over keys in order. An empty slice is
// allowed; HasKeys reports false and Next returns the empty string.
func NewKeyRotator(keys []string) *KeyRotator {
	cp := make([]string, len(keys))
	copy(cp, keys)
	return &KeyRotator{keys: cp}
}

// LoadKeyRotatorFromEnv reads MESHY_API_KEY, MESHY_API_KEY_2 .. MESHY_API_KEY_10
// and builds a rotator over whichever of those are set and non-empty.
func LoadKeyRotatorFromEnv() *KeyRotator {
	var keys []string
	if v := os.Getenv("MESHY_API_KEY"); v != "" {
		keys = append(keys, v)
	}
	for i := 2; i <= 10; i++ {
		if v := os.Getenv(fmt.Sprintf("MESHY_API_KEY_%d", i)); v != "" {
			keys = append(keys, v)
		}
	}
	return NewKeyRotator(keys)
}

// Next returns the next key round-robin. Returns "" if no keys were loaded;
// callers must treat that as a hard error rather than attempt the call.
func (r *KeyRotator) Next() string {
	n := len(r.keys)
	if n == 0 {
		return ""
	}
	idx := r.counter.Add(1) - 1
	return r.keys[int(idx)%n]
}

// Count returns the number of keys loaded.
func (r *KeyRotator) Count() int {
	return len(r.keys)
}

// HasKeys reports whether at least one key was loaded.
func (r *KeyRotator) HasKeys() bool {
	return len(r.keys) > 0
}
