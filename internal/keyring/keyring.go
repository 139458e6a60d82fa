// Package keyring rotates a fixed pool of Gemini API keys in strict
// round-robin order. Rotation is global: every dispatch advances the same
// cursor regardless of which user triggered it.
package keyring

import (
	"errors"
	"sync"
)

// ErrEmptyPool is returned by New when no keys are provided. Pool emptiness
// is a configuration error checked once at startup so that Next stays total.
var ErrEmptyPool = errors.New("keyring: empty key pool")

// Ring hands out keys from a fixed ordered pool, one per call, wrapping
// modulo the pool size. Safe for concurrent use.
type Ring struct {
	mu     sync.Mutex
	keys   []string
	cursor int
}

// New creates a Ring over the given pool. The pool is copied; it must be
// non-empty.
func New(keys []string) (*Ring, error) {
	if len(keys) == 0 {
		return nil, ErrEmptyPool
	}
	pool := make([]string, len(keys))
	copy(pool, keys)
	return &Ring{keys: pool}, nil
}

// Next returns the key at the cursor and advances the cursor by one.
// The cursor only moves forward (mod pool size); a failed upstream call
// does not roll it back.
func (r *Ring) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.keys[r.cursor]
	r.cursor = (r.cursor + 1) % len(r.keys)
	return key
}

// Len returns the pool size.
func (r *Ring) Len() int { return len(r.keys) }

// Cursor returns the current cursor position. Intended for status reporting.
func (r *Ring) Cursor() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor
}
