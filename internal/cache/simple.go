package cache

import (
	"fmt"
	"sync"
	"time"
)

// SimpleCache is the coarse sibling of Cache for callers that only need
// TTL plus a single opaque fingerprint per entry, without per-file
// dependency tracking. Keys combine a type and an identifier.
type SimpleCache[T any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]simpleEntry[T]
}

type simpleEntry[T any] struct {
	data      T
	createdAt time.Time
	hash      string
}

// NewSimple creates an empty SimpleCache. A non-positive ttl uses
// DefaultTTL.
func NewSimple[T any](ttl time.Duration) *SimpleCache[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SimpleCache[T]{ttl: ttl, entries: make(map[string]simpleEntry[T])}
}

// Key builds the canonical "type:identifier" cache key.
func Key(typ, identifier string) string {
	return fmt.Sprintf("%s:%s", typ, identifier)
}

// Get returns the entry for typ/identifier when it is within TTL and its
// recorded fingerprint matches hash. Pass an empty hash to skip the
// fingerprint check.
func (c *SimpleCache[T]) Get(typ, identifier, hash string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	key := Key(typ, identifier)
	entry, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if time.Since(entry.createdAt) > c.ttl {
		delete(c.entries, key)
		return zero, false
	}
	if hash != "" && entry.hash != hash {
		delete(c.entries, key)
		return zero, false
	}
	return entry.data, true
}

// Set stores data under typ/identifier with an optional fingerprint.
func (c *SimpleCache[T]) Set(typ, identifier string, data T, hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[Key(typ, identifier)] = simpleEntry[T]{
		data:      data,
		createdAt: time.Now(),
		hash:      hash,
	}
}

// Invalidate removes the entry for typ/identifier.
func (c *SimpleCache[T]) Invalidate(typ, identifier string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, Key(typ, identifier))
}

// Clear removes every entry.
func (c *SimpleCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]simpleEntry[T])
}

// IsValid reports whether a non-expired entry with a matching fingerprint
// exists, without returning the data.
func (c *SimpleCache[T]) IsValid(typ, identifier, hash string) bool {
	_, ok := c.Get(typ, identifier, hash)
	return ok
}

// Len returns the number of live entries, expired ones included until the
// next access sweeps them.
func (c *SimpleCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
