// Package cache implements a dependency-aware incremental cache. Each entry
// records the files it was computed from; entries are validated on read by
// comparing modification times (fast path) and truncated content hashes
// (slow path, only when the mtime moved). A changed, missing, or unreadable
// dependency invalidates the whole entry.
//
// The cache assumes a single process owns it. Concurrent multi-process
// mutation is unsafe and out of scope.
package cache

import (
	"os"
	"sort"
	"sync"
	"time"

	"github.com/starford/ansuz/internal/checksum"
)

// DefaultTTL is the fixed entry lifetime. An entry older than this is
// discarded regardless of dependency state.
const DefaultTTL = 5 * time.Minute

// FileDependency records the observed state of one file an entry depends on.
type FileDependency struct {
	Path  string    `json:"path"`
	Hash  string    `json:"hash"` // truncated SHA-256, checksum.ShortLen hex chars
	MTime time.Time `json:"mtime"`
}

// Entry wraps cached data with its creation time and dependency list.
type Entry[T any] struct {
	Data         T
	CreatedAt    time.Time
	Dependencies []FileDependency
}

// Validator is an optional caller-supplied check consulted on Get in
// addition to dependency validation. changedFiles names what failed.
type Validator func() (valid bool, changedFiles []string)

// Stats is a snapshot of cache occupancy for observability endpoints.
type Stats struct {
	CacheSize         int      `json:"cacheSize"`
	FileHashCacheSize int      `json:"fileHashCacheSize"`
	TrackedFiles      int      `json:"trackedFiles"`
	Keys              []string `json:"keys"`
}

type hashMemo struct {
	hash  string
	mtime time.Time
}

// Cache is a generic dependency-tracked store. The zero value is not
// usable; construct instances with New so tests get isolated state.
type Cache[T any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]Entry[T]
	// byFile maps a dependency path to the keys that depend on it,
	// giving O(dependent-keys) invalidation.
	byFile map[string]map[string]struct{}
	// fileHashes memoises {hash, mtime} per path so an unchanged file is
	// hashed once even when referenced by many keys.
	fileHashes map[string]hashMemo

	// hashCount tracks content-hash computations for fast-path assertions
	// in tests.
	hashCount int
}

// New creates an empty cache with the given TTL. A non-positive ttl uses
// DefaultTTL.
func New[T any](ttl time.Duration) *Cache[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[T]{
		ttl:        ttl,
		entries:    make(map[string]Entry[T]),
		byFile:     make(map[string]map[string]struct{}),
		fileHashes: make(map[string]hashMemo),
	}
}

// Get returns the cached value for key when the entry is within its TTL and
// every dependency still validates. Failed entries are deleted and the zero
// value is returned with ok=false.
func (c *Cache[T]) Get(key string, validator Validator) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	entry, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if time.Since(entry.CreatedAt) > c.ttl {
		c.removeLocked(key)
		return zero, false
	}
	for _, dep := range entry.Dependencies {
		if !c.dependencyValidLocked(dep) {
			c.removeLocked(key)
			return zero, false
		}
	}
	if validator != nil {
		if valid, _ := validator(); !valid {
			c.removeLocked(key)
			return zero, false
		}
	}
	return entry.Data, true
}

// dependencyValidLocked checks one dependency: an unchanged mtime is
// accepted without touching file content; a moved mtime triggers a re-hash
// and comparison against the recorded digest.
func (c *Cache[T]) dependencyValidLocked(dep FileDependency) bool {
	info, err := os.Stat(dep.Path)
	if err != nil {
		return false
	}
	if info.ModTime().Equal(dep.MTime) {
		return true
	}
	data, err := os.ReadFile(dep.Path)
	if err != nil {
		return false
	}
	c.hashCount++
	hash := checksum.Short(data)
	if hash != dep.Hash {
		return false
	}
	// Same content under a new mtime (e.g. touch). Refresh the memo so
	// later Sets skip re-hashing.
	c.fileHashes[dep.Path] = hashMemo{hash: hash, mtime: info.ModTime()}
	return true
}

// Set stores data under key with the given dependency paths. The previous
// reverse-index entries for key are dropped first. A dependency that cannot
// be read is recorded with an empty hash so the next Get invalidates.
func (c *Cache[T]) Set(key string, data T, depPaths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.unindexLocked(key)

	deps := make([]FileDependency, 0, len(depPaths))
	for _, path := range depPaths {
		deps = append(deps, c.fileDependencyLocked(path))
		if c.byFile[path] == nil {
			c.byFile[path] = make(map[string]struct{})
		}
		c.byFile[path][key] = struct{}{}
	}

	c.entries[key] = Entry[T]{
		Data:         data,
		CreatedAt:    time.Now(),
		Dependencies: deps,
	}
}

// fileDependencyLocked observes one file, reusing the hash memo when the
// mtime has not moved since it was recorded.
func (c *Cache[T]) fileDependencyLocked(path string) FileDependency {
	info, err := os.Stat(path)
	if err != nil {
		return FileDependency{Path: path}
	}
	mtime := info.ModTime()
	if memo, ok := c.fileHashes[path]; ok && memo.mtime.Equal(mtime) {
		return FileDependency{Path: path, Hash: memo.hash, MTime: mtime}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return FileDependency{Path: path, MTime: mtime}
	}
	c.hashCount++
	hash := checksum.Short(data)
	c.fileHashes[path] = hashMemo{hash: hash, mtime: mtime}
	return FileDependency{Path: path, Hash: hash, MTime: mtime}
}

// InvalidateByFile removes every entry depending on path and clears the
// path's hash memo. The removed keys are returned for observability.
func (c *Cache[T]) InvalidateByFile(path string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.byFile[path]
	if len(keys) == 0 {
		delete(c.fileHashes, path)
		delete(c.byFile, path)
		return nil
	}
	removed := make([]string, 0, len(keys))
	for key := range keys {
		removed = append(removed, key)
	}
	sort.Strings(removed)
	for _, key := range removed {
		c.removeLocked(key)
	}
	delete(c.fileHashes, path)
	delete(c.byFile, path)
	return removed
}

// Delete removes a single entry.
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
}

// Clear empties the cache, the reverse index, and the hash memo.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry[T])
	c.byFile = make(map[string]map[string]struct{})
	c.fileHashes = make(map[string]hashMemo)
}

// CleanupExpired sweeps TTL-expired entries and returns how many were
// removed. Expiry is otherwise handled lazily on Get, so this is an
// optional hygiene call.
func (c *Cache[T]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if time.Since(entry.CreatedAt) > c.ttl {
			c.removeLocked(key)
			removed++
		}
	}
	return removed
}

// GetStats returns an occupancy snapshot with sorted keys.
func (c *Cache[T]) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return Stats{
		CacheSize:         len(c.entries),
		FileHashCacheSize: len(c.fileHashes),
		TrackedFiles:      len(c.byFile),
		Keys:              keys,
	}
}

// Dependencies returns a copy of the dependency list recorded for key.
func (c *Cache[T]) Dependencies(key string) []FileDependency {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil
	}
	out := make([]FileDependency, len(entry.Dependencies))
	copy(out, entry.Dependencies)
	return out
}

// HashCount reports how many content hashes the cache has computed.
// Exposed for tests asserting the mtime fast path.
func (c *Cache[T]) HashCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hashCount
}

// removeLocked deletes an entry and its reverse-index references.
func (c *Cache[T]) removeLocked(key string) {
	entry, ok := c.entries[key]
	if !ok {
		return
	}
	for _, dep := range entry.Dependencies {
		if keys, ok := c.byFile[dep.Path]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.byFile, dep.Path)
			}
		}
	}
	delete(c.entries, key)
}

// unindexLocked drops reverse-index references for key without touching
// the entry itself; used when Set replaces a key's dependency list.
func (c *Cache[T]) unindexLocked(key string) {
	entry, ok := c.entries[key]
	if !ok {
		return
	}
	for _, dep := range entry.Dependencies {
		if keys, ok := c.byFile[dep.Path]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.byFile, dep.Path)
			}
		}
	}
}
