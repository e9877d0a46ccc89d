package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestGetSet_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	fileA := writeFile(t, dir, "a.md", "alpha")

	c := New[string](time.Minute)
	c.Set("k", "value", []string{fileA})

	got, ok := c.Get("k", nil)
	if !ok || got != "value" {
		t.Fatalf("Get = (%q, %v), want (value, true)", got, ok)
	}
}

func TestGet_MissReturnsFalse(t *testing.T) {
	c := New[int](time.Minute)
	if _, ok := c.Get("absent", nil); ok {
		t.Error("expected miss for absent key")
	}
}

func TestGet_FastPathSkipsHashing(t *testing.T) {
	dir := t.TempDir()
	fileA := writeFile(t, dir, "a.md", "alpha")

	c := New[string](time.Minute)
	c.Set("k", "value", []string{fileA})
	baseline := c.HashCount()

	// Unchanged mtime: repeated reads must not touch file content.
	for range 3 {
		if _, ok := c.Get("k", nil); !ok {
			t.Fatal("expected hit")
		}
	}
	if got := c.HashCount(); got != baseline {
		t.Errorf("hash count = %d, want %d (no re-hash on fast path)", got, baseline)
	}
}

func TestGet_ContentChangeInvalidates(t *testing.T) {
	dir := t.TempDir()
	fileA := writeFile(t, dir, "a.md", "alpha")

	c := New[string](time.Minute)
	c.Set("k", "value", []string{fileA})

	// New content under a new mtime.
	if err := os.WriteFile(fileA, []byte("alpha!"), 0o644); err != nil {
		t.Fatal(err)
	}
	bumpMTime(t, fileA)

	if _, ok := c.Get("k", nil); ok {
		t.Error("expected invalidation after content change")
	}
	if _, ok := c.Get("k", nil); ok {
		t.Error("entry should have been deleted")
	}
}

func TestGet_TouchWithSameContentStaysValid(t *testing.T) {
	dir := t.TempDir()
	fileA := writeFile(t, dir, "a.md", "alpha")

	c := New[string](time.Minute)
	c.Set("k", "value", []string{fileA})
	bumpMTime(t, fileA)

	if _, ok := c.Get("k", nil); !ok {
		t.Error("identical content under a new mtime should stay valid")
	}
}

func TestGet_MissingDependencyInvalidates(t *testing.T) {
	dir := t.TempDir()
	fileA := writeFile(t, dir, "a.md", "alpha")

	c := New[string](time.Minute)
	c.Set("k", "value", []string{fileA})
	if err := os.Remove(fileA); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Get("k", nil); ok {
		t.Error("deleted dependency should invalidate the entry")
	}
}

func TestGet_TTLExpiry(t *testing.T) {
	dir := t.TempDir()
	fileA := writeFile(t, dir, "a.md", "alpha")

	c := New[string](time.Millisecond)
	c.Set("k", "value", []string{fileA})
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("k", nil); ok {
		t.Error("expected TTL expiry")
	}
	if got := c.GetStats().CacheSize; got != 0 {
		t.Errorf("cache size = %d, want 0 after lazy expiry", got)
	}
}

func TestGet_ValidatorConsulted(t *testing.T) {
	dir := t.TempDir()
	fileA := writeFile(t, dir, "a.md", "alpha")

	c := New[string](time.Minute)
	c.Set("k", "value", []string{fileA})

	invalid := func() (bool, []string) { return false, []string{fileA} }
	if _, ok := c.Get("k", invalid); ok {
		t.Error("failing validator should invalidate")
	}
}

func TestInvalidateByFile_Precision(t *testing.T) {
	dir := t.TempDir()
	fileA := writeFile(t, dir, "a.md", "alpha")
	fileB := writeFile(t, dir, "b.md", "beta")

	c := New[string](time.Minute)
	c.Set("k1", "one", []string{fileA})
	c.Set("k2", "two", []string{fileB})

	removed := c.InvalidateByFile(fileA)
	if len(removed) != 1 || removed[0] != "k1" {
		t.Errorf("removed = %v, want [k1]", removed)
	}
	if _, ok := c.Get("k1", nil); ok {
		t.Error("k1 should be gone")
	}
	if _, ok := c.Get("k2", nil); !ok {
		t.Error("k2 should remain")
	}
}

func TestSet_SharedDependencyHashedOnce(t *testing.T) {
	dir := t.TempDir()
	fileA := writeFile(t, dir, "a.md", "alpha")

	c := New[string](time.Minute)
	c.Set("k1", "one", []string{fileA})
	after := c.HashCount()
	c.Set("k2", "two", []string{fileA})

	if got := c.HashCount(); got != after {
		t.Errorf("hash count = %d, want %d (memo should cover second Set)", got, after)
	}
}

func TestSet_ReplacesReverseIndex(t *testing.T) {
	dir := t.TempDir()
	fileA := writeFile(t, dir, "a.md", "alpha")
	fileB := writeFile(t, dir, "b.md", "beta")

	c := New[string](time.Minute)
	c.Set("k", "one", []string{fileA})
	c.Set("k", "two", []string{fileB})

	if removed := c.InvalidateByFile(fileA); len(removed) != 0 {
		t.Errorf("stale reverse index: %v", removed)
	}
	if _, ok := c.Get("k", nil); !ok {
		t.Error("entry should survive invalidation of a dropped dependency")
	}
}

func TestCleanupExpired(t *testing.T) {
	dir := t.TempDir()
	fileA := writeFile(t, dir, "a.md", "alpha")

	c := New[string](time.Millisecond)
	c.Set("k1", "one", []string{fileA})
	c.Set("k2", "two", []string{fileA})
	time.Sleep(5 * time.Millisecond)

	if removed := c.CleanupExpired(); removed != 2 {
		t.Errorf("CleanupExpired = %d, want 2", removed)
	}
}

func TestGetStatsAndDependencies(t *testing.T) {
	dir := t.TempDir()
	fileA := writeFile(t, dir, "a.md", "alpha")

	c := New[string](time.Minute)
	c.Set("k", "value", []string{fileA})

	stats := c.GetStats()
	if stats.CacheSize != 1 || stats.TrackedFiles != 1 || len(stats.Keys) != 1 {
		t.Errorf("stats = %+v", stats)
	}
	deps := c.Dependencies("k")
	if len(deps) != 1 || deps[0].Path != fileA || len(deps[0].Hash) != 16 {
		t.Errorf("deps = %+v", deps)
	}
}

func TestClear(t *testing.T) {
	dir := t.TempDir()
	fileA := writeFile(t, dir, "a.md", "alpha")

	c := New[string](time.Minute)
	c.Set("k", "value", []string{fileA})
	c.Clear()

	if got := c.GetStats(); got.CacheSize != 0 || got.FileHashCacheSize != 0 || got.TrackedFiles != 0 {
		t.Errorf("stats after clear = %+v", got)
	}
}

func TestSimpleCache_TTLAndHashGating(t *testing.T) {
	c := NewSimple[string](time.Minute)
	c.Set("graph", "vault-1", "data", "h1")

	if got, ok := c.Get("graph", "vault-1", "h1"); !ok || got != "data" {
		t.Fatalf("Get = (%q, %v)", got, ok)
	}
	if _, ok := c.Get("graph", "vault-1", "h2"); ok {
		t.Error("mismatched fingerprint should miss")
	}
	// Empty hash skips the fingerprint check, but the mismatch above
	// already evicted the entry.
	if _, ok := c.Get("graph", "vault-1", ""); ok {
		t.Error("entry should have been evicted by the mismatch")
	}
}

func TestSimpleCache_Invalidate(t *testing.T) {
	c := NewSimple[int](time.Minute)
	c.Set("stats", "vault-1", 42, "")
	c.Invalidate("stats", "vault-1")
	if c.IsValid("stats", "vault-1", "") {
		t.Error("expected invalidated entry")
	}
}

// bumpMTime sets the file's mtime strictly forward so mtime-based
// comparisons observe a change even on coarse-grained filesystems.
func bumpMTime(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	next := info.ModTime().Add(2 * time.Second)
	if err := os.Chtimes(path, next, next); err != nil {
		t.Fatal(err)
	}
}
