package filecache

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGetReadsThroughOnFirstAccess(t *testing.T) {
	c := newTestCache(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	content, err := c.Get(path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(content) != "hello" {
		t.Fatalf("expected hello, got %q", content)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 cached entry, got %d", c.Len())
	}
}

func TestGetServesStaleCacheUntilInvalidated(t *testing.T) {
	c := newTestCache(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(path); err != nil {
		t.Fatal(err)
	}

	// Mutate the underlying cache entry's content directly to simulate
	// a cached read without touching disk; Get must still return the
	// disk truth once the cache is told to invalidate.
	c.mu.Lock()
	entry := c.entries[path]
	entry.Content = []byte("stale")
	c.entries[path] = entry
	c.mu.Unlock()

	content, err := c.Get(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "stale" {
		t.Fatalf("expected cache hit to return memoized (stale) content, got %q", content)
	}

	c.Invalidate(path)
	content, err = c.Get(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "v1" {
		t.Fatalf("expected invalidate to force a fresh read from disk, got %q", content)
	}
}

func TestPutWritesAndPopulatesCache(t *testing.T) {
	c := newTestCache(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "b.go")

	if err := c.Put(path, []byte("content"), 0o644); err != nil {
		t.Fatalf("Put: %v", err)
	}
	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(onDisk) != "content" {
		t.Fatalf("expected file written to disk, got %q", onDisk)
	}

	cached, err := c.Get(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(cached) != "content" {
		t.Fatalf("expected Get to hit the Put-populated cache entry, got %q", cached)
	}
}

func TestInvalidateHappensBeforeSubsequentGet(t *testing.T) {
	c := newTestCache(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	if err := os.WriteFile(path, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(path); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("updated"), 0o644); err != nil {
		t.Fatal(err)
	}
	c.Invalidate(path)

	content, err := c.Get(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "updated" {
		t.Fatalf("expected Get after Invalidate to observe the update, got %q", content)
	}
}

func TestInvalidateAllClearsEveryEntry(t *testing.T) {
	c := newTestCache(t)
	dir := t.TempDir()
	for _, name := range []string{"a.go", "b.go"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := c.Get(path); err != nil {
			t.Fatal(err)
		}
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries before InvalidateAll, got %d", c.Len())
	}
	c.InvalidateAll()
	if c.Len() != 0 {
		t.Fatalf("expected 0 entries after InvalidateAll, got %d", c.Len())
	}
}

func TestGetMissingFileReturnsError(t *testing.T) {
	c := newTestCache(t)
	if _, err := c.Get(filepath.Join(t.TempDir(), "missing.go")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
