// Package filecache is the write-through File-State Cache: a
// process-wide cache of file contents keyed by (path, mtime) so
// repeated reads of an unmodified file skip disk I/O, while every
// mutating tool invalidates both its source and destination paths
// before returning so a subsequent Get never observes stale content.
// The cache entry shape follows a hash-tracking audit-event pattern,
// backed by an fsnotify watch so external edits (a human editing a
// file outside the tool loop) invalidate the cache too, the way
// diillson-chatcli watches config files for live reload.
package filecache

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"revcore/internal/errs"
	"revcore/internal/logging"
)

// Entry is one cached file's content plus the mtime it was read at.
type Entry struct {
	Content []byte
	ModTime int64 // Unix nanoseconds, from os.FileInfo.ModTime
}

// Cache is a shared, lock-guarded (path -> Entry) map. The zero value
// is not usable; construct with New.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	watcher *fsnotify.Watcher
	closed  chan struct{}
}

// New constructs a Cache and starts its fsnotify watch loop. Callers
// must call Close when done to stop the watch goroutine.
func New() (*Cache, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errs.Wrap(errs.KindTool, err, "failed to start filesystem watcher", false)
	}
	c := &Cache{
		entries: make(map[string]Entry),
		watcher: w,
		closed:  make(chan struct{}),
	}
	go c.watchLoop()
	return c, nil
}

func (c *Cache) watchLoop() {
	log := logging.For(logging.CategoryFileCache)
	for {
		select {
		case <-c.closed:
			return
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				c.Invalidate(event.Name)
				log.Debug("invalidated cache entry from filesystem event",
					zap.String("path", event.Name), zap.String("op", event.Op.String()))
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("filesystem watcher error", zap.Error(err))
		}
	}
}

// Close stops the watch loop and releases the underlying watcher.
func (c *Cache) Close() error {
	close(c.closed)
	return c.watcher.Close()
}

// Watch adds path's containing directory to the fsnotify watch set so
// external modifications to path are observed. Safe to call more than
// once for the same directory.
func (c *Cache) Watch(path string) error {
	dir := filepath.Dir(path)
	if err := c.watcher.Add(dir); err != nil {
		return errs.Wrap(errs.KindTool, err, "failed to watch directory "+dir, true)
	}
	return nil
}

// Get returns the cached content for path if present and still fresh
// (the on-disk mtime matches the cached one), reading through to disk
// and populating the cache otherwise. A missing file returns an error
// with errs.KindTool.
func (c *Cache) Get(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindTool, err, "file not found: "+path, false)
	}
	mtime := info.ModTime().UnixNano()

	c.mu.RLock()
	entry, ok := c.entries[path]
	c.mu.RUnlock()
	if ok && entry.ModTime == mtime {
		return entry.Content, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindTool, err, "failed to read "+path, false)
	}

	c.mu.Lock()
	c.entries[path] = Entry{Content: content, ModTime: mtime}
	c.mu.Unlock()

	_ = c.Watch(path)
	return content, nil
}

// Put writes content to path on disk and populates the cache entry
// with the resulting mtime, used by mutating tools that already have
// the new content in memory and don't want a round-trip read back.
func (c *Cache) Put(path string, content []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(errs.KindTool, err, "failed to create parent directory for "+path, false)
	}
	if err := os.WriteFile(path, content, mode); err != nil {
		return errs.Wrap(errs.KindTool, err, "failed to write "+path, false)
	}
	info, err := os.Stat(path)
	if err != nil {
		return errs.Wrap(errs.KindTool, err, "failed to stat "+path+" after write", false)
	}

	c.mu.Lock()
	c.entries[path] = Entry{Content: content, ModTime: info.ModTime().UnixNano()}
	c.mu.Unlock()

	_ = c.Watch(path)
	return nil
}

// Invalidate removes path's cache entry, if any. Every mutating tool
// must invalidate both its source and destination paths before
// returning — for a move, call Invalidate on both the old and new
// path; invalidate(path) happens-before any subsequent get(path)
// because both hold the same mutex.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// InvalidateAll clears every cached entry. Transaction rollback does
// not call it.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]Entry)
	c.mu.Unlock()
}

// Len reports the number of cached entries, for tests and diagnostics.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
