package artifact

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"meridian/internal/project"
)

// DiskCache stores artifacts keyed by a unit's hash. Safe for concurrent
// use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// OpenDiskCache opens the cache under $XDG_CACHE_HOME/app, or
// ~/.cache/app.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDiskCacheAt(filepath.Join(base, app))
}

// OpenDiskCacheAt opens a cache rooted at dir.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) Dir() string {
	return c.dir
}

func (c *DiskCache) pathFor(key project.Digest) string {
	return filepath.Join(c.dir, "units", key.String()+".mdp")
}

// Put stores a under key.
func (c *DiskCache) Put(key project.Digest, a *Artifact) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return writeAtomic(c.pathFor(key), func(w io.Writer) error { return Encode(w, a) })
}

// Get loads the artifact stored under key. Entries written by another
// schema version count as misses.
func (c *DiskCache) Get(key project.Digest) (*Artifact, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	a, err := ReadFile(c.pathFor(key))
	switch {
	case errors.Is(err, os.ErrNotExist), errors.Is(err, ErrSchemaMismatch):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	if a.Hash != key {
		return nil, false, nil
	}
	return a, true, nil
}

// DropAll invalidates every entry.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(old)
}
