// Package cache stores per-file chunking and embedding results on disk.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/doeshing/dirctx/internal/domain"
	"github.com/doeshing/dirctx/internal/pkg/filesystem"
	"github.com/doeshing/dirctx/internal/ports"
)

// FileCache stores index entries as JSON blobs addressed by hash key.
type FileCache struct {
	dir        string
	mu         sync.Mutex
	maxEntries int
}

// DefaultDir is ~/.dirctx/index_cache.
func DefaultDir() string {
	return filesystem.AppDir("index_cache")
}

// NewFileCache returns a cache rooted at dir keeping at most maxEntries files
// (0 means unbounded).
func NewFileCache(dir string, maxEntries int) *FileCache {
	return &FileCache{dir: dir, maxEntries: maxEntries}
}

// Get retrieves an entry. A missing or unreadable entry is a miss.
func (c *FileCache) Get(key string) (domain.IndexCacheEntry, bool, error) {
	if key == "" {
		return domain.IndexCacheEntry{}, false, nil
	}
	data, err := os.ReadFile(c.pathFor(key))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.IndexCacheEntry{}, false, nil
		}
		return domain.IndexCacheEntry{}, false, err
	}
	var entry domain.IndexCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		_ = os.Remove(c.pathFor(key))
		return domain.IndexCacheEntry{}, false, nil
	}
	return entry, true, nil
}

// Set stores an entry and evicts the oldest files beyond maxEntries.
func (c *FileCache) Set(entry domain.IndexCacheEntry) error {
	if entry.Key == "" {
		return nil
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(c.dir, domain.DirectoryPermissions); err != nil {
		return err
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	tmp := c.pathFor(entry.Key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, c.pathFor(entry.Key)); err != nil {
		return err
	}
	return c.evictIfNeeded()
}

// Dir exposes the cache directory path.
func (c *FileCache) Dir() string {
	return c.dir
}

// Clear removes all cached entries.
func (c *FileCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(c.dir)
}

// Stats reports the number of entries and their total size in bytes.
func (c *FileCache) Stats() (entries int, bytes int64, err error) {
	files, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		entries++
		bytes += info.Size()
	}
	return entries, bytes, nil
}

func (c *FileCache) pathFor(key string) string {
	return filepath.Join(c.dir, key+".json")
}

func (c *FileCache) evictIfNeeded() error {
	if c.maxEntries <= 0 {
		return nil
	}
	files, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(files) <= c.maxEntries {
		return nil
	}
	type fileInfo struct {
		name string
		mod  time.Time
	}
	var infos []fileInfo
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		infos = append(infos, fileInfo{name: f.Name(), mod: info.ModTime()})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].mod.Before(infos[j].mod) })
	for len(infos) > c.maxEntries {
		_ = os.Remove(filepath.Join(c.dir, infos[0].name))
		infos = infos[1:]
	}
	return nil
}

var _ ports.IndexCache = (*FileCache)(nil)
