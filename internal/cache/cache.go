// Package cache stores per-file analysis artifacts keyed by path and validated
// by content hash, with an in-memory LRU in front of the on-disk store.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zeebo/blake3"
)

// Cache provides file-based caching for analysis results.
// It is safe for concurrent use.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
	memory  *lru.Cache[string, Entry]
}

// Entry represents a cached analysis result.
type Entry struct {
	Hash      string    `json:"hash"`
	Timestamp time.Time `json:"timestamp"`
	Data      []byte    `json:"data"`
}

// Options configures a cache.
type Options struct {
	Dir           string
	TTLHours      int
	MemoryEntries int
	Enabled       bool
}

// New creates a new cache instance.
func New(opts Options) (*Cache, error) {
	if !opts.Enabled {
		return &Cache{enabled: false}, nil
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, err
	}

	c := &Cache{
		dir:     opts.Dir,
		ttl:     time.Duration(opts.TTLHours) * time.Hour,
		enabled: true,
	}
	if opts.MemoryEntries > 0 {
		mem, err := lru.New[string, Entry](opts.MemoryEntries)
		if err != nil {
			return nil, err
		}
		c.memory = mem
	}
	return c, nil
}

// Enabled reports whether the cache stores anything.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// HashBytes computes a BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// LookupContent returns data stored for key whose content hash matches content.
func (c *Cache) LookupContent(key string, content []byte) ([]byte, bool) {
	return c.GetWithHash(key, HashBytes(content))
}

// StoreContent stores data for key, tagged with the hash of content.
func (c *Cache) StoreContent(key string, content, data []byte) error {
	return c.SetWithHash(key, HashBytes(content), data)
}

// GetWithHash retrieves a cached entry only if the hash matches and it has not expired.
func (c *Cache) GetWithHash(key, hash string) ([]byte, bool) {
	if !c.enabled {
		return nil, false
	}

	if c.memory != nil {
		if entry, ok := c.memory.Get(key); ok {
			if entry.Hash == hash && !c.expired(entry) {
				return entry.Data, true
			}
			c.memory.Remove(key)
		}
	}

	path := c.keyPath(key)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}
	if c.expired(entry) {
		_ = os.Remove(path)
		return nil, false
	}
	if entry.Hash != hash {
		return nil, false
	}

	if c.memory != nil {
		c.memory.Add(key, entry)
	}
	return entry.Data, true
}

// SetWithHash stores data in the cache with a hash for validation.
func (c *Cache) SetWithHash(key, hash string, data []byte) error {
	if !c.enabled {
		return nil
	}

	entry := Entry{
		Hash:      hash,
		Timestamp: time.Now(),
		Data:      data,
	}
	if c.memory != nil {
		c.memory.Add(key, entry)
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	// Write then rename so concurrent readers never see a partial entry.
	path := c.keyPath(key)
	tmp := path + ".tmp" + strconv.FormatInt(time.Now().UnixNano(), 36)
	if err := os.WriteFile(tmp, raw, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (c *Cache) expired(e Entry) bool {
	return c.ttl > 0 && time.Since(e.Timestamp) > c.ttl
}

// Invalidate removes a cache entry.
func (c *Cache) Invalidate(key string) error {
	if !c.enabled {
		return nil
	}
	if c.memory != nil {
		c.memory.Remove(key)
	}
	err := os.Remove(c.keyPath(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Clear removes all cache entries.
func (c *Cache) Clear() error {
	if !c.enabled {
		return nil
	}
	if c.memory != nil {
		c.memory.Purge()
	}
	return os.RemoveAll(c.dir)
}

// keyPath maps a key to its entry file.
func (c *Cache) keyPath(key string) string {
	return filepath.Join(c.dir, strconv.FormatUint(xxhash.Sum64String(key), 16)+".json")
}

// Stats returns cache statistics.
type Stats struct {
	Entries   int           `json:"entries"`
	TotalSize int64         `json:"total_size"`
	OldestAge time.Duration `json:"oldest_age"`
	NewestAge time.Duration `json:"newest_age"`
	InMemory  int           `json:"in_memory"`
}

// GetStats returns statistics about the on-disk store.
func (c *Cache) GetStats() (*Stats, error) {
	if !c.enabled {
		return &Stats{}, nil
	}

	stats := &Stats{}
	if c.memory != nil {
		stats.InMemory = c.memory.Len()
	}
	var oldest, newest time.Time

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		stats.Entries++
		stats.TotalSize += info.Size()

		modTime := info.ModTime()
		if oldest.IsZero() || modTime.Before(oldest) {
			oldest = modTime
		}
		if newest.IsZero() || modTime.After(newest) {
			newest = modTime
		}
	}

	if !oldest.IsZero() {
		stats.OldestAge = time.Since(oldest)
	}
	if !newest.IsZero() {
		stats.NewestAge = time.Since(newest)
	}
	return stats, nil
}
