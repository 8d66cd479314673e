package gate

import (
	"sort"

	"github.com/threadwork-cc/threadwork/internal/storage"
)

// MaxCacheEntries bounds the gate cache; the oldest runs are evicted first.
const MaxCacheEntries = 64

// Cache is the persisted mapping from cache key to the last result for it.
type Cache struct {
	storage.Meta
	Entries map[string]RunResult `json:"entries"`
}

func newCache() *Cache {
	return &Cache{Entries: map[string]RunResult{}}
}

// Put stores r under its key and evicts the oldest entries beyond max.
func (c *Cache) Put(r RunResult, max int) {
	if c.Entries == nil {
		c.Entries = map[string]RunResult{}
	}
	r.Cached = false
	c.Entries[r.Key] = r
	c.prune(max)
}

func (c *Cache) prune(max int) {
	if max <= 0 || len(c.Entries) <= max {
		return
	}
	keys := make([]string, 0, len(c.Entries))
	for k := range c.Entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := c.Entries[keys[i]].RanAt, c.Entries[keys[j]].RanAt
		if a.Equal(b) {
			return keys[i] < keys[j]
		}
		return a.Before(b)
	})
	for _, k := range keys[:len(keys)-max] {
		delete(c.Entries, k)
	}
}

// Get returns the cached result for key, marked as cached.
func (c *Cache) Get(key string) (*RunResult, bool) {
	r, ok := c.Entries[key]
	if !ok {
		return nil, false
	}
	r.Cached = true
	return &r, true
}

// Latest returns the most recent result in the cache.
func (c *Cache) Latest() (*RunResult, bool) {
	var latest *RunResult
	for _, r := range c.Entries {
		if latest == nil || r.RanAt.After(latest.RanAt) {
			latest = &r
		}
	}
	return latest, latest != nil
}
