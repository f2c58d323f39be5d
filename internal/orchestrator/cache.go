package orchestrator

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avatarlab/avatar-api/internal/provider"
)

// defaultCacheSize bounds how many live adapters one orchestrator keeps.
const defaultCacheSize = 32

type cacheEntry struct {
	adapter provider.Provider
	// configUpdatedAt invalidates the entry when the config changes, so
	// edited credentials are not served from cache.
	configUpdatedAt time.Time
	lastAccess      time.Time
}

// adapterCache is a bounded cache of initialized adapters keyed by
// provider config ID. Entries are refreshed when the config's UpdatedAt
// moves, and the least recently used entry is evicted at capacity.
type adapterCache struct {
	mu      sync.Mutex
	size    int
	entries map[uuid.UUID]*cacheEntry
}

func newAdapterCache(size int) *adapterCache {
	if size <= 0 {
		size = defaultCacheSize
	}
	return &adapterCache{
		size:    size,
		entries: make(map[uuid.UUID]*cacheEntry),
	}
}

// get returns the cached adapter when present and not stale.
func (c *adapterCache) get(id uuid.UUID, configUpdatedAt time.Time) (provider.Provider, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	if !entry.configUpdatedAt.Equal(configUpdatedAt) {
		delete(c.entries, id)
		return nil, false
	}
	entry.lastAccess = time.Now()
	return entry.adapter, true
}

// put stores an adapter, evicting the least recently used entry at
// capacity.
func (c *adapterCache) put(id uuid.UUID, configUpdatedAt time.Time, adapter provider.Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.size {
		if _, exists := c.entries[id]; !exists {
			c.evictOldestLocked()
		}
	}
	c.entries[id] = &cacheEntry{
		adapter:         adapter,
		configUpdatedAt: configUpdatedAt,
		lastAccess:      time.Now(),
	}
}

// evictOldestLocked removes the least recently used entry. Caller must
// hold the lock.
func (c *adapterCache) evictOldestLocked() {
	var oldestID uuid.UUID
	var oldest time.Time
	first := true
	for id, entry := range c.entries {
		if first || entry.lastAccess.Before(oldest) {
			oldestID = id
			oldest = entry.lastAccess
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestID)
	}
}

// len reports the number of cached adapters.
func (c *adapterCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
