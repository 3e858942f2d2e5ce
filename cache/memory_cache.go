package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/ammiranda/hierarchy_service/models"
)

// MemoryCache implements CacheProvider using in-memory storage
type MemoryCache struct {
	mu       sync.RWMutex
	data     map[string][]models.NodeSummary
	ttl      time.Duration
	expiries map[string]time.Time
}

// NewMemoryCache creates a new in-memory cache provider
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		ttl:      5 * time.Minute,
		data:     make(map[string][]models.NodeSummary),
		expiries: make(map[string]time.Time),
	}
}

// Initialize performs any necessary setup for the cache provider
func (c *MemoryCache) Initialize() error {
	return nil
}

// cacheKey generates a cache key for the given view kind and node id
func cacheKey(kind Kind, nodeID int64) string {
	return fmt.Sprintf("hierarchy:%s:%d", kind, nodeID)
}

// Get retrieves a cached traversal result if available and not expired
func (c *MemoryCache) Get(kind Kind, nodeID int64) ([]models.NodeSummary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	key := cacheKey(kind, nodeID)
	expiry, exists := c.expiries[key]
	if !exists || time.Now().After(expiry) {
		return nil, false
	}

	if nodes, ok := c.data[key]; ok {
		return nodes, true
	}

	return nil, false
}

// Set stores a traversal result
func (c *MemoryCache) Set(kind Kind, nodeID int64, nodes []models.NodeSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(kind, nodeID)
	c.data[key] = nodes
	c.expiries[key] = time.Now().Add(c.ttl)
}

// InvalidateCache removes all cached data
func (c *MemoryCache) InvalidateCache() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = make(map[string][]models.NodeSummary)
	c.expiries = make(map[string]time.Time)
}

// SetCacheTTL sets the cache time-to-live duration
func (c *MemoryCache) SetCacheTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ttl = ttl
	// Update all existing expiries
	now := time.Now()
	for key := range c.data {
		c.expiries[key] = now.Add(ttl)
	}
}
