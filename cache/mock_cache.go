package cache

import (
	"errors"
	"sync"
	"time"

	"github.com/ammiranda/hierarchy_service/models"
)

// MockCache is a cache provider that counts calls, for testing cache wiring
// in the access facade.
type MockCache struct {
	mu              sync.RWMutex
	data            map[string][]models.NodeSummary
	expiries        map[string]time.Time
	ttl             time.Duration
	GetCalls        int
	SetCalls        int
	InvalidateCalls int
	SetTTLCalls     int
	InitCalls       int
	ShouldFail      bool
}

// NewMockCache creates a new mock cache provider
func NewMockCache() *MockCache {
	return &MockCache{
		ttl:      5 * time.Minute,
		data:     make(map[string][]models.NodeSummary),
		expiries: make(map[string]time.Time),
	}
}

// Initialize performs any necessary setup for the cache provider
func (c *MockCache) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.InitCalls++
	if c.ShouldFail {
		return ErrCacheInitialization
	}
	return nil
}

// Get retrieves a cached traversal result if available
func (c *MockCache) Get(kind Kind, nodeID int64) ([]models.NodeSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.GetCalls++

	if c.ShouldFail {
		return nil, false
	}

	key := cacheKey(kind, nodeID)
	expiry, ok := c.expiries[key]
	if !ok || time.Now().After(expiry) {
		return nil, false
	}
	nodes, ok := c.data[key]
	return nodes, ok
}

// Set stores a traversal result
func (c *MockCache) Set(kind Kind, nodeID int64, nodes []models.NodeSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetCalls++

	if !c.ShouldFail {
		key := cacheKey(kind, nodeID)
		c.data[key] = nodes
		c.expiries[key] = time.Now().Add(c.ttl)
	}
}

// InvalidateCache removes all cached data
func (c *MockCache) InvalidateCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.InvalidateCalls++

	if !c.ShouldFail {
		c.data = make(map[string][]models.NodeSummary)
		c.expiries = make(map[string]time.Time)
	}
}

// SetCacheTTL sets the cache time-to-live duration
func (c *MockCache) SetCacheTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetTTLCalls++

	if !c.ShouldFail {
		c.ttl = ttl
		now := time.Now()
		for key := range c.data {
			c.expiries[key] = now.Add(ttl)
		}
	}
}

// Reset resets all counters and state
func (c *MockCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.GetCalls = 0
	c.SetCalls = 0
	c.InvalidateCalls = 0
	c.SetTTLCalls = 0
	c.InitCalls = 0
	c.ShouldFail = false
	c.data = make(map[string][]models.NodeSummary)
	c.expiries = make(map[string]time.Time)
}

// SetShouldFail makes the mock cache fail all operations
func (c *MockCache) SetShouldFail(shouldFail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ShouldFail = shouldFail
}

// ErrCacheInitialization is returned when the mock cache is configured to fail
var ErrCacheInitialization = errors.New("mock cache initialization failed")
