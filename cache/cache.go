package cache

import (
	"os"
	"sync"
	"time"

	"github.com/ammiranda/hierarchy_service/models"
)

var (
	provider CacheProvider
	once     sync.Once
	mu       sync.RWMutex
)

// Kind identifies which traversal view a cache entry holds.
type Kind string

const (
	// KindDescendants caches the full subtree below a node
	KindDescendants Kind = "descendants"
	// KindBreadcrumb caches the root-first display path of a node
	KindBreadcrumb Kind = "breadcrumb"
)

// CacheProvider defines the interface for cache implementations. Traversal
// results are cached per node id and treated as point-in-time snapshots; any
// structural mutation invalidates the whole cache, so a stale entry can only
// be as old as the TTL or the last mutation, whichever is sooner.
type CacheProvider interface {
	// Get retrieves the cached traversal result for a node, if present.
	Get(kind Kind, nodeID int64) ([]models.NodeSummary, bool)

	// Set stores a traversal result for a node.
	Set(kind Kind, nodeID int64, nodes []models.NodeSummary)

	// InvalidateCache removes all cached data. Called whenever the
	// hierarchy is structurally mutated.
	InvalidateCache()

	// SetCacheTTL sets the cache time-to-live duration.
	SetCacheTTL(ttl time.Duration)

	// Initialize performs any necessary setup for the cache provider.
	Initialize() error
}

// Initialize sets up the cache provider
func Initialize() error {
	var err error
	once.Do(func() {
		// Use Redis in local development, MemoryCache otherwise
		if os.Getenv("REDIS_HOST") != "" {
			provider = NewRedisCache()
		} else {
			provider = NewMemoryCache()
		}
		err = provider.Initialize()
	})
	return err
}

// GetDescendants retrieves a cached descendant snapshot if available
func GetDescendants(nodeID int64) ([]models.NodeSummary, bool) {
	mu.RLock()
	defer mu.RUnlock()
	return provider.Get(KindDescendants, nodeID)
}

// SetDescendants stores a descendant snapshot
func SetDescendants(nodeID int64, nodes []models.NodeSummary) {
	mu.Lock()
	defer mu.Unlock()
	provider.Set(KindDescendants, nodeID, nodes)
}

// GetBreadcrumb retrieves a cached breadcrumb if available
func GetBreadcrumb(nodeID int64) ([]models.NodeSummary, bool) {
	mu.RLock()
	defer mu.RUnlock()
	return provider.Get(KindBreadcrumb, nodeID)
}

// SetBreadcrumb stores a breadcrumb
func SetBreadcrumb(nodeID int64, nodes []models.NodeSummary) {
	mu.Lock()
	defer mu.Unlock()
	provider.Set(KindBreadcrumb, nodeID, nodes)
}

// InvalidateCache removes all cached data
func InvalidateCache() {
	mu.Lock()
	defer mu.Unlock()
	provider.InvalidateCache()
}

// SetCacheTTL sets the cache time-to-live duration
func SetCacheTTL(ttl time.Duration) {
	mu.Lock()
	defer mu.Unlock()
	provider.SetCacheTTL(ttl)
}

// SetProvider allows changing the cache provider at runtime
func SetProvider(p CacheProvider) error {
	mu.Lock()
	defer mu.Unlock()
	if err := p.Initialize(); err != nil {
		return err
	}
	provider = p
	return nil
}

// ResetProvider resets the cache provider for testing
func ResetProvider() {
	mu.Lock()
	defer mu.Unlock()
	provider = nil
	once = sync.Once{}
}
