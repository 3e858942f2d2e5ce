package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ammiranda/hierarchy_service/models"

	"github.com/redis/go-redis/v9"
)

// keyRegistry tracks every cache key written so InvalidateCache can delete
// them wholesale without a SCAN.
const keyRegistry = "hierarchy:keys"

// RedisCache implements CacheProvider using Redis
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a new Redis cache provider
func NewRedisCache() *RedisCache {
	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		redisHost = "localhost"
	}
	redisPort := os.Getenv("REDIS_PORT")
	if redisPort == "" {
		redisPort = "6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", redisHost, redisPort),
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	return &RedisCache{
		client: client,
		ttl:    5 * time.Minute,
	}
}

// Initialize performs any necessary setup for the cache provider
func (c *RedisCache) Initialize() error {
	ctx := context.Background()
	_, err := c.client.Ping(ctx).Result()
	return err
}

// Get retrieves a cached traversal result if available
func (c *RedisCache) Get(kind Kind, nodeID int64) ([]models.NodeSummary, bool) {
	ctx := context.Background()
	data, err := c.client.Get(ctx, cacheKey(kind, nodeID)).Result()
	if err != nil {
		return nil, false
	}

	var nodes []models.NodeSummary
	if err := json.Unmarshal([]byte(data), &nodes); err != nil {
		return nil, false
	}

	return nodes, true
}

// Set stores a traversal result
func (c *RedisCache) Set(kind Kind, nodeID int64, nodes []models.NodeSummary) {
	ctx := context.Background()
	data, err := json.Marshal(nodes)
	if err != nil {
		return
	}

	key := cacheKey(kind, nodeID)
	c.client.Set(ctx, key, data, c.ttl)
	c.client.SAdd(ctx, keyRegistry, key)
}

// InvalidateCache removes every registered cache key
func (c *RedisCache) InvalidateCache() {
	ctx := context.Background()
	keys, err := c.client.SMembers(ctx, keyRegistry).Result()
	if err == nil && len(keys) > 0 {
		c.client.Del(ctx, keys...)
	}
	c.client.Del(ctx, keyRegistry)
}

// SetCacheTTL sets the cache time-to-live duration
func (c *RedisCache) SetCacheTTL(ttl time.Duration) {
	c.ttl = ttl
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
