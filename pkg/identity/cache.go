package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/mediacms-io/mediacms-go/pkg/observability"
)

// Cache stores resolved principals in Redis so role flags and category
// memberships survive across requests without re-querying identity tables.
type Cache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *observability.Metrics
}

// NewCache creates a Redis-backed principal cache from a redis:// URL.
func NewCache(redisURL string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{client: client, ttl: ttl}, nil
}

// NewCacheWithClient creates a cache around an existing client. Used by
// tests with miniredis.
func NewCacheWithClient(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// SetMetrics attaches hit/miss counters under the "principal" cache type.
func (c *Cache) SetMetrics(m *observability.Metrics) {
	c.metrics = m
}

func (c *Cache) countHit(hit bool) {
	if c.metrics == nil {
		return
	}
	if hit {
		c.metrics.CacheHitsTotal.WithLabelValues("principal").Inc()
		return
	}
	c.metrics.CacheMissesTotal.WithLabelValues("principal").Inc()
}

func principalKey(userID int64) string {
	return fmt.Sprintf("principal:%d", userID)
}

// Get retrieves a cached principal. The second return value reports whether
// the key was present.
func (c *Cache) Get(ctx context.Context, userID int64) (*Principal, bool, error) {
	data, err := c.client.Get(ctx, principalKey(userID)).Result()
	if err == redis.Nil {
		c.countHit(false)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read principal cache: %w", err)
	}

	var p Principal
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached principal: %w", err)
	}
	c.countHit(true)
	return &p, true, nil
}

// Set stores a principal with the cache TTL.
func (c *Cache) Set(ctx context.Context, userID int64, p *Principal) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode principal: %w", err)
	}
	return c.client.Set(ctx, principalKey(userID), data, c.ttl).Err()
}

// Delete drops a cached principal, forcing the next Resolve to hit storage.
func (c *Cache) Delete(ctx context.Context, userID int64) error {
	return c.client.Del(ctx, principalKey(userID)).Err()
}

// Close releases the underlying Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
