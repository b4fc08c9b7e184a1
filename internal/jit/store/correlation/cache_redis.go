package correlation

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "jit:session:"

// RedisCache is a read-through cache for the session id -> ticket id mapping.
// The mapping is immutable once a ticket exists (one ticket per session,
// tickets are never deleted), so entries need no invalidation; the TTL only
// bounds memory. Cache misses and failures fall back to the ticket store,
// which stays authoritative.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache constructs a correlation cache. A zero ttl means entries do
// not expire.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached ticket id for a session id, or "" on miss or error.
func (c *RedisCache) Get(ctx context.Context, sessionID string) (string, error) {
	ticketID, err := c.client.Get(ctx, keyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return ticketID, nil
}

// Put records the session id -> ticket id mapping.
func (c *RedisCache) Put(ctx context.Context, sessionID, ticketID string) error {
	return c.client.Set(ctx, keyPrefix+sessionID, ticketID, c.ttl).Err()
}
