package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "dedup:"

// RedisCache is a Cache shared by all engine instances. SET NX PX gives the
// claim-or-reject in one atomic round trip, and redis expiry replaces the
// sweep.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) TryClaim(ctx context.Context, key string, window time.Duration) (bool, error) {
	return c.client.SetNX(ctx, redisKeyPrefix+key, time.Now().UnixMilli(), window).Result()
}
