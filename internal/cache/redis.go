package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// URLCache caches resolved download URLs so repeated list renders do not
// re-presign the same object.
type URLCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, val string, ttl time.Duration) error
}

type RedisURLCache struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisURLCache(rdb *redis.Client, prefix string) *RedisURLCache {
	return &RedisURLCache{rdb: rdb, prefix: prefix}
}

// Get returns "" on a miss.
func (c *RedisURLCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

func (c *RedisURLCache) Set(ctx context.Context, key, val string, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.prefix+key, val, ttl).Err()
}
