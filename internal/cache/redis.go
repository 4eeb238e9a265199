package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// streamMaxLen caps sink streams the same way device-update streams are capped
const streamMaxLen = 1000

// RedisCache implements Cache on a Redis client
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates the Redis-backed cache
func NewRedisCache(addr string) *RedisCache {
	return &RedisCache{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Ping verifies connectivity at boot
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// ListAppend appends value to the list at key
func (c *RedisCache) ListAppend(ctx context.Context, key, value string) error {
	return c.client.RPush(ctx, key, value).Err()
}

// ListRemove deletes the first value-equal entry
func (c *RedisCache) ListRemove(ctx context.Context, key, value string) error {
	return c.client.LRem(ctx, key, 1, value).Err()
}

// ListRange returns the full list at key
func (c *RedisCache) ListRange(ctx context.Context, key string) ([]string, error) {
	return c.client.LRange(ctx, key, 0, -1).Result()
}

// Get returns the string at key
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set writes a string with an optional TTL
func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// SetNX atomically creates key with a TTL
func (c *RedisCache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, key, value, ttl).Result()
}

// DeleteByPrefix removes every key under prefix
func (c *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) error {
	iter := c.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// StreamAdd appends an entry to a capped stream
func (c *RedisCache) StreamAdd(ctx context.Context, stream string, values map[string]interface{}) error {
	return c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: values,
	}).Err()
}
