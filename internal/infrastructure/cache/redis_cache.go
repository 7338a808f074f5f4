// Package cache provides the Redis-backed outbound.CacheRepository
// implementation backing the extractor health cache and the failure
// tracker's cooldown windows.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/aetim/core/internal/ports/outbound"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisCache implements outbound.CacheRepository against a Redis client.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisCache(client *redis.Client, logger *zap.Logger) outbound.CacheRepository {
	return &RedisCache{client: client, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return value, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// Increment atomically bumps a counter key and returns its new value.
func (c *RedisCache) Increment(ctx context.Context, key string) (int64, error) {
	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		c.logger.Warn("cache increment failed", zap.String("key", key), zap.Error(err))
		return 0, err
	}
	return count, nil
}

func (c *RedisCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := c.client.Expire(ctx, key, ttl).Err(); err != nil {
		c.logger.Warn("cache expire failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}
