package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/inspol/policyrag/common/logger"
)

// redisCache is the network backend. Failures degrade to cache misses; the
// caller re-derives the value and the request keeps going.
type redisCache struct {
	cli *redis.Client
}

// NewRedis wraps an established redis client.
func NewRedis(cli *redis.Client) Cache {
	return &redisCache{cli: cli}
}

func (c *redisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.cli.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		logger.Warnf("cache: redis get %s failed: %v", key, err)
		return "", false
	}
	return val, true
}

func (c *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := c.cli.Set(ctx, key, value, ttl).Err(); err != nil {
		logger.Warnf("cache: redis set %s failed: %v", key, err)
	}
}

func (c *redisCache) GetJSON(ctx context.Context, key string, out any) bool {
	raw, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), out) == nil
}

func (c *redisCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.Set(ctx, key, string(raw), ttl)
}

func (c *redisCache) Delete(ctx context.Context, key string) {
	if err := c.cli.Del(ctx, key).Err(); err != nil {
		logger.Warnf("cache: redis del %s failed: %v", key, err)
	}
}

func (c *redisCache) ClearPattern(ctx context.Context, prefix string) {
	var cursor uint64
	for {
		keys, next, err := c.cli.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			logger.Warnf("cache: redis scan %s failed: %v", prefix, err)
			return
		}
		if len(keys) > 0 {
			if err := c.cli.Del(ctx, keys...).Err(); err != nil {
				logger.Warnf("cache: redis del batch failed: %v", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
