package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/inspol/policyrag/common/logger"
	"github.com/inspol/policyrag/config"
)

// New selects a backend from configuration: Redis when it answers a ping
// within the probe timeout, the in-process LRU otherwise. Callers only ever
// see the Cache interface.
func New(cfg config.CacheConfig) Cache {
	ttl := time.Duration(cfg.TTLSeconds) * time.Second

	if cfg.Enabled && cfg.RedisAddr != "" {
		cli := redis.NewClient(&redis.Options{
			Addr:        cfg.RedisAddr,
			DB:          cfg.RedisDB,
			Password:    cfg.Password,
			DialTimeout: 2 * time.Second,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cli.Ping(ctx).Err(); err == nil {
			logger.Infof("cache: redis backend at %s", cfg.RedisAddr)
			return NewRedis(cli)
		} else {
			logger.Warnf("cache: redis unreachable at %s, falling back to in-process LRU: %v", cfg.RedisAddr, err)
			_ = cli.Close()
		}
	}

	return NewLRU(cfg.MaxEntries, ttl)
}
