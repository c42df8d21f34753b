package cache

import (
	"context"
	"time"
)

// Cache is the common interface served by both backends. Callers never see
// which backend answered.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
	GetJSON(ctx context.Context, key string, out any) bool
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration)
	Delete(ctx context.Context, key string)
	ClearPattern(ctx context.Context, prefix string)
}
