package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cached keeps resolved settings in Redis in front of another provider.
// Redis failures are logged and the inner provider is consulted.
type Cached struct {
	inner  Provider
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

func NewCached(inner Provider, rdb redis.Cmdable, ttl time.Duration, logger *slog.Logger) *Cached {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{inner: inner, rdb: rdb, ttl: ttl, logger: logger}
}

func cacheKey(businessID string) string {
	return "schedule:" + businessID
}

func (c *Cached) Settings(ctx context.Context, businessID string) (Settings, error) {
	raw, err := c.rdb.Get(ctx, cacheKey(businessID)).Bytes()
	switch {
	case err == nil:
		var s Settings
		if jerr := json.Unmarshal(raw, &s); jerr == nil {
			return s, nil
		}
		c.logger.Warn("schedule cache entry unreadable", "business_id", businessID)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("schedule cache read failed", "business_id", businessID, "err", err)
	}

	s, err := c.inner.Settings(ctx, businessID)
	if err != nil {
		return Settings{}, err
	}
	if payload, jerr := json.Marshal(s); jerr == nil {
		if err := c.rdb.Set(ctx, cacheKey(businessID), payload, c.ttl).Err(); err != nil {
			c.logger.Warn("schedule cache write failed", "business_id", businessID, "err", err)
		}
	}
	return s, nil
}

// Forget drops the cached settings so the next read goes to the inner provider.
func (c *Cached) Forget(ctx context.Context, businessID string) error {
	return c.rdb.Del(ctx, cacheKey(businessID)).Err()
}
