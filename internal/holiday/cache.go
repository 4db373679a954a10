package holiday

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheVersionKey = "holiday:version"

// Cache wraps Redis based caching of applicable-holiday lookups with a
// version counter bumped on every administrative write.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper. A nil client degrades to
// pass-through loading.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// Bump invalidates every cached lookup by advancing the version.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}

// buildKey composes the cache key with the current version.
func (c *Cache) buildKey(ctx context.Context, parts ...string) (string, error) {
	joined := "holiday:" + strings.Join(parts, ":")
	if c == nil || c.client == nil {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:v%d", joined, ver), nil
}

// fetchDates loads a cached date set or populates it using the loader.
func (c *Cache) fetchDates(ctx context.Context, key string, loader func(context.Context) (DateSet, error)) (DateSet, error) {
	if loader == nil {
		return nil, errors.New("holiday: cache loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var days []string
		if err := json.Unmarshal(raw, &days); err == nil {
			set := make(DateSet, len(days))
			for _, d := range days {
				t, err := time.ParseInLocation(time.DateOnly, d, time.UTC)
				if err != nil {
					continue
				}
				set[t] = struct{}{}
			}
			return set, nil
		}
	} else if err != redis.Nil {
		return nil, err
	}

	set, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	days := make([]string, 0, len(set))
	for d := range set {
		days = append(days, d.Format(time.DateOnly))
	}
	encoded, err := json.Marshal(days)
	if err != nil {
		return nil, err
	}
	if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
		return nil, err
	}
	return set, nil
}
