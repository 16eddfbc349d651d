package collector

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ItemCache remembers when a source item was first observed, across runs.
// Reads are lock-free; each key is only ever written by the one adapter that
// fetches its source, so SetNX is enough. A nil cache or unreachable Redis
// degrades to per-run observation times.
type ItemCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewItemCache(rdb *redis.Client, ttl time.Duration) *ItemCache {
	return &ItemCache{rdb: rdb, ttl: ttl}
}

// FirstSeen returns the earliest recorded sighting of source+url, recording
// now when the pair is new.
func (c *ItemCache) FirstSeen(ctx context.Context, source, url string, now time.Time) time.Time {
	if c == nil || c.rdb == nil || url == "" {
		return now
	}

	key := fmt.Sprintf("trend:item:%s:%s", source, hashURL(url))
	created, err := c.rdb.SetNX(ctx, key, now.UTC().Format(time.RFC3339Nano), c.ttl).Result()
	if err != nil || created {
		return now
	}

	v, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return now
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return now
	}
	return t
}

func hashURL(url string) string {
	h := sha1.New()
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}
