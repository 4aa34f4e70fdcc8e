// Package cache keeps short-lived derived values in Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AlarmLookup is the result of a cache read. Generation is the cache
// generation the read observed; a value computed after the read must be
// stored under it so a concurrent invalidation is not lost.
type AlarmLookup struct {
	Raised     bool
	Found      bool
	Generation int64
}

// AlarmCache stores computed escalation alarm signals per viewer.
type AlarmCache interface {
	Get(ctx context.Context, viewerKey string) (AlarmLookup, error)
	Set(ctx context.Context, viewerKey string, generation int64, raised bool, ttl time.Duration) error
	// Invalidate drops every cached signal at once.
	Invalidate(ctx context.Context) error
}

// RedisAlarmCache keys entries under a generation number so one INCR
// invalidates all viewers.
type RedisAlarmCache struct {
	client *redis.Client
	prefix string
}

// NewRedisAlarmCache creates the cache. A nil client yields a cache that always misses.
func NewRedisAlarmCache(client *redis.Client, prefix string) *RedisAlarmCache {
	if prefix == "" {
		prefix = "alarm"
	}
	return &RedisAlarmCache{client: client, prefix: prefix}
}

var errNoClient = errors.New("cache: redis client not configured")

func (c *RedisAlarmCache) generationKey() string {
	return c.prefix + ":gen"
}

func (c *RedisAlarmCache) entryKey(generation int64, viewerKey string) string {
	return fmt.Sprintf("%s:%d:%s", c.prefix, generation, viewerKey)
}

func (c *RedisAlarmCache) Get(ctx context.Context, viewerKey string) (AlarmLookup, error) {
	if c == nil || c.client == nil {
		return AlarmLookup{}, errNoClient
	}
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return AlarmLookup{}, err
	}
	lookup := AlarmLookup{Generation: gen}
	val, err := c.client.Get(ctx, c.entryKey(gen, viewerKey)).Result()
	if errors.Is(err, redis.Nil) {
		return lookup, nil
	}
	if err != nil {
		return AlarmLookup{}, err
	}
	lookup.Raised = val == "1"
	lookup.Found = true
	return lookup, nil
}

// Set stores a signal under the given generation. Writes for a generation
// that has since been invalidated land on a key no reader will look at.
func (c *RedisAlarmCache) Set(ctx context.Context, viewerKey string, generation int64, raised bool, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return errNoClient
	}
	val := "0"
	if raised {
		val = "1"
	}
	return c.client.Set(ctx, c.entryKey(generation, viewerKey), val, ttl).Err()
}

func (c *RedisAlarmCache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNoClient
	}
	return c.client.Incr(ctx, c.generationKey()).Err()
}
