// Package cache holds the Redis-backed name index used by read lookups.
//
// A full name maps to the same id forever once created, so entries never need
// invalidation. Only positive lookups are cached.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	id "namereg/pkg/domain"
)

const nameKeyPrefix = "namereg:name:"

// DefaultTTL bounds memory use for names that are looked up once.
const DefaultTTL = 24 * time.Hour

// RedisNames caches name → id lookups.
type RedisNames struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisNamesOption configures a RedisNames instance.
type RedisNamesOption func(*RedisNames)

// WithTTL overrides DefaultTTL. Zero keeps entries forever.
func WithTTL(ttl time.Duration) RedisNamesOption {
	return func(c *RedisNames) {
		if ttl >= 0 {
			c.ttl = ttl
		}
	}
}

// NewRedisNames constructs a Redis-backed name cache.
func NewRedisNames(client *redis.Client, opts ...RedisNamesOption) *RedisNames {
	c := &RedisNames{client: client, ttl: DefaultTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Get returns the cached id for name. ok is false on a miss.
func (c *RedisNames) Get(ctx context.Context, name string) (domainID id.DomainID, ok bool, err error) {
	raw, err := c.client.Get(ctx, nameKeyPrefix+name).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get cached name: %w", err)
	}
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		// A corrupt entry is treated as a miss and overwritten on the next Set.
		return 0, false, nil
	}
	return id.DomainID(parsed), true, nil
}

// Set records name → domainID.
func (c *RedisNames) Set(ctx context.Context, name string, domainID id.DomainID) error {
	if err := c.client.Set(ctx, nameKeyPrefix+name, domainID.String(), c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached name: %w", err)
	}
	return nil
}
