package cache

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements Cache on a go-redis client.
type RedisCache struct {
	client  redis.Cmdable
	metrics Metrics
}

// Metrics observes cache traffic. Implementations must tolerate being nil.
type Metrics interface {
	Hit(key string)
	Miss(key string)
}

// Option configures a RedisCache.
type Option func(*RedisCache)

// WithMetrics wires hit/miss counters into the cache.
func WithMetrics(m Metrics) Option {
	return func(c *RedisCache) {
		c.metrics = m
	}
}

// NewRedisCache wraps the given client.
func NewRedisCache(client redis.Cmdable, opts ...Option) *RedisCache {
	c := &RedisCache{client: client}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		if c.metrics != nil {
			c.metrics.Miss(key)
		}
		return "", ErrMiss
	}
	if err != nil {
		return "", err
	}
	if c.metrics != nil {
		c.metrics.Hit(key)
	}
	return val, nil
}

func (c *RedisCache) Put(ctx context.Context, key, value string) error {
	return c.client.Set(ctx, key, value, 0).Err()
}
