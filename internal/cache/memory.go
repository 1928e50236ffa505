package cache

import (
	"context"
	"sync"
)

// MemoryCache is a map-backed Cache for tests.
type MemoryCache struct {
	mu       sync.Mutex
	data     map[string]string
	failGets error
	failPuts error
}

// NewMemoryCache returns an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string]string)}
}

// FailGets makes all subsequent Get calls return err.
func (c *MemoryCache) FailGets(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failGets = err
}

// FailPuts makes all subsequent Put calls return err.
func (c *MemoryCache) FailPuts(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failPuts = err
}

// Contains reports whether key is present, for assertions.
func (c *MemoryCache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGets != nil {
		return "", c.failGets
	}
	val, ok := c.data[key]
	if !ok {
		return "", ErrMiss
	}
	return val, nil
}

func (c *MemoryCache) Put(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failPuts != nil {
		return c.failPuts
	}
	c.data[key] = value
	return nil
}
