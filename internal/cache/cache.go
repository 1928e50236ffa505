// Package cache provides the read-through cache used by the profile services.
package cache

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrMiss is returned by Get when the key is absent.
var ErrMiss = errors.New("cache miss")

// Cache stores serialized profile payloads keyed by user and section.
// Entries have no TTL; writers refresh them on every successful save.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
}

// PutJSON marshals v and stores it under key.
func PutJSON(ctx context.Context, c Cache, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Put(ctx, key, string(data))
}

// GetJSONMap fetches key and unmarshals it as a JSON object. A miss is
// returned as ErrMiss; a stored value that is not an object is an error.
func GetJSONMap(ctx context.Context, c Cache, key string) (map[string]any, error) {
	raw, err := c.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}
