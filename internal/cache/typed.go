package cache

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"
)

// Typed stores JSON-encoded values of T in a Store. Concurrent misses for
// the same key share a single load.
type Typed[T any] struct {
	store Store
	ttl   time.Duration
	group singleflight.Group
}

// NewTyped wraps store. ttl is used for every Set.
func NewTyped[T any](store Store, ttl time.Duration) *Typed[T] {
	return &Typed[T]{store: store, ttl: ttl}
}

// Get returns the value under key. Undecodable entries count as a miss.
func (c *Typed[T]) Get(ctx context.Context, key string) (*T, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false
	}
	return &v, true
}

// Set stores value under key.
func (c *Typed[T]) Set(ctx context.Context, key string, value *T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, key, data, c.ttl)
}

// GetOrLoad returns the cached value for key, or calls load and stores
// its result. Store write failures are ignored; the loaded value is still
// returned.
func (c *Typed[T]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (*T, error)) (*T, error) {
	if v, ok := c.Get(ctx, key); ok {
		return v, nil
	}

	res, err, _ := c.group.Do(key, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		_ = c.Set(ctx, key, v)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*T), nil
}

// Delete removes key.
func (c *Typed[T]) Delete(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}
