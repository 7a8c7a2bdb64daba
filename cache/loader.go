package cache

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader reads typed values through a Cache, computing and storing them on
// a miss. Concurrent misses for one key share a single computation.
//
// Contract:
//   - A failed computation is returned to every waiter and never cached.
//   - A value that fails to decode is treated as a miss and overwritten.
//   - Store failures are reported through OnStoreError and otherwise ignored.
type Loader[T any] struct {
	cache  Cache
	policy Policy
	group  singleflight.Group

	// OnStoreError, when set, observes failed cache writes.
	OnStoreError func(ctx context.Context, key string, err error)
}

// NewLoader creates a Loader. A nil cache or a disabled policy makes Load
// call fn every time.
func NewLoader[T any](c Cache, policy Policy) *Loader[T] {
	return &Loader[T]{cache: c, policy: policy}
}

// Load returns the cached value for key or computes it with fn.
func (l *Loader[T]) Load(ctx context.Context, key string, fn func(context.Context) (T, error)) (T, error) {
	if l.cache == nil || !l.policy.Enabled() {
		return fn(ctx)
	}
	if v, ok := l.lookup(ctx, key); ok {
		return v, nil
	}

	res, err, _ := l.group.Do(key, func() (any, error) {
		if v, ok := l.lookup(ctx, key); ok {
			return v, nil
		}
		v, err := fn(ctx)
		if err != nil {
			return v, err
		}
		l.store(ctx, key, v, l.policy.TTLFor(0))
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

func (l *Loader[T]) lookup(ctx context.Context, key string) (T, bool) {
	var v T
	b, ok := l.cache.Get(ctx, key)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, false
	}
	return v, true
}

func (l *Loader[T]) store(ctx context.Context, key string, v T, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err == nil {
		err = l.cache.Set(ctx, key, b, ttl)
	}
	if err != nil && l.OnStoreError != nil {
		l.OnStoreError(ctx, key, err)
	}
}
