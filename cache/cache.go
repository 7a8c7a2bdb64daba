package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// MaxKeyLength bounds keys so that every backend accepts them.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrInvalidKey = errors.New("cache: invalid key")
	ErrKeyTooLong = errors.New("cache: key too long")
)

// Cache stores opaque values under string keys until their TTL lapses.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Get reports backend failures as a miss; the caller recomputes.
//   - Set with ttl <= 0 stores nothing and succeeds.
//   - Delete of an absent key succeeds.
//   - Ping reports backend reachability for health checks.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// ValidateKey rejects empty and oversized keys and keys containing spaces
// or control characters.
func ValidateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return fmt.Errorf("%w: %d bytes", ErrKeyTooLong, len(key))
	}
	for _, r := range key {
		if r <= ' ' || r == 0x7f {
			return fmt.Errorf("%w: contains %q", ErrInvalidKey, r)
		}
	}
	return nil
}
