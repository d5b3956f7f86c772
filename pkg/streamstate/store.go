package streamstate

import (
	"context"
	"time"
)

// Store is the key-value surface the registry and buffer are built on. It
// must support per-key TTLs and prefix listing; reads of expired keys behave
// as if the key was never written. Implementations are expected to be safe
// for concurrent use across multiple server processes.
type Store interface {
	// Get returns the value for key, with ok=false when the key is absent or
	// expired.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes value under key and resets its TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Append concatenates chunk onto the existing value (creating the key if
	// absent) and resets the TTL.
	Append(ctx context.Context, key, chunk string, ttl time.Duration) error
	// Expire adjusts the remaining TTL of an existing key. Missing keys are a
	// no-op.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// Del removes keys. Missing keys are not an error.
	Del(ctx context.Context, keys ...string) error
	// Keys lists all live keys starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
