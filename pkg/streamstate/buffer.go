package streamstate

import (
	"context"
	"time"
)

// Buffer accumulates the text a producer has emitted for a stream so a
// reconnecting client can replay it. Content only grows while the stream is
// active; after a terminal transition it stays readable until its TTL lapses.
type Buffer struct {
	store Store
	ttl   time.Duration
}

type BufferOption func(*Buffer)

func WithBufferTTL(ttl time.Duration) BufferOption {
	return func(b *Buffer) {
		b.ttl = ttl
	}
}

func NewBuffer(store Store, opts ...BufferOption) *Buffer {
	b := &Buffer{
		store: store,
		ttl:   DefaultActiveTTL,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Append adds chunk after everything already buffered and refreshes the TTL.
func (b *Buffer) Append(ctx context.Context, key OwnerKey, chunk string) error {
	return b.store.Append(ctx, contentKey(key), chunk, b.ttl)
}

// Read returns everything buffered so far. ok is false when nothing has been
// written or the buffer expired.
func (b *Buffer) Read(ctx context.Context, key OwnerKey) (string, bool, error) {
	return b.store.Get(ctx, contentKey(key))
}

// Clear deletes the buffer.
func (b *Buffer) Clear(ctx context.Context, key OwnerKey) error {
	return b.store.Del(ctx, contentKey(key))
}
