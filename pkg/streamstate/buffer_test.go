package streamstate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuffer_AppendPreservesCallOrder(t *testing.T) {
	b := NewBuffer(NewMemoryStore())
	ctx := context.Background()
	key := OwnerKey{JobID: "job1", Module: "brief"}

	require.NoError(t, b.Append(ctx, key, "Hello "))
	require.NoError(t, b.Append(ctx, key, "world"))
	require.NoError(t, b.Append(ctx, key, "!"))

	content, ok, err := b.Read(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Hello world!", content)
}

func TestBuffer_ReadIsIdempotent(t *testing.T) {
	b := NewBuffer(NewMemoryStore())
	ctx := context.Background()
	key := OwnerKey{JobID: "job1", Module: "brief"}

	require.NoError(t, b.Append(ctx, key, "stable"))

	first, ok, err := b.Read(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	second, ok, err := b.Read(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, first, second)
}

func TestBuffer_ReadMissing(t *testing.T) {
	b := NewBuffer(NewMemoryStore())
	content, ok, err := b.Read(context.Background(), OwnerKey{JobID: "none", Module: "brief"})
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, content)
}

func TestBuffer_ExpiresWithoutRefresh(t *testing.T) {
	now, clock := newTestClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	b := NewBuffer(NewMemoryStore(WithClock(clock)), WithBufferTTL(time.Minute))
	ctx := context.Background()
	key := OwnerKey{JobID: "job1", Module: "brief"}

	require.NoError(t, b.Append(ctx, key, "fleeting"))
	*now = now.Add(2 * time.Minute)

	_, ok, err := b.Read(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBuffer_Clear(t *testing.T) {
	b := NewBuffer(NewMemoryStore())
	ctx := context.Background()
	key := OwnerKey{JobID: "job1", Module: "brief"}

	require.NoError(t, b.Append(ctx, key, "gone soon"))
	require.NoError(t, b.Clear(ctx, key))

	_, ok, err := b.Read(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)
}
