package streamstate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	s := NewMemoryStore()
	r := NewRegistry(s)
	ctx := context.Background()
	key := OwnerKey{JobID: "job1", Module: "brief"}

	require.NoError(t, r.Register(ctx, key, "stream-1", "user-1"))

	rec, err := r.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, "stream-1", rec.StreamID)
	require.Equal(t, "user-1", rec.UserID)
	require.Equal(t, StatusActive, rec.Status)
	require.NotZero(t, rec.CreatedAt)

	active, err := r.IsActive(ctx, key)
	require.NoError(t, err)
	require.True(t, active)
}

func TestRegistry_RegisterOverwritesLastWriterWins(t *testing.T) {
	s := NewMemoryStore()
	r := NewRegistry(s)
	ctx := context.Background()
	key := OwnerKey{JobID: "job1", Module: "brief"}

	require.NoError(t, r.Register(ctx, key, "stream-1", "user-1"))
	require.NoError(t, r.Register(ctx, key, "stream-2", "user-1"))

	rec, err := r.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "stream-2", rec.StreamID)
}

func TestRegistry_GetMissingReturnsNil(t *testing.T) {
	r := NewRegistry(NewMemoryStore())
	rec, err := r.Get(context.Background(), OwnerKey{JobID: "nope", Module: "brief"})
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestRegistry_MalformedRecordTreatedAsAbsent(t *testing.T) {
	s := NewMemoryStore()
	r := NewRegistry(s)
	ctx := context.Background()
	key := OwnerKey{JobID: "job1", Module: "brief"}

	require.NoError(t, s.Set(ctx, recordKey(key), "{not json", time.Minute))

	rec, err := r.Get(ctx, key)
	require.NoError(t, err)
	require.Nil(t, rec)

	active, err := r.IsActive(ctx, key)
	require.NoError(t, err)
	require.False(t, active)
}

func TestRegistry_MarkStatusRejectsNonTerminal(t *testing.T) {
	r := NewRegistry(NewMemoryStore())
	err := r.MarkStatus(context.Background(), OwnerKey{JobID: "j", Module: "m"}, StatusActive)
	require.Error(t, err)
}

func TestRegistry_MarkStatusOnMissingRecordIsNoop(t *testing.T) {
	r := NewRegistry(NewMemoryStore())
	err := r.MarkStatus(context.Background(), OwnerKey{JobID: "gone", Module: "m"}, StatusCompleted)
	require.NoError(t, err)
}

func TestRegistry_MarkStatusShortensRecordTTL(t *testing.T) {
	now, clock := newTestClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := NewMemoryStore(WithClock(clock))
	r := NewRegistry(s)
	ctx := context.Background()
	key := OwnerKey{JobID: "job1", Module: "brief"}

	require.NoError(t, r.Register(ctx, key, "stream-1", "user-1"))
	require.NoError(t, r.MarkStatus(ctx, key, StatusCompleted))

	rec, err := r.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, StatusCompleted, rec.Status)

	// Still readable inside the terminal window.
	*now = now.Add(90 * time.Second)
	rec, err = r.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, rec)

	// Gone after the shortened TTL, well before the 5 minute active TTL.
	*now = now.Add(time.Minute)
	rec, err = r.Get(ctx, key)
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestRegistry_MarkStatusExtendsBufferTTL(t *testing.T) {
	now, clock := newTestClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := NewMemoryStore(WithClock(clock))
	r := NewRegistry(s)
	// Buffer with a TTL shorter than the terminal window, to observe the
	// extension applied on the terminal transition.
	b := NewBuffer(s, WithBufferTTL(30*time.Second))
	ctx := context.Background()
	key := OwnerKey{JobID: "job1", Module: "brief"}

	require.NoError(t, r.Register(ctx, key, "stream-1", "user-1"))
	require.NoError(t, b.Append(ctx, key, "Hello world"))
	require.NoError(t, r.MarkStatus(ctx, key, StatusCompleted))

	// The original 30s buffer TTL has lapsed but the terminal transition
	// re-armed it to the terminal window.
	*now = now.Add(90 * time.Second)
	content, ok, err := b.Read(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Hello world", content)
}

func TestRegistry_ClearRemovesRecordAndBuffer(t *testing.T) {
	s := NewMemoryStore()
	r := NewRegistry(s)
	b := NewBuffer(s)
	ctx := context.Background()
	key := OwnerKey{JobID: "job1", Module: "brief"}

	require.NoError(t, r.Register(ctx, key, "stream-1", "user-1"))
	require.NoError(t, b.Append(ctx, key, "partial"))
	require.NoError(t, r.Clear(ctx, key))

	rec, err := r.Get(ctx, key)
	require.NoError(t, err)
	require.Nil(t, rec)

	_, ok, err := b.Read(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRegistry_ListForJob(t *testing.T) {
	s := NewMemoryStore()
	r := NewRegistry(s)
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, OwnerKey{JobID: "job1", Module: "brief"}, "s1", "u1"))
	require.NoError(t, r.Register(ctx, OwnerKey{JobID: "job1", Module: "questions"}, "s2", "u1"))
	require.NoError(t, r.Register(ctx, OwnerKey{JobID: "job2", Module: "brief"}, "s3", "u2"))
	require.NoError(t, r.MarkStatus(ctx, OwnerKey{JobID: "job1", Module: "questions"}, StatusError))

	recs, err := r.ListForJob(ctx, "job1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, StatusActive, recs["brief"].Status)
	require.Equal(t, StatusError, recs["questions"].Status)
}
