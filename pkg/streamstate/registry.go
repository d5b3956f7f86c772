package streamstate

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultActiveTTL bounds how long an abandoned active stream survives in
	// the store without the producer refreshing it.
	DefaultActiveTTL = 5 * time.Minute
	// DefaultTerminalTTL is the shortened window a finished stream (and its
	// content) remains readable for late resumers.
	DefaultTerminalTTL = 2 * time.Minute
)

// Registry records the lifecycle of in-flight generation streams. It shares a
// Store with the content Buffer so terminal transitions can keep record and
// content expiring together.
type Registry struct {
	store       Store
	activeTTL   time.Duration
	terminalTTL time.Duration
}

type RegistryOption func(*Registry)

func WithActiveTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) {
		r.activeTTL = ttl
	}
}

func WithTerminalTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) {
		r.terminalTTL = ttl
	}
}

func NewRegistry(store Store, opts ...RegistryOption) *Registry {
	r := &Registry{
		store:       store,
		activeTTL:   DefaultActiveTTL,
		terminalTTL: DefaultTerminalTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register creates the record for a new stream with status active. Calling it
// again for the same key overwrites the previous record (last writer wins).
func (r *Registry) Register(ctx context.Context, key OwnerKey, streamID, userID string) error {
	rec := StreamRecord{
		StreamID:  streamID,
		UserID:    userID,
		Status:    StatusActive,
		CreatedAt: time.Now().UnixMilli(),
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshal stream record")
	}
	return r.store.Set(ctx, recordKey(key), string(b), r.activeTTL)
}

// MarkStatus moves the stream into a terminal state. When the record has
// already expired this is a no-op. The record TTL is shortened and the content
// buffer TTL extended to match, so the terminal content stays readable for the
// same window.
func (r *Registry) MarkStatus(ctx context.Context, key OwnerKey, status StreamStatus) error {
	if !status.Terminal() {
		return errors.Errorf("mark status: %q is not a terminal status", status)
	}
	rec, err := r.Get(ctx, key)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}
	rec.Status = status
	b, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshal stream record")
	}
	if err := r.store.Set(ctx, recordKey(key), string(b), r.terminalTTL); err != nil {
		return err
	}
	return r.store.Expire(ctx, contentKey(key), r.terminalTTL)
}

// Get returns the current record, or nil when the key is absent, expired, or
// holds a value that no longer parses. A malformed record degrades to "no
// active stream" rather than failing the caller.
func (r *Registry) Get(ctx context.Context, key OwnerKey) (*StreamRecord, error) {
	raw, ok, err := r.store.Get(ctx, recordKey(key))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var rec StreamRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		log.Debug().
			Str("component", "streamstate").
			Str("key", key.String()).
			Err(err).
			Msg("discarding malformed stream record")
		return nil, nil
	}
	return &rec, nil
}

// Clear tears down the stream explicitly: record and content are deleted
// together.
func (r *Registry) Clear(ctx context.Context, key OwnerKey) error {
	return r.store.Del(ctx, recordKey(key), contentKey(key))
}

// IsActive reports whether a record exists and is still in the active state.
func (r *Registry) IsActive(ctx context.Context, key OwnerKey) (bool, error) {
	rec, err := r.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return rec != nil && rec.Status == StatusActive, nil
}

// ListForJob returns all live stream records for a job, keyed by module name.
func (r *Registry) ListForJob(ctx context.Context, jobID string) (map[string]*StreamRecord, error) {
	prefix := jobRecordPrefix(jobID)
	keys, err := r.store.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := map[string]*StreamRecord{}
	for _, k := range keys {
		module := strings.TrimPrefix(k, prefix)
		rec, err := r.Get(ctx, OwnerKey{JobID: jobID, Module: module})
		if err != nil {
			return nil, err
		}
		if rec != nil {
			out[module] = rec
		}
	}
	return out, nil
}
