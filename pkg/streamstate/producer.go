package streamstate

import (
	"context"

	"github.com/google/uuid"
)

// Notifier receives a best-effort nudge whenever a producer writes, so
// attached relays can re-read the store without waiting for their next poll
// tick. Implementations must not block the producer.
type Notifier interface {
	NotifyAppend(ctx context.Context, key OwnerKey)
}

// Producer is the write side of a generation stream: the generation pipeline
// appends content and reports the terminal outcome. The relay only ever reads
// what a Producer wrote.
type Producer interface {
	// Start registers a fresh stream for key and returns its stream id.
	Start(ctx context.Context, key OwnerKey, userID string) (string, error)
	Append(ctx context.Context, key OwnerKey, chunk string) error
	MarkStatus(ctx context.Context, key OwnerKey, status StreamStatus) error
}

// StateProducer writes through the Registry and Buffer. It is what the real
// generation pipeline embeds, and what the scripted scenario runner drives in
// demos and tests.
type StateProducer struct {
	registry *Registry
	buffer   *Buffer
	notifier Notifier
}

type StateProducerOption func(*StateProducer)

func WithNotifier(n Notifier) StateProducerOption {
	return func(p *StateProducer) {
		p.notifier = n
	}
}

func NewStateProducer(registry *Registry, buffer *Buffer, opts ...StateProducerOption) *StateProducer {
	p := &StateProducer{
		registry: registry,
		buffer:   buffer,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ Producer = (*StateProducer)(nil)

func (p *StateProducer) Start(ctx context.Context, key OwnerKey, userID string) (string, error) {
	streamID := uuid.NewString()
	if err := p.registry.Register(ctx, key, streamID, userID); err != nil {
		return "", err
	}
	return streamID, nil
}

func (p *StateProducer) Append(ctx context.Context, key OwnerKey, chunk string) error {
	if err := p.buffer.Append(ctx, key, chunk); err != nil {
		return err
	}
	if p.notifier != nil {
		p.notifier.NotifyAppend(ctx, key)
	}
	return nil
}

func (p *StateProducer) MarkStatus(ctx context.Context, key OwnerKey, status StreamStatus) error {
	if err := p.registry.MarkStatus(ctx, key, status); err != nil {
		return err
	}
	if p.notifier != nil {
		p.notifier.NotifyAppend(ctx, key)
	}
	return nil
}
