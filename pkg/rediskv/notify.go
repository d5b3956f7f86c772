package rediskv

import (
	"context"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/prepstream/pkg/streamstate"
)

// Append notifications ride a redis stream per owner key. They only wake
// attached tailers early; polling stays the correctness mechanism, so a lost
// notification costs at most one poll interval of latency.

func notifyTopic(key streamstate.OwnerKey) string {
	return "stream:notify:" + key.String()
}

// Notifier publishes an append notification per producer write.
type Notifier struct {
	pub message.Publisher
}

var _ streamstate.Notifier = (*Notifier)(nil)

// BuildNotifier returns nil when redis is disabled; the producer then relies
// on relay polling alone.
func BuildNotifier(s Settings) (*Notifier, error) {
	if !s.Enabled {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: s.Addr})
	pub, err := rstream.NewPublisher(rstream.PublisherConfig{
		Client:     client,
		Marshaller: rstream.DefaultMarshallerUnmarshaller{},
	}, newWatermillLogger(log.Logger))
	if err != nil {
		return nil, errors.Wrap(err, "build notify publisher")
	}
	return &Notifier{pub: pub}, nil
}

func (n *Notifier) NotifyAppend(_ context.Context, key streamstate.OwnerKey) {
	if n == nil || n.pub == nil {
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), []byte("1"))
	if err := n.pub.Publish(notifyTopic(key), msg); err != nil {
		log.Warn().Err(err).Str("component", "rediskv").Str("key", key.String()).Msg("append notification publish failed")
	}
}

func (n *Notifier) Close() error {
	if n == nil || n.pub == nil {
		return nil
	}
	return n.pub.Close()
}

// Waker builds per-connection subscriptions to append notifications. Each
// subscription uses its own consumer group so every attached relay connection
// observes every notification.
type Waker struct {
	addr  string
	group string
}

// BuildWaker returns nil when redis is disabled.
func BuildWaker(s Settings) *Waker {
	if !s.Enabled {
		return nil
	}
	group := s.Group
	if group == "" {
		group = "prepstream"
	}
	return &Waker{addr: s.Addr, group: group}
}

// Subscribe returns a channel that receives a tick per notification for key,
// and a cleanup func releasing the subscription.
func (w *Waker) Subscribe(ctx context.Context, key streamstate.OwnerKey) (<-chan struct{}, func(), error) {
	if w == nil {
		return nil, nil, errors.New("waker is nil")
	}
	topic := notifyTopic(key)
	group := w.group + "-" + uuid.NewString()[:8]

	client := redis.NewClient(&redis.Options{Addr: w.addr})
	if err := ensureGroupAtTail(ctx, client, topic, group); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	sub, err := rstream.NewSubscriber(rstream.SubscriberConfig{
		Client:        client,
		Unmarshaller:  rstream.DefaultMarshallerUnmarshaller{},
		ConsumerGroup: group,
		Consumer:      "tailer",
	}, newWatermillLogger(log.Logger))
	if err != nil {
		_ = client.Close()
		return nil, nil, errors.Wrap(err, "build notify subscriber")
	}

	ch, err := sub.Subscribe(ctx, topic)
	if err != nil {
		_ = sub.Close()
		return nil, nil, errors.Wrap(err, "subscribe notify topic")
	}

	wake := make(chan struct{}, 1)
	go func() {
		for msg := range ch {
			msg.Ack()
			select {
			case wake <- struct{}{}:
			default:
			}
		}
	}()

	cleanup := func() {
		if err := sub.Close(); err != nil {
			log.Debug().Err(err).Str("component", "rediskv").Msg("notify subscriber close failed")
		}
	}
	return wake, cleanup, nil
}

// ensureGroupAtTail creates the consumer group at the stream tail so a new
// subscription does not replay historical notifications.
func ensureGroupAtTail(ctx context.Context, client *redis.Client, stream, group string) error {
	err := client.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return errors.Wrap(err, "create notify consumer group")
	}
	return nil
}
