// Package bus provides the event transport between the board/sync engines and
// the HTTP/WebSocket surface. The default transport is in-process; Redis
// Streams can be enabled for multi-process deployments.
package bus

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Topics published by the server.
const (
	TopicBoardChanged = "draftboard.board.changed"
	TopicSyncStatus   = "draftboard.sync.status"
)

// RedisSettings holds Redis Streams transport configuration.
type RedisSettings struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Group    string `yaml:"group"`
	Consumer string `yaml:"consumer"`
}

func (s RedisSettings) withDefaults() RedisSettings {
	if s.Addr == "" {
		s.Addr = "localhost:6379"
	}
	if s.Group == "" {
		s.Group = "draftboard"
	}
	if s.Consumer == "" {
		s.Consumer = "draftboard-1"
	}
	return s
}

// Bus is a publisher/subscriber pair over a single transport.
type Bus struct {
	pub    message.Publisher
	sub    message.Subscriber
	client *redis.Client
	// shared is set when pub and sub are the same in-process transport.
	shared bool
}

// NewBus builds a bus backed by Redis Streams when enabled, or by an
// in-process channel transport otherwise.
func NewBus(s RedisSettings) (*Bus, error) {
	logger := NewWatermillLogger(log.Logger)
	if !s.Enabled {
		ch := gochannel.NewGoChannel(gochannel.Config{}, logger)
		return &Bus{pub: ch, sub: ch, shared: true}, nil
	}

	s = s.withDefaults()
	client := redis.NewClient(&redis.Options{Addr: s.Addr})
	marshaler := rstream.DefaultMarshallerUnmarshaller{}

	pub, err := rstream.NewPublisher(rstream.PublisherConfig{
		Client:     client,
		Marshaller: marshaler,
	}, logger)
	if err != nil {
		return nil, errors.Wrap(err, "bus: redis publisher")
	}
	sub, err := rstream.NewSubscriber(rstream.SubscriberConfig{
		Client:        client,
		Unmarshaller:  marshaler,
		ConsumerGroup: s.Group,
		Consumer:      s.Consumer,
	}, logger)
	if err != nil {
		return nil, errors.Wrap(err, "bus: redis subscriber")
	}
	return &Bus{pub: pub, sub: sub, client: client}, nil
}

// PublishJSON marshals v and publishes it on topic.
func (b *Bus) PublishJSON(topic string, v any) error {
	if b == nil {
		return errors.New("bus: nil bus")
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "bus: marshal payload")
	}
	return b.pub.Publish(topic, message.NewMessage(uuid.NewString(), payload))
}

// Subscribe returns the message channel for topic.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if b == nil {
		return nil, errors.New("bus: nil bus")
	}
	return b.sub.Subscribe(ctx, topic)
}

// EnsureGroupAtTail creates the consumer group for a stream at the tail ($)
// so first subscribe does not replay history. No-op for the in-process
// transport.
func (b *Bus) EnsureGroupAtTail(ctx context.Context, stream, group string) error {
	if b == nil || b.client == nil {
		return nil
	}
	err := b.client.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			return nil
		}
		return errors.Wrap(err, "bus: create consumer group")
	}
	log.Info().Str("stream", stream).Str("group", group).Msg("created redis consumer group at $ (tail)")
	return nil
}

// Close closes both transport halves.
func (b *Bus) Close() error {
	if b == nil {
		return nil
	}
	var first error
	if err := b.pub.Close(); err != nil {
		first = err
	}
	if !b.shared {
		if err := b.sub.Close(); err != nil && first == nil {
			first = err
		}
	}
	if b.client != nil {
		if err := b.client.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
