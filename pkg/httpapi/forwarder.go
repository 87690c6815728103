package httpapi

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/draftboard-io/draftboard/pkg/bus"
)

// frame is the wire form pushed to websocket clients: the bus topic plus the
// original event payload.
type frame struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// Forwarder pumps bus events into a connection pool. One goroutine per topic.
type Forwarder struct {
	bus  *bus.Bus
	pool *ConnectionPool
}

func NewForwarder(b *bus.Bus, pool *ConnectionPool) *Forwarder {
	return &Forwarder{bus: b, pool: pool}
}

// Start subscribes to the given topics and forwards until ctx is canceled.
func (f *Forwarder) Start(ctx context.Context, topics ...string) error {
	if f == nil || f.bus == nil || f.pool == nil {
		return errors.New("httpapi: forwarder is not initialized")
	}
	for _, topic := range topics {
		ch, err := f.bus.Subscribe(ctx, topic)
		if err != nil {
			return errors.Wrapf(err, "httpapi: subscribe %s", topic)
		}
		go f.pump(ctx, topic, ch)
	}
	return nil
}

func (f *Forwarder) pump(ctx context.Context, topic string, ch <-chan *message.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(frame{Topic: topic, Payload: json.RawMessage(msg.Payload)})
			if err != nil {
				log.Warn().Err(err).Str("topic", topic).Msg("drop unmarshalable bus event")
				msg.Ack()
				continue
			}
			f.pool.Broadcast(data)
			msg.Ack()
		}
	}
}
