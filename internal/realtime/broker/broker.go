// Package broker fans envelopes out across instances over a Redis pub/sub
// topic. Every instance publishes with its own origin id and skips its own
// messages on receipt; local delivery already happened at emit time.
package broker

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/labpulse/labpulse/internal/common/config"
	"github.com/labpulse/labpulse/internal/realtime/event"
	"github.com/labpulse/labpulse/pkg/metrics"
)

// Deliverer receives envelopes published by other instances.
type Deliverer interface {
	DeliverLocal(ctx context.Context, room string, raw []byte)
}

// Message is the wire shape on the topic. Envelope stays serialized so relays
// never re-validate or re-marshal another instance's payload.
type Message struct {
	Origin   string          `json:"origin"`
	Room     string          `json:"room"`
	Envelope json.RawMessage `json:"envelope"`
}

// Broker is the cross-instance fan-out over one shared Redis topic.
type Broker struct {
	logger   *zap.Logger
	client   redis.UniversalClient
	topic    string
	originID string
	metrics  *metrics.Metrics
}

func New(logger *zap.Logger, client redis.UniversalClient, cfg config.BrokerConfig, m *metrics.Metrics) *Broker {
	return &Broker{
		logger:   logger.Named("broker"),
		client:   client,
		topic:    cfg.Topic,
		originID: uuid.NewString(),
		metrics:  m,
	}
}

// OriginID identifies this instance on the topic.
func (b *Broker) OriginID() string { return b.originID }

// Publish forwards a room-scoped envelope to the other instances.
func (b *Broker) Publish(ctx context.Context, room string, env *event.Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(&Message{
		Origin:   b.originID,
		Room:     room,
		Envelope: raw,
	})
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.topic, msg).Err(); err != nil {
		return err
	}
	b.metrics.BrokerPublished()
	return nil
}

// Run subscribes to the topic and delivers remote envelopes until ctx is
// cancelled. Malformed messages and our own echoes are skipped.
func (b *Broker) Run(ctx context.Context, deliverer Deliverer) {
	pubsub := b.client.Subscribe(ctx, b.topic)
	defer func() {
		if err := pubsub.Close(); err != nil {
			b.logger.Warn("failed to close subscription", zap.Error(err))
		}
	}()

	b.logger.Info("subscribed to event topic",
		zap.String("topic", b.topic),
		zap.String("origin_id", b.originID))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.handle(ctx, []byte(msg.Payload), deliverer)
		}
	}
}

func (b *Broker) handle(ctx context.Context, payload []byte, deliverer Deliverer) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		b.logger.Warn("dropping malformed broker message", zap.Error(err))
		return
	}
	if msg.Origin == b.originID {
		return
	}
	if msg.Room == "" || len(msg.Envelope) == 0 {
		b.logger.Warn("dropping incomplete broker message",
			zap.String("origin", msg.Origin))
		return
	}
	deliverer.DeliverLocal(ctx, msg.Room, msg.Envelope)
}
