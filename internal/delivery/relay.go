package delivery

import (
	"context"
	"encoding/json"

	"taskmanager/backend/internal/models"
	"taskmanager/backend/pkg/logger"
	"taskmanager/backend/shared/observability"
	sharedredis "taskmanager/backend/shared/redis"
)

// RelayRouter publishes messages to a Redis pub/sub topic instead of pushing
// to local sessions. Every process, the publishing one included, receives the
// message back through its RelayListener and re-broadcasts it to all sessions
// it hosts. This is the multi-process deployment mode.
//
// The broadcast is a single public channel: every connected session receives
// every relayed message and clients filter by the conversations they are in.
// That is a weaker trust boundary than the direct router's per-user targeting;
// operators pick this mode for horizontal scale, knowingly.
type RelayRouter struct {
	broker  Broker
	topic   string
	metrics *observability.ChatMetrics
	log     *logger.Logger
}

// NewRelayRouter builds a router that publishes through the broker.
func NewRelayRouter(broker Broker, topic string, metrics *observability.ChatMetrics, log *logger.Logger) *RelayRouter {
	return &RelayRouter{
		broker:  broker,
		topic:   topic,
		metrics: metrics,
		log:     log.WithComponent("delivery-relay"),
	}
}

// Publish hands the message to the broker. The wire format is the plain
// delivery payload; the subscribing side adds the channel framing.
func (r *RelayRouter) Publish(ctx context.Context, msg *models.MessageView) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	if err := r.broker.Publish(ctx, r.topic, payload); err != nil {
		r.metrics.DeliveryFailures.Add(ctx, 1)
		return err
	}
	r.metrics.MessagesPublished.Add(ctx, 1)
	return nil
}

// RelayListener consumes the relay topic and re-broadcasts each message to
// every session this process hosts.
type RelayListener struct {
	broker Broker
	topic  string
	sender LocalBroadcaster
	log    *logger.Logger
}

// NewRelayListener builds a listener for the relay topic.
func NewRelayListener(broker Broker, topic string, sender LocalBroadcaster, log *logger.Logger) *RelayListener {
	return &RelayListener{
		broker: broker,
		topic:  topic,
		sender: sender,
		log:    log.WithComponent("delivery-relay-listener"),
	}
}

// Run blocks consuming the topic until the context is cancelled. Malformed
// payloads are logged and skipped, never fatal.
func (l *RelayListener) Run(ctx context.Context) {
	sub := l.broker.Subscribe(ctx, l.topic)
	defer sub.Close()

	ch := sub.Messages()
	l.log.Info("relay listener started", "topic", l.topic)

	for {
		select {
		case <-ctx.Done():
			l.log.Info("relay listener stopped", "topic", l.topic)
			return
		case raw, ok := <-ch:
			if !ok {
				l.log.Warn("relay subscription closed", "topic", l.topic)
				return
			}

			var msg models.MessageView
			if err := json.Unmarshal(raw, &msg); err != nil {
				l.log.Warn("malformed relay payload", "error", err)
				continue
			}

			payload, err := json.Marshal(Envelope{Type: "message", Payload: msg})
			if err != nil {
				continue
			}
			l.sender.Broadcast(payload)
		}
	}
}

// RedisBroker adapts the shared Redis client to the Broker interface.
type RedisBroker struct {
	client *sharedredis.Client
}

// NewRedisBroker wraps a Redis client as a relay broker.
func NewRedisBroker(client *sharedredis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func (b *RedisBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	return b.client.Publish(ctx, topic, payload)
}

func (b *RedisBroker) Subscribe(ctx context.Context, topic string) Subscription {
	pubsub := b.client.Subscribe(ctx, topic)
	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		for m := range pubsub.Channel() {
			out <- []byte(m.Payload)
		}
	}()
	return &redisSubscription{messages: out, close: pubsub.Close}
}

type redisSubscription struct {
	messages chan []byte
	close    func() error
}

func (s *redisSubscription) Messages() <-chan []byte { return s.messages }
func (s *redisSubscription) Close() error            { return s.close() }
