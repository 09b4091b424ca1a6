package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmanager/backend/internal/models"
	"taskmanager/backend/pkg/logger"
	"taskmanager/backend/shared/observability"
)

// fakeBroker is an in-process pub/sub with one stream per topic.
type fakeBroker struct {
	mu     sync.Mutex
	topics map[string]chan []byte
	pubErr error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{topics: make(map[string]chan []byte)}
}

func (b *fakeBroker) Publish(_ context.Context, topic string, payload []byte) error {
	if b.pubErr != nil {
		return b.pubErr
	}
	b.stream(topic) <- payload
	return nil
}

func (b *fakeBroker) Subscribe(_ context.Context, topic string) Subscription {
	return &fakeSubscription{messages: b.stream(topic)}
}

func (b *fakeBroker) stream(topic string) chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.topics[topic]
	if !ok {
		ch = make(chan []byte, 16)
		b.topics[topic] = ch
	}
	return ch
}

type fakeSubscription struct {
	messages chan []byte
}

func (s *fakeSubscription) Messages() <-chan []byte { return s.messages }
func (s *fakeSubscription) Close() error            { return nil }

// recordingBroadcaster hands every broadcast payload to the test goroutine.
type recordingBroadcaster struct {
	payloads chan []byte
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{payloads: make(chan []byte, 16)}
}

func (r *recordingBroadcaster) Broadcast(payload []byte) int {
	r.payloads <- payload
	return 1
}

func awaitBroadcast(t *testing.T, r *recordingBroadcaster) []byte {
	t.Helper()
	select {
	case p := <-r.payloads:
		return p
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
		return nil
	}
}

func TestRelayRouter_PublishesPlainPayload(t *testing.T) {
	broker := newFakeBroker()
	router := NewRelayRouter(broker, "chat.messages", observability.NewChatMetrics(), logger.New(logger.Config{Level: "error"}))

	msg := testMessage()
	require.NoError(t, router.Publish(context.Background(), msg))

	raw := <-broker.stream("chat.messages")
	var got models.MessageView
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, msg.Content, got.Content)
	assert.Equal(t, msg.ConversationID, got.ConversationID)
	assert.Equal(t, msg.SenderName, got.SenderName)
}

func TestRelayRouter_BrokerFailure(t *testing.T) {
	broker := newFakeBroker()
	broker.pubErr = errors.New("broker down")
	router := NewRelayRouter(broker, "chat.messages", observability.NewChatMetrics(), logger.New(logger.Config{Level: "error"}))

	assert.Error(t, router.Publish(context.Background(), testMessage()))
}

func TestRelayListener_RebroadcastsToAllSessions(t *testing.T) {
	broker := newFakeBroker()
	sender := newRecordingBroadcaster()
	listener := NewRelayListener(broker, "chat.messages", sender, logger.New(logger.Config{Level: "error"}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go listener.Run(ctx)

	router := NewRelayRouter(broker, "chat.messages", observability.NewChatMetrics(), logger.New(logger.Config{Level: "error"}))
	msg := testMessage()
	require.NoError(t, router.Publish(ctx, msg))

	var env Envelope
	require.NoError(t, json.Unmarshal(awaitBroadcast(t, sender), &env))
	assert.Equal(t, "message", env.Type)
	assert.Equal(t, msg.Content, env.Payload.Content)
	assert.Equal(t, msg.ConversationID, env.Payload.ConversationID)
}

func TestRelayListener_SkipsMalformedPayloads(t *testing.T) {
	broker := newFakeBroker()
	sender := newRecordingBroadcaster()
	listener := NewRelayListener(broker, "chat.messages", sender, logger.New(logger.Config{Level: "error"}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go listener.Run(ctx)

	broker.stream("chat.messages") <- []byte("{not json")

	msg := testMessage()
	good, err := json.Marshal(msg)
	require.NoError(t, err)
	broker.stream("chat.messages") <- good

	var env Envelope
	require.NoError(t, json.Unmarshal(awaitBroadcast(t, sender), &env))
	assert.Equal(t, msg.Content, env.Payload.Content, "the malformed payload must be skipped, not fatal")
	assert.Empty(t, sender.payloads)
}
