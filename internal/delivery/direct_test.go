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

type stubRecipients struct {
	ids []uint
	err error
}

func (s *stubRecipients) Recipients(uint) ([]uint, error) {
	return s.ids, s.err
}

// recordingSender captures what each user would have received. Users in
// offline report zero sessions, like a hub with nobody connected.
type recordingSender struct {
	mu       sync.Mutex
	payloads map[uint][][]byte
	offline  map[uint]bool
}

func newRecordingSender() *recordingSender {
	return &recordingSender{
		payloads: make(map[uint][][]byte),
		offline:  make(map[uint]bool),
	}
}

func (r *recordingSender) SendToUser(userID uint, payload []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.offline[userID] {
		return 0
	}
	r.payloads[userID] = append(r.payloads[userID], payload)
	return 1
}

func (r *recordingSender) received(userID uint) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.payloads[userID]
}

func testMessage() *models.MessageView {
	return &models.MessageView{
		ID:             7,
		Content:        "hello",
		SenderID:       1,
		SenderName:     "alice",
		ConversationID: 3,
		Timestamp:      time.Now().UTC(),
	}
}

func TestDirectRouter_DeliversToEveryParticipantOnce(t *testing.T) {
	sender := newRecordingSender()
	router := NewDirectRouter(
		&stubRecipients{ids: []uint{1, 2}},
		sender,
		observability.NewChatMetrics(),
		logger.New(logger.Config{Level: "error"}),
	)

	msg := testMessage()
	require.NoError(t, router.Publish(context.Background(), msg))

	for _, userID := range []uint{1, 2} {
		got := sender.received(userID)
		require.Len(t, got, 1, "user %d", userID)

		var env Envelope
		require.NoError(t, json.Unmarshal(got[0], &env))
		assert.Equal(t, "message", env.Type)
		assert.Equal(t, msg.Content, env.Payload.Content)
		assert.Equal(t, msg.ConversationID, env.Payload.ConversationID)
	}
}

func TestDirectRouter_OfflineRecipientDoesNotBlockOthers(t *testing.T) {
	sender := newRecordingSender()
	sender.offline[2] = true

	router := NewDirectRouter(
		&stubRecipients{ids: []uint{1, 2, 3}},
		sender,
		observability.NewChatMetrics(),
		logger.New(logger.Config{Level: "error"}),
	)

	require.NoError(t, router.Publish(context.Background(), testMessage()))

	assert.Len(t, sender.received(1), 1)
	assert.Empty(t, sender.received(2))
	assert.Len(t, sender.received(3), 1)
}

func TestDirectRouter_RecipientLookupFailure(t *testing.T) {
	sender := newRecordingSender()
	router := NewDirectRouter(
		&stubRecipients{err: errors.New("directory down")},
		sender,
		observability.NewChatMetrics(),
		logger.New(logger.Config{Level: "error"}),
	)

	err := router.Publish(context.Background(), testMessage())
	assert.Error(t, err)
	assert.Empty(t, sender.received(1))
}
