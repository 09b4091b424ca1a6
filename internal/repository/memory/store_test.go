package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmanager/backend/internal/models"
)

func newConversation(t *testing.T, s *Store) *models.Conversation {
	t.Helper()

	pairKey := "1:2"
	conv := &models.Conversation{
		Type:    models.ConversationPrivate,
		PairKey: &pairKey,
		Participants: []models.Participant{
			{UserID: 1},
			{UserID: 2},
		},
	}
	require.NoError(t, s.Conversations().CreatePrivate(conv))
	return conv
}

func TestAppend_RecencyNeverRollsBackwards(t *testing.T) {
	store := NewStore()
	conv := newConversation(t, store)

	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	newer := base.Add(time.Second)

	// Appends can reach the log out of timestamp order under contention; the
	// recency marker must track the newest message, not the last writer.
	require.NoError(t, store.Messages().Append(&models.Message{
		ConversationID: conv.ID, SenderID: 1, Content: "second", Timestamp: newer,
	}))
	require.NoError(t, store.Messages().Append(&models.Message{
		ConversationID: conv.ID, SenderID: 2, Content: "first", Timestamp: base,
	}))

	after, err := store.Conversations().GetByID(conv.ID)
	require.NoError(t, err)
	require.NotNil(t, after.LastMessageAt)
	assert.True(t, after.LastMessageAt.Equal(newer),
		"last_message_at must equal the newest message timestamp")
}

func TestAppend_RecencyAdvancesInOrder(t *testing.T) {
	store := NewStore()
	conv := newConversation(t, store)

	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Messages().Append(&models.Message{
			ConversationID: conv.ID, SenderID: 1, Content: "m", Timestamp: base.Add(time.Duration(i) * time.Second),
		}))
	}

	after, err := store.Conversations().GetByID(conv.ID)
	require.NoError(t, err)
	require.NotNil(t, after.LastMessageAt)
	assert.True(t, after.LastMessageAt.Equal(base.Add(2*time.Second)))
}
