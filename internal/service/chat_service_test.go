package service_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmanager/backend/internal/models"
	"taskmanager/backend/internal/repository/memory"
	"taskmanager/backend/internal/service"
	"taskmanager/backend/pkg/logger"
)

func newChatFixture(t *testing.T) (*service.ChatService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	log := logger.New(logger.Config{Level: "error"})
	return service.NewChatService(store.Users(), store.Conversations(), store.Messages(), log), store
}

func createUser(t *testing.T, store *memory.Store, username, alias string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Alias:    alias,
		Email:    username + "@example.com",
		Password: "password123",
	}
	require.NoError(t, store.Users().Create(user))
	return user
}

func TestGetOrCreatePrivate_IdempotentAcrossArgumentOrder(t *testing.T) {
	chat, store := newChatFixture(t)
	alice := createUser(t, store, "alice", "")
	bob := createUser(t, store, "bob", "")

	first, err := chat.GetOrCreatePrivate(alice.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, first.Participants, 2)

	second, err := chat.GetOrCreatePrivate(bob.ID, alice.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.ConversationPrivate, second.Type)
}

func TestGetOrCreatePrivate_ConcurrentCallsConvergeOnOneConversation(t *testing.T) {
	chat, store := newChatFixture(t)
	alice := createUser(t, store, "alice", "")
	bob := createUser(t, store, "bob", "")

	const callers = 16
	ids := make([]uint, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Half the callers approach from each side of the pair.
			a, b := alice.ID, bob.ID
			if i%2 == 1 {
				a, b = b, a
			}
			conv, err := chat.GetOrCreatePrivate(a, b)
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = conv.ID
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	summaries, err := chat.ListConversations(alice.ID)
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestGetOrCreatePrivate_RejectsSelfAndUnknownUser(t *testing.T) {
	chat, store := newChatFixture(t)
	alice := createUser(t, store, "alice", "")

	_, err := chat.GetOrCreatePrivate(alice.ID, alice.ID)
	assert.ErrorIs(t, err, service.ErrSelfConversation)

	_, err = chat.GetOrCreatePrivate(alice.ID, 9999)
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestSend_AppendsAndUpdatesRecency(t *testing.T) {
	chat, store := newChatFixture(t)
	alice := createUser(t, store, "alice", "Alice A.")
	bob := createUser(t, store, "bob", "")

	conv, err := chat.GetOrCreatePrivate(alice.ID, bob.ID)
	require.NoError(t, err)
	require.Nil(t, conv.LastMessageAt)

	view, err := chat.Send(conv.ID, alice.ID, "hello bob")
	require.NoError(t, err)
	assert.Equal(t, "hello bob", view.Content)
	assert.Equal(t, alice.ID, view.SenderID)
	assert.Equal(t, "Alice A.", view.SenderName)

	after, err := store.Conversations().GetByID(conv.ID)
	require.NoError(t, err)
	require.NotNil(t, after.LastMessageAt)
	assert.True(t, after.LastMessageAt.Equal(view.Timestamp),
		"conversation recency must be exactly the appended message timestamp")
}

func TestSend_EmptyContentLeavesLogUntouched(t *testing.T) {
	chat, store := newChatFixture(t)
	alice := createUser(t, store, "alice", "")
	bob := createUser(t, store, "bob", "")

	conv, err := chat.GetOrCreatePrivate(alice.ID, bob.ID)
	require.NoError(t, err)

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err := chat.Send(conv.ID, alice.ID, content)
		assert.ErrorIs(t, err, service.ErrEmptyContent)
	}

	history, err := chat.Messages(conv.ID, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	after, err := store.Conversations().GetByID(conv.ID)
	require.NoError(t, err)
	assert.Nil(t, after.LastMessageAt)
}

func TestSend_NonParticipantRejected(t *testing.T) {
	chat, store := newChatFixture(t)
	alice := createUser(t, store, "alice", "")
	bob := createUser(t, store, "bob", "")
	mallory := createUser(t, store, "mallory", "")

	conv, err := chat.GetOrCreatePrivate(alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = chat.Send(conv.ID, mallory.ID, "let me in")
	assert.ErrorIs(t, err, service.ErrNotParticipant)

	_, err = chat.Messages(conv.ID, mallory.ID)
	assert.ErrorIs(t, err, service.ErrNotParticipant)

	_, err = chat.Messages(9999, alice.ID)
	assert.ErrorIs(t, err, service.ErrConversationNotFound)
}

func TestMessages_AscendingWithSenderNames(t *testing.T) {
	chat, store := newChatFixture(t)
	alice := createUser(t, store, "alice", "")
	bob := createUser(t, store, "bob", "Bobby")

	conv, err := chat.GetOrCreatePrivate(alice.ID, bob.ID)
	require.NoError(t, err)

	contents := []string{"one", "two", "three", "four"}
	senders := []uint{alice.ID, bob.ID, alice.ID, bob.ID}
	for i, content := range contents {
		_, err := chat.Send(conv.ID, senders[i], content)
		require.NoError(t, err)
	}

	history, err := chat.Messages(conv.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, history, len(contents))

	for i, view := range history {
		assert.Equal(t, contents[i], view.Content)
		assert.Equal(t, senders[i], view.SenderID)
		if i > 0 {
			assert.False(t, view.Timestamp.Before(history[i-1].Timestamp))
		}
	}
	assert.Equal(t, "Bobby", history[1].SenderName)
	assert.Equal(t, "alice", history[0].SenderName)
}

func TestListConversations_RecencyOrderAndViewerNames(t *testing.T) {
	chat, store := newChatFixture(t)
	alice := createUser(t, store, "alice", "")
	bob := createUser(t, store, "bob", "Bobby")
	carol := createUser(t, store, "carol", "")

	withBob, err := chat.GetOrCreatePrivate(alice.ID, bob.ID)
	require.NoError(t, err)
	withCarol, err := chat.GetOrCreatePrivate(alice.ID, carol.ID)
	require.NoError(t, err)

	// Only the conversation with carol gets traffic, so it must list first.
	_, err = chat.Send(withCarol.ID, carol.ID, "hi alice")
	require.NoError(t, err)

	summaries, err := chat.ListConversations(alice.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, withCarol.ID, summaries[0].ID)
	assert.Equal(t, "carol", summaries[0].Name)
	assert.NotNil(t, summaries[0].LastMessageAt)

	assert.Equal(t, withBob.ID, summaries[1].ID)
	assert.Equal(t, "Bobby", summaries[1].Name, "private conversations are named after the other participant")
	assert.Equal(t, bob.ID, summaries[1].OtherUserID)
	assert.Nil(t, summaries[1].LastMessageAt)
}

func TestRecipients_ReturnsAllParticipants(t *testing.T) {
	chat, store := newChatFixture(t)
	alice := createUser(t, store, "alice", "")
	bob := createUser(t, store, "bob", "")

	conv, err := chat.GetOrCreatePrivate(alice.ID, bob.ID)
	require.NoError(t, err)

	recipients, err := chat.Recipients(conv.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{alice.ID, bob.ID}, recipients)

	_, err = chat.Recipients(9999)
	assert.ErrorIs(t, err, service.ErrConversationNotFound)
}
