package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmanager/backend/pkg/logger"
)

func testHub() *Hub {
	return NewHub(logger.New(logger.Config{Level: "error"}))
}

func testSession(userID uint) *Session {
	return &Session{
		UserID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

func TestHub_FanOutToAllSessionsOfUser(t *testing.T) {
	hub := testHub()
	first := testSession(1)
	second := testSession(1)
	other := testSession(2)

	hub.Register(first)
	hub.Register(second)
	hub.Register(other)

	delivered := hub.SendToUser(1, []byte("payload"))
	assert.Equal(t, 2, delivered)
	assert.Len(t, first.send, 1)
	assert.Len(t, second.send, 1)
	assert.Len(t, other.send, 0)
}

func TestHub_UnregisterStopsDeliveryAndClosesChannel(t *testing.T) {
	hub := testHub()
	session := testSession(1)

	hub.Register(session)
	require.Equal(t, 1, hub.SessionCount(1))

	hub.Unregister(session)
	assert.Equal(t, 0, hub.SessionCount(1))
	assert.Equal(t, 0, hub.SendToUser(1, []byte("late")))

	_, open := <-session.send
	assert.False(t, open, "send channel must be closed after unregister")

	// A second unregister of the same session is a no-op, not a panic.
	hub.Unregister(session)
}

func TestHub_BroadcastReachesEverySession(t *testing.T) {
	hub := testHub()
	alice := testSession(1)
	bob := testSession(2)
	anon := testSession(0)

	hub.Register(alice)
	hub.Register(bob)
	hub.Register(anon)

	delivered := hub.Broadcast([]byte("relayed"))
	assert.Equal(t, 3, delivered)
	assert.Len(t, alice.send, 1)
	assert.Len(t, bob.send, 1)
	assert.Len(t, anon.send, 1)
}

func TestHub_FullBufferSkipsSessionWithoutBlocking(t *testing.T) {
	hub := testHub()
	slow := &Session{UserID: 1, send: make(chan []byte, 1)}
	healthy := testSession(1)

	hub.Register(slow)
	hub.Register(healthy)

	require.Equal(t, 2, hub.SendToUser(1, []byte("first")))

	// slow's buffer is now full; only the healthy session accepts more.
	delivered := hub.SendToUser(1, []byte("second"))
	assert.Equal(t, 1, delivered)
	assert.Len(t, healthy.send, 2)
	assert.Len(t, slow.send, 1)
}
