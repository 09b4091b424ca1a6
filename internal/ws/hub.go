package ws

import (
	"sync"

	"taskmanager/backend/pkg/logger"
)

// Hub tracks which websocket sessions belong to which user. A user may hold
// any number of concurrent sessions (several tabs, several devices); each one
// registers independently and receives its own copy of every push.
//
// Register and Unregister are synchronous: once Unregister returns, no new
// payload will be queued on that session's send channel.
type Hub struct {
	mu       sync.RWMutex
	sessions map[uint]map[*Session]struct{}
	log      *logger.Logger
}

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		sessions: make(map[uint]map[*Session]struct{}),
		log:      log.WithComponent("ws-hub"),
	}
}

// Register adds a session to the routing table.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.sessions[s.UserID]
	if !ok {
		set = make(map[*Session]struct{})
		h.sessions[s.UserID] = set
	}
	set[s] = struct{}{}
	h.log.Debug("session registered", "user_id", s.UserID, "sessions", len(set))
}

// Unregister removes a session from the routing table and closes its send
// channel. Safe to call more than once for the same session.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.sessions[s.UserID]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.sessions, s.UserID)
	}
	close(s.send)
	h.log.Debug("session unregistered", "user_id", s.UserID)
}

// SendToUser queues the payload on every session of the user and returns how
// many sessions accepted it. A session whose send buffer is full is skipped;
// a slow consumer must not stall delivery to anyone else.
func (h *Hub) SendToUser(userID uint, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for s := range h.sessions[userID] {
		select {
		case s.send <- payload:
			delivered++
		default:
			h.log.Warn("send buffer full, dropping payload", "user_id", userID)
		}
	}
	return delivered
}

// Broadcast queues the payload on every registered session, whoever it
// belongs to, and returns how many accepted it. This is the relay mode's
// public channel: recipients filter by conversation themselves.
func (h *Hub) Broadcast(payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, set := range h.sessions {
		for s := range set {
			select {
			case s.send <- payload:
				delivered++
			default:
				h.log.Warn("send buffer full, dropping payload", "user_id", s.UserID)
			}
		}
	}
	return delivered
}

// SessionCount returns the number of live sessions for a user.
func (h *Hub) SessionCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}
