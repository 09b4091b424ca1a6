package ws

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"taskmanager/backend/internal/delivery"
	"taskmanager/backend/internal/service"
	"taskmanager/backend/pkg/logger"
)

// Handler owns the websocket endpoint: handshake authentication, the
// upgrade, and the inbound frame protocol.
type Handler struct {
	auth     *Authenticator
	hub      *Hub
	chat     *service.ChatService
	router   delivery.Router
	upgrader websocket.Upgrader
	log      *logger.Logger
}

// NewHandler wires the websocket endpoint. checkOrigin decides which Origin
// headers may upgrade; pass nil to accept all, which is only sensible behind
// a gateway that enforces origins itself.
func NewHandler(
	auth *Authenticator,
	hub *Hub,
	chat *service.ChatService,
	router delivery.Router,
	checkOrigin func(r *http.Request) bool,
	log *logger.Logger,
) *Handler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Handler{
		auth:   auth,
		hub:    hub,
		chat:   chat,
		router: router,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		log: log.WithComponent("ws-handler"),
	}
}

// Serve is the gin handler for the websocket route. Authentication happens
// before the upgrade so rejected handshakes get a clean HTTP status instead
// of a dropped socket.
func (h *Handler) Serve(c *gin.Context) {
	identity, err := h.auth.Authenticate(c.Request)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"code": "UNAUTHORIZED", "message": "valid token required"},
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.log.Warn("upgrade failed", "remote_addr", c.Request.RemoteAddr, "error", err)
		return
	}

	session := newSession(conn, identity, h.hub, h.handleFrame, h.log)
	session.run()
}

// handleFrame processes one inbound frame and returns the direct reply, if
// any. Fan-out to other participants goes through the router, never through
// the reply path.
func (h *Handler) handleFrame(s *Session, f *Frame) *Frame {
	switch f.Type {
	case FrameSend:
		return h.handleSend(s, f)
	default:
		return &Frame{Type: FrameError, Code: "UNKNOWN_TYPE", Message: "unsupported frame type: " + f.Type}
	}
}

func (h *Handler) handleSend(s *Session, f *Frame) *Frame {
	if s.Anonymous {
		return &Frame{Type: FrameError, Code: "UNAUTHORIZED", Message: "sending requires an authenticated session"}
	}

	view, err := h.chat.Send(f.ConversationID, s.UserID, f.Content)
	if err != nil {
		return sendError(err)
	}

	// The append is durable at this point; a delivery failure must not
	// surface to the sender as if the message was lost.
	if err := h.router.Publish(context.Background(), view); err != nil {
		h.log.LogError(err, "fan-out failed", "message_id", view.ID, "conversation_id", view.ConversationID)
	}

	// No direct echo: the sender is a recipient like any other, so its own
	// sessions receive the message through the fan-out exactly once.
	return nil
}

func sendError(err error) *Frame {
	switch {
	case errors.Is(err, service.ErrEmptyContent):
		return &Frame{Type: FrameError, Code: "EMPTY_CONTENT", Message: "message content must not be empty"}
	case errors.Is(err, service.ErrNotParticipant):
		return &Frame{Type: FrameError, Code: "NOT_PARTICIPANT", Message: "you are not a participant of this conversation"}
	case errors.Is(err, service.ErrConversationNotFound):
		return &Frame{Type: FrameError, Code: "CONVERSATION_NOT_FOUND", Message: "conversation does not exist"}
	default:
		return &Frame{Type: FrameError, Code: "INTERNAL", Message: "could not send message"}
	}
}
