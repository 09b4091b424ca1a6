package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"taskmanager/backend/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBufferSize = 64
)

// Frame is the envelope on the socket in both directions.
type Frame struct {
	Type           string          `json:"type"`
	ConversationID uint            `json:"conversationId,omitempty"`
	Content        string          `json:"content,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Code           string          `json:"code,omitempty"`
	Message        string          `json:"message,omitempty"`
}

// Inbound frame types.
const FrameSend = "send"

// Outbound frame types.
const (
	FrameMessage = "message"
	FrameError   = "error"
)

// Session is one live websocket connection with the identity bound at
// handshake time. All writes to the peer go through the send channel and the
// writePump, so per-session delivery order matches queueing order.
type Session struct {
	UserID    uint
	Username  string
	Anonymous bool

	conn    *websocket.Conn
	send    chan []byte
	hub     *Hub
	handler inboundHandler
	log     *logger.Logger
}

// inboundHandler processes one client frame. Returned frames are written back
// to the same session only.
type inboundHandler func(s *Session, f *Frame) *Frame

func newSession(conn *websocket.Conn, id *Identity, hub *Hub, handler inboundHandler, log *logger.Logger) *Session {
	return &Session{
		UserID:    id.UserID,
		Username:  id.Username,
		Anonymous: id.Anonymous,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		hub:       hub,
		handler:   handler,
		log:       log.WithComponent("ws-session"),
	}
}

// run services the connection until the peer goes away, then unregisters the
// session before returning so no push can race a closed connection. Anonymous
// sessions register too (under user ID zero): they are never a per-user push
// target, but the relay mode's public broadcast reaches them.
func (s *Session) run() {
	s.hub.Register(s)
	go s.writePump()
	s.readPump()
}

func (s *Session) readPump() {
	defer func() {
		s.hub.Unregister(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("unexpected close", "user_id", s.UserID, "error", err)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.reply(&Frame{Type: FrameError, Code: "BAD_FRAME", Message: "malformed frame"})
			continue
		}
		if resp := s.handler(s, &frame); resp != nil {
			s.reply(resp)
		}
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reply queues a frame on this session only, dropping it if the buffer is
// full. Used for error frames and direct responses to inbound frames.
func (s *Session) reply(f *Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	select {
	case s.send <- data:
	default:
	}
}
