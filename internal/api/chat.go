package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskmanager/backend/internal/service"
	apperrors "taskmanager/backend/pkg/errors"
	"taskmanager/backend/pkg/middleware"
)

// ChatHandler serves the conversation directory and message history over
// HTTP. Live traffic goes over the websocket; these endpoints exist so a
// client can bootstrap state before the socket is up.
type ChatHandler struct {
	chat *service.ChatService
}

// NewChatHandler creates the chat handler.
func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// ListConversations handles GET /api/chat/conversations.
func (h *ChatHandler) ListConversations(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("UNAUTHORIZED", "authentication required"))
		return
	}

	summaries, err := h.chat.ListConversations(userID)
	if err != nil {
		c.Error(apperrors.NewInternalServerError("LIST_FAILED", "could not list conversations"))
		return
	}
	c.JSON(http.StatusOK, summaries)
}

// OpenPrivate handles POST /api/chat/conversations/private?userId=N. Calling
// it twice for the same pair, from either side, returns the same
// conversation.
func (h *ChatHandler) OpenPrivate(c *gin.Context) {
	viewerID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("UNAUTHORIZED", "authentication required"))
		return
	}

	otherID, err := strconv.ParseUint(c.Query("userId"), 10, 32)
	if err != nil {
		c.Error(apperrors.NewBadRequestError("INVALID_USER_ID", "userId must be a positive integer"))
		return
	}

	conv, err := h.chat.GetOrCreatePrivate(viewerID, uint(otherID))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSelfConversation):
			c.Error(apperrors.NewBadRequestError("SELF_CONVERSATION", "cannot open a conversation with yourself"))
		case errors.Is(err, service.ErrUserNotFound):
			c.Error(apperrors.NewNotFoundError("USER_NOT_FOUND", "no such user"))
		default:
			c.Error(apperrors.NewInternalServerError("OPEN_FAILED", "could not open conversation"))
		}
		return
	}

	c.JSON(http.StatusOK, conv)
}

// Messages handles GET /api/chat/conversations/:id/messages.
func (h *ChatHandler) Messages(c *gin.Context) {
	viewerID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("UNAUTHORIZED", "authentication required"))
		return
	}

	conversationID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.Error(apperrors.NewBadRequestError("INVALID_CONVERSATION_ID", "conversation id must be a positive integer"))
		return
	}

	messages, err := h.chat.Messages(uint(conversationID), viewerID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound):
			c.Error(apperrors.NewNotFoundError("CONVERSATION_NOT_FOUND", "no such conversation"))
		case errors.Is(err, service.ErrNotParticipant):
			c.Error(apperrors.NewForbiddenError("NOT_PARTICIPANT", "you are not a participant of this conversation"))
		default:
			c.Error(apperrors.NewInternalServerError("HISTORY_FAILED", "could not load messages"))
		}
		return
	}

	c.JSON(http.StatusOK, messages)
}
