package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskmanager/backend/internal/service"
	apperrors "taskmanager/backend/pkg/errors"
	"taskmanager/backend/pkg/middleware"
)

// UserHandler serves user search, the entry point for starting a new
// conversation.
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler creates the user handler.
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Search handles GET /api/users/search?q=term. The searcher is always
// excluded from the results.
func (h *UserHandler) Search(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("UNAUTHORIZED", "authentication required"))
		return
	}

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.Error(apperrors.NewBadRequestError("EMPTY_QUERY", "q must not be empty"))
		return
	}

	users, err := h.users.Search(query, userID)
	if err != nil {
		c.Error(apperrors.NewInternalServerError("SEARCH_FAILED", "could not search users"))
		return
	}
	c.JSON(http.StatusOK, users)
}
