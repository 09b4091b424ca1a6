// Package api holds the HTTP handlers. Handlers bind and validate input,
// call a service, and translate service sentinels into AppErrors; they never
// touch the database directly.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskmanager/backend/internal/models"
	"taskmanager/backend/internal/service"
	apperrors "taskmanager/backend/pkg/errors"
	"taskmanager/backend/pkg/middleware"
)

// AuthHandler serves registration, login and the current-account endpoint.
type AuthHandler struct {
	users *service.UserService
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(users *service.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequestError("INVALID_REQUEST", err.Error()))
		return
	}

	user, token, err := h.users.Register(&req)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			c.Error(apperrors.NewConflictError("USERNAME_TAKEN", "username or email already in use"))
			return
		}
		c.Error(apperrors.NewInternalServerError("REGISTRATION_FAILED", "could not create account"))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequestError("INVALID_REQUEST", err.Error()))
		return
	}

	user, token, err := h.users.Login(&req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.Error(apperrors.NewUnauthorizedError("INVALID_CREDENTIALS", "invalid username or password"))
			return
		}
		c.Error(apperrors.NewInternalServerError("LOGIN_FAILED", "could not log in"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("UNAUTHORIZED", "authentication required"))
		return
	}

	user, err := h.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.Error(apperrors.NewNotFoundError("USER_NOT_FOUND", "account no longer exists"))
			return
		}
		c.Error(apperrors.NewInternalServerError("LOOKUP_FAILED", "could not load account"))
		return
	}

	c.JSON(http.StatusOK, user)
}
