package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskmanager/backend/internal/service"
	apperrors "taskmanager/backend/pkg/errors"
	"taskmanager/backend/pkg/middleware"
)

// CategoryHandler serves the category CRUD endpoints.
type CategoryHandler struct {
	categories *service.CategoryService
}

// NewCategoryHandler creates the category handler.
func NewCategoryHandler(categories *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

type categoryRequest struct {
	Name string `json:"name" binding:"required"`
}

// List handles GET /api/categories.
func (h *CategoryHandler) List(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("UNAUTHORIZED", "authentication required"))
		return
	}

	categories, err := h.categories.List(userID)
	if err != nil {
		c.Error(apperrors.NewInternalServerError("LIST_FAILED", "could not list categories"))
		return
	}
	c.JSON(http.StatusOK, categories)
}

// Create handles POST /api/categories.
func (h *CategoryHandler) Create(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("UNAUTHORIZED", "authentication required"))
		return
	}

	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequestError("INVALID_REQUEST", err.Error()))
		return
	}

	category, err := h.categories.Create(userID, req.Name)
	if err != nil {
		c.Error(apperrors.NewInternalServerError("CREATE_FAILED", "could not create category"))
		return
	}
	c.JSON(http.StatusCreated, category)
}

// Update handles PUT /api/categories/:id.
func (h *CategoryHandler) Update(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("UNAUTHORIZED", "authentication required"))
		return
	}
	categoryID, err := pathID(c)
	if err != nil {
		c.Error(apperrors.NewBadRequestError("INVALID_CATEGORY_ID", "category id must be a positive integer"))
		return
	}

	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequestError("INVALID_REQUEST", err.Error()))
		return
	}

	category, err := h.categories.Update(userID, categoryID, req.Name)
	if err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			c.Error(apperrors.NewNotFoundError("CATEGORY_NOT_FOUND", "no such category"))
			return
		}
		c.Error(apperrors.NewInternalServerError("UPDATE_FAILED", "could not update category"))
		return
	}
	c.JSON(http.StatusOK, category)
}

// Delete handles DELETE /api/categories/:id.
func (h *CategoryHandler) Delete(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("UNAUTHORIZED", "authentication required"))
		return
	}
	categoryID, err := pathID(c)
	if err != nil {
		c.Error(apperrors.NewBadRequestError("INVALID_CATEGORY_ID", "category id must be a positive integer"))
		return
	}

	if err := h.categories.Delete(userID, categoryID); err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			c.Error(apperrors.NewNotFoundError("CATEGORY_NOT_FOUND", "no such category"))
			return
		}
		c.Error(apperrors.NewInternalServerError("DELETE_FAILED", "could not delete category"))
		return
	}
	c.Status(http.StatusNoContent)
}
