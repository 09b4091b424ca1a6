package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"taskmanager/backend/internal/models"
	"taskmanager/backend/internal/service"
	apperrors "taskmanager/backend/pkg/errors"
	"taskmanager/backend/pkg/middleware"
)

// TaskHandler serves the task CRUD endpoints.
type TaskHandler struct {
	tasks *service.TaskService
}

// NewTaskHandler creates the task handler.
func NewTaskHandler(tasks *service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// taskRequest is the mutable subset of a task accepted on create and update.
type taskRequest struct {
	Title       string            `json:"title" binding:"required"`
	Description string            `json:"description"`
	Status      models.TaskStatus `json:"status" binding:"omitempty,oneof=TODO IN_PROGRESS DONE"`
	DueDate     *string           `json:"due_date"`
	CategoryID  *uint             `json:"category_id"`
}

func (r *taskRequest) toModel() (*models.Task, error) {
	task := &models.Task{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		CategoryID:  r.CategoryID,
	}
	if r.DueDate != nil && *r.DueDate != "" {
		due, err := parseRFC3339(*r.DueDate)
		if err != nil {
			return nil, err
		}
		task.DueDate = due
	}
	return task, nil
}

// List handles GET /api/tasks with filter, sort and pagination parameters.
func (h *TaskHandler) List(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("UNAUTHORIZED", "authentication required"))
		return
	}

	var filter models.TaskFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(apperrors.NewBadRequestError("INVALID_FILTER", err.Error()))
		return
	}

	page, err := h.tasks.List(userID, &filter)
	if err != nil {
		c.Error(apperrors.NewInternalServerError("LIST_FAILED", "could not list tasks"))
		return
	}
	c.JSON(http.StatusOK, page)
}

// Get handles GET /api/tasks/:id.
func (h *TaskHandler) Get(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("UNAUTHORIZED", "authentication required"))
		return
	}
	taskID, err := pathID(c)
	if err != nil {
		c.Error(apperrors.NewBadRequestError("INVALID_TASK_ID", "task id must be a positive integer"))
		return
	}

	task, err := h.tasks.Get(userID, taskID)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			c.Error(apperrors.NewNotFoundError("TASK_NOT_FOUND", "no such task"))
			return
		}
		c.Error(apperrors.NewInternalServerError("LOOKUP_FAILED", "could not load task"))
		return
	}
	c.JSON(http.StatusOK, task)
}

// Create handles POST /api/tasks.
func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("UNAUTHORIZED", "authentication required"))
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequestError("INVALID_REQUEST", err.Error()))
		return
	}
	task, err := req.toModel()
	if err != nil {
		c.Error(apperrors.NewBadRequestError("INVALID_DUE_DATE", "due_date must be RFC 3339"))
		return
	}

	if err := h.tasks.Create(userID, task); err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			c.Error(apperrors.NewBadRequestError("CATEGORY_NOT_FOUND", "no such category"))
			return
		}
		c.Error(apperrors.NewInternalServerError("CREATE_FAILED", "could not create task"))
		return
	}
	c.JSON(http.StatusCreated, task)
}

// Update handles PUT /api/tasks/:id.
func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("UNAUTHORIZED", "authentication required"))
		return
	}
	taskID, err := pathID(c)
	if err != nil {
		c.Error(apperrors.NewBadRequestError("INVALID_TASK_ID", "task id must be a positive integer"))
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequestError("INVALID_REQUEST", err.Error()))
		return
	}
	update, err := req.toModel()
	if err != nil {
		c.Error(apperrors.NewBadRequestError("INVALID_DUE_DATE", "due_date must be RFC 3339"))
		return
	}

	task, err := h.tasks.Update(userID, taskID, update)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTaskNotFound):
			c.Error(apperrors.NewNotFoundError("TASK_NOT_FOUND", "no such task"))
		case errors.Is(err, service.ErrCategoryNotFound):
			c.Error(apperrors.NewBadRequestError("CATEGORY_NOT_FOUND", "no such category"))
		default:
			c.Error(apperrors.NewInternalServerError("UPDATE_FAILED", "could not update task"))
		}
		return
	}
	c.JSON(http.StatusOK, task)
}

// Delete handles DELETE /api/tasks/:id.
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("UNAUTHORIZED", "authentication required"))
		return
	}
	taskID, err := pathID(c)
	if err != nil {
		c.Error(apperrors.NewBadRequestError("INVALID_TASK_ID", "task id must be a positive integer"))
		return
	}

	if err := h.tasks.Delete(userID, taskID); err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			c.Error(apperrors.NewNotFoundError("TASK_NOT_FOUND", "no such task"))
			return
		}
		c.Error(apperrors.NewInternalServerError("DELETE_FAILED", "could not delete task"))
		return
	}
	c.Status(http.StatusNoContent)
}

func parseRFC3339(value string) (*time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func pathID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
