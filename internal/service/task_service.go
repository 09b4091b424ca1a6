package service

import (
	"errors"
	"math"

	"gorm.io/gorm"

	"taskmanager/backend/internal/models"
	"taskmanager/backend/pkg/logger"
)

var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrCategoryNotFound = errors.New("category not found")
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// sortColumns whitelists the task columns callers may sort by. Anything else
// falls back to created_at.
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"dueDate":   "due_date",
	"title":     "title",
	"status":    "status",
}

// TaskService owns the task CRUD surface. Every operation is scoped to the
// owning user; a task that exists but belongs to someone else is reported as
// not found rather than forbidden.
type TaskService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewTaskService wires the task service to the database.
func NewTaskService(db *gorm.DB, log *logger.Logger) *TaskService {
	return &TaskService{db: db, log: log.WithComponent("task-service")}
}

// Create stores a new task for the user. A category reference, when present,
// must point at one of the user's own categories.
func (s *TaskService) Create(userID uint, task *models.Task) error {
	task.ID = 0
	task.UserID = userID
	if task.Status == "" {
		task.Status = models.TaskTodo
	}
	if err := s.checkCategory(userID, task.CategoryID); err != nil {
		return err
	}
	return s.db.Create(task).Error
}

// Get returns one of the user's tasks.
func (s *TaskService) Get(userID, taskID uint) (*models.Task, error) {
	var task models.Task
	err := s.db.Where("id = ? AND user_id = ?", taskID, userID).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Update replaces the mutable fields of one of the user's tasks.
func (s *TaskService) Update(userID, taskID uint, update *models.Task) (*models.Task, error) {
	task, err := s.Get(userID, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.checkCategory(userID, update.CategoryID); err != nil {
		return nil, err
	}

	task.Title = update.Title
	task.Description = update.Description
	if update.Status != "" {
		task.Status = update.Status
	}
	task.DueDate = update.DueDate
	task.CategoryID = update.CategoryID

	if err := s.db.Save(task).Error; err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes one of the user's tasks.
func (s *TaskService) Delete(userID, taskID uint) error {
	res := s.db.Where("id = ? AND user_id = ?", taskID, userID).Delete(&models.Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// List returns one page of the user's tasks, filtered and sorted.
func (s *TaskService) List(userID uint, filter *models.TaskFilter) (*models.TaskPage, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.Size
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	q := s.db.Model(&models.Task{}).Where("user_id = ?", userID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.CategoryID != nil {
		q = q.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Keyword != "" {
		pattern := "%" + filter.Keyword + "%"
		q = q.Where("title ILIKE ? OR description ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if filter.SortDir == "desc" || (filter.SortBy == "" && filter.SortDir == "") {
		direction = "DESC"
	}

	var tasks []models.Task
	err := q.Order(column + " " + direction).
		Offset((page - 1) * size).
		Limit(size).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}

	return &models.TaskPage{
		Items:      tasks,
		Page:       page,
		Size:       size,
		TotalItems: total,
		TotalPages: int(math.Ceil(float64(total) / float64(size))),
	}, nil
}

func (s *TaskService) checkCategory(userID uint, categoryID *uint) error {
	if categoryID == nil {
		return nil
	}
	var count int64
	err := s.db.Model(&models.Category{}).
		Where("id = ? AND user_id = ?", *categoryID, userID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
