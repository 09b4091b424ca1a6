package models

import (
	"time"
)

// TaskStatus enumerates the lifecycle states of a task.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "TODO"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskDone       TaskStatus = "DONE"
)

// Task is a user-owned work item, optionally filed under a category.
type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `gorm:"default:TODO" json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CategoryID  *uint      `gorm:"index" json:"category_id,omitempty"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Category groups a user's tasks.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskFilter carries the list-endpoint query parameters.
type TaskFilter struct {
	Status     TaskStatus `form:"status"`
	CategoryID *uint      `form:"categoryId"`
	Keyword    string     `form:"keyword"`
	Page       int        `form:"page"`
	Size       int        `form:"size"`
	SortBy     string     `form:"sortBy"`
	SortDir    string     `form:"sortDir"`
}

// TaskPage is one page of filtered results.
type TaskPage struct {
	Items      []Task `json:"items"`
	Page       int    `json:"page"`
	Size       int    `json:"size"`
	TotalItems int64  `json:"total_items"`
	TotalPages int    `json:"total_pages"`
}
