package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"taskmanager/backend/internal/models"
	"taskmanager/backend/pkg/cache"
	"taskmanager/backend/pkg/logger"
)

// CategoryService owns category CRUD. Per-user category lists are small and
// read often (every task form renders them), so reads go through the TTL
// cache and writes invalidate it.
type CategoryService struct {
	db    *gorm.DB
	cache *cache.Cache
	log   *logger.Logger
}

// NewCategoryService wires the category service to the database and cache.
func NewCategoryService(db *gorm.DB, c *cache.Cache, log *logger.Logger) *CategoryService {
	return &CategoryService{db: db, cache: c, log: log.WithComponent("category-service")}
}

// List returns all of the user's categories, name ascending.
func (s *CategoryService) List(userID uint) ([]models.Category, error) {
	key := cacheKey(userID)
	if cached, ok := s.cache.Get(key); ok {
		if categories, ok := cached.([]models.Category); ok {
			return categories, nil
		}
	}

	var categories []models.Category
	err := s.db.Where("user_id = ?", userID).Order("name ASC").Find(&categories).Error
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, categories)
	return categories, nil
}

// Create stores a new category for the user.
func (s *CategoryService) Create(userID uint, name string) (*models.Category, error) {
	category := &models.Category{Name: name, UserID: userID}
	if err := s.db.Create(category).Error; err != nil {
		return nil, err
	}
	s.cache.Delete(cacheKey(userID))
	return category, nil
}

// Update renames one of the user's categories.
func (s *CategoryService) Update(userID, categoryID uint, name string) (*models.Category, error) {
	var category models.Category
	err := s.db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}

	category.Name = name
	if err := s.db.Save(&category).Error; err != nil {
		return nil, err
	}
	s.cache.Delete(cacheKey(userID))
	return &category, nil
}

// Delete removes one of the user's categories and unfiles its tasks.
func (s *CategoryService) Delete(userID, categoryID uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", categoryID, userID).Delete(&models.Category{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCategoryNotFound
		}
		return tx.Model(&models.Task{}).
			Where("category_id = ? AND user_id = ?", categoryID, userID).
			Update("category_id", nil).Error
	})
	if err != nil {
		return err
	}
	s.cache.Delete(cacheKey(userID))
	return nil
}

func cacheKey(userID uint) string {
	return fmt.Sprintf("categories:%d", userID)
}
