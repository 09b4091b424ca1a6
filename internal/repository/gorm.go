package repository

import (
	"errors"
	"strings"

	"taskmanager/backend/internal/models"

	"gorm.io/gorm"
)

// GormUserRepository is the PostgreSQL-backed user repository.
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) Create(user *models.User) error {
	if err := r.db.Create(user).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *GormUserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *GormUserRepository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *GormUserRepository) Search(query string, excludeID uint) ([]models.User, error) {
	var users []models.User
	pattern := "%" + strings.ToLower(query) + "%"
	err := r.db.
		Where("id <> ?", excludeID).
		Where("LOWER(username) LIKE ? OR LOWER(alias) LIKE ?", pattern, pattern).
		Order("username").
		Limit(20).
		Find(&users).Error
	return users, err
}

// GormConversationRepository is the PostgreSQL-backed conversation directory.
type GormConversationRepository struct {
	db *gorm.DB
}

func NewGormConversationRepository(db *gorm.DB) *GormConversationRepository {
	return &GormConversationRepository{db: db}
}

func (r *GormConversationRepository) ListByUser(userID uint) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.
		Joins("JOIN participants ON participants.conversation_id = conversations.id").
		Where("participants.user_id = ?", userID).
		Preload("Participants").
		Preload("Participants.User").
		Order("conversations.last_message_at DESC NULLS LAST").
		Find(&convs).Error
	return convs, err
}

func (r *GormConversationRepository) GetByID(id uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.
		Preload("Participants").
		Preload("Participants.User").
		First(&conv, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}

func (r *GormConversationRepository) FindPrivateByPair(userA, userB uint) (*models.Conversation, error) {
	pairKey := models.PrivatePairKey(userA, userB)

	var conv models.Conversation
	err := r.db.
		Preload("Participants").
		Preload("Participants.User").
		Where("pair_key = ?", pairKey).
		First(&conv).Error
	if err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}

func (r *GormConversationRepository) CreatePrivate(conv *models.Conversation) error {
	// gorm inserts the conversation row and its participant rows in a single
	// transaction; the unique index on pair_key arbitrates concurrent creators.
	if err := r.db.Create(conv).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *GormConversationRepository) IsParticipant(conversationID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Participant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	return count > 0, err
}

// GormMessageRepository is the PostgreSQL-backed message log.
type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Append(msg *models.Message) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return translate(err)
		}
		// Concurrent appends may commit in either order; GREATEST keeps the
		// recency marker at the newest message (NULL is ignored by GREATEST).
		return tx.Model(&models.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Update("last_message_at", gorm.Expr("GREATEST(last_message_at, ?)", msg.Timestamp)).Error
	})
}

func (r *GormMessageRepository) ListByConversation(conversationID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.
		Preload("Sender").
		Where("conversation_id = ?", conversationID).
		Order("timestamp ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

// translate maps gorm errors onto the repository sentinels.
func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateKey
	default:
		return err
	}
}
