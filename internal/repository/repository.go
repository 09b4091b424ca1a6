package repository

import (
	"errors"

	"taskmanager/backend/internal/models"
)

// Storage-level sentinel errors, shared by every backend so the service layer
// can branch without knowing which implementation is underneath.
var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

// UserRepository owns user rows. The messaging core only reads from it.
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	Search(query string, excludeID uint) ([]models.User, error)
}

// ConversationRepository owns conversation identity and the participant graph.
type ConversationRepository interface {
	// ListByUser returns every conversation the user participates in,
	// participants preloaded, ordered by last_message_at descending with
	// never-messaged conversations last.
	ListByUser(userID uint) ([]models.Conversation, error)

	// GetByID returns a conversation with its participants preloaded.
	GetByID(id uint) (*models.Conversation, error)

	// FindPrivateByPair looks up the private conversation over an unordered
	// user pair. Returns ErrNotFound when none exists.
	FindPrivateByPair(userA, userB uint) (*models.Conversation, error)

	// CreatePrivate persists a private conversation together with its two
	// participant rows in one atomic unit. Returns ErrDuplicateKey when a
	// concurrent caller already created a conversation for the same pair.
	CreatePrivate(conv *models.Conversation) error

	// IsParticipant reports whether the user is a member of the conversation.
	IsParticipant(conversationID, userID uint) (bool, error)
}

// MessageRepository is the append-only message log.
type MessageRepository interface {
	// Append persists the message and updates the owning conversation's
	// last_message_at to the message timestamp, atomically.
	Append(msg *models.Message) error

	// ListByConversation returns the full history ascending by timestamp,
	// ties broken by insertion order, sender preloaded.
	ListByConversation(conversationID uint) ([]models.Message, error)
}
