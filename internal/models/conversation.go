package models

import (
	"fmt"
	"time"
)

// ConversationType distinguishes private (two-party) from group threads.
type ConversationType string

const (
	ConversationPrivate ConversationType = "PRIVATE"
	ConversationGroup   ConversationType = "GROUP"
)

// Conversation is a thread of messages between two or more users.
//
// PairKey is the canonical "min:max" encoding of the two participant IDs of a
// private conversation. The unique index on it is what guarantees at most one
// private conversation per unordered user pair, even when two connections race
// on find-or-create. It stays NULL for group conversations.
type Conversation struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	Type          ConversationType `gorm:"not null" json:"type"`
	PairKey       *string          `gorm:"uniqueIndex" json:"-"`
	LastMessageAt *time.Time       `json:"last_message_at,omitempty"`
	Participants  []Participant    `gorm:"constraint:OnDelete:CASCADE" json:"participants,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Participant is the membership edge between a user and a conversation.
type Participant struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;uniqueIndex:idx_participant_conv_user" json:"conversation_id"`
	UserID         uint      `gorm:"not null;uniqueIndex:idx_participant_conv_user" json:"user_id"`
	User           User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	JoinedAt       time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// PrivatePairKey canonicalizes an unordered user pair so that (a,b) and (b,a)
// map to the same key.
func PrivatePairKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// ConversationSummary is the presentation-facing descriptor of a conversation
// as seen by one participant.
type ConversationSummary struct {
	ID            uint       `json:"id"`
	Name          string     `json:"name"`
	Type          string     `json:"type"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
	OtherUserID   uint       `json:"otherUserId,omitempty"`
}
