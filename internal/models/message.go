package models

import (
	"time"
)

// Message is a single chat message. Rows are append-only: there is no update
// or delete path anywhere in the codebase, and Timestamp is always assigned by
// the server at append time.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;index:idx_messages_conv_ts" json:"conversation_id"`
	SenderID       uint      `gorm:"not null" json:"sender_id"`
	Sender         User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Content        string    `gorm:"not null" json:"content"`
	Timestamp      time.Time `gorm:"not null;index:idx_messages_conv_ts" json:"timestamp"`
}

// MessageView is the wire shape delivered to clients, both over the REST
// history endpoint and on the live delivery channels.
type MessageView struct {
	ID             uint      `json:"id"`
	Content        string    `json:"content"`
	SenderID       uint      `json:"senderId"`
	SenderName     string    `json:"senderName"`
	ConversationID uint      `json:"conversationId"`
	Timestamp      time.Time `json:"timestamp"`
}
