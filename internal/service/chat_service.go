package service

import (
	"errors"
	"strings"
	"time"

	"taskmanager/backend/internal/models"
	"taskmanager/backend/internal/repository"
	"taskmanager/backend/pkg/logger"
)

// Service-level sentinels. Handlers translate these into HTTP / socket error
// shapes; the services themselves stay transport-agnostic.
var (
	ErrNotParticipant       = errors.New("user is not a participant of the conversation")
	ErrEmptyContent         = errors.New("message content is empty")
	ErrUserNotFound         = errors.New("user not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrSelfConversation     = errors.New("cannot open a private conversation with yourself")
)

// ChatService is the conversation directory and message log rolled into one
// service: listing, idempotent private-conversation creation, participant
// checks, history reads and appends.
type ChatService struct {
	users         repository.UserRepository
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	log           *logger.Logger
}

// NewChatService wires the chat service to its repositories.
func NewChatService(
	users repository.UserRepository,
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	log *logger.Logger,
) *ChatService {
	return &ChatService{
		users:         users,
		conversations: conversations,
		messages:      messages,
		log:           log.WithComponent("chat-service"),
	}
}

// ListConversations returns the viewer's conversations as summaries, most
// recently active first.
func (s *ChatService) ListConversations(viewerID uint) ([]models.ConversationSummary, error) {
	convs, err := s.conversations.ListByUser(viewerID)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.ConversationSummary, 0, len(convs))
	for i := range convs {
		summaries = append(summaries, s.DescribeForViewer(&convs[i], viewerID))
	}
	return summaries, nil
}

// GetOrCreatePrivate returns the private conversation between the viewer and
// the other user, creating it if it does not exist yet. Concurrent calls for
// the same pair all converge on one conversation: the losing writer detects
// the duplicate pair key and re-reads the winner's row.
func (s *ChatService) GetOrCreatePrivate(viewerID, otherID uint) (*models.Conversation, error) {
	if viewerID == otherID {
		return nil, ErrSelfConversation
	}
	if _, err := s.users.GetByID(otherID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if conv, err := s.conversations.FindPrivateByPair(viewerID, otherID); err == nil {
		return conv, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	pairKey := models.PrivatePairKey(viewerID, otherID)
	conv := &models.Conversation{
		Type:    models.ConversationPrivate,
		PairKey: &pairKey,
		Participants: []models.Participant{
			{UserID: viewerID},
			{UserID: otherID},
		},
	}

	err := s.conversations.CreatePrivate(conv)
	if err == nil {
		s.log.Info("private conversation created",
			"conversation_id", conv.ID, "pair_key", pairKey)
		return conv, nil
	}
	if !errors.Is(err, repository.ErrDuplicateKey) {
		return nil, err
	}

	// Lost the race; the other writer's row is the canonical one.
	return s.conversations.FindPrivateByPair(viewerID, otherID)
}

// Messages returns the full history of a conversation for the viewer,
// ascending by timestamp. The viewer must be a participant.
func (s *ChatService) Messages(conversationID, viewerID uint) ([]models.MessageView, error) {
	if err := s.AssertParticipant(conversationID, viewerID); err != nil {
		return nil, err
	}

	msgs, err := s.messages.ListByConversation(conversationID)
	if err != nil {
		return nil, err
	}

	views := make([]models.MessageView, 0, len(msgs))
	for i := range msgs {
		views = append(views, toView(&msgs[i]))
	}
	return views, nil
}

// Send validates and appends a message to a conversation, returning the
// delivery-ready view. Content must be non-empty after trimming and the
// sender must be a participant; the timestamp is assigned here, never taken
// from the client.
func (s *ChatService) Send(conversationID, senderID uint, content string) (*models.MessageView, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if err := s.AssertParticipant(conversationID, senderID); err != nil {
		return nil, err
	}

	sender, err := s.users.GetByID(senderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Timestamp:      time.Now().UTC(),
	}
	if err := s.messages.Append(msg); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	msg.Sender = *sender

	view := toView(msg)
	return &view, nil
}

// Recipients returns the user IDs of every participant of the conversation.
// The fan-out layer uses this to enumerate delivery targets.
func (s *ChatService) Recipients(conversationID uint) ([]uint, error) {
	conv, err := s.conversations.GetByID(conversationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	ids := make([]uint, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		ids = append(ids, p.UserID)
	}
	return ids, nil
}

// AssertParticipant returns ErrNotParticipant unless the user is a member of
// the conversation, and ErrConversationNotFound for unknown conversations.
func (s *ChatService) AssertParticipant(conversationID, userID uint) error {
	if _, err := s.conversations.GetByID(conversationID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrConversationNotFound
		}
		return err
	}
	ok, err := s.conversations.IsParticipant(conversationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotParticipant
	}
	return nil
}

// DescribeForViewer builds the viewer-relative descriptor: private
// conversations are named after the other participant, group conversations
// keep a generic name.
func (s *ChatService) DescribeForViewer(conv *models.Conversation, viewerID uint) models.ConversationSummary {
	summary := models.ConversationSummary{
		ID:            conv.ID,
		Type:          string(conv.Type),
		LastMessageAt: conv.LastMessageAt,
	}

	if conv.Type == models.ConversationPrivate {
		for i := range conv.Participants {
			p := &conv.Participants[i]
			if p.UserID != viewerID {
				summary.OtherUserID = p.UserID
				summary.Name = p.User.DisplayName()
				break
			}
		}
		if summary.Name == "" {
			summary.Name = "Private conversation"
		}
	} else {
		summary.Name = "Group conversation"
	}
	return summary
}

func toView(msg *models.Message) models.MessageView {
	return models.MessageView{
		ID:             msg.ID,
		Content:        msg.Content,
		SenderID:       msg.SenderID,
		SenderName:     msg.Sender.DisplayName(),
		ConversationID: msg.ConversationID,
		Timestamp:      msg.Timestamp,
	}
}
