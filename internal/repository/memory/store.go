// Package memory provides an in-memory implementation of the repository
// interfaces. It honours the same invariants as the PostgreSQL backend
// (pair-key uniqueness, atomic append + recency update) and backs the
// service and handler tests.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"taskmanager/backend/internal/models"
	"taskmanager/backend/internal/repository"
)

// Store holds all chat state behind a single mutex. Coarse, but the point of
// this backend is correctness under concurrent access, not throughput.
type Store struct {
	mu sync.Mutex

	users         map[uint]*models.User
	conversations map[uint]*models.Conversation
	participants  []models.Participant
	messages      []models.Message
	pairIndex     map[string]uint // pair key -> conversation id

	nextUserID         uint
	nextConversationID uint
	nextParticipantID  uint
	nextMessageID      uint
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:              make(map[uint]*models.User),
		conversations:      make(map[uint]*models.Conversation),
		pairIndex:          make(map[string]uint),
		nextUserID:         1,
		nextConversationID: 1,
		nextParticipantID:  1,
		nextMessageID:      1,
	}
}

// Users returns the store as a UserRepository.
func (s *Store) Users() repository.UserRepository { return (*userRepo)(s) }

// Conversations returns the store as a ConversationRepository.
func (s *Store) Conversations() repository.ConversationRepository { return (*conversationRepo)(s) }

// Messages returns the store as a MessageRepository.
func (s *Store) Messages() repository.MessageRepository { return (*messageRepo)(s) }

type userRepo Store

func (r *userRepo) Create(user *models.User) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username || (user.Email != "" && existing.Email == user.Email) {
			return repository.ErrDuplicateKey
		}
	}

	// Mirrors the BeforeCreate gorm hook
	hashed, err := models.HashPassword(user.Password)
	if err != nil {
		return err
	}
	user.Password = hashed

	user.ID = s.nextUserID
	s.nextUserID++
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	s.users[user.ID] = &stored
	return nil
}

func (r *userRepo) GetByID(id uint) (*models.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *user
	return &out, nil
}

func (r *userRepo) GetByUsername(username string) (*models.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Username == username {
			out := *user
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) Search(query string, excludeID uint) ([]models.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(query)
	var out []models.User
	for _, user := range s.users {
		if user.ID == excludeID {
			continue
		}
		if strings.Contains(strings.ToLower(user.Username), q) ||
			strings.Contains(strings.ToLower(user.Alias), q) {
			out = append(out, *user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

type conversationRepo Store

func (r *conversationRepo) ListByUser(userID uint) ([]models.Conversation, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Conversation
	for _, p := range s.participants {
		if p.UserID == userID {
			out = append(out, s.snapshotLocked(p.ConversationID))
		}
	}

	// last_message_at descending, never-messaged conversations last
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].LastMessageAt, out[j].LastMessageAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return out, nil
}

func (r *conversationRepo) GetByID(id uint) (*models.Conversation, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return nil, repository.ErrNotFound
	}
	conv := s.snapshotLocked(id)
	return &conv, nil
}

func (r *conversationRepo) FindPrivateByPair(userA, userB uint) (*models.Conversation, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.pairIndex[models.PrivatePairKey(userA, userB)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	conv := s.snapshotLocked(id)
	return &conv, nil
}

func (r *conversationRepo) CreatePrivate(conv *models.Conversation) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv.PairKey != nil {
		if _, exists := s.pairIndex[*conv.PairKey]; exists {
			return repository.ErrDuplicateKey
		}
	}

	conv.ID = s.nextConversationID
	s.nextConversationID++
	now := time.Now()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	stored := *conv
	stored.Participants = nil
	s.conversations[conv.ID] = &stored

	for i := range conv.Participants {
		p := conv.Participants[i]
		p.ID = s.nextParticipantID
		s.nextParticipantID++
		p.ConversationID = conv.ID
		p.JoinedAt = now
		s.participants = append(s.participants, p)
		conv.Participants[i] = p
	}

	if conv.PairKey != nil {
		s.pairIndex[*conv.PairKey] = conv.ID
	}
	return nil
}

func (r *conversationRepo) IsParticipant(conversationID, userID uint) (bool, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.isParticipantLocked(conversationID, userID), nil
}

type messageRepo Store

func (r *messageRepo) Append(msg *models.Message) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[msg.ConversationID]
	if !ok {
		return repository.ErrNotFound
	}

	msg.ID = s.nextMessageID
	s.nextMessageID++

	stored := *msg
	stored.Sender = models.User{}
	s.messages = append(s.messages, stored)

	// Appends entering here out of timestamp order must not roll the recency
	// marker backwards.
	if conv.LastMessageAt == nil || conv.LastMessageAt.Before(msg.Timestamp) {
		ts := msg.Timestamp
		conv.LastMessageAt = &ts
	}
	return nil
}

func (r *messageRepo) ListByConversation(conversationID uint) ([]models.Message, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Message
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			if sender, ok := s.users[m.SenderID]; ok {
				m.Sender = *sender
			}
			out = append(out, m)
		}
	}

	// Insertion order already matches (timestamp, id); keep the sort to stay
	// faithful to the SQL contract.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// snapshotLocked deep-copies a conversation with participants and their users.
func (s *Store) snapshotLocked(id uint) models.Conversation {
	conv := *s.conversations[id]
	conv.Participants = nil
	for _, p := range s.participants {
		if p.ConversationID == id {
			if user, ok := s.users[p.UserID]; ok {
				p.User = *user
			}
			conv.Participants = append(conv.Participants, p)
		}
	}
	return conv
}

func (s *Store) isParticipantLocked(conversationID, userID uint) bool {
	for _, p := range s.participants {
		if p.ConversationID == conversationID && p.UserID == userID {
			return true
		}
	}
	return false
}
