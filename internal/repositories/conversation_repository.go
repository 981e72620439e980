package repositories

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/huddle/client/internal/models"
)

// Participant roles.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// NewMessage is the input of SendMessage.
type NewMessage struct {
	Content  string
	Type     models.MessageType
	FileURL  string
	FileName string
}

// ConversationRepository defines data access for conversations and their messages.
type ConversationRepository interface {
	CreateConversation(ctx context.Context, creatorID uint, name string, kind models.ConversationType, participantIDs []uint) (models.Conversation, error)
	Conversations(ctx context.Context, userID uint) ([]models.Conversation, error)
	Conversation(ctx context.Context, userID, conversationID uint) (models.Conversation, error)
	Messages(ctx context.Context, userID, conversationID uint, limit, offset int) (models.MessageList, error)
	SendMessage(ctx context.Context, userID, conversationID uint, msg NewMessage) (models.Message, error)
}

var _ ConversationRepository = (*Memory)(nil)

// CreateConversation starts a conversation owned by creatorID. The creator is
// always a participant; a direct conversation has exactly one other.
func (m *Memory) CreateConversation(_ context.Context, creatorID uint, name string, kind models.ConversationType, participantIDs []uint) (models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := []uint{creatorID}
	for _, id := range participantIDs {
		if _, ok := m.users[id]; !ok {
			return models.Conversation{}, ErrUserNotFound
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	if kind == models.ConversationDirect && len(ids) != 2 {
		return models.Conversation{}, ErrInvalidParticipants
	}

	now := m.now()
	rec := &conversationRecord{
		conv: models.Conversation{
			ID:        m.idLocked("conversation"),
			Name:      strings.TrimSpace(name),
			Type:      kind,
			CreatedBy: creatorID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		lastRead: make(map[uint]uint),
	}
	for _, id := range ids {
		role := RoleMember
		if id == creatorID {
			role = RoleOwner
		}
		rec.participants = append(rec.participants, models.Participant{
			UserID:   id,
			User:     m.userLocked(id),
			Role:     role,
			JoinedAt: now,
		})
	}
	m.conversations[rec.conv.ID] = rec
	return m.conversationLocked(rec, creatorID), nil
}

// Conversations lists the conversations of userID, most recently active first.
func (m *Memory) Conversations(_ context.Context, userID uint) ([]models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.Conversation{}
	for _, rec := range m.conversations {
		if rec.hasParticipant(userID) {
			out = append(out, m.conversationLocked(rec, userID))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Conversation returns one conversation. Conversations userID is not part of
// are reported as missing.
func (m *Memory) Conversation(_ context.Context, userID, conversationID uint) (models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.conversations[conversationID]
	if !ok || !rec.hasParticipant(userID) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return m.conversationLocked(rec, userID), nil
}

// Messages returns up to limit messages in chronological order, skipping the
// offset most recent ones, and marks the conversation read for userID.
func (m *Memory) Messages(_ context.Context, userID, conversationID uint, limit, offset int) (models.MessageList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.conversations[conversationID]
	if !ok || !rec.hasParticipant(userID) {
		return models.MessageList{}, ErrConversationNotFound
	}

	all := m.messages[conversationID]
	if n := len(all); n > 0 {
		rec.lastRead[userID] = all[n-1].ID
	}

	end := max(len(all)-max(offset, 0), 0)
	start := 0
	if limit > 0 {
		start = max(end-limit, 0)
	}
	page := make([]models.Message, 0, end-start)
	for _, msg := range all[start:end] {
		msg.Sender = m.userLocked(msg.SenderID)
		page = append(page, msg)
	}
	return models.MessageList{Messages: page, Total: len(all)}, nil
}

// SendMessage appends a message from userID.
func (m *Memory) SendMessage(_ context.Context, userID, conversationID uint, in NewMessage) (models.Message, error) {
	if strings.TrimSpace(in.Content) == "" {
		return models.Message{}, ErrEmptyMessage
	}
	if in.Type == "" {
		in.Type = models.MessageText
	}
	if !in.Type.Valid() {
		return models.Message{}, ErrUnsupportedMessageType
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.conversations[conversationID]
	if !ok || !rec.hasParticipant(userID) {
		return models.Message{}, ErrConversationNotFound
	}

	now := m.now()
	msg := models.Message{
		ID:             m.idLocked("message"),
		ConversationID: conversationID,
		Content:        in.Content,
		Type:           in.Type,
		SenderID:       userID,
		Sender:         m.userLocked(userID),
		FileURL:        in.FileURL,
		FileName:       in.FileName,
		CreatedAt:      now,
	}
	m.messages[conversationID] = append(m.messages[conversationID], msg)
	rec.lastRead[userID] = msg.ID
	rec.conv.UpdatedAt = now
	return msg, nil
}

func (m *Memory) conversationLocked(rec *conversationRecord, viewerID uint) models.Conversation {
	conv := rec.conv
	conv.Participants = make([]models.Participant, len(rec.participants))
	for i, p := range rec.participants {
		p.User = m.userLocked(p.UserID)
		conv.Participants[i] = p
	}

	msgs := m.messages[rec.conv.ID]
	if n := len(msgs); n > 0 {
		last := msgs[n-1]
		last.Sender = m.userLocked(last.SenderID)
		conv.LastMessage = &last
	}
	read := rec.lastRead[viewerID]
	for _, msg := range msgs {
		if msg.ID > read && msg.SenderID != viewerID {
			conv.UnreadCount++
		}
	}
	return conv
}

func (c *conversationRecord) hasParticipant(userID uint) bool {
	for _, p := range c.participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}
