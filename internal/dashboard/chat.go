package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/huddle/client/internal/api"
	"github.com/huddle/client/internal/models"
)

// ErrConversationNotFound is returned for an unknown conversation id.
var ErrConversationNotFound = errors.New("conversation not found")

// ChatService retrieves conversations and sends messages.
type ChatService interface {
	Conversations(ctx context.Context) ([]models.Conversation, error)
	Messages(ctx context.Context, conversationID uint) ([]models.Message, error)
	Send(ctx context.Context, conversationID uint, content string, kind models.MessageType) (models.Message, error)
}

// APIChat implements ChatService against the backend conversation endpoints.
type APIChat struct {
	conversations *api.ConversationAPI
	pageSize      int
}

// NewAPIChat wraps conversations. pageSize bounds how many messages are loaded.
func NewAPIChat(conversations *api.ConversationAPI, pageSize int) *APIChat {
	return &APIChat{conversations: conversations, pageSize: pageSize}
}

func (c *APIChat) Conversations(ctx context.Context) ([]models.Conversation, error) {
	list, err := c.conversations.List(ctx)
	if err != nil {
		return nil, err
	}
	return list.Conversations, nil
}

func (c *APIChat) Messages(ctx context.Context, conversationID uint) ([]models.Message, error) {
	list, err := c.conversations.Messages(ctx, conversationID, c.pageSize, 0)
	if err != nil {
		return nil, err
	}
	return list.Messages, nil
}

func (c *APIChat) Send(ctx context.Context, conversationID uint, content string, kind models.MessageType) (models.Message, error) {
	return c.conversations.Send(ctx, conversationID, api.SendMessageRequest{Content: content, Type: kind})
}

// MemoryChat is an in-process ChatService for local use and tests.
type MemoryChat struct {
	mu            sync.RWMutex
	sender        models.User
	conversations map[uint]models.Conversation
	messages      map[uint][]models.Message
	nextMessageID uint
	now           func() time.Time
}

// NewMemoryChat returns an empty MemoryChat that sends as sender.
func NewMemoryChat(sender models.User) *MemoryChat {
	return &MemoryChat{
		sender:        sender,
		conversations: make(map[uint]models.Conversation),
		messages:      make(map[uint][]models.Message),
		nextMessageID: 1,
		now:           time.Now,
	}
}

// Add stores conv together with its existing messages.
func (m *MemoryChat) Add(conv models.Conversation, messages ...models.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range messages {
		messages[i].ConversationID = conv.ID
		if messages[i].ID >= m.nextMessageID {
			m.nextMessageID = messages[i].ID + 1
		}
	}
	if n := len(messages); n > 0 && conv.LastMessage == nil {
		last := messages[n-1]
		conv.LastMessage = &last
	}
	m.conversations[conv.ID] = conv
	m.messages[conv.ID] = append([]models.Message(nil), messages...)
}

// Receive appends an incoming message and bumps the unread counter.
func (m *MemoryChat) Receive(conversationID uint, from models.User, content string) (models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[conversationID]
	if !ok {
		return models.Message{}, ErrConversationNotFound
	}
	msg := m.appendLocked(conv, from, content, models.MessageText)
	conv = m.conversations[conversationID]
	conv.UnreadCount++
	m.conversations[conversationID] = conv
	return msg, nil
}

func (m *MemoryChat) Conversations(context.Context) ([]models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Conversation, 0, len(m.conversations))
	for _, conv := range m.conversations {
		out = append(out, conv)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := lastActivity(out[i]), lastActivity(out[j])
		if a.Equal(b) {
			return out[i].ID < out[j].ID
		}
		return a.After(b)
	})
	return out, nil
}

func (m *MemoryChat) Messages(_ context.Context, conversationID uint) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}
	conv.UnreadCount = 0
	m.conversations[conversationID] = conv
	return append([]models.Message(nil), m.messages[conversationID]...), nil
}

func (m *MemoryChat) Send(_ context.Context, conversationID uint, content string, kind models.MessageType) (models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[conversationID]
	if !ok {
		return models.Message{}, ErrConversationNotFound
	}
	if !kind.Valid() {
		return models.Message{}, fmt.Errorf("unsupported message type %q", kind)
	}
	return m.appendLocked(conv, m.sender, content, kind), nil
}

func (m *MemoryChat) appendLocked(conv models.Conversation, from models.User, content string, kind models.MessageType) models.Message {
	now := m.now()
	msg := models.Message{
		ID:             m.nextMessageID,
		ConversationID: conv.ID,
		Content:        content,
		Type:           kind,
		SenderID:       from.ID,
		Sender:         from,
		CreatedAt:      now,
	}
	m.nextMessageID++
	m.messages[conv.ID] = append(m.messages[conv.ID], msg)

	last := msg
	conv.LastMessage = &last
	conv.UpdatedAt = now
	m.conversations[conv.ID] = conv
	return msg
}

func lastActivity(c models.Conversation) time.Time {
	if c.LastMessage != nil && c.LastMessage.CreatedAt.After(c.UpdatedAt) {
		return c.LastMessage.CreatedAt
	}
	return c.UpdatedAt
}
