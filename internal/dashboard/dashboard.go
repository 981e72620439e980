package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/huddle/client/internal/models"
)

// Tab is a dashboard section.
type Tab string

const (
	TabChats   Tab = "chats"
	TabFriends Tab = "friends"
	TabProfile Tab = "profile"
)

var (
	// ErrEmptyMessage rejects blank message content.
	ErrEmptyMessage = errors.New("message content is empty")
	// ErrNoConversation is returned when sending without a selection.
	ErrNoConversation = errors.New("no conversation selected")
	// ErrUnknownTab rejects tabs other than chats, friends and profile.
	ErrUnknownTab = errors.New("unknown tab")
)

// Dashboard holds the local state of the signed-in view: the active tab,
// the conversation list and the messages of the selected conversation.
type Dashboard struct {
	chat ChatService

	mu            sync.RWMutex
	tab           Tab
	conversations []models.Conversation
	selected      *models.Conversation
	messages      []models.Message
}

// New returns a Dashboard on the chats tab.
func New(chat ChatService) *Dashboard {
	return &Dashboard{chat: chat, tab: TabChats}
}

// Tab returns the active tab.
func (d *Dashboard) Tab() Tab {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tab
}

// SetTab switches the active tab.
func (d *Dashboard) SetTab(tab Tab) error {
	switch tab {
	case TabChats, TabFriends, TabProfile:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTab, tab)
	}
	d.mu.Lock()
	d.tab = tab
	d.mu.Unlock()
	return nil
}

// Load fetches the conversation list.
func (d *Dashboard) Load(ctx context.Context) ([]models.Conversation, error) {
	conversations, err := d.chat.Conversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load conversations: %w", err)
	}
	d.mu.Lock()
	d.conversations = conversations
	d.mu.Unlock()
	return cloneConversations(conversations), nil
}

// Conversations returns the loaded conversations whose name contains query,
// ignoring case. An empty query returns all of them.
func (d *Dashboard) Conversations(query string) []models.Conversation {
	d.mu.RLock()
	defer d.mu.RUnlock()
	query = strings.ToLower(strings.TrimSpace(query))
	var out []models.Conversation
	for _, conv := range d.conversations {
		if query == "" || strings.Contains(strings.ToLower(conv.Name), query) {
			out = append(out, conv)
		}
	}
	return cloneConversations(out)
}

// Select opens a conversation, loads its messages and marks it read.
func (d *Dashboard) Select(ctx context.Context, conversationID uint) ([]models.Message, error) {
	messages, err := d.chat.Messages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.indexLocked(conversationID)
	var conv models.Conversation
	if idx >= 0 {
		d.conversations[idx].UnreadCount = 0
		conv = d.conversations[idx]
	} else {
		conv = models.Conversation{ID: conversationID}
	}
	d.selected = &conv
	d.tab = TabChats
	d.messages = messages
	return append([]models.Message(nil), messages...), nil
}

// Selected returns the open conversation, or nil.
func (d *Dashboard) Selected() *models.Conversation {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.selected == nil {
		return nil
	}
	conv := *d.selected
	return &conv
}

// Messages returns the messages of the open conversation.
func (d *Dashboard) Messages() []models.Message {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]models.Message(nil), d.messages...)
}

// Send posts content to the open conversation and records it locally.
func (d *Dashboard) Send(ctx context.Context, content string, kind models.MessageType) (models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Message{}, ErrEmptyMessage
	}
	if kind == "" {
		kind = models.MessageText
	}
	if !kind.Valid() {
		return models.Message{}, fmt.Errorf("unsupported message type %q", kind)
	}

	d.mu.RLock()
	selected := d.selected
	d.mu.RUnlock()
	if selected == nil {
		return models.Message{}, ErrNoConversation
	}

	msg, err := d.chat.Send(ctx, selected.ID, content, kind)
	if err != nil {
		return models.Message{}, fmt.Errorf("send message: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	// The selection may have changed while the message was in flight.
	if d.selected != nil && d.selected.ID == selected.ID {
		d.messages = append(d.messages, msg)
		last := msg
		d.selected.LastMessage = &last
	}
	if idx := d.indexLocked(selected.ID); idx >= 0 {
		last := msg
		d.conversations[idx].LastMessage = &last
	}
	return msg, nil
}

func (d *Dashboard) indexLocked(id uint) int {
	for i, conv := range d.conversations {
		if conv.ID == id {
			return i
		}
	}
	return -1
}

func cloneConversations(in []models.Conversation) []models.Conversation {
	return append([]models.Conversation(nil), in...)
}
