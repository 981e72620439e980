package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/huddle/client/internal/httpclient"
	"github.com/huddle/client/internal/models"
)

// DefaultMessagePage is the number of messages fetched when no limit is given.
const DefaultMessagePage = 50

// CreateConversationRequest is the payload of POST /conversations/.
type CreateConversationRequest struct {
	Name           string                  `json:"name"`
	Type           models.ConversationType `json:"type"`
	ParticipantIDs []uint                  `json:"participant_ids"`
}

// SendMessageRequest is the payload of POST /conversations/{id}/messages/.
type SendMessageRequest struct {
	Content  string             `json:"content"`
	Type     models.MessageType `json:"message_type"`
	FileURL  string             `json:"file_url,omitempty"`
	FileName string             `json:"file_name,omitempty"`
}

// ConversationAPI wraps the /conversations endpoints.
type ConversationAPI struct {
	doer Doer
}

// NewConversationAPI constructs a ConversationAPI.
func NewConversationAPI(doer Doer) *ConversationAPI {
	return &ConversationAPI{doer: doer}
}

// List returns the conversations the current user participates in.
func (c *ConversationAPI) List(ctx context.Context) (models.ConversationList, error) {
	var list models.ConversationList
	if err := c.doer.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/conversations/"}, &list); err != nil {
		return models.ConversationList{}, fmt.Errorf("list conversations: %w", err)
	}
	return list, nil
}

// Get returns one conversation.
func (c *ConversationAPI) Get(ctx context.Context, id uint) (models.Conversation, error) {
	var conv models.Conversation
	if err := c.doer.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/conversations/" + idPath(id)}, &conv); err != nil {
		return models.Conversation{}, fmt.Errorf("get conversation %d: %w", id, err)
	}
	return conv, nil
}

// Create starts a conversation with the given participants.
func (c *ConversationAPI) Create(ctx context.Context, req CreateConversationRequest) (models.Conversation, error) {
	if strings.TrimSpace(req.Name) == "" || len(req.ParticipantIDs) == 0 {
		return models.Conversation{}, fmt.Errorf("create conversation: %w: name and participants are required", ErrInvalidArgument)
	}
	if req.Type != models.ConversationDirect && req.Type != models.ConversationGroup {
		return models.Conversation{}, fmt.Errorf("create conversation: %w: unknown type %q", ErrInvalidArgument, req.Type)
	}

	var conv models.Conversation
	if err := c.doer.Do(ctx, httpclient.Request{Method: http.MethodPost, Path: "/conversations/", Body: req}, &conv); err != nil {
		return models.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// Messages returns a page of messages. A non-positive limit uses DefaultMessagePage.
func (c *ConversationAPI) Messages(ctx context.Context, id uint, limit, offset int) (models.MessageList, error) {
	if limit <= 0 {
		limit = DefaultMessagePage
	}
	if offset < 0 {
		offset = 0
	}
	params := url.Values{
		"limit":  []string{strconv.Itoa(limit)},
		"offset": []string{strconv.Itoa(offset)},
	}

	var list models.MessageList
	if err := c.doer.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: messagesPath(id), Query: params}, &list); err != nil {
		return models.MessageList{}, fmt.Errorf("list messages: %w", err)
	}
	return list, nil
}

// Send posts a message to a conversation.
func (c *ConversationAPI) Send(ctx context.Context, id uint, req SendMessageRequest) (models.Message, error) {
	if strings.TrimSpace(req.Content) == "" {
		return models.Message{}, fmt.Errorf("send message: %w: empty content", ErrInvalidArgument)
	}
	if !req.Type.Valid() {
		return models.Message{}, fmt.Errorf("send message: %w: unknown type %q", ErrInvalidArgument, req.Type)
	}

	var msg models.Message
	if err := c.doer.Do(ctx, httpclient.Request{Method: http.MethodPost, Path: messagesPath(id), Body: req}, &msg); err != nil {
		return models.Message{}, fmt.Errorf("send message: %w", err)
	}
	return msg, nil
}

func messagesPath(id uint) string {
	return "/conversations/" + idPath(id) + "/messages/"
}
