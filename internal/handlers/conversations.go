package handlers

import (
	"net/http"
	"strings"

	"github.com/huddle/client/internal/api"
	"github.com/huddle/client/internal/middleware"
	"github.com/huddle/client/internal/models"
	"github.com/huddle/client/internal/repositories"
)

const maxMessagePage = 100

// ConversationHandler implements the /conversations endpoints.
type ConversationHandler struct {
	Conversations ConversationStore
}

// List handles GET /conversations/.
func (h ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	convs, err := h.Conversations.Conversations(ctx, middleware.UserIDFromContext(ctx))
	if err != nil {
		respondFailure(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, models.ConversationList{Conversations: convs, Total: len(convs)}, "")
}

// Create handles POST /conversations/.
func (h ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.CreateConversationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.ParticipantIDs) == 0 {
		respondError(ctx, w, http.StatusBadRequest, CodeValidation, "participant_ids is required")
		return
	}
	if req.Type == "" {
		req.Type = models.ConversationDirect
	}
	if req.Type != models.ConversationDirect && req.Type != models.ConversationGroup {
		respondError(ctx, w, http.StatusBadRequest, CodeValidation, "type must be direct or group")
		return
	}

	conv, err := h.Conversations.CreateConversation(ctx, middleware.UserIDFromContext(ctx), req.Name, req.Type, req.ParticipantIDs)
	if err != nil {
		respondFailure(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusCreated, conv, "Conversation created successfully")
}

// Get handles GET /conversations/{id}.
func (h ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	conv, err := h.Conversations.Conversation(ctx, middleware.UserIDFromContext(ctx), id)
	if err != nil {
		respondFailure(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, conv, "")
}

// Messages handles GET /conversations/{id}/messages/?limit=&offset=.
func (h ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	limit := queryInt(r, "limit", api.DefaultMessagePage)
	if limit <= 0 || limit > maxMessagePage {
		limit = api.DefaultMessagePage
	}
	offset := max(queryInt(r, "offset", 0), 0)

	list, err := h.Conversations.Messages(ctx, middleware.UserIDFromContext(ctx), id, limit, offset)
	if err != nil {
		respondFailure(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, list, "")
}

// Send handles POST /conversations/{id}/messages/.
func (h ConversationHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req api.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		respondError(ctx, w, http.StatusBadRequest, CodeValidation, repositories.ErrEmptyMessage.Error())
		return
	}

	msg, err := h.Conversations.SendMessage(ctx, middleware.UserIDFromContext(ctx), id, repositories.NewMessage{
		Content:  req.Content,
		Type:     req.Type,
		FileURL:  req.FileURL,
		FileName: req.FileName,
	})
	if err != nil {
		respondFailure(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusCreated, msg, "Message sent successfully")
}
