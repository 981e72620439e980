package handlers

import (
	"net/http"
	"strings"

	"github.com/huddle/client/internal/api"
	"github.com/huddle/client/internal/middleware"
	"github.com/huddle/client/internal/models"
)

// FriendHandler provides the friend request, friendship and block endpoints.
type FriendHandler struct {
	Friends FriendStore
}

type sendRequestBody struct {
	ReceiverID uint   `json:"receiver_id"`
	Message    string `json:"message"`
}

type respondRequestBody struct {
	RequestID uint   `json:"request_id"`
	Action    string `json:"action"`
}

type blockBody struct {
	UserID uint   `json:"user_id"`
	Reason string `json:"reason"`
}

// SendRequest handles POST /friends/requests.
func (h FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body sendRequestBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.ReceiverID == 0 {
		respondError(ctx, w, http.StatusBadRequest, CodeValidation, "receiver_id is required")
		return
	}

	req, err := h.Friends.SendFriendRequest(ctx, middleware.UserIDFromContext(ctx), body.ReceiverID, strings.TrimSpace(body.Message))
	if err != nil {
		respondFailure(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusCreated, req, "Friend request sent successfully")
}

// Incoming handles GET /friends/requests.
func (h FriendHandler) Incoming(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqs, err := h.Friends.IncomingRequests(ctx, middleware.UserIDFromContext(ctx))
	if err != nil {
		respondFailure(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, models.FriendRequestList{Requests: reqs, Total: len(reqs)}, "")
}

// Sent handles GET /friends/requests/sent.
func (h FriendHandler) Sent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqs, err := h.Friends.SentRequests(ctx, middleware.UserIDFromContext(ctx))
	if err != nil {
		respondFailure(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, models.FriendRequestList{Requests: reqs, Total: len(reqs)}, "")
}

// Respond handles POST /friends/requests/respond.
func (h FriendHandler) Respond(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body respondRequestBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.RequestID == 0 {
		respondError(ctx, w, http.StatusBadRequest, CodeValidation, "request_id is required")
		return
	}
	if body.Action != api.ActionAccept && body.Action != api.ActionReject {
		respondError(ctx, w, http.StatusBadRequest, CodeValidation, "action must be accept or reject")
		return
	}

	req, err := h.Friends.RespondFriendRequest(ctx, middleware.UserIDFromContext(ctx), body.RequestID, body.Action == api.ActionAccept)
	if err != nil {
		respondFailure(ctx, w, err)
		return
	}
	message := "Friend request rejected"
	if body.Action == api.ActionAccept {
		message = "Friend request accepted"
	}
	respondSuccess(ctx, w, http.StatusOK, req, message)
}

// Cancel handles DELETE /friends/requests/{id}.
func (h FriendHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Friends.CancelFriendRequest(ctx, middleware.UserIDFromContext(ctx), id); err != nil {
		respondFailure(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, nil, "Friend request cancelled")
}

// List handles GET /friends/.
func (h FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	friends, err := h.Friends.Friends(ctx, middleware.UserIDFromContext(ctx))
	if err != nil {
		respondFailure(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, models.FriendList{Friends: friends, Total: len(friends)}, "")
}

// Remove handles DELETE /friends/{id}.
func (h FriendHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Friends.RemoveFriend(ctx, middleware.UserIDFromContext(ctx), id); err != nil {
		respondFailure(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, nil, "Friend removed")
}

// Check handles GET /friends/check/{id}.
func (h FriendHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	are, err := h.Friends.AreFriends(ctx, middleware.UserIDFromContext(ctx), id)
	if err != nil {
		respondFailure(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, map[string]bool{"are_friends": are}, "")
}

// Block handles POST /friends/block.
func (h FriendHandler) Block(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body blockBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.UserID == 0 {
		respondError(ctx, w, http.StatusBadRequest, CodeValidation, "user_id is required")
		return
	}

	blocked, err := h.Friends.Block(ctx, middleware.UserIDFromContext(ctx), body.UserID, strings.TrimSpace(body.Reason))
	if err != nil {
		respondFailure(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusCreated, blocked, "User blocked successfully")
}

// Unblock handles DELETE /friends/block/{id}.
func (h FriendHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Friends.Unblock(ctx, middleware.UserIDFromContext(ctx), id); err != nil {
		respondFailure(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, nil, "User unblocked successfully")
}

// Blocked handles GET /friends/blocked.
func (h FriendHandler) Blocked(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	blocked, err := h.Friends.BlockedUsers(ctx, middleware.UserIDFromContext(ctx))
	if err != nil {
		respondFailure(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, models.BlockedUserList{BlockedUsers: blocked, Total: len(blocked)}, "")
}

// CheckBlocked handles GET /friends/blocked/check/{id}.
func (h FriendHandler) CheckBlocked(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	blocked, err := h.Friends.IsBlocked(ctx, middleware.UserIDFromContext(ctx), id)
	if err != nil {
		respondFailure(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, map[string]bool{"is_blocked": blocked}, "")
}
