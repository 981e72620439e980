package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/huddle/client/internal/logging"
	"github.com/huddle/client/internal/repositories"
)

// Error codes carried in failed envelopes.
const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeRateLimit    = "RATE_LIMIT"
	CodeInternal     = "INTERNAL_ERROR"
)

type envelope struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Message   string     `json:"message,omitempty"`
	Error     *errorBody `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func respondSuccess(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	respondJSON(ctx, w, status, envelope{Success: true, Data: data, Message: message, Timestamp: time.Now().UTC()})
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	respondJSON(ctx, w, status, envelope{
		Success:   false,
		Error:     &errorBody{Code: code, Message: message},
		Timestamp: time.Now().UTC(),
	})
}

// respondFailure maps a store error to its status and code. Unknown errors
// are logged and hidden behind a generic message.
func respondFailure(ctx context.Context, w http.ResponseWriter, err error) {
	status, code := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logging.FromContext(ctx).Error("request failed", "error", err)
		message = "internal server error"
	}
	respondError(ctx, w, status, code, message)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, repositories.ErrUsernameTaken),
		errors.Is(err, repositories.ErrEmailTaken),
		errors.Is(err, repositories.ErrAlreadyFriends),
		errors.Is(err, repositories.ErrRequestPending),
		errors.Is(err, repositories.ErrAlreadyBlocked),
		errors.Is(err, repositories.ErrConflict):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, repositories.ErrUserNotFound),
		errors.Is(err, repositories.ErrRequestNotFound),
		errors.Is(err, repositories.ErrFriendshipNotFound),
		errors.Is(err, repositories.ErrNotBlocked),
		errors.Is(err, repositories.ErrConversationNotFound),
		errors.Is(err, repositories.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, repositories.ErrRequestForbidden),
		errors.Is(err, repositories.ErrUserBlocked):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, repositories.ErrSelfAction),
		errors.Is(err, repositories.ErrRequestNotPending),
		errors.Is(err, repositories.ErrInvalidParticipants),
		errors.Is(err, repositories.ErrUnsupportedMessageType),
		errors.Is(err, repositories.ErrEmptyMessage),
		errors.Is(err, repositories.ErrResetTokenInvalid):
		return http.StatusBadRequest, CodeBadRequest
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	if status >= http.StatusBadRequest && status < http.StatusInternalServerError {
		logging.FromContext(ctx).Warn("request returned client error", "status", status, "error", payload.Error.Message)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logging.FromContext(r.Context()).Warn("invalid request payload", "error", err)
		respondError(r.Context(), w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil || id == 0 {
		respondError(r.Context(), w, http.StatusBadRequest, CodeBadRequest, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func queryInt(r *http.Request, name string, fallback int) int {
	value, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return fallback
	}
	return value
}
