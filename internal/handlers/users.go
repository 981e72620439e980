package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/huddle/client/internal/api"
	"github.com/huddle/client/internal/middleware"
	"github.com/huddle/client/internal/models"
)

// UserHandler implements the /users endpoints.
type UserHandler struct {
	Users UserStore
}

// Me handles GET /users/me.
func (h UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.Users.UserByID(ctx, middleware.UserIDFromContext(ctx))
	if err != nil {
		respondFailure(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, user, "")
}

// UpdateMe handles PUT /users/me. Only fields present in the body change.
func (h UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Empty() {
		respondError(ctx, w, http.StatusBadRequest, CodeValidation, "nothing to update")
		return
	}
	if req.DisplayName != nil && strings.TrimSpace(*req.DisplayName) == "" {
		respondError(ctx, w, http.StatusBadRequest, CodeValidation, "display name cannot be empty")
		return
	}

	user, err := h.Users.UpdateUser(ctx, middleware.UserIDFromContext(ctx), func(u *models.User) {
		if req.DisplayName != nil {
			u.DisplayName = strings.TrimSpace(*req.DisplayName)
		}
		if req.Bio != nil {
			u.Bio = *req.Bio
		}
		if req.Avatar != nil {
			u.Avatar = *req.Avatar
		}
		if req.IsPublic != nil {
			u.IsPublic = *req.IsPublic
		}
	})
	if err != nil {
		respondFailure(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, user, "Profile updated successfully")
}

// Search handles GET /users/search?q=&page=&page_size=.
func (h UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondError(ctx, w, http.StatusBadRequest, CodeValidation, "search query is required")
		return
	}

	result, err := h.Users.SearchUsers(ctx, query, queryInt(r, "page", 1), queryInt(r, "page_size", 0))
	if err != nil {
		respondFailure(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, result, "")
}

// ByUsername handles GET /users/username/{username}.
func (h UserHandler) ByUsername(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.Users.UserByUsername(ctx, chi.URLParam(r, "username"))
	if err != nil {
		respondFailure(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, user, "")
}

// ByID handles GET /users/{id}.
func (h UserHandler) ByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	user, err := h.Users.UserByID(ctx, id)
	if err != nil {
		respondFailure(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, user, "")
}
