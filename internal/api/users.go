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

// UpdateUserRequest is the payload of PUT /users/me. Nil fields are left unchanged.
type UpdateUserRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	Avatar      *string `json:"avatar,omitempty"`
	IsPublic    *bool   `json:"is_public,omitempty"`
}

// Empty reports whether no field would be updated.
func (r UpdateUserRequest) Empty() bool {
	return r.DisplayName == nil && r.Bio == nil && r.Avatar == nil && r.IsPublic == nil
}

// UserAPI wraps the /users endpoints.
type UserAPI struct {
	doer Doer
}

// NewUserAPI constructs a UserAPI.
func NewUserAPI(doer Doer) *UserAPI {
	return &UserAPI{doer: doer}
}

// Me returns the authenticated user.
func (u *UserAPI) Me(ctx context.Context) (models.User, error) {
	var user models.User
	if err := u.doer.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/users/me"}, &user); err != nil {
		return models.User{}, fmt.Errorf("get current user: %w", err)
	}
	return user, nil
}

// UpdateMe applies the non-nil fields of req to the authenticated user.
func (u *UserAPI) UpdateMe(ctx context.Context, req UpdateUserRequest) (models.User, error) {
	if req.Empty() {
		return models.User{}, fmt.Errorf("update current user: %w: nothing to update", ErrInvalidArgument)
	}
	var user models.User
	if err := u.doer.Do(ctx, httpclient.Request{Method: http.MethodPut, Path: "/users/me", Body: req}, &user); err != nil {
		return models.User{}, fmt.Errorf("update current user: %w", err)
	}
	return user, nil
}

// Search finds users whose username or display name matches query.
// Zero page and pageSize use the backend defaults.
func (u *UserAPI) Search(ctx context.Context, query string, page, pageSize int) (models.UserSearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.UserSearchResult{}, fmt.Errorf("search users: %w: empty query", ErrInvalidArgument)
	}

	params := url.Values{"q": []string{query}}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		params.Set("page_size", strconv.Itoa(pageSize))
	}

	var result models.UserSearchResult
	if err := u.doer.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/users/search", Query: params}, &result); err != nil {
		return models.UserSearchResult{}, fmt.Errorf("search users: %w", err)
	}
	return result, nil
}

// ByUsername looks up a user by handle.
func (u *UserAPI) ByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	path := "/users/username/" + url.PathEscape(username)
	if err := u.doer.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: path}, &user); err != nil {
		return models.User{}, fmt.Errorf("get user %q: %w", username, err)
	}
	return user, nil
}

// ByID looks up a user by numeric id.
func (u *UserAPI) ByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	path := "/users/" + strconv.FormatUint(uint64(id), 10)
	if err := u.doer.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: path}, &user); err != nil {
		return models.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return user, nil
}
