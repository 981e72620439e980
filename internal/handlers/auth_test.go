package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/huddle/client/internal/api"
	"github.com/huddle/client/internal/auth"
	"github.com/huddle/client/internal/middleware"
	"github.com/huddle/client/internal/models"
	"github.com/huddle/client/internal/repositories"
)

const testPassword = "Secret1!pass"

type testEnv struct {
	handler  http.Handler
	store    *repositories.Memory
	sessions *auth.InMemorySessionStore
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *errorBody      `json:"error"`
}

func newTestEnv(t *testing.T, limiter middleware.RateLimiter) *testEnv {
	t.Helper()
	store := repositories.NewMemory()
	sessions := auth.NewInMemorySessionStore()
	manager := auth.NewManager("test-secret", time.Minute, time.Hour, sessions)
	handler := NewRouter(Dependencies{
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Users:         store,
		Friends:       store,
		Conversations: store,
		Sessions:      manager,
		AuthLimiter:   limiter,
	})
	return &testEnv{handler: handler, store: store, sessions: sessions}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, testEnvelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var env testEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s %s response %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, env
}

func (e *testEnv) register(t *testing.T, username string) api.AuthResponse {
	t.Helper()
	code, env := e.do(t, http.MethodPost, "/api/auth/register", "", api.RegisterRequest{
		Username:    username,
		Email:       username + "@example.com",
		DisplayName: username,
		Password:    testPassword,
	})
	if code != http.StatusCreated {
		t.Fatalf("register %s: expected 201 got %d (%+v)", username, code, env.Error)
	}
	var resp api.AuthResponse
	decodeData(t, env, &resp)
	return resp
}

func decodeData(t *testing.T, env testEnvelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func TestAuthRegisterLoginRefreshLogout(t *testing.T) {
	env := newTestEnv(t, nil)

	registered := env.register(t, "alice")
	if registered.User.ID == 0 || registered.Tokens.AccessToken == "" || registered.Tokens.RefreshToken == "" {
		t.Fatalf("expected user and tokens, got %+v", registered)
	}
	if registered.Tokens.ExpiresIn != 60 {
		t.Fatalf("expected expires_in 60 got %d", registered.Tokens.ExpiresIn)
	}

	code, resp := env.do(t, http.MethodPost, "/api/auth/login", "", api.LoginRequest{Username: "alice@example.com", Password: testPassword})
	if code != http.StatusOK {
		t.Fatalf("login: expected 200 got %d", code)
	}
	var login api.AuthResponse
	decodeData(t, resp, &login)
	if login.User.Username != "alice" {
		t.Fatalf("expected alice got %q", login.User.Username)
	}

	code, resp = env.do(t, http.MethodPost, "/api/auth/refresh", "", refreshRequest{RefreshToken: login.Tokens.RefreshToken})
	if code != http.StatusOK {
		t.Fatalf("refresh: expected 200 got %d", code)
	}
	var refreshed refreshResponse
	decodeData(t, resp, &refreshed)
	if refreshed.Tokens.RefreshToken == login.Tokens.RefreshToken {
		t.Fatal("expected refresh token rotation")
	}

	code, resp = env.do(t, http.MethodPost, "/api/auth/refresh", "", refreshRequest{RefreshToken: login.Tokens.RefreshToken})
	if code != http.StatusUnauthorized || resp.Error.Message != "token invalid" {
		t.Fatalf("expected rotated token rejected, got %d %+v", code, resp.Error)
	}

	code, _ = env.do(t, http.MethodPost, "/api/auth/logout", "", refreshRequest{RefreshToken: refreshed.Tokens.RefreshToken})
	if code != http.StatusOK {
		t.Fatalf("logout without bearer: expected 200 got %d", code)
	}
	if env.sessions.Has(refreshed.Tokens.RefreshToken) {
		t.Fatal("expected refresh token revoked on logout")
	}
}

func TestAuthRegisterValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "alice")

	cases := []struct {
		name     string
		req      api.RegisterRequest
		wantCode int
		wantMsg  string
	}{
		{name: "username", req: api.RegisterRequest{Username: "a!", Email: "x@example.com", Password: testPassword}, wantCode: http.StatusBadRequest, wantMsg: msgInvalidUsername},
		{name: "email", req: api.RegisterRequest{Username: "bob", Email: "nope", Password: testPassword}, wantCode: http.StatusBadRequest, wantMsg: msgInvalidEmail},
		{name: "password", req: api.RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "short"}, wantCode: http.StatusBadRequest, wantMsg: msgWeakPassword},
		{name: "duplicate username", req: api.RegisterRequest{Username: "ALICE", Email: "other@example.com", Password: testPassword}, wantCode: http.StatusConflict, wantMsg: "username already exists"},
		{name: "duplicate email", req: api.RegisterRequest{Username: "bob", Email: "alice@example.com", Password: testPassword}, wantCode: http.StatusConflict, wantMsg: repositories.ErrEmailTaken.Error()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, resp := env.do(t, http.MethodPost, "/api/auth/register", "", tc.req)
			if code != tc.wantCode {
				t.Fatalf("expected %d got %d", tc.wantCode, code)
			}
			if resp.Success || resp.Error == nil || resp.Error.Message != tc.wantMsg {
				t.Fatalf("expected message %q got %+v", tc.wantMsg, resp.Error)
			}
		})
	}
}

func TestAuthLoginInvalidCredentials(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "alice")

	for _, req := range []api.LoginRequest{
		{Username: "alice", Password: "Wrong1!pass"},
		{Username: "nobody", Password: testPassword},
	} {
		code, resp := env.do(t, http.MethodPost, "/api/auth/login", "", req)
		if code != http.StatusUnauthorized || resp.Error.Code != CodeUnauthorized || resp.Error.Message != msgInvalidCredentials {
			t.Fatalf("login %q: expected invalid credentials, got %d %+v", req.Username, code, resp.Error)
		}
	}
}

func TestAuthLoginRateLimited(t *testing.T) {
	env := newTestEnv(t, middleware.NewIPRateLimiter(1, time.Minute, 1, time.Minute))

	code, _ := env.do(t, http.MethodPost, "/api/auth/login", "", api.LoginRequest{Username: "alice", Password: testPassword})
	if code != http.StatusUnauthorized {
		t.Fatalf("expected first attempt to reach the handler, got %d", code)
	}
	code, resp := env.do(t, http.MethodPost, "/api/auth/login", "", api.LoginRequest{Username: "alice", Password: testPassword})
	if code != http.StatusTooManyRequests || resp.Error.Code != CodeRateLimit {
		t.Fatalf("expected rate limit, got %d %+v", code, resp.Error)
	}
}

func TestAuthPasswordReset(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.register(t, "alice")

	for _, email := range []string{"alice@example.com", "ghost@example.com"} {
		code, resp := env.do(t, http.MethodPost, "/api/auth/forgot-password", "", forgotPasswordRequest{Email: email})
		if code != http.StatusOK || resp.Message != msgResetSent {
			t.Fatalf("forgot %s: expected generic success, got %d %q", email, code, resp.Message)
		}
	}

	ctx := context.Background()
	if err := env.store.SaveResetToken(ctx, alice.User.ID, "reset-token", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save reset token: %v", err)
	}

	code, resp := env.do(t, http.MethodPost, "/api/auth/reset-password", "", resetPasswordRequest{Token: "reset-token", NewPassword: "weak"})
	if code != http.StatusBadRequest || resp.Error.Message != msgWeakPassword {
		t.Fatalf("expected weak password rejection, got %d %+v", code, resp.Error)
	}

	const newPassword = "Fresh2@pass"
	code, _ = env.do(t, http.MethodPost, "/api/auth/reset-password", "", resetPasswordRequest{Token: "reset-token", NewPassword: newPassword})
	if code != http.StatusOK {
		t.Fatalf("reset: expected 200 got %d", code)
	}
	code, _ = env.do(t, http.MethodPost, "/api/auth/reset-password", "", resetPasswordRequest{Token: "reset-token", NewPassword: newPassword})
	if code != http.StatusBadRequest {
		t.Fatalf("expected consumed token rejected, got %d", code)
	}

	code, _ = env.do(t, http.MethodPost, "/api/auth/login", "", api.LoginRequest{Username: "alice", Password: newPassword})
	if code != http.StatusOK {
		t.Fatalf("login with new password: expected 200 got %d", code)
	}
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	env := newTestEnv(t, nil)

	code, resp := env.do(t, http.MethodGet, "/api/users/me", "", nil)
	if code != http.StatusUnauthorized || resp.Error.Message != "authorization header required" {
		t.Fatalf("expected missing header rejection, got %d %+v", code, resp.Error)
	}
	code, resp = env.do(t, http.MethodGet, "/api/users/me", "garbage", nil)
	if code != http.StatusUnauthorized || resp.Error.Message != "token invalid" {
		t.Fatalf("expected invalid token rejection, got %d %+v", code, resp.Error)
	}
}

func TestUsersProfileAndLookup(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.register(t, "alice")
	env.register(t, "albert")
	token := alice.Tokens.AccessToken

	bio := "hello"
	code, resp := env.do(t, http.MethodPut, "/api/users/me", token, api.UpdateUserRequest{Bio: &bio})
	if code != http.StatusOK {
		t.Fatalf("update: expected 200 got %d", code)
	}
	var updated models.User
	decodeData(t, resp, &updated)
	if updated.Bio != "hello" || updated.Username != "alice" {
		t.Fatalf("unexpected updated user %+v", updated)
	}

	code, _ = env.do(t, http.MethodPut, "/api/users/me", token, api.UpdateUserRequest{})
	if code != http.StatusBadRequest {
		t.Fatalf("empty update: expected 400 got %d", code)
	}

	code, resp = env.do(t, http.MethodGet, "/api/users/search?q=al", token, nil)
	if code != http.StatusOK {
		t.Fatalf("search: expected 200 got %d", code)
	}
	var result models.UserSearchResult
	decodeData(t, resp, &result)
	if result.Total != 2 {
		t.Fatalf("expected 2 matches got %+v", result)
	}

	code, resp = env.do(t, http.MethodGet, "/api/users/username/albert", token, nil)
	if code != http.StatusOK {
		t.Fatalf("by username: expected 200 got %d", code)
	}
	code, resp = env.do(t, http.MethodGet, "/api/users/999", token, nil)
	if code != http.StatusNotFound || resp.Error.Message != "user not found" {
		t.Fatalf("expected user not found, got %d %+v", code, resp.Error)
	}
}
