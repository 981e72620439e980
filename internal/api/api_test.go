package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/huddle/client/internal/httpclient"
	"github.com/huddle/client/internal/models"
)

type recordingDoer struct {
	requests []httpclient.Request
	response any
	err      error
}

func (r *recordingDoer) Do(_ context.Context, req httpclient.Request, out any) error {
	r.requests = append(r.requests, req)
	if r.err != nil {
		return r.err
	}
	if out == nil || r.response == nil {
		return nil
	}
	raw, err := json.Marshal(r.response)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (r *recordingDoer) last(t *testing.T) httpclient.Request {
	t.Helper()
	if len(r.requests) == 0 {
		t.Fatal("expected a request to be sent")
	}
	return r.requests[len(r.requests)-1]
}

func bodyJSON(t *testing.T, body any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	return decoded
}

func TestAuthLoginIsAnonymousAndDecodesTokens(t *testing.T) {
	doer := &recordingDoer{response: map[string]any{
		"user":   map[string]any{"id": 3, "username": "ada"},
		"tokens": map[string]any{"access_token": "a", "refresh_token": "r", "expires_in": 900},
	}}

	resp, err := NewAuthAPI(doer).Login(context.Background(), LoginRequest{Username: "ada", Password: "secret1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	req := doer.last(t)
	if req.Method != http.MethodPost || req.Path != "/auth/login" || !req.Anonymous {
		t.Fatalf("unexpected request %+v", req)
	}
	if resp.User.ID != 3 || resp.Tokens.AccessToken != "a" || resp.Tokens.RefreshToken != "r" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestAuthRequestShapes(t *testing.T) {
	ctx := context.Background()
	doer := &recordingDoer{}
	auth := NewAuthAPI(doer)

	_ = auth.Logout(ctx, "r1")
	req := doer.last(t)
	if req.Path != "/auth/logout" || !req.Anonymous {
		t.Fatalf("logout must be sent without a bearer: %+v", req)
	}
	if bodyJSON(t, req.Body)["refresh_token"] != "r1" {
		t.Fatalf("unexpected logout body %v", req.Body)
	}

	_ = auth.ResetPassword(ctx, "tok", "N3w!pass")
	body := bodyJSON(t, doer.last(t).Body)
	if body["token"] != "tok" || body["new_password"] != "N3w!pass" {
		t.Fatalf("unexpected reset body %v", body)
	}

	_ = auth.ForgotPassword(ctx, "ada@example.com")
	if doer.last(t).Path != "/auth/forgot-password" {
		t.Fatalf("unexpected path %s", doer.last(t).Path)
	}

	_, _ = auth.Register(ctx, RegisterRequest{Username: "ada", Email: "ada@example.com", DisplayName: "Ada", Password: "x"})
	body = bodyJSON(t, doer.last(t).Body)
	if body["display_name"] != "Ada" {
		t.Fatalf("unexpected register body %v", body)
	}
	if _, ok := body["is_public"]; ok {
		t.Fatal("unset is_public must be omitted")
	}
}

func TestAuthErrorsAreWrapped(t *testing.T) {
	apiErr := &httpclient.APIError{Status: http.StatusUnauthorized}
	doer := &recordingDoer{err: apiErr}

	_, err := NewAuthAPI(doer).Login(context.Background(), LoginRequest{})
	var got *httpclient.APIError
	if !errors.As(err, &got) || got != apiErr {
		t.Fatalf("expected wrapped api error, got %v", err)
	}
}

func TestUserSearchQuery(t *testing.T) {
	doer := &recordingDoer{response: models.UserSearchResult{Users: []models.User{{ID: 1}}, Total: 1}}
	users := NewUserAPI(doer)

	result, err := users.Search(context.Background(), "  ada ", 2, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	req := doer.last(t)
	if req.Path != "/users/search" || req.Query.Get("q") != "ada" || req.Query.Get("page") != "2" || req.Query.Get("page_size") != "10" {
		t.Fatalf("unexpected search request %+v", req)
	}
	if result.Total != 1 {
		t.Fatalf("unexpected result %+v", result)
	}

	if _, err := users.Search(context.Background(), "   ", 0, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for empty query, got %v", err)
	}
	if len(doer.requests) != 1 {
		t.Fatal("empty query must not reach the backend")
	}
}

func TestUserPaths(t *testing.T) {
	ctx := context.Background()
	doer := &recordingDoer{response: models.User{ID: 9}}
	users := NewUserAPI(doer)

	_, _ = users.ByUsername(ctx, "a b")
	if got := doer.last(t).Path; got != "/users/username/a%20b" {
		t.Fatalf("expected escaped username path, got %s", got)
	}
	_, _ = users.ByID(ctx, 9)
	if got := doer.last(t).Path; got != "/users/9" {
		t.Fatalf("unexpected path %s", got)
	}

	bio := "hello"
	_, _ = users.UpdateMe(ctx, UpdateUserRequest{Bio: &bio})
	req := doer.last(t)
	body := bodyJSON(t, req.Body)
	if req.Method != http.MethodPut || body["bio"] != "hello" || len(body) != 1 {
		t.Fatalf("unexpected update request %+v body %v", req, body)
	}

	if _, err := users.UpdateMe(ctx, UpdateUserRequest{}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected empty update to be rejected, got %v", err)
	}
}

func TestFriendRespondValidatesAction(t *testing.T) {
	doer := &recordingDoer{}
	friends := NewFriendAPI(doer)

	if err := friends.Respond(context.Background(), 4, "ignore"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid action error, got %v", err)
	}
	if len(doer.requests) != 0 {
		t.Fatal("invalid action must not reach the backend")
	}

	if err := friends.Respond(context.Background(), 4, ActionAccept); err != nil {
		t.Fatalf("respond: %v", err)
	}
	body := bodyJSON(t, doer.last(t).Body)
	if body["request_id"] != float64(4) || body["action"] != "accept" {
		t.Fatalf("unexpected respond body %v", body)
	}
}

func TestFriendEndpoints(t *testing.T) {
	ctx := context.Background()
	doer := &recordingDoer{}
	friends := NewFriendAPI(doer)

	cases := []struct {
		call   func()
		method string
		path   string
	}{
		{func() { _, _ = friends.SendRequest(ctx, 2, "hi") }, http.MethodPost, "/friends/requests"},
		{func() { _, _ = friends.Incoming(ctx) }, http.MethodGet, "/friends/requests"},
		{func() { _, _ = friends.Sent(ctx) }, http.MethodGet, "/friends/requests/sent"},
		{func() { _ = friends.Cancel(ctx, 5) }, http.MethodDelete, "/friends/requests/5"},
		{func() { _, _ = friends.List(ctx) }, http.MethodGet, "/friends/"},
		{func() { _ = friends.Remove(ctx, 6) }, http.MethodDelete, "/friends/6"},
		{func() { _, _ = friends.Check(ctx, 6) }, http.MethodGet, "/friends/check/6"},
		{func() { _, _ = friends.Block(ctx, 7, "spam") }, http.MethodPost, "/friends/block"},
		{func() { _ = friends.Unblock(ctx, 7) }, http.MethodDelete, "/friends/block/7"},
		{func() { _, _ = friends.Blocked(ctx) }, http.MethodGet, "/friends/blocked"},
		{func() { _, _ = friends.CheckBlocked(ctx, 7) }, http.MethodGet, "/friends/blocked/check/7"},
	}

	for _, tc := range cases {
		tc.call()
		req := doer.last(t)
		if req.Method != tc.method || req.Path != tc.path {
			t.Fatalf("expected %s %s got %s %s", tc.method, tc.path, req.Method, req.Path)
		}
		if req.Anonymous {
			t.Fatalf("%s must be authenticated", tc.path)
		}
	}
}

func TestFriendChecksDecodeFlags(t *testing.T) {
	doer := &recordingDoer{response: map[string]bool{"are_friends": true, "is_blocked": true}}
	friends := NewFriendAPI(doer)

	if ok, err := friends.Check(context.Background(), 1); err != nil || !ok {
		t.Fatalf("expected friends, got %v (%v)", ok, err)
	}
	if ok, err := friends.CheckBlocked(context.Background(), 1); err != nil || !ok {
		t.Fatalf("expected blocked, got %v (%v)", ok, err)
	}
}

func TestConversationMessagesDefaults(t *testing.T) {
	doer := &recordingDoer{}
	conversations := NewConversationAPI(doer)

	_, _ = conversations.Messages(context.Background(), 3, 0, -1)
	req := doer.last(t)
	if req.Path != "/conversations/3/messages/" || req.Query.Get("limit") != "50" || req.Query.Get("offset") != "0" {
		t.Fatalf("unexpected messages request %+v", req)
	}
}

func TestConversationSendValidates(t *testing.T) {
	doer := &recordingDoer{}
	conversations := NewConversationAPI(doer)
	ctx := context.Background()

	if _, err := conversations.Send(ctx, 1, SendMessageRequest{Content: " ", Type: models.MessageText}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected empty content to be rejected, got %v", err)
	}
	if _, err := conversations.Send(ctx, 1, SendMessageRequest{Content: "hi", Type: "video"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected unknown type to be rejected, got %v", err)
	}
	if _, err := conversations.Create(ctx, CreateConversationRequest{Name: "x", Type: models.ConversationGroup}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected missing participants to be rejected, got %v", err)
	}
	if len(doer.requests) != 0 {
		t.Fatal("invalid requests must not reach the backend")
	}

	if _, err := conversations.Send(ctx, 1, SendMessageRequest{Content: "hi", Type: models.MessageText}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if body := bodyJSON(t, doer.last(t).Body); body["message_type"] != "text" {
		t.Fatalf("unexpected send body %v", body)
	}
}

type countingLookup struct {
	calls int
	err   error
}

func (c *countingLookup) ByUsername(_ context.Context, username string) (models.User, error) {
	c.calls++
	if c.err != nil {
		return models.User{}, c.err
	}
	return models.User{ID: uint(c.calls), Username: username}, nil
}

func TestCachingUserDirectory(t *testing.T) {
	base := &countingLookup{}
	dir := NewCachingUserDirectory(base, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	dir.now = func() time.Time { return now }

	ctx := context.Background()
	first, err := dir.ByUsername(ctx, "ada")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	second, _ := dir.ByUsername(ctx, "ada")
	if base.calls != 1 || first.ID != second.ID {
		t.Fatalf("expected cached result, got %d calls", base.calls)
	}

	now = now.Add(2 * time.Minute)
	if dir.Purge() != 0 {
		t.Fatal("expected expired entry to be purged")
	}
	_, _ = dir.ByUsername(ctx, "ada")
	if base.calls != 2 {
		t.Fatalf("expected refetch after expiry, got %d calls", base.calls)
	}

	dir.Invalidate("ada")
	_, _ = dir.ByUsername(ctx, "ada")
	if base.calls != 3 {
		t.Fatalf("expected refetch after invalidate, got %d calls", base.calls)
	}
}

func TestCachingUserDirectoryErrors(t *testing.T) {
	dir := NewCachingUserDirectory(nil, time.Minute)
	if _, err := dir.ByUsername(context.Background(), "ada"); !errors.Is(err, ErrDirectoryUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}

	boom := errors.New("boom")
	base := &countingLookup{err: boom}
	dir = NewCachingUserDirectory(base, time.Minute)
	_, _ = dir.ByUsername(context.Background(), "ada")
	_, err := dir.ByUsername(context.Background(), "ada")
	if !errors.Is(err, boom) || base.calls != 2 {
		t.Fatalf("errors must not be cached, got %v after %d calls", err, base.calls)
	}
}
