package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/huddle/client/internal/httpclient"
	"github.com/huddle/client/internal/models"
)

// Friend request responses accepted by POST /friends/requests/respond.
const (
	ActionAccept = "accept"
	ActionReject = "reject"
)

// FriendAPI wraps the /friends endpoints.
type FriendAPI struct {
	doer Doer
}

// NewFriendAPI constructs a FriendAPI.
func NewFriendAPI(doer Doer) *FriendAPI {
	return &FriendAPI{doer: doer}
}

// SendRequest invites receiverID to become a friend.
func (f *FriendAPI) SendRequest(ctx context.Context, receiverID uint, message string) (models.FriendRequest, error) {
	body := struct {
		ReceiverID uint   `json:"receiver_id"`
		Message    string `json:"message,omitempty"`
	}{ReceiverID: receiverID, Message: message}

	var req models.FriendRequest
	if err := f.doer.Do(ctx, httpclient.Request{Method: http.MethodPost, Path: "/friends/requests", Body: body}, &req); err != nil {
		return models.FriendRequest{}, fmt.Errorf("send friend request: %w", err)
	}
	return req, nil
}

// Incoming lists pending requests addressed to the current user.
func (f *FriendAPI) Incoming(ctx context.Context) (models.FriendRequestList, error) {
	var list models.FriendRequestList
	if err := f.doer.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/friends/requests"}, &list); err != nil {
		return models.FriendRequestList{}, fmt.Errorf("list friend requests: %w", err)
	}
	return list, nil
}

// Sent lists requests sent by the current user.
func (f *FriendAPI) Sent(ctx context.Context) (models.FriendRequestList, error) {
	var list models.FriendRequestList
	if err := f.doer.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/friends/requests/sent"}, &list); err != nil {
		return models.FriendRequestList{}, fmt.Errorf("list sent friend requests: %w", err)
	}
	return list, nil
}

// Respond accepts or rejects a request addressed to the current user.
func (f *FriendAPI) Respond(ctx context.Context, requestID uint, action string) error {
	if action != ActionAccept && action != ActionReject {
		return fmt.Errorf("respond to friend request: %w: action must be %q or %q", ErrInvalidArgument, ActionAccept, ActionReject)
	}
	body := struct {
		RequestID uint   `json:"request_id"`
		Action    string `json:"action"`
	}{RequestID: requestID, Action: action}

	if err := f.doer.Do(ctx, httpclient.Request{Method: http.MethodPost, Path: "/friends/requests/respond", Body: body}, nil); err != nil {
		return fmt.Errorf("respond to friend request: %w", err)
	}
	return nil
}

// Cancel withdraws a pending request sent by the current user.
func (f *FriendAPI) Cancel(ctx context.Context, requestID uint) error {
	if err := f.doer.Do(ctx, httpclient.Request{Method: http.MethodDelete, Path: "/friends/requests/" + idPath(requestID)}, nil); err != nil {
		return fmt.Errorf("cancel friend request: %w", err)
	}
	return nil
}

// List returns the current user's friends.
func (f *FriendAPI) List(ctx context.Context) (models.FriendList, error) {
	var list models.FriendList
	if err := f.doer.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/friends/"}, &list); err != nil {
		return models.FriendList{}, fmt.Errorf("list friends: %w", err)
	}
	return list, nil
}

// Remove ends the friendship with friendID.
func (f *FriendAPI) Remove(ctx context.Context, friendID uint) error {
	if err := f.doer.Do(ctx, httpclient.Request{Method: http.MethodDelete, Path: "/friends/" + idPath(friendID)}, nil); err != nil {
		return fmt.Errorf("remove friend: %w", err)
	}
	return nil
}

// Check reports whether friendID is a friend of the current user.
func (f *FriendAPI) Check(ctx context.Context, friendID uint) (bool, error) {
	var resp struct {
		AreFriends bool `json:"are_friends"`
	}
	if err := f.doer.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/friends/check/" + idPath(friendID)}, &resp); err != nil {
		return false, fmt.Errorf("check friendship: %w", err)
	}
	return resp.AreFriends, nil
}

// Block blocks userID with an optional reason.
func (f *FriendAPI) Block(ctx context.Context, userID uint, reason string) (models.BlockedUser, error) {
	body := struct {
		UserID uint   `json:"user_id"`
		Reason string `json:"reason,omitempty"`
	}{UserID: userID, Reason: reason}

	var blocked models.BlockedUser
	if err := f.doer.Do(ctx, httpclient.Request{Method: http.MethodPost, Path: "/friends/block", Body: body}, &blocked); err != nil {
		return models.BlockedUser{}, fmt.Errorf("block user: %w", err)
	}
	return blocked, nil
}

// Unblock removes a block on userID.
func (f *FriendAPI) Unblock(ctx context.Context, userID uint) error {
	if err := f.doer.Do(ctx, httpclient.Request{Method: http.MethodDelete, Path: "/friends/block/" + idPath(userID)}, nil); err != nil {
		return fmt.Errorf("unblock user: %w", err)
	}
	return nil
}

// Blocked lists users blocked by the current user.
func (f *FriendAPI) Blocked(ctx context.Context) (models.BlockedUserList, error) {
	var list models.BlockedUserList
	if err := f.doer.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/friends/blocked"}, &list); err != nil {
		return models.BlockedUserList{}, fmt.Errorf("list blocked users: %w", err)
	}
	return list, nil
}

// CheckBlocked reports whether the current user has blocked userID.
func (f *FriendAPI) CheckBlocked(ctx context.Context, userID uint) (bool, error) {
	var resp struct {
		IsBlocked bool `json:"is_blocked"`
	}
	if err := f.doer.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/friends/blocked/check/" + idPath(userID)}, &resp); err != nil {
		return false, fmt.Errorf("check blocked user: %w", err)
	}
	return resp.IsBlocked, nil
}

func idPath(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
