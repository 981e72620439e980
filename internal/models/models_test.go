package models

import (
	"errors"
	"testing"
	"time"
)

func TestFriendRequestStatusTransitions(t *testing.T) {
	cases := []struct {
		from FriendRequestStatus
		to   FriendRequestStatus
		want bool
	}{
		{FriendRequestPending, FriendRequestAccepted, true},
		{FriendRequestPending, FriendRequestRejected, true},
		{FriendRequestPending, FriendRequestCancelled, true},
		{FriendRequestPending, FriendRequestPending, false},
		{FriendRequestAccepted, FriendRequestRejected, false},
		{FriendRequestRejected, FriendRequestAccepted, false},
		{FriendRequestCancelled, FriendRequestPending, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Fatalf("%s -> %s: expected %v got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestFriendRequestTransition(t *testing.T) {
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	req := FriendRequest{ID: 1, Status: FriendRequestPending}

	if err := req.Transition(FriendRequestAccepted, now); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if req.Status != FriendRequestAccepted || !req.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected request after transition: %+v", req)
	}

	if err := req.Transition(FriendRequestCancelled, now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition got %v", err)
	}
}

func TestFriendRequestCancelAndRespondPermissions(t *testing.T) {
	req := FriendRequest{
		Sender:   User{ID: 1},
		Receiver: User{ID: 2},
		Status:   FriendRequestPending,
	}

	if !req.CanCancel(1) {
		t.Fatal("sender should be able to cancel a pending request")
	}
	if req.CanCancel(2) {
		t.Fatal("receiver must not cancel")
	}
	if !req.CanRespond(2) || req.CanRespond(1) {
		t.Fatal("only the receiver may respond")
	}

	req.Status = FriendRequestRejected
	if req.CanCancel(1) || req.CanRespond(2) {
		t.Fatal("terminal requests accept no further actions")
	}
}

func TestMessageTypeValid(t *testing.T) {
	for _, typ := range []MessageType{MessageText, MessageFile, MessageImage} {
		if !typ.Valid() {
			t.Fatalf("expected %q to be valid", typ)
		}
	}
	if MessageType("system").Valid() {
		t.Fatal("system messages are not sent by clients")
	}
}
