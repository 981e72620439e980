package models

import (
	"errors"
	"time"
)

// User represents an account within the Huddle platform. The client only ever
// holds a cached copy; the backend owns the record.
type User struct {
	ID          uint       `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	Bio         string     `json:"bio,omitempty"`
	Avatar      string     `json:"avatar,omitempty"`
	IsPublic    bool       `json:"is_public"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TokenPair groups the bearer credentials issued to authenticated users.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// UserSearchResult is a page of users matching a search query.
type UserSearchResult struct {
	Users      []User `json:"users"`
	Total      int64  `json:"total"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalPages int    `json:"total_pages"`
}

// FriendRequestStatus is the lifecycle state of a friend request.
type FriendRequestStatus string

const (
	FriendRequestPending   FriendRequestStatus = "pending"
	FriendRequestAccepted  FriendRequestStatus = "accepted"
	FriendRequestRejected  FriendRequestStatus = "rejected"
	FriendRequestCancelled FriendRequestStatus = "cancelled"
)

// ErrInvalidTransition indicates a friend request cannot move to the requested status.
var ErrInvalidTransition = errors.New("invalid friend request transition")

// Terminal reports whether no further transitions are possible.
func (s FriendRequestStatus) Terminal() bool {
	return s == FriendRequestAccepted || s == FriendRequestRejected || s == FriendRequestCancelled
}

// CanTransition reports whether a request in status s may move to next.
// Only pending requests transition.
func (s FriendRequestStatus) CanTransition(next FriendRequestStatus) bool {
	if s != FriendRequestPending {
		return false
	}
	return next.Terminal()
}

// FriendRequest represents the invitation workflow between two users.
type FriendRequest struct {
	ID        uint                `json:"id"`
	Sender    User                `json:"sender"`
	Receiver  User                `json:"receiver"`
	Status    FriendRequestStatus `json:"status"`
	Message   string              `json:"message,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// CanCancel reports whether userID may cancel the request.
func (r FriendRequest) CanCancel(userID uint) bool {
	return r.Status == FriendRequestPending && r.Sender.ID == userID
}

// CanRespond reports whether userID may accept or reject the request.
func (r FriendRequest) CanRespond(userID uint) bool {
	return r.Status == FriendRequestPending && r.Receiver.ID == userID
}

// Transition moves the request to next, enforcing the status rules.
func (r *FriendRequest) Transition(next FriendRequestStatus, at time.Time) error {
	if !r.Status.CanTransition(next) {
		return ErrInvalidTransition
	}
	r.Status = next
	r.UpdatedAt = at
	return nil
}

// FriendRequestList is the payload returned by the request listing endpoints.
type FriendRequestList struct {
	Requests []FriendRequest `json:"requests"`
	Total    int             `json:"total"`
}

// Friendship pairs the current user with a friend.
type Friendship struct {
	ID        uint      `json:"id"`
	User      User      `json:"user"`
	Friend    User      `json:"friend"`
	CreatedAt time.Time `json:"created_at"`
}

// FriendList is the payload returned by GET /friends/.
type FriendList struct {
	Friends []Friendship `json:"friends"`
	Total   int          `json:"total"`
}

// BlockedUser records that Blocker has blocked Blocked.
type BlockedUser struct {
	ID        uint      `json:"id"`
	Blocker   User      `json:"blocker"`
	Blocked   User      `json:"blocked"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BlockedUserList is the payload returned by GET /friends/blocked.
type BlockedUserList struct {
	BlockedUsers []BlockedUser `json:"blocked_users"`
	Total        int           `json:"total"`
}

// ConversationType distinguishes one-to-one chats from group chats.
type ConversationType string

const (
	ConversationDirect ConversationType = "direct"
	ConversationGroup  ConversationType = "group"
)

// MessageType is the kind of content carried by a message.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageFile  MessageType = "file"
	MessageImage MessageType = "image"
)

// Valid reports whether t is one of the supported message types.
func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageFile, MessageImage:
		return true
	}
	return false
}

// Message is a single chat message.
type Message struct {
	ID             uint        `json:"id"`
	ConversationID uint        `json:"conversation_id"`
	Content        string      `json:"content"`
	Type           MessageType `json:"message_type"`
	SenderID       uint        `json:"sender_id"`
	Sender         User        `json:"sender"`
	FileURL        string      `json:"file_url,omitempty"`
	FileName       string      `json:"file_name,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Participant is a member of a conversation.
type Participant struct {
	UserID   uint      `json:"user_id"`
	User     User      `json:"user"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// Conversation is a chat thread with its last message summary.
type Conversation struct {
	ID           uint             `json:"id"`
	Name         string           `json:"name"`
	Type         ConversationType `json:"type"`
	CreatedBy    uint             `json:"created_by"`
	Participants []Participant    `json:"participants"`
	LastMessage  *Message         `json:"last_message,omitempty"`
	UnreadCount  int              `json:"unread_count"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ConversationList is the payload returned by GET /conversations/.
type ConversationList struct {
	Conversations []Conversation `json:"conversations"`
	Total         int            `json:"total"`
}

// MessageList is the payload returned by GET /conversations/{id}/messages/.
type MessageList struct {
	Messages []Message `json:"messages"`
	Total    int       `json:"total"`
}
