package repositories

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates the attempted write would violate a uniqueness constraint.
	ErrConflict = errors.New("record conflict")
)

// Domain failures. Their text is sent to clients verbatim, so the wording
// matches the phrases clients recognise.
var (
	ErrUsernameTaken          = errors.New("username already exists")
	ErrEmailTaken             = errors.New("email already exists")
	ErrUserNotFound           = errors.New("user not found")
	ErrResetTokenInvalid      = errors.New("invalid or expired reset token")
	ErrSelfAction             = errors.New("cannot perform action on yourself")
	ErrRequestNotFound        = errors.New("friend request not found")
	ErrRequestNotPending      = errors.New("friend request is not pending")
	ErrRequestPending         = errors.New("friend request already pending")
	ErrRequestForbidden       = errors.New("unauthorized to modify this friend request")
	ErrAlreadyFriends         = errors.New("already friends")
	ErrFriendshipNotFound     = errors.New("friendship not found")
	ErrUserBlocked            = errors.New("cannot send friend request to blocked user")
	ErrAlreadyBlocked         = errors.New("user is already blocked")
	ErrNotBlocked             = errors.New("user is not blocked")
	ErrConversationNotFound   = errors.New("conversation not found")
	ErrInvalidParticipants    = errors.New("direct conversations require exactly one other participant")
	ErrUnsupportedMessageType = errors.New("unsupported message type")
	ErrEmptyMessage           = errors.New("message content is required")
)
