package handlers

import (
	"context"

	"github.com/huddle/client/internal/auth"
	"github.com/huddle/client/internal/models"
	"github.com/huddle/client/internal/repositories"
)

// UserStore captures the persistence operations required by the auth and user handlers.
type UserStore interface {
	repositories.UserRepository
}

// FriendStore captures operations required by the friend handlers.
type FriendStore interface {
	repositories.FriendRepository
}

// ConversationStore captures operations required by the conversation handlers.
type ConversationStore interface {
	repositories.ConversationRepository
}

// SessionManager issues, refreshes, revokes and validates authentication tokens.
type SessionManager interface {
	Issue(ctx context.Context, user models.User) (models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
	Revoke(ctx context.Context, refreshToken string)
	Validate(accessToken string) (auth.Claims, error)
}
