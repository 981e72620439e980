package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/huddle/client/internal/models"
)

// ErrNotFound indicates the key has no stored value.
var ErrNotFound = errors.New("token not found")

// Keys under which the session tokens are persisted.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

// Store is a durable string key/value store.
type Store interface {
	// Get returns ErrNotFound when key is absent.
	Get(ctx context.Context, key string) (string, error)
	// Set writes every entry or none of them.
	Set(ctx context.Context, values map[string]string) error
	// Delete removes the keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// Tokens reads and writes the session token pair kept in a Store.
type Tokens struct {
	store Store
}

// NewTokens wraps store.
func NewTokens(store Store) *Tokens {
	return &Tokens{store: store}
}

// AccessToken returns the persisted access token or "" when none is stored.
func (t *Tokens) AccessToken(ctx context.Context) (string, error) {
	return t.get(ctx, KeyAccessToken)
}

// RefreshToken returns the persisted refresh token or "" when none is stored.
func (t *Tokens) RefreshToken(ctx context.Context) (string, error) {
	return t.get(ctx, KeyRefreshToken)
}

// SavePair replaces both tokens in one write.
func (t *Tokens) SavePair(ctx context.Context, tokens models.TokenPair) error {
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		return errors.New("token pair is incomplete")
	}
	if err := t.store.Set(ctx, map[string]string{
		KeyAccessToken:  tokens.AccessToken,
		KeyRefreshToken: tokens.RefreshToken,
	}); err != nil {
		return fmt.Errorf("save token pair: %w", err)
	}
	return nil
}

// SaveRefreshed stores the result of a refresh call. The refresh token is
// only replaced when the backend rotated it.
func (t *Tokens) SaveRefreshed(ctx context.Context, tokens models.TokenPair) error {
	values := map[string]string{KeyAccessToken: tokens.AccessToken}
	if tokens.RefreshToken != "" {
		values[KeyRefreshToken] = tokens.RefreshToken
	}
	if err := t.store.Set(ctx, values); err != nil {
		return fmt.Errorf("save refreshed tokens: %w", err)
	}
	return nil
}

// Clear removes both tokens.
func (t *Tokens) Clear(ctx context.Context) error {
	if err := t.store.Delete(ctx, KeyAccessToken, KeyRefreshToken); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	return nil
}

func (t *Tokens) get(ctx context.Context, key string) (string, error) {
	value, err := t.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return value, nil
}
