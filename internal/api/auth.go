package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/huddle/client/internal/httpclient"
	"github.com/huddle/client/internal/models"
)

// RegisterRequest is the payload of POST /auth/register.
type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	Bio         string `json:"bio,omitempty"`
	IsPublic    *bool  `json:"is_public,omitempty"`
}

// LoginRequest is the payload of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is returned by login and registration.
type AuthResponse struct {
	User    models.User      `json:"user"`
	Tokens  models.TokenPair `json:"tokens"`
	Message string           `json:"message,omitempty"`
}

// AuthAPI wraps the /auth endpoints.
type AuthAPI struct {
	doer Doer
}

// NewAuthAPI constructs an AuthAPI.
func NewAuthAPI(doer Doer) *AuthAPI {
	return &AuthAPI{doer: doer}
}

// Register creates an account and returns its first token pair.
func (a *AuthAPI) Register(ctx context.Context, req RegisterRequest) (AuthResponse, error) {
	var resp AuthResponse
	err := a.doer.Do(ctx, httpclient.Request{
		Method:    http.MethodPost,
		Path:      "/auth/register",
		Body:      req,
		Anonymous: true,
	}, &resp)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("register: %w", err)
	}
	return resp, nil
}

// Login exchanges credentials for a token pair.
func (a *AuthAPI) Login(ctx context.Context, req LoginRequest) (AuthResponse, error) {
	var resp AuthResponse
	err := a.doer.Do(ctx, httpclient.Request{
		Method:    http.MethodPost,
		Path:      "/auth/login",
		Body:      req,
		Anonymous: true,
	}, &resp)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("login: %w", err)
	}
	return resp, nil
}

// Logout revokes refreshToken. It is sent without a bearer so an expired
// access token cannot trigger a refresh that rotates the token being revoked.
func (a *AuthAPI) Logout(ctx context.Context, refreshToken string) error {
	err := a.doer.Do(ctx, httpclient.Request{
		Method:    http.MethodPost,
		Path:      "/auth/logout",
		Body:      map[string]string{"refresh_token": refreshToken},
		Anonymous: true,
	}, nil)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Refresh exchanges refreshToken for a new pair.
func (a *AuthAPI) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	var resp struct {
		Tokens models.TokenPair `json:"tokens"`
	}
	err := a.doer.Do(ctx, httpclient.Request{
		Method:    http.MethodPost,
		Path:      httpclient.RefreshPath,
		Body:      map[string]string{"refresh_token": refreshToken},
		Anonymous: true,
	}, &resp)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("refresh: %w", err)
	}
	return resp.Tokens, nil
}

// ForgotPassword asks the backend to email a reset link.
func (a *AuthAPI) ForgotPassword(ctx context.Context, email string) error {
	err := a.doer.Do(ctx, httpclient.Request{
		Method:    http.MethodPost,
		Path:      "/auth/forgot-password",
		Body:      map[string]string{"email": email},
		Anonymous: true,
	}, nil)
	if err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	return nil
}

// ResetPassword sets a new password using a reset token.
func (a *AuthAPI) ResetPassword(ctx context.Context, token, newPassword string) error {
	err := a.doer.Do(ctx, httpclient.Request{
		Method:    http.MethodPost,
		Path:      "/auth/reset-password",
		Body:      map[string]string{"token": token, "new_password": newPassword},
		Anonymous: true,
	}, nil)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}
