package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/huddle/client/internal/api"
	"github.com/huddle/client/internal/auth"
	"github.com/huddle/client/internal/logging"
	"github.com/huddle/client/internal/models"
	"github.com/huddle/client/internal/repositories"
	"github.com/huddle/client/internal/validation"
)

// Messages the client routes to form fields or the general error.
const (
	msgInvalidCredentials = "invalid credentials"
	msgInvalidUsername    = "invalid username format"
	msgInvalidEmail       = "invalid email format"
	msgWeakPassword       = "password too weak"
	msgResetSent          = "If the email exists, a password reset link has been sent"
)

const defaultResetTTL = time.Hour

// AuthHandler implements the /auth endpoints.
type AuthHandler struct {
	Users    UserStore
	Sessions SessionManager
	ResetTTL time.Duration
	NowFunc  func() time.Time
}

// Register handles POST /auth/register.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req api.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.DisplayName = strings.TrimSpace(req.DisplayName)

	switch {
	case validation.ValidateUsername(req.Username) != "":
		respondError(ctx, w, http.StatusBadRequest, CodeValidation, msgInvalidUsername)
		return
	case validation.ValidateEmail(req.Email) != "":
		respondError(ctx, w, http.StatusBadRequest, CodeValidation, msgInvalidEmail)
		return
	case validation.ValidatePassword(req.Password) != "":
		respondError(ctx, w, http.StatusBadRequest, CodeValidation, msgWeakPassword)
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondFailure(ctx, w, err)
		return
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}
	user, err := h.Users.CreateUser(ctx, models.User{
		Username:    req.Username,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		IsPublic:    isPublic,
	}, string(hashed))
	if err != nil {
		respondFailure(ctx, w, err)
		return
	}

	tokens, err := h.Sessions.Issue(ctx, user)
	if err != nil {
		respondFailure(ctx, w, err)
		return
	}

	logger.Info("user registered", "user_id", user.ID)
	const message = "User registered successfully"
	respondSuccess(ctx, w, http.StatusCreated, api.AuthResponse{User: user, Tokens: tokens, Message: message}, message)
}

// Login handles POST /auth/login. The login may be a username or an email.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req api.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		respondError(ctx, w, http.StatusBadRequest, CodeValidation, "username and password are required")
		return
	}

	user, hash, err := h.Users.Credentials(ctx, req.Username)
	if err != nil {
		if !errors.Is(err, repositories.ErrUserNotFound) {
			respondFailure(ctx, w, err)
			return
		}
		logger.Warn("login user lookup failed", "login", req.Username)
		respondError(ctx, w, http.StatusUnauthorized, CodeUnauthorized, msgInvalidCredentials)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		logger.Warn("login password mismatch", "user_id", user.ID)
		respondError(ctx, w, http.StatusUnauthorized, CodeUnauthorized, msgInvalidCredentials)
		return
	}

	tokens, err := h.Sessions.Issue(ctx, user)
	if err != nil {
		respondFailure(ctx, w, err)
		return
	}

	const message = "Login successful"
	respondSuccess(ctx, w, http.StatusOK, api.AuthResponse{User: user, Tokens: tokens, Message: message}, message)
}

// Refresh handles POST /auth/refresh.
func (h AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		respondError(ctx, w, http.StatusBadRequest, CodeBadRequest, "refresh token is required")
		return
	}

	tokens, err := h.Sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrRefreshTokenExpired) {
			respondError(ctx, w, http.StatusUnauthorized, CodeUnauthorized, auth.ErrAccessTokenExpired.Error())
			return
		}
		if errors.Is(err, auth.ErrSessionNotFound) {
			respondError(ctx, w, http.StatusUnauthorized, CodeUnauthorized, auth.ErrInvalidAccessToken.Error())
			return
		}
		respondFailure(ctx, w, err)
		return
	}

	respondSuccess(ctx, w, http.StatusOK, refreshResponse{Tokens: tokens}, "Token refreshed successfully")
}

// Logout handles POST /auth/logout. The refresh token in the body is revoked.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.Sessions.Revoke(ctx, strings.TrimSpace(req.RefreshToken))
	logging.FromContext(ctx).Info("refresh session revoked")
	respondSuccess(ctx, w, http.StatusOK, nil, "Logout successful")
}

// ForgotPassword handles POST /auth/forgot-password. The response never
// reveals whether the account exists. The development backend logs the
// reset token instead of mailing it.
func (h AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req forgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if validation.ValidateEmail(req.Email) != "" {
		respondError(ctx, w, http.StatusBadRequest, CodeValidation, msgInvalidEmail)
		return
	}

	user, err := h.Users.UserByEmail(ctx, req.Email)
	switch {
	case errors.Is(err, repositories.ErrUserNotFound):
		respondSuccess(ctx, w, http.StatusOK, nil, msgResetSent)
		return
	case err != nil:
		respondFailure(ctx, w, err)
		return
	}

	token, err := resetToken()
	if err != nil {
		respondFailure(ctx, w, err)
		return
	}
	if err := h.Users.SaveResetToken(ctx, user.ID, token, h.now().Add(h.resetTTL())); err != nil {
		respondFailure(ctx, w, err)
		return
	}
	logger.Info("password reset requested", "user_id", user.ID, "reset_token", token)
	respondSuccess(ctx, w, http.StatusOK, nil, msgResetSent)
}

// ResetPassword handles POST /auth/reset-password.
func (h AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		respondError(ctx, w, http.StatusBadRequest, CodeBadRequest, repositories.ErrResetTokenInvalid.Error())
		return
	}
	if validation.ValidatePassword(req.NewPassword) != "" {
		respondError(ctx, w, http.StatusBadRequest, CodeValidation, msgWeakPassword)
		return
	}

	userID, err := h.Users.ConsumeResetToken(ctx, strings.TrimSpace(req.Token))
	if err != nil {
		respondFailure(ctx, w, err)
		return
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		respondFailure(ctx, w, err)
		return
	}
	if err := h.Users.SetPassword(ctx, userID, string(hashed)); err != nil {
		respondFailure(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, nil, "Password reset successfully")
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	Tokens models.TokenPair `json:"tokens"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h AuthHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

func (h AuthHandler) resetTTL() time.Duration {
	if h.ResetTTL > 0 {
		return h.ResetTTL
	}
	return defaultResetTTL
}

func resetToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
