package repositories

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/huddle/client/internal/models"
)

const (
	defaultSearchPageSize = 20
	maxSearchPageSize     = 100
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User, passwordHash string) (models.User, error)
	Credentials(ctx context.Context, login string) (models.User, string, error)
	UserByID(ctx context.Context, id uint) (models.User, error)
	UserByUsername(ctx context.Context, username string) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UpdateUser(ctx context.Context, id uint, apply func(*models.User)) (models.User, error)
	SetPassword(ctx context.Context, id uint, passwordHash string) error
	SearchUsers(ctx context.Context, query string, page, pageSize int) (models.UserSearchResult, error)
	SaveResetToken(ctx context.Context, userID uint, token string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, token string) (uint, error)
}

var _ UserRepository = (*Memory)(nil)

// CreateUser stores a new account. Usernames and emails are unique ignoring case.
func (m *Memory) CreateUser(_ context.Context, user models.User, passwordHash string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.users {
		if strings.EqualFold(rec.user.Username, user.Username) {
			return models.User{}, ErrUsernameTaken
		}
		if strings.EqualFold(rec.user.Email, user.Email) {
			return models.User{}, ErrEmailTaken
		}
	}

	now := m.now()
	user.ID = m.idLocked("user")
	user.CreatedAt = now
	user.UpdatedAt = now
	m.users[user.ID] = &userRecord{user: user, passwordHash: passwordHash}
	return user, nil
}

// Credentials returns the user whose username or email equals login, with
// its password hash, and records the login time.
func (m *Memory) Credentials(_ context.Context, login string) (models.User, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.users {
		if strings.EqualFold(rec.user.Username, login) || strings.EqualFold(rec.user.Email, login) {
			now := m.now()
			rec.user.LastLogin = &now
			return rec.user, rec.passwordHash, nil
		}
	}
	return models.User{}, "", ErrUserNotFound
}

func (m *Memory) UserByID(_ context.Context, id uint) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return rec.user, nil
}

func (m *Memory) UserByUsername(_ context.Context, username string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.users {
		if strings.EqualFold(rec.user.Username, username) {
			return rec.user, nil
		}
	}
	return models.User{}, ErrUserNotFound
}

func (m *Memory) UserByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.users {
		if strings.EqualFold(rec.user.Email, email) {
			return rec.user, nil
		}
	}
	return models.User{}, ErrUserNotFound
}

// UpdateUser applies a change to the stored user and returns the result.
func (m *Memory) UpdateUser(_ context.Context, id uint, apply func(*models.User)) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	updated := rec.user
	apply(&updated)
	updated.ID = rec.user.ID
	updated.Username = rec.user.Username
	updated.Email = rec.user.Email
	updated.CreatedAt = rec.user.CreatedAt
	updated.UpdatedAt = m.now()
	rec.user = updated
	return updated, nil
}

func (m *Memory) SetPassword(_ context.Context, id uint, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	rec.passwordHash = passwordHash
	rec.user.UpdatedAt = m.now()
	return nil
}

// SearchUsers matches query against usernames and display names, ignoring
// case. Results are ordered by id and paginated from page 1.
func (m *Memory) SearchUsers(_ context.Context, query string, page, pageSize int) (models.UserSearchResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultSearchPageSize
	}
	if pageSize > maxSearchPageSize {
		pageSize = maxSearchPageSize
	}
	query = strings.ToLower(strings.TrimSpace(query))

	m.mu.RLock()
	var matches []models.User
	for _, rec := range m.users {
		if strings.Contains(strings.ToLower(rec.user.Username), query) ||
			strings.Contains(strings.ToLower(rec.user.DisplayName), query) {
			matches = append(matches, rec.user)
		}
	}
	m.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })

	total := len(matches)
	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)

	return models.UserSearchResult{
		Users:      append([]models.User{}, matches[start:end]...),
		Total:      int64(total),
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

func (m *Memory) SaveResetToken(_ context.Context, userID uint, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return ErrUserNotFound
	}
	m.resets[token] = resetRecord{userID: userID, expiresAt: expiresAt}
	return nil
}

// ConsumeResetToken returns the owner of token and invalidates it.
func (m *Memory) ConsumeResetToken(_ context.Context, token string) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.resets[token]
	if !ok {
		return 0, ErrResetTokenInvalid
	}
	delete(m.resets, token)
	if m.now().After(rec.expiresAt) {
		return 0, ErrResetTokenInvalid
	}
	return rec.userID, nil
}
