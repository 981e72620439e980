package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/huddle/client/internal/api"
	"github.com/huddle/client/internal/logging"
	"github.com/huddle/client/internal/metrics"
	"github.com/huddle/client/internal/models"
	"github.com/huddle/client/internal/validation"
)

var (
	// ErrBusy is returned when the same operation is already in flight.
	ErrBusy = errors.New("session operation already in progress")
	// ErrClosed is returned once the manager has been closed.
	ErrClosed = errors.New("session manager closed")
	// ErrNoSession indicates no access token is stored.
	ErrNoSession = errors.New("no active session")
)

// Operation names used for logging, metrics and the in-flight guard.
const (
	OpInit        = "init"
	OpLogin       = "login"
	OpRegister    = "register"
	OpLogout      = "logout"
	OpRefreshUser = "refresh_user"
)

// State is the authentication state of a Manager.
type State int

const (
	StateLoading State = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Authenticator is the subset of api.AuthAPI used by the manager.
type Authenticator interface {
	Login(ctx context.Context, req api.LoginRequest) (api.AuthResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (api.AuthResponse, error)
	Logout(ctx context.Context, refreshToken string) error
}

// Profiles fetches the authenticated user.
type Profiles interface {
	Me(ctx context.Context) (models.User, error)
}

// TokenStore persists the session token pair.
type TokenStore interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	SavePair(ctx context.Context, tokens models.TokenPair) error
	Clear(ctx context.Context) error
}

// Listener observes state changes. user is nil unless authenticated.
type Listener func(state State, user *models.User)

// Manager is the single source of truth for who is logged in.
type Manager struct {
	auth   Authenticator
	users  Profiles
	tokens TokenStore
	logger *slog.Logger

	lifetime context.Context
	cancel   context.CancelFunc

	mu        sync.Mutex
	state     State
	user      *models.User
	closed    bool
	inflight  map[string]struct{}
	listeners map[int]Listener
	nextID    int
}

// NewManager constructs a Manager in the loading state. Call Init to resolve it.
func NewManager(auth Authenticator, users Profiles, tokens TokenStore, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	lifetime, cancel := context.WithCancel(context.Background())
	return &Manager{
		auth:      auth,
		users:     users,
		tokens:    tokens,
		logger:    logger,
		lifetime:  lifetime,
		cancel:    cancel,
		state:     StateLoading,
		inflight:  make(map[string]struct{}),
		listeners: make(map[int]Listener),
	}
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// User returns a copy of the current user, or nil.
func (m *Manager) User() *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// IsAuthenticated reports whether a user is set.
func (m *Manager) IsAuthenticated() bool {
	return m.State() == StateAuthenticated
}

// IsLoading reports whether the initial check has not completed.
func (m *Manager) IsLoading() bool {
	return m.State() == StateLoading
}

// Busy reports whether op is in flight.
func (m *Manager) Busy(op string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.inflight[op]
	return ok
}

// Subscribe registers fn for state changes and returns a function that
// removes it.
func (m *Manager) Subscribe(fn Listener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Init resolves the loading state from the persisted tokens.
func (m *Manager) Init(ctx context.Context) (err error) {
	ctx, done, err := m.begin(ctx, OpInit)
	if err != nil {
		return err
	}
	defer func() { done(err) }()

	access, err := m.tokens.AccessToken(ctx)
	if err != nil {
		m.set(StateUnauthenticated, nil)
		return fmt.Errorf("read access token: %w", err)
	}
	if access == "" {
		// A refresh token without an access token is a stale leftover.
		if refresh, _ := m.tokens.RefreshToken(ctx); refresh != "" {
			m.purge(ctx)
		}
		m.set(StateUnauthenticated, nil)
		return nil
	}

	user, meErr := m.users.Me(ctx)
	if meErr != nil {
		logging.FromContext(ctx).Info("stored session rejected, clearing tokens", "error", meErr)
		m.purge(ctx)
		m.set(StateUnauthenticated, nil)
		return nil
	}

	if !m.set(StateAuthenticated, &user) {
		return ErrClosed
	}
	return nil
}

// Login validates the credentials, authenticates and persists the new session.
func (m *Manager) Login(ctx context.Context, username, password string) (user *models.User, err error) {
	if err := validation.ValidateLogin(validation.LoginForm{Username: username, Password: password}).Err(); err != nil {
		return nil, err
	}

	ctx, done, err := m.begin(ctx, OpLogin)
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()

	resp, err := m.auth.Login(ctx, api.LoginRequest{Username: strings.TrimSpace(username), Password: password})
	if err != nil {
		return nil, err
	}
	return m.establish(ctx, resp)
}

// Register validates the form, creates the account and treats the response
// as an immediate login.
func (m *Manager) Register(ctx context.Context, form validation.RegistrationForm) (user *models.User, err error) {
	if err := validation.ValidateForm(form).Err(); err != nil {
		return nil, err
	}

	ctx, done, err := m.begin(ctx, OpRegister)
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()

	resp, err := m.auth.Register(ctx, api.RegisterRequest{
		Username:    strings.TrimSpace(form.Username),
		Email:       strings.TrimSpace(form.Email),
		DisplayName: strings.TrimSpace(form.FullName),
		Password:    form.Password,
	})
	if err != nil {
		return nil, err
	}
	return m.establish(ctx, resp)
}

// Logout revokes the session on a best-effort basis, then clears the stored
// tokens and the user. Backend failures are logged and never returned.
func (m *Manager) Logout(ctx context.Context) (err error) {
	ctx, done, err := m.begin(ctx, OpLogout)
	if err != nil {
		return err
	}
	defer func() { done(nil) }()

	m.logout(ctx)
	return nil
}

// RefreshUser re-fetches the current user. On failure the session is logged
// out and the error returned.
func (m *Manager) RefreshUser(ctx context.Context) (user *models.User, err error) {
	ctx, done, err := m.begin(ctx, OpRefreshUser)
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()

	fetched, err := m.users.Me(ctx)
	if err != nil {
		m.logout(ctx)
		return nil, err
	}
	if !m.set(StateAuthenticated, &fetched) {
		return nil, ErrClosed
	}
	return m.User(), nil
}

// HandleSessionExpired drops the in-memory user after the HTTP client gave up
// on refreshing. The tokens have already been cleared.
func (m *Manager) HandleSessionExpired() {
	m.logger.Info("session expired, login required")
	m.set(StateUnauthenticated, nil)
}

// AccessTokenExpiry reads the exp claim of the stored access token without
// verifying its signature.
func (m *Manager) AccessTokenExpiry(ctx context.Context) (time.Time, error) {
	access, err := m.tokens.AccessToken(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("read access token: %w", err)
	}
	if access == "" {
		return time.Time{}, ErrNoSession
	}

	token, _, err := jwt.NewParser().ParseUnverified(access, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("parse access token: %w", err)
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("read expiry: %w", err)
	}
	if exp == nil {
		return time.Time{}, errors.New("access token has no expiry")
	}
	return exp.Time, nil
}

// Close cancels every in-flight operation. Their late results are discarded
// and every later call returns ErrClosed.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.listeners = make(map[int]Listener)
	m.mu.Unlock()

	m.cancel()
}

func (m *Manager) establish(ctx context.Context, resp api.AuthResponse) (*models.User, error) {
	if m.isClosed() {
		return nil, ErrClosed
	}
	if err := m.tokens.SavePair(ctx, resp.Tokens); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	user := resp.User
	if !m.set(StateAuthenticated, &user) {
		return nil, ErrClosed
	}
	return m.User(), nil
}

func (m *Manager) logout(ctx context.Context) {
	logger := logging.FromContext(ctx)

	refresh, err := m.tokens.RefreshToken(ctx)
	if err != nil {
		logger.Warn("read refresh token for logout", "error", err)
	}
	if refresh != "" {
		if err := m.auth.Logout(ctx, refresh); err != nil {
			logger.Warn("backend logout failed", "error", err)
		}
	}

	m.purge(ctx)
	m.set(StateUnauthenticated, nil)
}

func (m *Manager) purge(ctx context.Context) {
	// Clearing must finish even when the operation was cancelled.
	if err := m.tokens.Clear(context.WithoutCancel(ctx)); err != nil {
		logging.FromContext(ctx).Error("clear stored tokens", "error", err)
	}
}

// begin claims op, derives a context bound to both the caller and the manager
// lifetime, and returns a completion func.
func (m *Manager) begin(ctx context.Context, op string) (context.Context, func(error), error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, nil, ErrClosed
	}
	if _, ok := m.inflight[op]; ok {
		m.mu.Unlock()
		return nil, nil, ErrBusy
	}
	m.inflight[op] = struct{}{}
	m.mu.Unlock()

	if logging.FromContext(ctx) == slog.Default() {
		ctx = logging.WithLogger(ctx, m.logger)
	}
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(m.lifetime, cancel)
	ctx, operation := logging.StartOperation(ctx, "session."+op)

	return ctx, func(err error) {
		stop()
		cancel()
		operation.End(err)
		metrics.ObserveSessionOperation(op, err)

		m.mu.Lock()
		delete(m.inflight, op)
		m.mu.Unlock()
	}, nil
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// set records the new state and notifies listeners. It reports false, and
// changes nothing, once the manager is closed.
func (m *Manager) set(state State, user *models.User) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	changed := m.state != state || !sameUser(m.user, user)
	m.state = state
	m.user = user
	listeners := make([]Listener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	if !changed {
		return true
	}
	var snapshot *models.User
	if user != nil {
		u := *user
		snapshot = &u
	}
	for _, fn := range listeners {
		fn(state, snapshot)
	}
	return true
}

func sameUser(a, b *models.User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID && a.UpdatedAt.Equal(b.UpdatedAt) && a.DisplayName == b.DisplayName &&
		a.Bio == b.Bio && a.Avatar == b.Avatar && a.IsPublic == b.IsPublic
}
