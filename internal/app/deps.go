package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/huddle/client/internal/api"
	"github.com/huddle/client/internal/config"
	"github.com/huddle/client/internal/dashboard"
	"github.com/huddle/client/internal/httpclient"
	"github.com/huddle/client/internal/profile"
	"github.com/huddle/client/internal/session"
	"github.com/huddle/client/internal/storage"
	"github.com/huddle/client/internal/tokenstore"
)

// clientDeps wires the client SDK against the configured backend.
type clientDeps struct {
	tokens        *tokenstore.Tokens
	http          *httpclient.Client
	auth          *api.AuthAPI
	users         *api.UserAPI
	friends       *api.FriendAPI
	conversations *api.ConversationAPI
	directory     *api.CachingUserDirectory
	session       *session.Manager
	closeStore    func()
}

// buildClient opens the token store, constructs the API wrappers and resolves
// the persisted session.
func buildClient(ctx context.Context, cfg config.Config, rt *runtime) (*clientDeps, error) {
	store, closeStore, err := tokenstore.Open(ctx, cfg.Tokens.Options())
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}
	tokens := tokenstore.NewTokens(store)

	client := httpclient.New(cfg.APIURL, tokens,
		httpclient.WithTimeout(cfg.RequestTimeout),
		httpclient.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		httpclient.WithLogger(rt.logger),
	)

	deps := &clientDeps{
		tokens:        tokens,
		http:          client,
		auth:          api.NewAuthAPI(client),
		users:         api.NewUserAPI(client),
		friends:       api.NewFriendAPI(client),
		conversations: api.NewConversationAPI(client),
		closeStore:    closeStore,
	}
	deps.directory = api.NewCachingUserDirectory(deps.users, cfg.UserCacheTTL)
	deps.session = session.NewManager(deps.auth, deps.users, tokens, rt.logger)
	client.SetSessionExpiredHook(deps.session.HandleSessionExpired)

	if err := deps.session.Init(ctx); err != nil {
		deps.close()
		return nil, fmt.Errorf("restore session: %w", err)
	}
	return deps, nil
}

func (d *clientDeps) close() {
	d.session.Close()
	d.closeStore()
}

// chatDashboard returns a dashboard backed by the conversation endpoints.
func (d *clientDeps) chatDashboard() *dashboard.Dashboard {
	return dashboard.New(dashboard.NewAPIChat(d.conversations, api.DefaultMessagePage))
}

// profileService returns the profile service with the avatar bucket attached.
func (d *clientDeps) profileService(ctx context.Context, cfg config.AvatarConfig) (*profile.Service, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("avatar uploads need HUDDLE_AVATAR_BUCKET")
	}
	uploader, err := storage.NewS3Storage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return profile.NewService(uploader, d.users, d.session, cfg.Size), nil
}

// resolveUser accepts a numeric id or a username.
func (d *clientDeps) resolveUser(ctx context.Context, ref string) (uint, error) {
	ref = strings.TrimPrefix(strings.TrimSpace(ref), "@")
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil && id > 0 {
		return uint(id), nil
	}
	user, err := d.directory.ByUsername(ctx, ref)
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

// connect returns the client dependencies, building them on first use.
func (rt *runtime) connect(ctx context.Context) (*clientDeps, error) {
	if rt.client != nil {
		return rt.client, nil
	}
	deps, err := buildClient(ctx, rt.cfg, rt)
	if err != nil {
		return nil, err
	}
	rt.client = deps
	return deps, nil
}

// signedIn returns the client dependencies and fails when no session is active.
func (rt *runtime) signedIn(ctx context.Context) (*clientDeps, error) {
	deps, err := rt.connect(ctx)
	if err != nil {
		return nil, err
	}
	if !deps.session.IsAuthenticated() {
		return nil, ErrNotSignedIn
	}
	return deps, nil
}

func parseID(value, what string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s %q", what, value)
	}
	return uint(id), nil
}
