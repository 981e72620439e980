package tokenstore

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/huddle/client/internal/db"
	"github.com/huddle/client/internal/models"
)

func requireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("HUDDLE_INTEGRATION") != "1" {
		t.Skip("set HUDDLE_INTEGRATION=1 to run integration tests")
	}
}

func TestPostgresStoreAgainstCockroach(t *testing.T) {
	requireIntegration(t)

	server, err := testserver.NewTestServer()
	if err != nil {
		t.Fatalf("start cockroach test server: %v", err)
	}
	defer server.Stop()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		t.Fatalf("connect to cockroach test server: %v", err)
	}
	defer pool.Close()

	if _, err := db.Migrate(ctx, pool, db.Migrations()); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	applied, err := db.Migrate(ctx, pool, db.Migrations())
	if err != nil || len(applied) != 0 {
		t.Fatalf("expected second migration run to be a no-op, got %v (%v)", applied, err)
	}

	alice := NewTokens(NewPostgres(pool, "alice"))
	bob := NewTokens(NewPostgres(pool, "bob"))

	if err := alice.SavePair(ctx, models.TokenPair{AccessToken: "a1", RefreshToken: "r1"}); err != nil {
		t.Fatalf("save pair: %v", err)
	}
	if err := alice.SaveRefreshed(ctx, models.TokenPair{AccessToken: "a2", RefreshToken: "r2"}); err != nil {
		t.Fatalf("save refreshed: %v", err)
	}

	access, _ := alice.AccessToken(ctx)
	refresh, _ := alice.RefreshToken(ctx)
	if access != "a2" || refresh != "r2" {
		t.Fatalf("expected rotated pair, got %q/%q", access, refresh)
	}
	if other, _ := bob.AccessToken(ctx); other != "" {
		t.Fatalf("namespaces must be isolated, got %q", other)
	}

	if err := alice.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := NewPostgres(pool, "alice").Get(ctx, KeyRefreshToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after clear, got %v", err)
	}
}

func TestRedisStore(t *testing.T) {
	redisURL := os.Getenv("HUDDLE_TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("set HUDDLE_TEST_REDIS_URL to run redis tests")
	}

	ctx := context.Background()
	client, err := NewRedisClient(ctx, redisURL)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	defer client.Close()

	store := NewRedis(client, "test-"+t.Name())
	defer client.Del(ctx, store.key)

	tokens := NewTokens(store)
	if err := tokens.SavePair(ctx, models.TokenPair{AccessToken: "a1", RefreshToken: "r1"}); err != nil {
		t.Fatalf("save pair: %v", err)
	}
	if access, _ := tokens.AccessToken(ctx); access != "a1" {
		t.Fatalf("expected a1, got %q", access)
	}
	if err := tokens.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := store.Get(ctx, KeyAccessToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after clear, got %v", err)
	}
}
