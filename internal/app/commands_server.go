package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/huddle/client/internal/auth"
	"github.com/huddle/client/internal/config"
	"github.com/huddle/client/internal/db"
	"github.com/huddle/client/internal/handlers"
	"github.com/huddle/client/internal/httpserver"
	"github.com/huddle/client/internal/middleware"
	"github.com/huddle/client/internal/repositories"
)

const (
	authRateRequests = 5
	authRateWindow   = time.Minute
	authRateBurst    = 5
	authRateTTL      = 10 * time.Minute
)

func newDevServerCommand(rt *runtime) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "dev-server",
		Short: "Run an in-memory Huddle backend for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if cmd.Flags().Changed("port") {
				rt.cfg.Dev.Port = port
			}

			deps, cleanup, err := buildDevServer(ctx, rt.cfg.Dev, rt)
			if err != nil {
				return err
			}
			defer cleanup()

			srv := httpserver.New(rt.cfg.Dev.Port, handlers.NewRouter(deps), rt.logger)
			rt.logger.Info("starting dev server", "port", rt.cfg.Dev.Port)
			return srv.Run(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Listen port (defaults to HUDDLE_DEV_PORT)")
	return cmd
}

// buildDevServer wires the development backend. Refresh sessions live in
// postgres when a database url is configured and in memory otherwise.
func buildDevServer(ctx context.Context, cfg config.DevServerConfig, rt *runtime) (handlers.Dependencies, func(), error) {
	store := repositories.NewMemory()
	cleanup := func() {}

	var sessions auth.SessionStore = auth.NewInMemorySessionStore()
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return handlers.Dependencies{}, nil, err
		}
		if _, err := db.Migrate(ctx, pool, db.Migrations()); err != nil {
			pool.Close()
			return handlers.Dependencies{}, nil, fmt.Errorf("migrate session schema: %w", err)
		}
		sessions = repositories.NewPostgresSessionStore(pool)
		cleanup = pool.Close
	}

	return handlers.Dependencies{
		Logger:        rt.logger,
		Users:         store,
		Friends:       store,
		Conversations: store,
		Sessions:      auth.NewManager(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL, sessions),
		AuthLimiter:   middleware.NewIPRateLimiter(authRateRequests, authRateWindow, authRateBurst, authRateTTL),
	}, cleanup, nil
}

func newMigrateCommand(rt *runtime) *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:       "migrate [up|status]",
		Short:     "Apply or inspect the postgres schema used by the token and session stores",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			command := "up"
			if len(args) > 0 {
				command = args[0]
			}

			if databaseURL == "" {
				databaseURL = rt.cfg.Tokens.DatabaseURL
			}
			if databaseURL == "" {
				databaseURL = rt.cfg.Dev.DatabaseURL
			}
			if databaseURL == "" {
				return errors.New("no database configured, set HUDDLE_TOKEN_DATABASE_URL or pass --database-url")
			}

			fsys := migrationSource(rt.cfg.Tokens.MigrationDir)

			pool, err := db.Connect(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			switch command {
			case "status":
				states, err := db.Status(ctx, pool, fsys)
				if err != nil {
					return err
				}
				for _, state := range states {
					mark := " "
					if state.Applied {
						mark = "x"
					}
					rt.printf("[%s] %s\n", mark, state.Name)
				}
				return nil
			case "up":
				applied, err := db.Migrate(ctx, pool, fsys)
				for _, name := range applied {
					rt.printf("applied migration %s\n", name)
				}
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					rt.printf("no migrations to apply\n")
				}
				return nil
			default:
				return fmt.Errorf("unknown migrate command %q", command)
			}
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string")
	return cmd
}

// migrationSource reads migrations from dir when set and from the embedded
// set otherwise.
func migrationSource(dir string) fs.FS {
	if dir == "" {
		return db.Migrations()
	}
	return os.DirFS(dir)
}
