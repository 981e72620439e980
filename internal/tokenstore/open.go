package tokenstore

import (
	"context"
	"fmt"

	"github.com/huddle/client/internal/db"
)

// Supported drivers.
const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Options selects and configures a Store.
type Options struct {
	Driver      string
	Path        string
	Passphrase  string
	DatabaseURL string
	RedisURL    string
	Namespace   string
}

// Open constructs the Store named by opts.Driver. The returned close function
// releases any connections and is never nil.
func Open(ctx context.Context, opts Options) (Store, func(), error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "default"
	}

	switch opts.Driver {
	case DriverFile, "":
		if opts.Path == "" {
			return nil, nil, fmt.Errorf("token store %q requires a path", DriverFile)
		}
		var fileOpts []FileOption
		if opts.Passphrase != "" {
			fileOpts = append(fileOpts, WithPassphrase(opts.Passphrase))
		}
		return NewFile(opts.Path, fileOpts...), func() {}, nil
	case DriverMemory:
		return NewMemory(), func() {}, nil
	case DriverPostgres:
		if opts.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("token store %q requires a database url", DriverPostgres)
		}
		pool, err := db.Connect(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if _, err := db.Migrate(ctx, pool, db.Migrations()); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate token schema: %w", err)
		}
		return NewPostgres(pool, namespace), pool.Close, nil
	case DriverRedis:
		if opts.RedisURL == "" {
			return nil, nil, fmt.Errorf("token store %q requires a redis url", DriverRedis)
		}
		client, err := NewRedisClient(ctx, opts.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return NewRedis(client, namespace), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown token store %q", opts.Driver)
	}
}
