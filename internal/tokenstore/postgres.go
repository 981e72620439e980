package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/huddle/client/internal/db"
)

// Postgres persists tokens in the client_tokens table, scoped by namespace.
type Postgres struct {
	pool      db.Pool
	namespace string
}

// NewPostgres constructs a store backed by PostgreSQL.
func NewPostgres(pool db.Pool, namespace string) *Postgres {
	return &Postgres{pool: pool, namespace: namespace}
}

// Get loads the value stored under key.
func (s *Postgres) Get(ctx context.Context, key string) (string, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT value
        FROM client_tokens
        WHERE namespace = $1 AND key = $2
    `, s.namespace, key)

	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("select token: %w", err)
	}
	return value, nil
}

// Set upserts every entry in one transaction.
func (s *Postgres) Set(ctx context.Context, values map[string]string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin token transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for key, value := range values {
		if _, err := tx.Exec(ctx, `
            INSERT INTO client_tokens (namespace, key, value, updated_at)
            VALUES ($1, $2, $3, NOW())
            ON CONFLICT (namespace, key)
            DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
        `, s.namespace, key, value); err != nil {
			return fmt.Errorf("upsert token %s: %w", key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit token transaction: %w", err)
	}
	return nil
}

// Delete removes the keys.
func (s *Postgres) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `
        DELETE FROM client_tokens
        WHERE namespace = $1 AND key = ANY($2)
    `, s.namespace, keys); err != nil {
		return fmt.Errorf("delete tokens: %w", err)
	}
	return nil
}
