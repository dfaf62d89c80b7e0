package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	mu   sync.Mutex
	pool *pgxpool.Pool
)

// ErrNoDatabaseURL is returned by InitDB when no connection string is set.
var ErrNoDatabaseURL = errors.New("database url not set")

const sessionSchema = `
CREATE TABLE IF NOT EXISTS sim_sessions (
	id           TEXT PRIMARY KEY,
	round        INTEGER NOT NULL,
	session_json JSONB NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);`

// InitDB opens the shared session pool, checks the connection and creates
// the session table. A failed attempt leaves no pool behind, so it can be
// retried; once a pool exists further calls are no-ops.
func InitDB(ctx context.Context, databaseURL string) error {
	mu.Lock()
	defer mu.Unlock()

	if pool != nil {
		return nil
	}
	if databaseURL == "" {
		return ErrNoDatabaseURL
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database config: %w", err)
	}
	// Sessions are small JSON rows written once per round.
	if cfg.MaxConns > 8 {
		cfg.MaxConns = 8
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return fmt.Errorf("database unreachable: %w", err)
	}
	if err := EnsureSchema(ctx, p); err != nil {
		p.Close()
		return err
	}

	pool = p
	return nil
}

// GetPool returns the shared pool, or nil when InitDB has not succeeded.
func GetPool() *pgxpool.Pool {
	mu.Lock()
	defer mu.Unlock()
	return pool
}

// Close releases the shared pool.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if pool != nil {
		pool.Close()
		pool = nil
	}
}

// EnsureSchema creates the session table if it does not exist.
func EnsureSchema(ctx context.Context, p *pgxpool.Pool) error {
	if _, err := p.Exec(ctx, sessionSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
