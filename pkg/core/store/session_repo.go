// Package store persists simulation sessions between requests.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cashflow_sim/pkg/core/simulate"
)

// ErrSessionNotFound is returned by Load for unknown ids.
var ErrSessionNotFound = errors.New("session not found")

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// SessionRepo stores sessions in Postgres (primary) or, without a pool, as
// JSON files in a directory.
type SessionRepo struct {
	pool    *pgxpool.Pool
	fileDir string
}

// NewSessionRepo creates a repository. If pool is nil, sessions are kept as
// files under dir (default .cache/sessions).
func NewSessionRepo(pool *pgxpool.Pool, dir string) (*SessionRepo, error) {
	if pool == nil {
		if dir == "" {
			dir = filepath.Join(".cache", "sessions")
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create session dir: %w", err)
		}
	}
	return &SessionRepo{pool: pool, fileDir: dir}, nil
}

// Save upserts the session.
func (r *SessionRepo) Save(ctx context.Context, s *simulate.Session) error {
	if !validID.MatchString(s.ID) {
		return fmt.Errorf("invalid session id %q", s.ID)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if r.pool != nil {
		query := `
			INSERT INTO sim_sessions (id, round, session_json, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id)
			DO UPDATE SET
				round = EXCLUDED.round,
				session_json = EXCLUDED.session_json,
				updated_at = EXCLUDED.updated_at;
		`
		if _, err := r.pool.Exec(ctx, query, s.ID, s.Round, data, s.UpdatedAt); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		return nil
	}

	tmp := r.path(s.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Rename(tmp, r.path(s.ID)); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Load retrieves a session by id.
func (r *SessionRepo) Load(ctx context.Context, id string) (*simulate.Session, error) {
	if !validID.MatchString(id) {
		return nil, ErrSessionNotFound
	}

	var data []byte
	if r.pool != nil {
		err := r.pool.QueryRow(ctx, `SELECT session_json FROM sim_sessions WHERE id = $1`, id).Scan(&data)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
	} else {
		b, err := os.ReadFile(r.path(id))
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read session: %w", err)
		}
		data = b
	}

	var s simulate.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	if !validID.MatchString(id) {
		return nil
	}
	if r.pool != nil {
		if _, err := r.pool.Exec(ctx, `DELETE FROM sim_sessions WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		return nil
	}
	if err := os.Remove(r.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *SessionRepo) path(id string) string {
	return filepath.Join(r.fileDir, id+".json")
}
