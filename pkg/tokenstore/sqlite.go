package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const tokensSchema = `
CREATE TABLE IF NOT EXISTS tokens (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	expires_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tokens_expires ON tokens(expires_at);
`

// SQLiteStore persists tokens in a local SQLite file so a session survives
// process restarts.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSQLiteStore opens (or creates) the database at path and migrates it.
func NewSQLiteStore(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open token database: %w", err)
	}
	// One connection keeps writes serialised and :memory: databases shared.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping token database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(tokensSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("token store migration failed: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger.With().Str("component", "tokenstore.sqlite").Logger(),
	}
	s.logger.Debug().Str("path", path).Msg("token store opened")
	return s, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO tokens (key, value, expires_at, updated_at) VALUES (?, ?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at, updated_at = excluded.updated_at
	`, key, value, now.Add(ttl).UnixMilli(), now.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to store token %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*Token, error) {
	var (
		tok                  Token
		expiresAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT key, value, expires_at, updated_at FROM tokens WHERE key = ?`, key,
	).Scan(&tok.Key, &tok.Value, &expiresAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token %q: %w", key, err)
	}
	tok.ExpiresAt = time.UnixMilli(expiresAt)
	tok.UpdatedAt = time.UnixMilli(updatedAt)
	if tok.IsExpired() {
		return nil, ErrTokenExpired
	}
	return &tok, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete token %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Cleanup(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE expires_at <= ?`, time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleaned tokens: %w", err)
	}
	if n > 0 {
		s.logger.Debug().Int64("removed", n).Msg("expired tokens removed")
	}
	return int(n), nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
