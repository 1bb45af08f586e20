// Package sqlitestore is a file-backed token store, the durable equivalent of a browser
// profile's local storage. Values are partitioned by profile name.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	autherrors "github.com/jrsteele09/go-hr-session/internal/errors"
	"github.com/jrsteele09/go-hr-session/tokenstore"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	dirPermissions  = 0o700
	filePermissions = 0o600

	busyTimeoutMs     = 5000
	connectionTimeout = 5 * time.Second
)

const schema = `
CREATE TABLE IF NOT EXISTS auth_store (
	profile    TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (profile, key)
)`

// Store keeps one profile's credentials in a SQLite file.
type Store struct {
	db      *sql.DB
	path    string
	profile string
}

var _ tokenstore.Backend = (*Store)(nil)

// Open creates the directory and database file if needed and prepares the schema.
func Open(ctx context.Context, path, profile string) (*Store, error) {
	if profile == "" {
		return nil, fmt.Errorf("profile is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating token store directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL", path, busyTimeoutMs)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening token store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close() //nolint:errcheck // best effort cleanup on error path
		return nil, fmt.Errorf("verifying token store: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close() //nolint:errcheck // best effort cleanup on error path
		return nil, fmt.Errorf("creating token store schema: %w", err)
	}
	_ = os.Chmod(path, filePermissions) //nolint:errcheck // file exists after the schema write

	return &Store{db: db, path: path, profile: profile}, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM auth_store WHERE profile = ? AND key = ?`, s.profile, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", autherrors.ErrNotFound
		}
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO auth_store (profile, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (profile, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.profile, key, value, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM auth_store WHERE profile = ? AND key = ?`, s.profile, key,
	); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing token store: %w", err)
	}
	return nil
}
