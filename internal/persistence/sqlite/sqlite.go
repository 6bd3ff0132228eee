// Package sqlite persists collection documents in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	pkgerrors "github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/GuelfoNero-beep/D117/internal/persistence"
	"github.com/GuelfoNero-beep/D117/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage implements persistence.Storage on a documents table.
type Storage struct {
	db     *sqlx.DB
	retry  RetryConfig
	now    func() time.Time
	logger *slog.Logger
}

// Open connects to the database at path using DefaultConfig.
func Open(path string, logger *slog.Logger) (*Storage, error) {
	return OpenWithConfig(DefaultConfig(path), logger)
}

// OpenWithConfig connects using cfg. Call Migrate before first use.
func OpenWithConfig(cfg Config, logger *slog.Logger) (*Storage, error) {
	db, err := sqlx.Open("sqlite", cfg.DSN())
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "open sqlite %s", cfg.Path)
	}
	// A single connection keeps ":memory:" databases alive and serialises writers.
	db.SetMaxOpenConns(1)

	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{db: db, retry: DefaultRetryConfig(), now: time.Now, logger: logger}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	return migration.NewManager(s.db, migrationFiles, "migrations", s.logger).Run(ctx)
}

// Close releases the database handle.
func (s *Storage) Close() error {
	return s.db.Close()
}

// Get implements persistence.Storage.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.db.GetContext(ctx, &payload, `SELECT payload FROM documents WHERE key = ?`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrNotFound
		}
		return nil, pkgerrors.Wrapf(err, "select document %s", key)
	}
	return payload, nil
}

// Put implements persistence.Storage.
func (s *Storage) Put(ctx context.Context, key string, payload []byte) error {
	const upsert = `
		INSERT INTO documents (key, payload, updated_at, revision)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at,
			revision = documents.revision + 1`

	updatedAt := s.now().UTC().Format(time.RFC3339Nano)
	err := withRetry(ctx, s.retry, func() error {
		_, err := s.db.ExecContext(ctx, upsert, key, payload, updatedAt)
		return err
	})
	if err != nil {
		return pkgerrors.Wrapf(err, "upsert document %s", key)
	}
	return nil
}

// Revision reports how many times key has been written, zero when never.
func (s *Storage) Revision(ctx context.Context, key string) (int, error) {
	var revision int
	err := s.db.GetContext(ctx, &revision, `SELECT revision FROM documents WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "select revision %s", key)
	}
	return revision, nil
}
