package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a single-file backend for local runs.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLite opens (or creates) the database at path, creating parent
// directories and the schema as needed.
func NewSQLite(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS stage_documents (
			user_id TEXT NOT NULL,
			collection TEXT NOT NULL,
			content TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (user_id, collection)
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, userID, collection string) (*Document, error) {
	var d Document
	var updatedAtStr string

	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, collection, content, updated_at
		FROM stage_documents
		WHERE user_id = ? AND collection = ?`,
		userID, collection,
	).Scan(&d.UserID, &d.Collection, &d.Content, &updatedAtStr)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying document: %w", err)
	}

	d.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &d, nil
}

func (s *SQLiteStore) Put(ctx context.Context, userID, collection, content string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stage_documents (user_id, collection, content, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, collection) DO UPDATE SET
			content = excluded.content,
			updated_at = excluded.updated_at`,
		userID, collection, content, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() {
	if err := s.db.Close(); err != nil {
		s.logger.Warn("closing database", "error", err)
	}
}
