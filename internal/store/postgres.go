package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS stage_documents (
	user_id    TEXT NOT NULL,
	collection TEXT NOT NULL,
	content    TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, collection)
)`

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Get fetches the latest document for a user in a collection.
func (s *PostgresStore) Get(ctx context.Context, userID, collection string) (*Document, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, collection, content, updated_at
		FROM stage_documents
		WHERE user_id = $1 AND collection = $2`,
		userID, collection,
	)

	var d Document
	err := row.Scan(&d.UserID, &d.Collection, &d.Content, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select document: %w", err)
	}
	return &d, nil
}

// Put creates or overwrites the document for a user in a collection.
func (s *PostgresStore) Put(ctx context.Context, userID, collection, content string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO stage_documents (user_id, collection, content, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, collection)
		DO UPDATE SET
			content = $3,
			updated_at = now()`,
		userID, collection, content,
	)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
