package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no document exists for a user in a collection.
var ErrNotFound = errors.New("document not found")

// Document is the latest content stored for one user in one collection.
type Document struct {
	UserID     string    `json:"user_id"`
	Collection string    `json:"collection"`
	Content    string    `json:"content"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Store keeps one document per (user, collection). Put overwrites any
// previous value and stamps UpdatedAt itself.
type Store interface {
	Get(ctx context.Context, userID, collection string) (*Document, error)
	Put(ctx context.Context, userID, collection, content string) error
	Close()
}

// Options selects and configures a backend.
type Options struct {
	Backend       string
	DatabaseURL   string
	MongoURL      string
	MongoDatabase string
	SQLitePath    string
}

// Open connects to the backend named in opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "postgres":
		return NewPostgres(ctx, opts.DatabaseURL)
	case "mongo":
		return NewMongo(ctx, opts.MongoURL, opts.MongoDatabase)
	case "sqlite":
		return NewSQLite(opts.SQLitePath)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
