// Package history reads and writes the latest stage output per user. Lookups
// and writes never fail the caller: errors are logged and replaced with
// placeholder text or dropped.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/scribe/internal/store"
)

const (
	NotFoundPlaceholder = "No previous Master File available."
	ErrorPlaceholder    = "Error fetching Master File."
)

// PersistenceError describes a failed store operation. It is logged, never
// returned from Save or GetLatest.
type PersistenceError struct {
	Op         string
	UserID     string
	Collection string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s for %s: %v", e.Op, e.Collection, e.UserID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

type Gateway struct {
	store  store.Store
	logger *slog.Logger
}

func New(s store.Store, logger *slog.Logger) *Gateway {
	return &Gateway{store: s, logger: logger}
}

// GetLatest returns the stored content, NotFoundPlaceholder when nothing is
// stored, or ErrorPlaceholder when the store fails.
func (g *Gateway) GetLatest(ctx context.Context, userID, collection string) string {
	doc, err := g.store.Get(ctx, userID, collection)
	if errors.Is(err, store.ErrNotFound) {
		return NotFoundPlaceholder
	}
	if err != nil {
		g.logger.Error("error fetching history",
			"error", &PersistenceError{Op: "get", UserID: userID, Collection: collection, Err: err},
		)
		return ErrorPlaceholder
	}
	return doc.Content
}

// Latest is the typed read behind the history endpoint.
func (g *Gateway) Latest(ctx context.Context, userID, collection string) (*store.Document, error) {
	return g.store.Get(ctx, userID, collection)
}

// Save overwrites the user's document in collection. Failures are logged.
func (g *Gateway) Save(ctx context.Context, userID, collection, content string) {
	if err := g.store.Put(ctx, userID, collection, content); err != nil {
		g.logger.Error("error saving stage output",
			"error", &PersistenceError{Op: "save", UserID: userID, Collection: collection, Err: err},
		)
	}
}
