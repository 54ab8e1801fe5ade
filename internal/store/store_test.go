package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, s Store, userID string) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, userID, "master_files")
	require.ErrorIs(t, err, ErrNotFound)

	before := time.Now().Add(-time.Minute)
	require.NoError(t, s.Put(ctx, userID, "master_files", "first draft"))

	doc, err := s.Get(ctx, userID, "master_files")
	require.NoError(t, err)
	assert.Equal(t, userID, doc.UserID)
	assert.Equal(t, "master_files", doc.Collection)
	assert.Equal(t, "first draft", doc.Content)
	assert.True(t, doc.UpdatedAt.After(before), "updated_at should be stamped on write")

	// Latest write wins; no history is kept.
	require.NoError(t, s.Put(ctx, userID, "master_files", "second draft"))
	doc, err = s.Get(ctx, userID, "master_files")
	require.NoError(t, err)
	assert.Equal(t, "second draft", doc.Content)

	// Collections are independent.
	_, err = s.Get(ctx, userID, "core_messaging")
	assert.ErrorIs(t, err, ErrNotFound)

	// Users are independent.
	_, err = s.Get(ctx, userID+"-other", "master_files")
	assert.ErrorIs(t, err, ErrNotFound)

	// Separator characters in ids never merge two keys.
	require.NoError(t, s.Put(ctx, userID+":x", "social", "one"))
	require.NoError(t, s.Put(ctx, "x", "social:"+userID, "two"))
	doc, err = s.Get(ctx, userID+":x", "social")
	require.NoError(t, err)
	assert.Equal(t, "one", doc.Content)
	doc, err = s.Get(ctx, "x", "social:"+userID)
	require.NoError(t, err)
	assert.Equal(t, "two", doc.Content)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	exerciseStore(t, s, "default_user")
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "scribe.db"))
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s, "default_user")
}

func TestNewSQLite_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "scribe.db")

	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file should exist")
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scribe.db")
	ctx := context.Background()

	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "u1", "ai_feedback", "keep it punchy"))
	s.Close()

	s, err = NewSQLite(dbPath)
	require.NoError(t, err)
	defer s.Close()

	doc, err := s.Get(ctx, "u1", "ai_feedback")
	require.NoError(t, err)
	assert.Equal(t, "keep it punchy", doc.Content)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	s.Close()

	s, err = Open(ctx, Options{Backend: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	s.Close()

	_, err = Open(ctx, Options{Backend: "firestore"})
	assert.Error(t, err)
}
