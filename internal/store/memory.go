package store

import (
	"context"
	"sync"
	"time"
)

type memoryKey struct {
	collection string
	userID     string
}

// MemoryStore is an in-process Store. Contents are lost on restart.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[memoryKey]Document
}

func NewMemory() *MemoryStore {
	return &MemoryStore{docs: make(map[memoryKey]Document)}
}

func (m *MemoryStore) Get(ctx context.Context, userID, collection string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.docs[memoryKey{collection, userID}]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (m *MemoryStore) Put(ctx context.Context, userID, collection, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs[memoryKey{collection, userID}] = Document{
		UserID:     userID,
		Collection: collection,
		Content:    content,
		UpdatedAt:  time.Now().UTC(),
	}
	return nil
}

func (m *MemoryStore) Close() {}
