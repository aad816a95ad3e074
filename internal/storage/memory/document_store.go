package memory

import (
	"context"
	"sync"

	"github.com/iskinnyufat-del/mc/internal/storage"
)

// DocumentStore is an in-memory implementation of storage.DocumentStore,
// used in tests and -use-memory runs.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]interface{}
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		docs: make(map[string]map[string]interface{}),
	}
}

// Compile-time interface check.
var _ storage.DocumentStore = (*DocumentStore)(nil)

// GetDocument returns the document's fields.
func (s *DocumentStore) GetDocument(_ context.Context, collection, doc string) (map[string]interface{}, error) {
	if collection == "" || doc == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.docs[collection+"/"+doc]
	if !ok {
		return nil, storage.ErrNotFound
	}

	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out, nil
}

// SetDocument stores a document, replacing any previous fields.
func (s *DocumentStore) SetDocument(collection, doc string, data map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make(map[string]interface{}, len(data))
	for k, v := range data {
		copied[k] = v
	}
	s.docs[collection+"/"+doc] = copied
}
