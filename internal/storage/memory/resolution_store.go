package memory

import (
	"context"
	"sync"

	"github.com/iskinnyufat-del/mc/internal/domain"
	"github.com/iskinnyufat-del/mc/internal/storage"
)

// ResolutionStore is an in-memory implementation of storage.ResolutionStore.
type ResolutionStore struct {
	mu          sync.RWMutex
	resolutions []*domain.Resolution
}

// NewResolutionStore creates a new in-memory resolution store.
func NewResolutionStore() *ResolutionStore {
	return &ResolutionStore{}
}

// Compile-time interface check.
var _ storage.ResolutionStore = (*ResolutionStore)(nil)

// Insert appends one resolution record.
func (s *ResolutionStore) Insert(_ context.Context, r *domain.Resolution) error {
	if r == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *r
	s.resolutions = append(s.resolutions, &copied)
	return nil
}

// All returns a snapshot of all recorded resolutions, in insertion order.
func (s *ResolutionStore) All() []*domain.Resolution {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Resolution, len(s.resolutions))
	for i, r := range s.resolutions {
		copied := *r
		out[i] = &copied
	}
	return out
}
