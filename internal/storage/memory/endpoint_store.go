package memory

import (
	"context"
	"sync"

	"github.com/iskinnyufat-del/mc/internal/storage"
)

// EndpointStore is an in-memory implementation of storage.EndpointStore.
type EndpointStore struct {
	mu    sync.RWMutex
	state map[string]string
}

// NewEndpointStore creates a new in-memory endpoint store.
func NewEndpointStore() *EndpointStore {
	return &EndpointStore{
		state: make(map[string]string),
	}
}

// Compile-time interface check.
var _ storage.EndpointStore = (*EndpointStore)(nil)

// GetLastGood returns the remembered endpoint for a cluster.
func (s *EndpointStore) GetLastGood(_ context.Context, cluster string) (string, error) {
	if cluster == "" {
		return "", storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	endpoint, ok := s.state[storage.LastGoodKey(cluster)]
	if !ok {
		return "", storage.ErrNotFound
	}
	return endpoint, nil
}

// SetLastGood remembers the endpoint for a cluster.
func (s *EndpointStore) SetLastGood(_ context.Context, cluster, endpoint string) error {
	if cluster == "" || endpoint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state[storage.LastGoodKey(cluster)] = endpoint
	return nil
}
