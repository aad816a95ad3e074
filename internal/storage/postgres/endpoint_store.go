package postgres

import (
	"context"

	"github.com/iskinnyufat-del/mc/internal/storage"
)

// EndpointStore is a PostgreSQL implementation of storage.EndpointStore.
// Remembered endpoints live in the resolver_state key-value table under
// keys of the form "lastGoodRpc:<cluster>".
type EndpointStore struct {
	pool *Pool
}

// NewEndpointStore creates a new PostgreSQL endpoint store.
func NewEndpointStore(pool *Pool) *EndpointStore {
	return &EndpointStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EndpointStore = (*EndpointStore)(nil)

// GetLastGood returns the remembered endpoint for a cluster.
func (s *EndpointStore) GetLastGood(ctx context.Context, cluster string) (string, error) {
	if cluster == "" {
		return "", storage.ErrInvalidInput
	}

	row := s.pool.QueryRow(ctx, `
		SELECT value
		FROM resolver_state
		WHERE key = $1
	`, storage.LastGoodKey(cluster))

	var endpoint string
	if err := row.Scan(&endpoint); err != nil {
		if isNotFoundError(err) {
			return "", storage.ErrNotFound
		}
		return "", err
	}

	return endpoint, nil
}

// SetLastGood remembers the endpoint for a cluster.
// Uses upsert to handle initial insert and subsequent updates.
func (s *EndpointStore) SetLastGood(ctx context.Context, cluster, endpoint string) error {
	if cluster == "" || endpoint == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO resolver_state (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    updated_at = NOW()
	`, storage.LastGoodKey(cluster), endpoint)

	return err
}
