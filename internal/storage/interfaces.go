package storage

import (
	"context"

	"github.com/iskinnyufat-del/mc/internal/domain"
)

// LastGoodKey returns the state key under which the last-good RPC endpoint
// for a cluster is persisted.
func LastGoodKey(cluster string) string {
	return "lastGoodRpc:" + cluster
}

// EndpointStore persists the last RPC endpoint that answered a resolution
// for each cluster. The value is advisory: it only biases future endpoint
// ordering, so concurrent last-writer-wins updates are acceptable.
type EndpointStore interface {
	// GetLastGood returns the remembered endpoint for a cluster.
	// Returns ErrNotFound when no endpoint has been remembered yet.
	GetLastGood(ctx context.Context, cluster string) (string, error)

	// SetLastGood remembers the endpoint for a cluster, overwriting any
	// previous value.
	SetLastGood(ctx context.Context, cluster, endpoint string) error
}

// DocumentStore reads single documents addressed by a two-part path
// (collection, doc). Used for the remote draw configuration
// ("config"/"draw") and the allow-list ("whitelist"/<address>).
type DocumentStore interface {
	// GetDocument returns the document's fields. Returns ErrNotFound when
	// the document does not exist.
	GetDocument(ctx context.Context, collection, doc string) (map[string]interface{}, error)
}

// ResolutionStore records completed holder resolutions for audit.
type ResolutionStore interface {
	// Insert appends one resolution record.
	Insert(ctx context.Context, r *domain.Resolution) error
}
