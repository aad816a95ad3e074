package clickhouse

import (
	"context"
	"fmt"

	"github.com/iskinnyufat-del/mc/internal/domain"
	"github.com/iskinnyufat-del/mc/internal/storage"
)

// ResolutionStore implements storage.ResolutionStore using ClickHouse.
// Resolutions are append-only audit rows in holder_resolutions.
type ResolutionStore struct {
	conn *Conn
}

// NewResolutionStore creates a new ClickHouse resolution store.
func NewResolutionStore(conn *Conn) *ResolutionStore {
	return &ResolutionStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ResolutionStore = (*ResolutionStore)(nil)

// Insert appends one resolution record.
func (s *ResolutionStore) Insert(ctx context.Context, r *domain.Resolution) error {
	if r == nil {
		return storage.ErrInvalidInput
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO holder_resolutions (
			ts, cluster, address, holder, determined, source,
			matched_mint, amount, endpoint, attempts, duration_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		r.Timestamp, r.Cluster, r.Address,
		boolToUInt8(r.Holder), boolToUInt8(r.Determined), r.Source,
		r.MatchedMint, r.Amount, r.Endpoint,
		uint32(r.Attempts), uint64(r.Duration.Milliseconds()),
	)
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// CountByCluster returns the number of recorded resolutions for a cluster.
func (s *ResolutionStore) CountByCluster(ctx context.Context, cluster string) (uint64, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT count() FROM holder_resolutions WHERE cluster = ?
	`, cluster)

	var count uint64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("scan count: %w", err)
	}
	return count, nil
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
