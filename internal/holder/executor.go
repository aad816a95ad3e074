package holder

import (
	"context"
	"fmt"
	"time"

	"github.com/iskinnyufat-del/mc/internal/observability"
)

// QueryTimeout bounds one balance query against one endpoint. The contract
// allows 2.0s or 2.5s; this implementation uses 2.5s throughout.
const QueryTimeout = 2500 * time.Millisecond

// mintBalance issues one bounded getTokenAccountsByOwner query and sums the
// UI amounts across the returned accounts. Accounts without a parsed amount
// contribute 0.
func (r *Resolver) mintBalance(ctx context.Context, endpoint, commitment, owner, mint string) (float64, error) {
	qctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	started := time.Now()
	accounts, err := r.factory(endpoint).GetTokenAccountsByOwner(qctx, owner, mint, commitment)
	observability.RecordRPCLatency("getTokenAccountsByOwner", time.Since(started).Seconds())
	if err != nil {
		return 0, fmt.Errorf("balance of %s at %s: %w", mint, endpoint, err)
	}

	var total float64
	for _, a := range accounts {
		total += a.UIBalance()
	}
	return total, nil
}
