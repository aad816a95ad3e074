package solana

import "context"

// BalanceClient is the subset of the Solana RPC surface used by holder
// resolution.
type BalanceClient interface {
	// GetTokenAccountsByOwner retrieves the parsed SPL token accounts the
	// owner holds for the given mint.
	GetTokenAccountsByOwner(ctx context.Context, owner, mint, commitment string) ([]TokenAccount, error)

	// GetSlot retrieves the current slot.
	GetSlot(ctx context.Context) (int64, error)
}

// ClientFactory constructs a BalanceClient for one endpoint URL. Clients are
// cheap to construct; the resolver builds one per candidate endpoint and does
// not pool them.
type ClientFactory func(endpoint string) BalanceClient

// NewClientFactory returns a ClientFactory producing HTTPClients with the
// given options.
func NewClientFactory(opts ...ClientOption) ClientFactory {
	return func(endpoint string) BalanceClient {
		return NewHTTPClient(endpoint, opts...)
	}
}
