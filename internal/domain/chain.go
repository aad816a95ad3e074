package domain

import "strings"

// Solana cluster names as used in RPC endpoint URLs and remembered-endpoint keys.
const (
	ClusterMainnetBeta = "mainnet-beta"
	ClusterDevnet      = "devnet"
	ClusterTestnet     = "testnet"
)

// DefaultMinHoldUIAmount is the hold threshold applied when a mint descriptor
// does not set one. Effectively "any positive balance".
const DefaultMinHoldUIAmount = 1e-9

// MintDescriptor identifies one SPL token mint that qualifies an owner as a
// holder when the aggregated balance strictly exceeds MinHoldUIAmount.
type MintDescriptor struct {
	// Address is the base58 mint address. Descriptors with an empty address
	// are skipped during resolution.
	Address string

	// MinHoldUIAmount is the exclusive hold threshold in UI units.
	// Zero or negative means DefaultMinHoldUIAmount.
	MinHoldUIAmount float64
}

// Threshold returns the effective hold threshold for the mint.
func (m MintDescriptor) Threshold() float64 {
	if m.MinHoldUIAmount > 0 {
		return m.MinHoldUIAmount
	}
	return DefaultMinHoldUIAmount
}

// ChainConfig is the immutable per-resolution chain configuration.
// Mint order is priority order: the first mint whose balance clears its
// threshold decides the resolution.
type ChainConfig struct {
	// Cluster is the logical network name ("mainnet-beta", "devnet", ...).
	Cluster string

	// Mints lists qualifying token mints in priority order.
	Mints []MintDescriptor

	// Commitment is the commitment level requested from RPC nodes
	// (e.g. "confirmed", "finalized"). Empty means node default.
	Commitment string

	// RPCEndpoint is the preferred RPC endpoint URL.
	RPCEndpoint string

	// RPCURL is a legacy alias for RPCEndpoint, honored only when
	// RPCEndpoint is empty.
	RPCURL string

	// ExtraRPCEndpoints are additional candidate endpoints tried after the
	// primary, in listed order.
	ExtraRPCEndpoints []string
}

// PrimaryEndpoint returns the configured primary endpoint, preferring
// RPCEndpoint over the legacy RPCURL field.
func (c ChainConfig) PrimaryEndpoint() string {
	if c.RPCEndpoint != "" {
		return c.RPCEndpoint
	}
	return c.RPCURL
}

// HasMints reports whether at least one mint descriptor carries an address,
// i.e. whether on-chain resolution is applicable at all.
func (c ChainConfig) HasMints() bool {
	for _, m := range c.Mints {
		if strings.TrimSpace(m.Address) != "" {
			return true
		}
	}
	return false
}
