// Package endpoints builds the ordered candidate list of RPC endpoints for
// one resolution: remembered last-good endpoint first, then the configured
// primary and extras, then a fixed public fallback set.
package endpoints

import (
	"strings"

	"github.com/iskinnyufat-del/mc/internal/domain"
)

// Public fallback endpoints, tried after everything configured. Vendor-neutral
// and usable without credentials. The canonical cluster endpoint goes last:
// it is the most aggressive about rejecting anonymous traffic.
var mainnetFallbacks = []string{
	"https://solana-rpc.publicnode.com",
	"https://rpc.ankr.com/solana",
	"https://api.mainnet-beta.solana.com",
}

// PublicFallbacks returns the fixed fallback endpoints for a cluster.
// Unknown clusters are treated as mainnet-beta.
func PublicFallbacks(cluster string) []string {
	switch cluster {
	case domain.ClusterDevnet:
		return []string{"https://api.devnet.solana.com"}
	case domain.ClusterTestnet:
		return []string{"https://api.testnet.solana.com"}
	default:
		return mainnetFallbacks
	}
}

// Build produces the ordered, deduplicated candidate endpoint list for one
// resolution. lastGood is the remembered endpoint for the cluster, empty when
// absent. Entries are trimmed; empties and entries without an http(s) scheme
// are discarded; duplicates keep their first occurrence. The result is never
// empty because the fallback set is always appended.
func Build(cfg domain.ChainConfig, lastGood string) []string {
	raw := make([]string, 0, 3+len(cfg.ExtraRPCEndpoints)+len(mainnetFallbacks))
	raw = append(raw, lastGood)
	raw = append(raw, cfg.PrimaryEndpoint())
	raw = append(raw, cfg.ExtraRPCEndpoints...)
	raw = append(raw, PublicFallbacks(cfg.Cluster)...)

	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		e = strings.TrimSpace(e)
		if !validEndpoint(e) {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

func validEndpoint(e string) bool {
	return strings.HasPrefix(e, "http://") || strings.HasPrefix(e, "https://")
}
