// Package holder decides whether a wallet address counts as a token holder
// for draw-chance allotment. On-chain resolution walks an ordered candidate
// list of RPC endpoints, one bounded query per endpoint per mint, and trusts
// the first decisive answer; when every endpoint fails, resolution falls
// through to a forced-holder flag and an allow-list.
package holder

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/iskinnyufat-del/mc/internal/domain"
	"github.com/iskinnyufat-del/mc/internal/endpoints"
	"github.com/iskinnyufat-del/mc/internal/observability"
	"github.com/iskinnyufat-del/mc/internal/solana"
	"github.com/iskinnyufat-del/mc/internal/storage"
)

// Config configures a Resolver.
type Config struct {
	// ClientFactory builds an RPC client per candidate endpoint. Required.
	ClientFactory solana.ClientFactory

	// EndpointStore persists the last-good endpoint per cluster. Optional;
	// read and write failures are swallowed either way.
	EndpointStore storage.EndpointStore

	// DocumentStore serves the allow-list during fallback. Optional; absent
	// means allow-list lookups resolve negative.
	DocumentStore storage.DocumentStore

	// QueryTimeout overrides the per-query bound. Zero means QueryTimeout.
	QueryTimeout time.Duration

	// Logger receives diagnostics. Defaults to log.Default().
	Logger *log.Logger
}

// Resolver decides holder status for wallet addresses.
type Resolver struct {
	factory      solana.ClientFactory
	endpoints    storage.EndpointStore
	documents    storage.DocumentStore
	queryTimeout time.Duration
	logger       *log.Logger
}

// NewResolver creates a Resolver.
func NewResolver(cfg Config) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = QueryTimeout
	}
	return &Resolver{
		factory:      cfg.ClientFactory,
		endpoints:    cfg.EndpointStore,
		documents:    cfg.DocumentStore,
		queryTimeout: timeout,
		logger:       logger,
	}
}

// Outcome is the result of one resolution.
type Outcome struct {
	Holder bool

	// Determined is true when a decisive on-chain answer was obtained,
	// false when the answer came from the fallback chain.
	Determined bool

	// Source names what decided the outcome (domain.ResolutionSource*).
	Source string

	// MatchedMint and Amount are set for on-chain holder=true outcomes.
	MatchedMint string
	Amount      float64

	// Endpoint is the endpoint that produced the decisive answer.
	Endpoint string

	// Attempts counts endpoints tried during the on-chain phase.
	Attempts int

	Duration time.Duration
}

// Resolution converts the outcome into an audit record.
func (o Outcome) Resolution(cluster, address string) *domain.Resolution {
	return &domain.Resolution{
		Timestamp:   time.Now().UTC(),
		Cluster:     cluster,
		Address:     address,
		Holder:      o.Holder,
		Determined:  o.Determined,
		Source:      o.Source,
		MatchedMint: o.MatchedMint,
		Amount:      o.Amount,
		Endpoint:    o.Endpoint,
		Attempts:    o.Attempts,
		Duration:    o.Duration,
	}
}

// IsHolder resolves the address and returns only the boolean decision.
// It never fails: every fault along the way collapses into the fallback
// chain, and the worst case is holder=false.
func (r *Resolver) IsHolder(ctx context.Context, address string, chain domain.ChainConfig, cfg domain.HolderConfig) bool {
	return r.Resolve(ctx, address, chain, cfg).Holder
}

// Resolve decides holder status for the address and reports how the decision
// was reached.
func (r *Resolver) Resolve(ctx context.Context, address string, chain domain.ChainConfig, cfg domain.HolderConfig) Outcome {
	start := time.Now()
	out := r.resolve(ctx, address, chain, cfg)
	out.Duration = time.Since(start)
	observability.RecordResolution(out.Source, out.Holder, out.Duration.Seconds())
	return out
}

func (r *Resolver) resolve(ctx context.Context, address string, chain domain.ChainConfig, cfg domain.HolderConfig) Outcome {
	address = strings.TrimSpace(address)

	if !IsSolanaAddress(address) {
		r.logger.Printf("address %q is not a %s address, using fallback", address, chain.Cluster)
		return r.fallback(ctx, address, cfg, 0)
	}

	if !chain.HasMints() {
		return r.fallback(ctx, address, cfg, 0)
	}

	if !IsOnCurve(address) {
		r.logger.Printf("address %s is off-curve (program-derived), querying anyway", address)
	}

	out, decisive := r.resolveOnChain(ctx, address, chain)
	if decisive {
		return out
	}
	return r.fallback(ctx, address, cfg, out.Attempts)
}

// resolveOnChain walks the candidate endpoints in order. The second return
// is false when every endpoint faulted before producing a decisive answer.
func (r *Resolver) resolveOnChain(ctx context.Context, address string, chain domain.ChainConfig) (Outcome, bool) {
	candidates := endpoints.Build(chain, r.lastGood(ctx, chain.Cluster))

	attempts := 0
	for _, ep := range candidates {
		attempts++

		out, err := r.tryEndpoint(ctx, ep, address, chain)
		if err != nil {
			kind := ClassifyFault(err)
			observability.RecordEndpointAttempt("fault")
			observability.RecordEndpointFault(kind.String())
			r.logger.Printf("endpoint %s: %s: %v", ep, kind, err)
			continue
		}

		observability.RecordEndpointAttempt("decisive")
		out.Attempts = attempts
		r.rememberEndpoint(ctx, chain.Cluster, ep)
		return out, true
	}

	return Outcome{Attempts: attempts}, false
}

// tryEndpoint queries every configured mint against one endpoint. The first
// balance strictly above its threshold is decisive holder=true; completing
// all mints without a match is decisive holder=false. Any query error
// abandons the endpoint.
func (r *Resolver) tryEndpoint(ctx context.Context, endpoint, owner string, chain domain.ChainConfig) (Outcome, error) {
	for _, m := range chain.Mints {
		mint := strings.TrimSpace(m.Address)
		if mint == "" {
			continue
		}

		amount, err := r.mintBalance(ctx, endpoint, chain.Commitment, owner, mint)
		if err != nil {
			return Outcome{}, err
		}

		if amount > m.Threshold() {
			return Outcome{
				Holder:      true,
				Determined:  true,
				Source:      domain.ResolutionSourceChain,
				MatchedMint: mint,
				Amount:      amount,
				Endpoint:    endpoint,
			}, nil
		}
	}

	// A working endpoint answered all mints: the negative is trusted.
	return Outcome{
		Determined: true,
		Source:     domain.ResolutionSourceChain,
		Endpoint:   endpoint,
	}, nil
}

// lastGood reads the remembered endpoint for a cluster, empty on any failure.
func (r *Resolver) lastGood(ctx context.Context, cluster string) string {
	if r.endpoints == nil {
		return ""
	}

	ep, err := r.endpoints.GetLastGood(ctx, cluster)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			observability.RecordStoreFault("endpoint_state")
			r.logger.Printf("read last-good endpoint for %s: %v", cluster, err)
		}
		return ""
	}
	return ep
}

// rememberEndpoint persists the endpoint that produced a decisive answer.
// Failures are advisory-state losses, never surfaced.
func (r *Resolver) rememberEndpoint(ctx context.Context, cluster, endpoint string) {
	if r.endpoints == nil {
		return
	}

	if err := r.endpoints.SetLastGood(ctx, cluster, endpoint); err != nil {
		observability.RecordStoreFault("endpoint_state")
		r.logger.Printf("remember endpoint %s for %s: %v", endpoint, cluster, err)
		return
	}
	observability.RecordLastGoodWrite()
}
