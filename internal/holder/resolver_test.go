package holder

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/iskinnyufat-del/mc/internal/domain"
	"github.com/iskinnyufat-del/mc/internal/solana"
	"github.com/iskinnyufat-del/mc/internal/storage"
	"github.com/iskinnyufat-del/mc/internal/storage/memory"
)

const (
	testOwner = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	testMint  = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	testMint2 = "So11111111111111111111111111111111111111112"
)

// stubClient serves canned balances or errors per mint.
type stubClient struct {
	balances map[string]float64
	errs     map[string]error
	err      error // applies to all mints when set
	calls    []string
}

func (c *stubClient) GetTokenAccountsByOwner(_ context.Context, _, mint, _ string) ([]solana.TokenAccount, error) {
	c.calls = append(c.calls, mint)
	if c.err != nil {
		return nil, c.err
	}
	if err := c.errs[mint]; err != nil {
		return nil, err
	}
	amount := c.balances[mint]
	return []solana.TokenAccount{{Mint: mint, UIAmount: &amount}}, nil
}

func (c *stubClient) GetSlot(context.Context) (int64, error) {
	return 0, nil
}

// stubFactory maps endpoints to stub clients; unmapped endpoints refuse
// connections. It records the order endpoints were handed out.
type stubFactory struct {
	clients map[string]*stubClient
	order   []string
}

func (f *stubFactory) factory(endpoint string) solana.BalanceClient {
	f.order = append(f.order, endpoint)
	if c, ok := f.clients[endpoint]; ok {
		return c
	}
	return &stubClient{err: errors.New("dial tcp: connection refused")}
}

// endpointsTried returns the distinct endpoints in first-use order.
func (f *stubFactory) endpointsTried() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, e := range f.order {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestResolver(f *stubFactory, eps storage.EndpointStore, docs storage.DocumentStore) *Resolver {
	return NewResolver(Config{
		ClientFactory: f.factory,
		EndpointStore: eps,
		DocumentStore: docs,
		Logger:        quietLogger(),
	})
}

func devnetChain(mints ...domain.MintDescriptor) domain.ChainConfig {
	return domain.ChainConfig{
		Cluster:    domain.ClusterDevnet,
		Mints:      mints,
		Commitment: "confirmed",
	}
}

func TestResolve_ThirdEndpointDecidesAfterTransientFaults(t *testing.T) {
	// Two failing endpoints, then the public devnet fallback answers 2.5
	// against a threshold of 1.
	chain := devnetChain(domain.MintDescriptor{Address: testMint, MinHoldUIAmount: 1})
	chain.RPCEndpoint = "https://one.example.com"
	chain.ExtraRPCEndpoints = []string{"https://two.example.com"}

	f := &stubFactory{clients: map[string]*stubClient{
		"https://api.devnet.solana.com": {balances: map[string]float64{testMint: 2.5}},
	}}
	eps := memory.NewEndpointStore()

	r := newTestResolver(f, eps, nil)
	out := r.Resolve(context.Background(), testOwner, chain, domain.DefaultHolderConfig())

	if !out.Holder {
		t.Fatal("expected holder=true")
	}
	if !out.Determined {
		t.Error("expected a decisive on-chain outcome")
	}
	if out.Source != domain.ResolutionSourceChain {
		t.Errorf("expected source chain, got %s", out.Source)
	}
	if out.MatchedMint != testMint {
		t.Errorf("expected matched mint %s, got %s", testMint, out.MatchedMint)
	}
	if out.Amount != 2.5 {
		t.Errorf("expected amount 2.5, got %v", out.Amount)
	}
	if out.Endpoint != "https://api.devnet.solana.com" {
		t.Errorf("expected third endpoint, got %s", out.Endpoint)
	}
	if out.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", out.Attempts)
	}

	remembered, err := eps.GetLastGood(context.Background(), domain.ClusterDevnet)
	if err != nil {
		t.Fatalf("GetLastGood: %v", err)
	}
	if remembered != "https://api.devnet.solana.com" {
		t.Errorf("expected third endpoint remembered, got %s", remembered)
	}
}

func TestResolve_CleanNegativeStopsIteration(t *testing.T) {
	chain := devnetChain(domain.MintDescriptor{Address: testMint, MinHoldUIAmount: 1})
	chain.RPCEndpoint = "https://one.example.com"
	chain.ExtraRPCEndpoints = []string{"https://two.example.com"}

	f := &stubFactory{clients: map[string]*stubClient{
		"https://one.example.com": {balances: map[string]float64{testMint: 0.5}},
		"https://two.example.com": {balances: map[string]float64{testMint: 99}},
	}}
	eps := memory.NewEndpointStore()

	r := newTestResolver(f, eps, nil)
	out := r.Resolve(context.Background(), testOwner, chain, domain.DefaultHolderConfig())

	if out.Holder {
		t.Fatal("expected holder=false: first endpoint's negative is trusted")
	}
	if !out.Determined || out.Source != domain.ResolutionSourceChain {
		t.Errorf("expected decisive chain negative, got %+v", out)
	}

	tried := f.endpointsTried()
	if len(tried) != 1 || tried[0] != "https://one.example.com" {
		t.Errorf("expected only the first endpoint tried, got %v", tried)
	}

	remembered, _ := eps.GetLastGood(context.Background(), domain.ClusterDevnet)
	if remembered != "https://one.example.com" {
		t.Errorf("expected first endpoint remembered, got %s", remembered)
	}
}

func TestResolve_RememberedEndpointTriedFirst(t *testing.T) {
	chain := devnetChain(domain.MintDescriptor{Address: testMint})
	chain.RPCEndpoint = "https://primary.example.com"

	eps := memory.NewEndpointStore()
	eps.SetLastGood(context.Background(), domain.ClusterDevnet, "https://remembered.example.com")

	f := &stubFactory{clients: map[string]*stubClient{
		"https://remembered.example.com": {balances: map[string]float64{testMint: 1}},
	}}

	r := newTestResolver(f, eps, nil)
	out := r.Resolve(context.Background(), testOwner, chain, domain.DefaultHolderConfig())

	if !out.Holder {
		t.Fatal("expected holder=true from remembered endpoint")
	}
	tried := f.endpointsTried()
	if tried[0] != "https://remembered.example.com" {
		t.Errorf("expected remembered endpoint first, got %v", tried)
	}
	if out.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", out.Attempts)
	}
}

func TestResolve_AuthQuotaFaultAdvances(t *testing.T) {
	chain := devnetChain(domain.MintDescriptor{Address: testMint})
	chain.RPCEndpoint = "https://keyed.example.com"

	f := &stubFactory{clients: map[string]*stubClient{
		"https://keyed.example.com":     {err: errors.New("RPC error -32052: API key is not provided")},
		"https://api.devnet.solana.com": {balances: map[string]float64{testMint: 3}},
	}}

	r := newTestResolver(f, memory.NewEndpointStore(), nil)
	out := r.Resolve(context.Background(), testOwner, chain, domain.DefaultHolderConfig())

	if !out.Holder {
		t.Fatal("expected holder=true after advancing past auth/quota fault")
	}
	if out.Endpoint != "https://api.devnet.solana.com" {
		t.Errorf("expected fallback endpoint decisive, got %s", out.Endpoint)
	}
}

func TestResolve_QueryErrorAbandonsRemainingMints(t *testing.T) {
	chain := devnetChain(
		domain.MintDescriptor{Address: testMint},
		domain.MintDescriptor{Address: testMint2},
	)
	chain.RPCEndpoint = "https://flaky.example.com"

	flaky := &stubClient{errs: map[string]error{testMint: errors.New("boom")}}
	good := &stubClient{balances: map[string]float64{testMint: 0, testMint2: 7}}
	f := &stubFactory{clients: map[string]*stubClient{
		"https://flaky.example.com":     flaky,
		"https://api.devnet.solana.com": good,
	}}

	r := newTestResolver(f, memory.NewEndpointStore(), nil)
	out := r.Resolve(context.Background(), testOwner, chain, domain.DefaultHolderConfig())

	if !out.Holder || out.MatchedMint != testMint2 {
		t.Fatalf("expected holder via second mint on next endpoint, got %+v", out)
	}

	// The flaky endpoint must not have been asked about the second mint.
	if len(flaky.calls) != 1 || flaky.calls[0] != testMint {
		t.Errorf("expected flaky endpoint abandoned after first mint, calls: %v", flaky.calls)
	}
	// Mint order is priority order on the good endpoint.
	if len(good.calls) != 2 || good.calls[0] != testMint || good.calls[1] != testMint2 {
		t.Errorf("expected both mints queried in order, calls: %v", good.calls)
	}
}

func TestResolve_BalanceEqualToThresholdDoesNotHold(t *testing.T) {
	chain := devnetChain(domain.MintDescriptor{Address: testMint, MinHoldUIAmount: 1})
	chain.RPCEndpoint = "https://one.example.com"

	f := &stubFactory{clients: map[string]*stubClient{
		"https://one.example.com": {balances: map[string]float64{testMint: 1}},
	}}

	r := newTestResolver(f, memory.NewEndpointStore(), nil)
	out := r.Resolve(context.Background(), testOwner, chain, domain.DefaultHolderConfig())

	if out.Holder {
		t.Error("balance equal to the threshold must not count as holding")
	}

	// Strictly above the threshold does.
	f2 := &stubFactory{clients: map[string]*stubClient{
		"https://one.example.com": {balances: map[string]float64{testMint: 1.000001}},
	}}
	r2 := newTestResolver(f2, memory.NewEndpointStore(), nil)
	if !r2.Resolve(context.Background(), testOwner, chain, domain.DefaultHolderConfig()).Holder {
		t.Error("balance strictly above the threshold must count as holding")
	}
}

func TestResolve_AllEndpointsFailForceFlagWins(t *testing.T) {
	chain := devnetChain(domain.MintDescriptor{Address: testMint})
	chain.RPCEndpoint = "https://one.example.com"

	f := &stubFactory{clients: map[string]*stubClient{}} // everything refuses

	cfg := domain.DefaultHolderConfig()
	cfg.ForceAllAsHolder = true

	r := newTestResolver(f, memory.NewEndpointStore(), nil)
	out := r.Resolve(context.Background(), testOwner, chain, cfg)

	if !out.Holder {
		t.Fatal("expected holder=true via force flag")
	}
	if out.Source != domain.ResolutionSourceForce {
		t.Errorf("expected source force, got %s", out.Source)
	}
	if out.Determined {
		t.Error("fallback outcome must not claim an on-chain determination")
	}
	if out.Attempts == 0 {
		t.Error("expected endpoint attempts to be counted before fallback")
	}
}

func TestResolve_AllEndpointsFailNoFallbackMatch(t *testing.T) {
	chain := devnetChain(domain.MintDescriptor{Address: testMint})

	f := &stubFactory{clients: map[string]*stubClient{}}
	docs := memory.NewDocumentStore()

	r := newTestResolver(f, memory.NewEndpointStore(), docs)
	if r.IsHolder(context.Background(), testOwner, chain, domain.DefaultHolderConfig()) {
		t.Error("expected holder=false when everything fails")
	}
}

func TestResolve_NonSolanaAddressSkipsChain(t *testing.T) {
	chain := devnetChain(domain.MintDescriptor{Address: testMint})
	chain.RPCEndpoint = "https://one.example.com"

	f := &stubFactory{clients: map[string]*stubClient{
		"https://one.example.com": {balances: map[string]float64{testMint: 10}},
	}}

	r := newTestResolver(f, memory.NewEndpointStore(), nil)
	out := r.Resolve(context.Background(), "0x8ba1f109551bD432803012645Ac136ddd64DBA72", chain, domain.DefaultHolderConfig())

	if out.Holder {
		t.Error("expected holder=false for a non-Solana address with no fallback match")
	}
	if len(f.order) != 0 {
		t.Errorf("expected no RPC traffic for a non-Solana address, got %v", f.order)
	}
}

func TestResolve_NoMintsUsesWhitelistLowercase(t *testing.T) {
	chain := devnetChain() // no mints: on-chain phase is inapplicable

	docs := memory.NewDocumentStore()
	docs.SetDocument("whitelist", "tokenkegqfezyinwajbnbgkpfxcwubvf9ss623vq5da", map[string]interface{}{
		"holder": true,
	})

	f := &stubFactory{clients: map[string]*stubClient{}}
	r := newTestResolver(f, memory.NewEndpointStore(), docs)

	out := r.Resolve(context.Background(), testOwner, chain, domain.DefaultHolderConfig())
	if !out.Holder {
		t.Fatal("expected holder=true via lower-cased allow-list entry")
	}
	if out.Source != domain.ResolutionSourceWhitelist {
		t.Errorf("expected source whitelist, got %s", out.Source)
	}
	if len(f.order) != 0 {
		t.Errorf("expected no RPC traffic without mints, got %v", f.order)
	}
}

func TestResolve_WhitelistRequiresExplicitHolderTrue(t *testing.T) {
	chain := devnetChain()

	docs := memory.NewDocumentStore()
	docs.SetDocument("whitelist", testOwner, map[string]interface{}{"holder": false})

	r := newTestResolver(&stubFactory{}, memory.NewEndpointStore(), docs)
	if r.IsHolder(context.Background(), testOwner, chain, domain.DefaultHolderConfig()) {
		t.Error("expected holder=false for allow-list entry without holder=true")
	}

	docs.SetDocument("whitelist", testOwner, map[string]interface{}{"note": "present but unmarked"})
	if r.IsHolder(context.Background(), testOwner, chain, domain.DefaultHolderConfig()) {
		t.Error("expected holder=false for allow-list entry missing the marker field")
	}
}

type failingDocStore struct{}

func (failingDocStore) GetDocument(context.Context, string, string) (map[string]interface{}, error) {
	return nil, errors.New("store unavailable")
}

func TestResolve_WhitelistFaultResolvesNegative(t *testing.T) {
	chain := devnetChain()

	r := newTestResolver(&stubFactory{}, memory.NewEndpointStore(), failingDocStore{})
	if r.IsHolder(context.Background(), testOwner, chain, domain.DefaultHolderConfig()) {
		t.Error("expected holder=false when the allow-list store faults")
	}
}

type failingEndpointStore struct{}

func (failingEndpointStore) GetLastGood(context.Context, string) (string, error) {
	return "", errors.New("state store down")
}

func (failingEndpointStore) SetLastGood(context.Context, string, string) error {
	return errors.New("state store down")
}

func TestResolve_EndpointStoreFaultsAreSwallowed(t *testing.T) {
	chain := devnetChain(domain.MintDescriptor{Address: testMint})

	f := &stubFactory{clients: map[string]*stubClient{
		"https://api.devnet.solana.com": {balances: map[string]float64{testMint: 5}},
	}}

	r := newTestResolver(f, failingEndpointStore{}, nil)
	out := r.Resolve(context.Background(), testOwner, chain, domain.DefaultHolderConfig())

	if !out.Holder {
		t.Error("expected resolution to succeed despite endpoint-state faults")
	}
}

func TestResolve_QueryTimeoutBoundsSlowEndpoint(t *testing.T) {
	chain := devnetChain(domain.MintDescriptor{Address: testMint})

	slow := &slowClient{delay: 200 * time.Millisecond}
	r := NewResolver(Config{
		ClientFactory: func(string) solana.BalanceClient { return slow },
		QueryTimeout:  20 * time.Millisecond,
		Logger:        quietLogger(),
	})

	start := time.Now()
	out := r.Resolve(context.Background(), testOwner, chain, domain.DefaultHolderConfig())
	elapsed := time.Since(start)

	if out.Holder {
		t.Error("expected holder=false when every endpoint times out")
	}
	// One bounded attempt per candidate endpoint, nowhere near delay*attempts.
	if elapsed > 150*time.Millisecond {
		t.Errorf("resolution took %v, timeout bound not applied", elapsed)
	}
}

// slowClient honors context cancellation after a fixed delay.
type slowClient struct {
	delay time.Duration
}

func (c *slowClient) GetTokenAccountsByOwner(ctx context.Context, _, mint string, _ string) ([]solana.TokenAccount, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.delay):
		amount := 100.0
		return []solana.TokenAccount{{Mint: mint, UIAmount: &amount}}, nil
	}
}

func (c *slowClient) GetSlot(context.Context) (int64, error) {
	return 0, nil
}
