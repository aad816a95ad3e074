// Package main provides a one-shot CLI that resolves holder status for a
// single wallet address and prints the outcome as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/iskinnyufat-del/mc/internal/domain"
	"github.com/iskinnyufat-del/mc/internal/holder"
	"github.com/iskinnyufat-del/mc/internal/remoteconfig"
	"github.com/iskinnyufat-del/mc/internal/solana"
	"github.com/iskinnyufat-del/mc/internal/storage"
	fsstore "github.com/iskinnyufat-del/mc/internal/storage/firestore"
	"github.com/iskinnyufat-del/mc/internal/storage/memory"
	"github.com/iskinnyufat-del/mc/internal/storage/migrations"
	pgstore "github.com/iskinnyufat-del/mc/internal/storage/postgres"
)

// Output is the JSON printed for one resolution.
type Output struct {
	Address     string  `json:"address"`
	Cluster     string  `json:"cluster"`
	Holder      bool    `json:"holder"`
	Chances     int     `json:"chances"`
	Source      string  `json:"source"`
	Endpoint    string  `json:"endpoint,omitempty"`
	MatchedMint string  `json:"matched_mint,omitempty"`
	Amount      float64 `json:"amount,omitempty"`
	Attempts    int     `json:"attempts"`
	DurationMs  int64   `json:"duration_ms"`
}

func main() {
	// Parse flags
	cluster := flag.String("cluster", envOr("SOLANA_CLUSTER", domain.ClusterMainnetBeta), "Solana cluster name")
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Primary Solana RPC HTTP endpoint")
	extraEndpoints := flag.String("extra-rpc-endpoints", os.Getenv("SOLANA_EXTRA_RPC_ENDPOINTS"), "Comma-separated additional RPC endpoints")
	commitment := flag.String("commitment", envOr("SOLANA_COMMITMENT", "confirmed"), "Commitment level for balance queries")
	mints := flag.String("mints", os.Getenv("HOLDER_MINTS"), "Comma-separated mints, each ADDRESS or ADDRESS=MIN_UI_AMOUNT")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string for endpoint state (optional)")
	firestoreProject := flag.String("firestore-project", os.Getenv("FIRESTORE_PROJECT"), "Firestore project for remote config and allow-list (optional)")
	firestoreCreds := flag.String("firestore-credentials", os.Getenv("FIRESTORE_CREDENTIALS"), "Firestore credentials file (optional)")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall resolution deadline")
	verbose := flag.Bool("verbose", false, "Log endpoint faults and fallback decisions to stderr")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <wallet-address>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	address := flag.Arg(0)

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(os.Stderr, "[resolve] ", log.LstdFlags)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	chain := domain.ChainConfig{
		Cluster:           *cluster,
		Mints:             parseMints(*mints, logger),
		Commitment:        *commitment,
		RPCEndpoint:       *rpcEndpoint,
		ExtraRPCEndpoints: splitList(*extraEndpoints),
	}

	// Endpoint state: PostgreSQL when given, otherwise in-memory (no
	// cross-run endpoint memory).
	var endpointStore storage.EndpointStore = memory.NewEndpointStore()
	if *postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to postgres: %v\n", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			fmt.Fprintf(os.Stderr, "Error running postgres migrations: %v\n", err)
			os.Exit(1)
		}
		endpointStore = pgstore.NewEndpointStore(pool)
	}

	// Documents: Firestore when given, otherwise absent (fallback chain
	// degrades to the default).
	var documentStore storage.DocumentStore
	if *firestoreProject != "" {
		docs, err := fsstore.Connect(ctx, *firestoreProject, *firestoreCreds)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to firestore: %v\n", err)
			os.Exit(1)
		}
		defer docs.Close()
		documentStore = docs
	}

	cfg := remoteconfig.Load(ctx, documentStore, logger)

	resolver := holder.NewResolver(holder.Config{
		ClientFactory: solana.NewClientFactory(),
		EndpointStore: endpointStore,
		DocumentStore: documentStore,
		Logger:        logger,
	})

	out := resolver.Resolve(ctx, address, chain, cfg)

	result := Output{
		Address:     strings.TrimSpace(address),
		Cluster:     chain.Cluster,
		Holder:      out.Holder,
		Chances:     holder.AllowedChances(out.Holder, cfg),
		Source:      out.Source,
		Endpoint:    out.Endpoint,
		MatchedMint: out.MatchedMint,
		Amount:      out.Amount,
		Attempts:    out.Attempts,
		DurationMs:  out.Duration.Milliseconds(),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(result)
}

// parseMints parses the --mints flag, skipping malformed entries.
func parseMints(s string, logger *log.Logger) []domain.MintDescriptor {
	var list []domain.MintDescriptor
	for _, entry := range splitList(s) {
		address, threshold, found := strings.Cut(entry, "=")
		address = strings.TrimSpace(address)
		if address == "" {
			continue
		}

		m := domain.MintDescriptor{Address: address}
		if found {
			v, err := strconv.ParseFloat(strings.TrimSpace(threshold), 64)
			if err != nil {
				logger.Printf("mint %s: bad threshold %q, using default", address, threshold)
			} else {
				m.MinHoldUIAmount = v
			}
		}
		list = append(list, m)
	}
	return list
}

// splitList splits a comma-separated flag value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// envOr returns the environment variable or a default when unset.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
