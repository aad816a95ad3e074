// Package main provides the holder resolution daemon:
// - HTTP API: POST /v1/resolve decides holder status and chance count
// - Remote config: (config, draw) document refreshed on an interval
// - Audit trail: every resolution recorded to ClickHouse when configured
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/iskinnyufat-del/mc/internal/domain"
	"github.com/iskinnyufat-del/mc/internal/holder"
	"github.com/iskinnyufat-del/mc/internal/observability"
	"github.com/iskinnyufat-del/mc/internal/remoteconfig"
	"github.com/iskinnyufat-del/mc/internal/solana"
	"github.com/iskinnyufat-del/mc/internal/storage"
	chstore "github.com/iskinnyufat-del/mc/internal/storage/clickhouse"
	fsstore "github.com/iskinnyufat-del/mc/internal/storage/firestore"
	"github.com/iskinnyufat-del/mc/internal/storage/memory"
	"github.com/iskinnyufat-del/mc/internal/storage/migrations"
	pgstore "github.com/iskinnyufat-del/mc/internal/storage/postgres"
)

// Server holds all components of the resolution service.
type Server struct {
	chain    domain.ChainConfig
	resolver *holder.Resolver
	logger   *log.Logger

	documents   storage.DocumentStore
	resolutions storage.ResolutionStore

	slotMonitor *solana.SlotMonitor

	// Remote config, refreshed on an interval.
	cfgMu     sync.RWMutex
	cfg       domain.HolderConfig
	cfgLoaded time.Time

	started time.Time

	// Stats
	statsMu  sync.Mutex
	resolved int
}

// serverStores holds the storage implementations behind the resolver.
type serverStores struct {
	endpointStore   storage.EndpointStore
	documentStore   storage.DocumentStore
	resolutionStore storage.ResolutionStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":8080"), "HTTP API address")
	metricsAddr := flag.String("metrics-addr", envOr("METRICS_ADDR", ":9090"), "Prometheus metrics HTTP address")
	cluster := flag.String("cluster", envOr("SOLANA_CLUSTER", domain.ClusterMainnetBeta), "Solana cluster name")
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Primary Solana RPC HTTP endpoint")
	extraEndpoints := flag.String("extra-rpc-endpoints", os.Getenv("SOLANA_EXTRA_RPC_ENDPOINTS"), "Comma-separated additional RPC endpoints")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint for slot monitoring (optional)")
	commitment := flag.String("commitment", envOr("SOLANA_COMMITMENT", "confirmed"), "Commitment level for balance queries")
	mints := flag.String("mints", os.Getenv("HOLDER_MINTS"), "Comma-separated mints, each ADDRESS or ADDRESS=MIN_UI_AMOUNT")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string for endpoint state")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for the resolution audit trail (optional)")
	firestoreProject := flag.String("firestore-project", os.Getenv("FIRESTORE_PROJECT"), "Firestore project for remote config and allow-list")
	firestoreCreds := flag.String("firestore-credentials", os.Getenv("FIRESTORE_CREDENTIALS"), "Firestore credentials file (optional)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/Firestore")
	configRefresh := flag.Duration("config-refresh", 1*time.Minute, "Remote config refresh interval")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[resolverd] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}
	if !*useMemory && *firestoreProject == "" {
		logger.Fatal("--firestore-project is required (use --use-memory for in-memory storage)")
	}

	mintList, err := parseMints(*mints)
	if err != nil {
		logger.Fatalf("Invalid --mints: %v", err)
	}
	if len(mintList) == 0 {
		logger.Printf("No mints configured; on-chain resolution disabled, fallback chain only")
	}

	chain := domain.ChainConfig{
		Cluster:           *cluster,
		Mints:             mintList,
		Commitment:        *commitment,
		RPCEndpoint:       *rpcEndpoint,
		ExtraRPCEndpoints: splitList(*extraEndpoints),
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *firestoreProject, *firestoreCreds, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	resolver := holder.NewResolver(holder.Config{
		ClientFactory: solana.NewClientFactory(),
		EndpointStore: stores.endpointStore,
		DocumentStore: stores.documentStore,
		Logger:        logger,
	})

	server := &Server{
		chain:       chain,
		resolver:    resolver,
		logger:      logger,
		documents:   stores.documentStore,
		resolutions: stores.resolutionStore,
		cfg:         domain.DefaultHolderConfig(),
		started:     time.Now(),
	}

	// Optional slot monitor for cluster liveness visibility
	if *wsEndpoint != "" {
		monitor := solana.NewSlotMonitor(*wsEndpoint, nil, logger)
		monitor.OnSlot = observability.UpdateCurrentSlot
		if err := monitor.Start(ctx); err != nil {
			logger.Printf("Slot monitor unavailable: %v", err)
		} else {
			server.slotMonitor = monitor
			defer monitor.Close()
		}
	}

	// Initial remote config load, then periodic refresh
	server.refreshConfig(ctx)
	go server.runConfigRefresh(ctx, *configRefresh)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Start metrics server
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		logger.Printf("Starting metrics server on %s", *metricsAddr)
		if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
			logger.Printf("Metrics server error: %v", err)
		}
	}()

	// Start API server
	if err := server.run(ctx, *listenAddr); err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates all required stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN, firestoreProject, firestoreCreds string, useMemory bool) (*serverStores, func(), error) {
	if useMemory {
		stores := &serverStores{
			endpointStore:   memory.NewEndpointStore(),
			documentStore:   memory.NewDocumentStore(),
			resolutionStore: memory.NewResolutionStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL: last-good endpoint state
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	// Firestore: remote config + allow-list
	docs, err := fsstore.Connect(ctx, firestoreProject, firestoreCreds)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to firestore: %w", err)
	}

	stores := &serverStores{
		endpointStore: pgstore.NewEndpointStore(pool),
		documentStore: docs,
	}

	cleanup := func() {
		docs.Close()
		pool.Close()
	}

	// ClickHouse: audit trail, optional
	if clickhouseDSN != "" {
		chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		stores.resolutionStore = chstore.NewResolutionStore(chConn)
		cleanup = func() {
			chConn.Close()
			docs.Close()
			pool.Close()
		}
	}

	return stores, cleanup, nil
}

// run serves the HTTP API until the context is canceled.
func (s *Server) run(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/resolve", s.handleResolve)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/status", s.handleStatus)

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("Starting API server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// runConfigRefresh reloads the remote draw config on an interval.
func (s *Server) runConfigRefresh(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshConfig(ctx)
		}
	}
}

func (s *Server) refreshConfig(ctx context.Context) {
	cfg := remoteconfig.Load(ctx, s.documents, s.logger)

	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgLoaded = time.Now()
	s.cfgMu.Unlock()
}

func (s *Server) holderConfig() domain.HolderConfig {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// ResolveRequest is the JSON body for POST /v1/resolve.
type ResolveRequest struct {
	Address string `json:"address"`
}

// ResolveResponse is the JSON response for POST /v1/resolve.
type ResolveResponse struct {
	Address     string `json:"address"`
	Holder      bool   `json:"holder"`
	Chances     int    `json:"chances"`
	Source      string `json:"source"`
	Endpoint    string `json:"endpoint,omitempty"`
	MatchedMint string `json:"matched_mint,omitempty"`
	DurationMs  int64  `json:"duration_ms"`
}

// handleResolve decides holder status and allotted chances for one address.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	address := strings.TrimSpace(req.Address)
	if address == "" {
		http.Error(w, "address is required", http.StatusBadRequest)
		return
	}

	cfg := s.holderConfig()
	out := s.resolver.Resolve(r.Context(), address, s.chain, cfg)

	s.recordResolution(out.Resolution(s.chain.Cluster, address))

	s.statsMu.Lock()
	s.resolved++
	s.statsMu.Unlock()

	resp := ResolveResponse{
		Address:     address,
		Holder:      out.Holder,
		Chances:     holder.AllowedChances(out.Holder, cfg),
		Source:      out.Source,
		Endpoint:    out.Endpoint,
		MatchedMint: out.MatchedMint,
		DurationMs:  out.Duration.Milliseconds(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// recordResolution appends to the audit trail. Best effort: a failed insert
// never affects the response.
func (s *Server) recordResolution(rec *domain.Resolution) {
	if s.resolutions == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.resolutions.Insert(ctx, rec); err != nil {
		observability.RecordStoreFault("resolution_audit")
		s.logger.Printf("record resolution for %s: %v", rec.Address, err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status           string    `json:"status"`
	Uptime           string    `json:"uptime"`
	Cluster          string    `json:"cluster"`
	Mints            int       `json:"mints"`
	Resolved         int       `json:"resolved"`
	ConfigLoaded     time.Time `json:"config_loaded"`
	ForceAllAsHolder bool      `json:"force_all_as_holder"`
	CurrentSlot      int64     `json:"current_slot,omitempty"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg := s.holderConfig()

	s.cfgMu.RLock()
	loaded := s.cfgLoaded
	s.cfgMu.RUnlock()

	s.statsMu.Lock()
	resolved := s.resolved
	s.statsMu.Unlock()

	resp := StatusResponse{
		Status:           "running",
		Uptime:           time.Since(s.started).String(),
		Cluster:          s.chain.Cluster,
		Mints:            len(s.chain.Mints),
		Resolved:         resolved,
		ConfigLoaded:     loaded,
		ForceAllAsHolder: cfg.ForceAllAsHolder,
	}
	if s.slotMonitor != nil {
		resp.CurrentSlot = s.slotMonitor.CurrentSlot()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// parseMints parses the --mints flag: comma-separated entries, each either a
// bare mint address or ADDRESS=MIN_UI_AMOUNT.
func parseMints(s string) ([]domain.MintDescriptor, error) {
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
				return nil, fmt.Errorf("mint %s: bad threshold %q: %w", address, threshold, err)
			}
			m.MinHoldUIAmount = v
		}
		list = append(list, m)
	}
	return list, nil
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

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
