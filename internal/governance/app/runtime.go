// Package app assembles the governance runtime: storage, treasury, classifier,
// service, and the HTTP server, with graceful shutdown tied to the context.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/quorumsec/aegis/internal/governance/api"
	"github.com/quorumsec/aegis/internal/governance/audit"
	"github.com/quorumsec/aegis/internal/governance/auth"
	"github.com/quorumsec/aegis/internal/governance/classifier"
	"github.com/quorumsec/aegis/internal/governance/domain"
	"github.com/quorumsec/aegis/internal/governance/service"
	"github.com/quorumsec/aegis/internal/governance/storage"
	governancememory "github.com/quorumsec/aegis/internal/governance/storage/memory"
	governancesqlite "github.com/quorumsec/aegis/internal/governance/storage/sqlite"
	"github.com/quorumsec/aegis/internal/governance/treasury"
)

// RuntimeConfig controls governor startup and governance policy.
type RuntimeConfig struct {
	Port int
	// DBPath locates the SQLite database; empty runs fully in memory.
	DBPath string
	// Signers is the comma-separated authorized approval set.
	Signers []string
	// RequiredSignatures is the approval threshold for automatic proposals.
	RequiredSignatures int
	// BasePoolMicro is the per-execution reward pool in micro-units.
	BasePoolMicro int64
	// TreasuryAccount names the ledger account funding incentives.
	TreasuryAccount string
	// TreasuryFundsMicro seeds the in-memory ledger at startup.
	TreasuryFundsMicro int64
	// AuthSecret signs and verifies role tokens.
	AuthSecret string
	// TokenTTL bounds minted role token lifetimes.
	TokenTTL time.Duration
	// LockWait bounds how long a signature waits for the proposal lock.
	LockWait time.Duration
	// TransferTimeout bounds each incentive transfer.
	TransferTimeout time.Duration
	// ClassifierSeed seeds the simulated classifier.
	ClassifierSeed int64
	// MintStartupTokens logs a role token per signer at startup, for local use.
	MintStartupTokens bool
	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration
}

const (
	defaultPort            = 8080
	defaultTreasuryFunds   = 100 * int64(domain.MicroPerUnit)
	defaultShutdownTimeout = 10 * time.Second
)

// Run starts the governor runtime and blocks until ctx is cancelled or the
// server fails.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultPort
	}
	if strings.TrimSpace(cfg.AuthSecret) == "" {
		return fmt.Errorf("auth secret is required")
	}
	if cfg.TreasuryFundsMicro <= 0 {
		cfg.TreasuryFundsMicro = defaultTreasuryFunds
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	store, closeStore, err := openStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeStore()

	serviceCfg := service.Config{
		Signers:            cfg.Signers,
		RequiredSignatures: cfg.RequiredSignatures,
		BasePool:           domain.Amount(cfg.BasePoolMicro),
		TreasuryAccount:    cfg.TreasuryAccount,
		LockWait:           cfg.LockWait,
		TransferTimeout:    cfg.TransferTimeout,
	}
	ledger := treasury.NewMemoryLedger(map[string]domain.Amount{
		treasuryAccount(cfg.TreasuryAccount): domain.Amount(cfg.TreasuryFundsMicro),
	})
	model := classifier.NewSimulated(classifierSeed(cfg.ClassifierSeed))
	emitter := audit.NewEmitter(store)

	svc := service.New(store, ledger, model, emitter, serviceCfg)

	tokens := auth.RoleTokenConfig{
		Secret: []byte(cfg.AuthSecret),
		TTL:    cfg.TokenTTL,
	}
	if cfg.MintStartupTokens {
		logStartupTokens(svc.Signers(), tokens)
	}

	handlers := api.NewHandlers(svc, tokens)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.Traced(api.NewMux(handlers)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("governor listening on :%d", cfg.Port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

func openStore(dbPath string) (storage.Store, func(), error) {
	if strings.TrimSpace(dbPath) == "" {
		log.Print("no db path configured, using in-memory store")
		return governancememory.New(), func() {}, nil
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := governancesqlite.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return store, func() {
		if err := store.Close(); err != nil {
			log.Printf("close sqlite store: %v", err)
		}
	}, nil
}

func treasuryAccount(name string) string {
	if strings.TrimSpace(name) == "" {
		return service.DefaultTreasuryAccount
	}
	return name
}

func classifierSeed(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return time.Now().UnixNano()
}

// logStartupTokens mints one role token per signer for local testing. Tokens
// go to the process log only; production deployments mint through role-key.
func logStartupTokens(signers []string, tokens auth.RoleTokenConfig) {
	for _, signer := range signers {
		token, err := auth.MintRoleToken(signer, tokens)
		if err != nil {
			log.Printf("mint startup token for %s: %v", signer, err)
			continue
		}
		log.Printf("role token for %s: %s", signer, token)
	}
}
