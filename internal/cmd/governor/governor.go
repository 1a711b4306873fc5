// Package governor parses governor command flags and launches the governance
// runtime.
package governor

import (
	"context"
	"flag"
	"strings"
	"time"

	"github.com/quorumsec/aegis/internal/governance/app"
	entrypoint "github.com/quorumsec/aegis/internal/platform/cmd"
)

// Config holds governor command configuration.
type Config struct {
	Port               int           `env:"AEGIS_GOVERNOR_PORT" envDefault:"8080"`
	DBPath             string        `env:"AEGIS_GOVERNOR_DB_PATH" envDefault:"data/governor.db"`
	Signers            string        `env:"AEGIS_GOVERNOR_SIGNERS" envDefault:"manager_0,manager_1,manager_2"`
	RequiredSignatures int           `env:"AEGIS_GOVERNOR_REQUIRED_SIGNATURES" envDefault:"2"`
	BasePoolMicro      int64         `env:"AEGIS_GOVERNOR_BASE_POOL_MICRO" envDefault:"10000"`
	TreasuryAccount    string        `env:"AEGIS_GOVERNOR_TREASURY_ACCOUNT" envDefault:"treasury"`
	TreasuryFundsMicro int64         `env:"AEGIS_GOVERNOR_TREASURY_FUNDS_MICRO" envDefault:"100000000"`
	AuthSecret         string        `env:"AEGIS_GOVERNOR_AUTH_SECRET"`
	TokenTTL           time.Duration `env:"AEGIS_GOVERNOR_TOKEN_TTL" envDefault:"12h"`
	LockWait           time.Duration `env:"AEGIS_GOVERNOR_LOCK_WAIT" envDefault:"2s"`
	TransferTimeout    time.Duration `env:"AEGIS_GOVERNOR_TRANSFER_TIMEOUT" envDefault:"10s"`
	ClassifierSeed     int64         `env:"AEGIS_GOVERNOR_CLASSIFIER_SEED" envDefault:"0"`
	MintStartupTokens  bool          `env:"AEGIS_GOVERNOR_MINT_STARTUP_TOKENS" envDefault:"false"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The governance HTTP server port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The governance SQLite database path (empty for in-memory)")
	fs.StringVar(&cfg.Signers, "signers", cfg.Signers, "Comma-separated authorized signer roles")
	fs.IntVar(&cfg.RequiredSignatures, "required-signatures", cfg.RequiredSignatures, "Approval threshold for automatic proposals")
	fs.Int64Var(&cfg.BasePoolMicro, "base-pool-micro", cfg.BasePoolMicro, "Per-execution reward pool in micro-units")
	fs.StringVar(&cfg.TreasuryAccount, "treasury-account", cfg.TreasuryAccount, "Ledger account funding incentives")
	fs.Int64Var(&cfg.TreasuryFundsMicro, "treasury-funds-micro", cfg.TreasuryFundsMicro, "Initial treasury balance in micro-units")
	fs.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "Role token signing secret")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "Role token lifetime")
	fs.DurationVar(&cfg.LockWait, "lock-wait", cfg.LockWait, "Maximum wait for a proposal lock")
	fs.DurationVar(&cfg.TransferTimeout, "transfer-timeout", cfg.TransferTimeout, "Timeout for each incentive transfer")
	fs.Int64Var(&cfg.ClassifierSeed, "classifier-seed", cfg.ClassifierSeed, "Simulated classifier seed (0 for random)")
	fs.BoolVar(&cfg.MintStartupTokens, "mint-startup-tokens", cfg.MintStartupTokens, "Log a role token per signer at startup")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SignerList splits the configured signer roles.
func (c Config) SignerList() []string {
	var signers []string
	for _, signer := range strings.Split(c.Signers, ",") {
		if trimmed := strings.TrimSpace(signer); trimmed != "" {
			signers = append(signers, trimmed)
		}
	}
	return signers
}

// Run starts the governance runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceGovernor, func(ctx context.Context) error {
		return app.Run(ctx, app.RuntimeConfig{
			Port:               cfg.Port,
			DBPath:             cfg.DBPath,
			Signers:            cfg.SignerList(),
			RequiredSignatures: cfg.RequiredSignatures,
			BasePoolMicro:      cfg.BasePoolMicro,
			TreasuryAccount:    cfg.TreasuryAccount,
			TreasuryFundsMicro: cfg.TreasuryFundsMicro,
			AuthSecret:         cfg.AuthSecret,
			TokenTTL:           cfg.TokenTTL,
			LockWait:           cfg.LockWait,
			TransferTimeout:    cfg.TransferTimeout,
			ClassifierSeed:     cfg.ClassifierSeed,
			MintStartupTokens:  cfg.MintStartupTokens,
		})
	})
}
