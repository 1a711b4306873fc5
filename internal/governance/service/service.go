// Package service implements the governance engine use cases: detection
// routing, proposal lifecycle, signature coordination, and incentive
// distribution. All state lives in the injected store; the service holds only
// configuration and in-process locks.
package service

import (
	"log"
	"slices"
	"strings"
	"time"

	"github.com/quorumsec/aegis/internal/governance/audit"
	"github.com/quorumsec/aegis/internal/governance/classifier"
	"github.com/quorumsec/aegis/internal/governance/domain"
	"github.com/quorumsec/aegis/internal/governance/storage"
	"github.com/quorumsec/aegis/internal/governance/treasury"
)

// DefaultSigners is the manager set used when none is configured.
var DefaultSigners = []string{"manager_0", "manager_1", "manager_2"}

// DefaultRequiredSignatures is the approval threshold used when none is configured.
const DefaultRequiredSignatures = 2

// DefaultTreasuryAccount funds incentive payouts when none is configured.
const DefaultTreasuryAccount = "treasury"

const defaultTransferTimeout = 10 * time.Second

// Config carries the governance policy knobs.
type Config struct {
	// Signers is the authorized approval set, in role form.
	Signers []string
	// RequiredSignatures is the approval threshold applied to automatic proposals.
	RequiredSignatures int
	// BasePool is the reward pool distributed per executed proposal.
	BasePool domain.Amount
	// TreasuryAccount is the ledger account incentives are drawn from.
	TreasuryAccount string
	// Accounts maps signer roles to payout accounts. Roles without a mapping
	// are paid to an account named after the role.
	Accounts map[string]string
	// ScorePolicy tunes the contribution quality score.
	ScorePolicy domain.ScorePolicy
	// LockWait bounds how long a signature waits for the proposal lock.
	LockWait time.Duration
	// TransferTimeout bounds each individual reward transfer.
	TransferTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if len(c.Signers) == 0 {
		c.Signers = slices.Clone(DefaultSigners)
	}
	if c.RequiredSignatures <= 0 {
		c.RequiredSignatures = DefaultRequiredSignatures
	}
	if c.BasePool <= 0 {
		c.BasePool = domain.DefaultBasePool
	}
	if strings.TrimSpace(c.TreasuryAccount) == "" {
		c.TreasuryAccount = DefaultTreasuryAccount
	}
	if c.ScorePolicy == (domain.ScorePolicy{}) {
		c.ScorePolicy = domain.DefaultScorePolicy()
	}
	if c.TransferTimeout <= 0 {
		c.TransferTimeout = defaultTransferTimeout
	}
	return c
}

// Service coordinates the governance engine.
type Service struct {
	store      storage.Store
	sink       treasury.Sink
	classifier classifier.Classifier
	audit      *audit.Emitter
	cfg        Config
	locks      *lockManager
	clock      func() time.Time
	logger     *log.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the service clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger overrides the service logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds a governance service. The store and sink are required; the
// classifier may be nil when detection simulation is disabled.
func New(store storage.Store, sink treasury.Sink, model classifier.Classifier, emitter *audit.Emitter, cfg Config, opts ...Option) *Service {
	cfg = cfg.withDefaults()
	s := &Service{
		store:      store,
		sink:       sink,
		classifier: model,
		audit:      emitter,
		cfg:        cfg,
		locks:      newLockManager(cfg.LockWait),
		clock:      time.Now,
		logger:     log.New(log.Writer(), "governor: ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signers returns the configured approval set.
func (s *Service) Signers() []string {
	return slices.Clone(s.cfg.Signers)
}

// RequiredSignatures returns the approval threshold applied to automatic proposals.
func (s *Service) RequiredSignatures() int {
	return s.cfg.RequiredSignatures
}

// payoutAccount resolves the ledger account for a signer role.
func (s *Service) payoutAccount(signer string) string {
	if account, ok := s.cfg.Accounts[signer]; ok && strings.TrimSpace(account) != "" {
		return account
	}
	return signer
}
