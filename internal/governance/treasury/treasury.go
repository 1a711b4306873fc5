// Package treasury defines the value-transfer port used to pay signer
// incentives, plus an in-memory ledger implementation.
//
// Transfers are not idempotent: the distributor must decide exactly once per
// proposal before calling Transfer, and failed transfers are recorded in the
// receipt rather than retried blindly.
package treasury

import (
	"context"
	"fmt"
	"sync"

	"github.com/quorumsec/aegis/internal/governance/domain"
	apperrors "github.com/quorumsec/aegis/internal/platform/errors"
)

// Sink moves value between accounts and returns a transfer reference.
type Sink interface {
	// Transfer debits from and credits to, returning an opaque transaction
	// reference. Failures return a TRANSFER_FAILED domain error.
	Transfer(ctx context.Context, from, to string, amount domain.Amount) (txRef string, err error)

	// Balance reports an account's current balance.
	Balance(ctx context.Context, account string) (domain.Amount, error)
}

// MemoryLedger is an in-process Sink backed by a balance map.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]domain.Amount
	seq      int64
}

var _ Sink = (*MemoryLedger)(nil)

// NewMemoryLedger builds a ledger from initial account balances.
func NewMemoryLedger(initial map[string]domain.Amount) *MemoryLedger {
	balances := make(map[string]domain.Amount, len(initial))
	for account, balance := range initial {
		balances[account] = balance
	}
	return &MemoryLedger{balances: balances}
}

// Transfer debits from and credits to atomically.
func (l *MemoryLedger) Transfer(ctx context.Context, from, to string, amount domain.Amount) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if amount <= 0 {
		return "", apperrors.New(apperrors.CodeTransferFailed,
			fmt.Sprintf("transfer amount must be positive, got %d", amount))
	}
	if from == to {
		return "", apperrors.New(apperrors.CodeTransferFailed, "transfer source and destination are the same account")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[from] < amount {
		return "", apperrors.WithMetadata(apperrors.CodeTransferFailed,
			fmt.Sprintf("insufficient funds in %s", from),
			map[string]string{"Account": from})
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	l.seq++
	return fmt.Sprintf("ledger-tx-%06d", l.seq), nil
}

// Balance reports an account's current balance. Unknown accounts hold zero.
func (l *MemoryLedger) Balance(ctx context.Context, account string) (domain.Amount, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}
