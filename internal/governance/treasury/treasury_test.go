package treasury

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/quorumsec/aegis/internal/governance/domain"
	apperrors "github.com/quorumsec/aegis/internal/platform/errors"
)

func TestTransferMovesValue(t *testing.T) {
	ledger := NewMemoryLedger(map[string]domain.Amount{"treasury": 10_000})
	ctx := context.Background()

	txRef, err := ledger.Transfer(ctx, "treasury", "manager_0", 3_000)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if txRef == "" {
		t.Fatal("expected transaction reference")
	}

	from, _ := ledger.Balance(ctx, "treasury")
	to, _ := ledger.Balance(ctx, "manager_0")
	if from != 7_000 || to != 3_000 {
		t.Fatalf("balances = %d / %d, want 7000 / 3000", from, to)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	ledger := NewMemoryLedger(map[string]domain.Amount{"treasury": 100})

	_, err := ledger.Transfer(context.Background(), "treasury", "manager_0", 200)
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeTransferFailed {
		t.Fatalf("expected TRANSFER_FAILED, got %v", err)
	}

	// A failed transfer must not move value.
	balance, _ := ledger.Balance(context.Background(), "treasury")
	if balance != 100 {
		t.Fatalf("balance = %d, want 100", balance)
	}
}

func TestTransferRejectsNonPositive(t *testing.T) {
	ledger := NewMemoryLedger(map[string]domain.Amount{"treasury": 100})
	if _, err := ledger.Transfer(context.Background(), "treasury", "manager_0", 0); err == nil {
		t.Fatal("expected zero-amount transfer to fail")
	}
	if _, err := ledger.Transfer(context.Background(), "treasury", "treasury", 10); err == nil {
		t.Fatal("expected self-transfer to fail")
	}
}

func TestConcurrentTransfersConserveTotal(t *testing.T) {
	ledger := NewMemoryLedger(map[string]domain.Amount{"treasury": 1_000})
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Half of these must fail once the treasury runs dry.
			_, _ = ledger.Transfer(ctx, "treasury", "manager_0", 40)
		}()
	}
	wg.Wait()

	from, _ := ledger.Balance(ctx, "treasury")
	to, _ := ledger.Balance(ctx, "manager_0")
	if from+to != 1_000 {
		t.Fatalf("total = %d, want 1000", from+to)
	}
	if from < 0 {
		t.Fatalf("treasury overdrawn: %d", from)
	}
}
