package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/quorumsec/aegis/internal/governance/domain"
	"github.com/quorumsec/aegis/internal/governance/storage"
	apperrors "github.com/quorumsec/aegis/internal/platform/errors"
)

func errorCode(t *testing.T, err error) apperrors.Code {
	t.Helper()
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected domain error, got %v", err)
	}
	return appErr.Code
}

func newPendingProposal(t *testing.T, store *Store, required int) domain.Proposal {
	t.Helper()
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	proposal, err := domain.NewProposal(domain.CreateProposalInput{
		ThreatType:         "DDoS",
		Confidence:         0.85,
		Target:             "203.0.113.7",
		RequiredSignatures: required,
		CreatedBy:          "system",
	}, func() time.Time { return now })
	if err != nil {
		t.Fatalf("new proposal: %v", err)
	}
	created, err := store.CreateProposal(context.Background(), proposal)
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	return created
}

func TestProposalIsolation(t *testing.T) {
	store := New()
	ctx := context.Background()
	created := newPendingProposal(t, store, 2)

	if err := store.AddSignature(ctx, created.ID, "manager_0", time.Now()); err != nil {
		t.Fatalf("add signature: %v", err)
	}

	loaded, err := store.GetProposal(ctx, created.ID)
	if err != nil {
		t.Fatalf("get proposal: %v", err)
	}
	// Mutating the returned copy must not leak into the store.
	loaded.Signatures[0] = "tampered"
	loaded.Status = domain.ProposalStatusApproved

	again, err := store.GetProposal(ctx, created.ID)
	if err != nil {
		t.Fatalf("get proposal again: %v", err)
	}
	if again.Signatures[0] != "manager_0" || again.Status != domain.ProposalStatusPending {
		t.Fatalf("store state leaked: %+v", again)
	}
}

func TestAddSignatureDuplicate(t *testing.T) {
	store := New()
	ctx := context.Background()
	created := newPendingProposal(t, store, 2)

	if err := store.AddSignature(ctx, created.ID, "manager_0", time.Now()); err != nil {
		t.Fatalf("add signature: %v", err)
	}
	err := store.AddSignature(ctx, created.ID, "manager_0", time.Now())
	if code := errorCode(t, err); code != apperrors.CodeProposalAlreadySigned {
		t.Fatalf("code = %s, want %s", code, apperrors.CodeProposalAlreadySigned)
	}
}

func TestCompareAndSwapStatusSingleWinner(t *testing.T) {
	store := New()
	ctx := context.Background()
	created := newPendingProposal(t, store, 1)
	resolved := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)

	const attempts = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.CompareAndSwapStatus(ctx, created.ID,
				domain.ProposalStatusPending, domain.ProposalStatusApproved,
				storage.StatusChange{ResolvedAt: &resolved, ExecutedAt: &resolved})
			if err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	var count int
	for range wins {
		count++
	}
	if count != 1 {
		t.Fatalf("cas winners = %d, want exactly 1", count)
	}
}

func TestConcurrentContributionCounters(t *testing.T) {
	store := New()
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.RecordSign(ctx, "manager_0", time.Minute); err != nil {
				t.Errorf("record sign: %v", err)
			}
		}()
	}
	wg.Wait()

	contribution, err := store.GetContribution(ctx, "manager_0")
	if err != nil {
		t.Fatalf("get contribution: %v", err)
	}
	if contribution.TotalSignatures != workers {
		t.Fatalf("signatures = %d, want %d", contribution.TotalSignatures, workers)
	}
	if contribution.TotalLatency != workers*time.Minute {
		t.Fatalf("latency = %v, want %v", contribution.TotalLatency, workers*time.Minute)
	}
}

func TestReceiptAtMostOne(t *testing.T) {
	store := New()
	ctx := context.Background()

	receipt := domain.ExecutionReceipt{
		ProposalID: 1,
		ExecutedAt: time.Now().UTC(),
		Transfers:  []domain.Transfer{{SignerID: "manager_0", Amount: 5000, Confirmed: true}},
	}
	if err := store.PutReceipt(ctx, receipt); err != nil {
		t.Fatalf("put receipt: %v", err)
	}
	if err := store.PutReceipt(ctx, receipt); err == nil {
		t.Fatal("expected duplicate receipt to fail")
	}

	_, err := store.GetReceipt(ctx, 99)
	if code := errorCode(t, err); code != apperrors.CodeReceiptNotFound {
		t.Fatalf("code = %s, want %s", code, apperrors.CodeReceiptNotFound)
	}
}

func TestAuditNewestFirst(t *testing.T) {
	store := New()
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"evt-1", "evt-2", "evt-3"} {
		event := storage.AuditEvent{
			ID:        id,
			Kind:      "proposal_signed",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := store.AppendAuditEvent(ctx, event); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}

	events, err := store.ListAuditEvents(ctx, 2)
	if err != nil {
		t.Fatalf("list audit events: %v", err)
	}
	if len(events) != 2 || events[0].ID != "evt-3" || events[1].ID != "evt-2" {
		t.Fatalf("events = %+v", events)
	}
}
