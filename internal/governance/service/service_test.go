package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/quorumsec/aegis/internal/governance/audit"
	"github.com/quorumsec/aegis/internal/governance/classifier"
	"github.com/quorumsec/aegis/internal/governance/domain"
	"github.com/quorumsec/aegis/internal/governance/storage/memory"
	"github.com/quorumsec/aegis/internal/governance/treasury"
	apperrors "github.com/quorumsec/aegis/internal/platform/errors"
)

// testClock is a manually advanced clock shared across a test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	service *Service
	store   *memory.Store
	ledger  *treasury.MemoryLedger
	clock   *testClock
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	store := memory.New()
	ledger := treasury.NewMemoryLedger(map[string]domain.Amount{
		DefaultTreasuryAccount: 1_000_000,
	})
	clock := newTestClock()
	svc := New(store, ledger, classifier.NewSimulated(1), audit.NewEmitter(store), cfg,
		WithClock(clock.Now))
	return &fixture{service: svc, store: store, ledger: ledger, clock: clock}
}

func errorCode(t *testing.T, err error) apperrors.Code {
	t.Helper()
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected domain error, got %v", err)
	}
	return appErr.Code
}

func auditKinds(t *testing.T, f *fixture) map[string]int {
	t.Helper()
	events, err := f.store.ListAuditEvents(context.Background(), 100)
	if err != nil {
		t.Fatalf("list audit events: %v", err)
	}
	kinds := make(map[string]int)
	for _, event := range events {
		kinds[event.Kind]++
	}
	return kinds
}

func TestAutoExecuteTier(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	result, err := f.service.RecordDetection(ctx, domain.NewDetectionInput{
		PredictedClass: "DDoS",
		Confidence:     0.95,
		SourceIP:       "203.0.113.7",
	})
	if err != nil {
		t.Fatalf("record detection: %v", err)
	}
	if result.Detection.Tier != domain.TierAutoExecute {
		t.Fatalf("tier = %v", result.Detection.Tier)
	}
	if result.Detection.Status != domain.DetectionStatusExecuted {
		t.Fatalf("status = %v", result.Detection.Status)
	}
	if result.Proposal != nil {
		t.Fatal("auto-execute must not open a proposal")
	}
	if kinds := auditKinds(t, f); kinds[audit.KindDetectionExecuted] != 1 {
		t.Fatalf("audit kinds = %v", kinds)
	}
}

func TestAutoProposeTierOpensProposal(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	result, err := f.service.RecordDetection(ctx, domain.NewDetectionInput{
		PredictedClass: "PortScan",
		Confidence:     0.85,
		SourceIP:       "198.51.100.9",
	})
	if err != nil {
		t.Fatalf("record detection: %v", err)
	}
	if result.Detection.Tier != domain.TierAutoPropose {
		t.Fatalf("tier = %v", result.Detection.Tier)
	}
	if result.Proposal == nil {
		t.Fatal("expected a proposal")
	}
	if result.Proposal.CreatedBy != SystemActor {
		t.Fatalf("created by = %q", result.Proposal.CreatedBy)
	}
	if result.Proposal.RequiredSignatures != DefaultRequiredSignatures {
		t.Fatalf("required = %d", result.Proposal.RequiredSignatures)
	}
	if result.Proposal.Target != "198.51.100.9" || result.Proposal.ActionType != domain.ActionBlock {
		t.Fatalf("proposal = %+v", result.Proposal)
	}

	// The detection must carry the proposal back-reference.
	loaded, err := f.service.GetDetection(ctx, result.Detection.ID)
	if err != nil {
		t.Fatalf("get detection: %v", err)
	}
	if loaded.ProposalID == nil || *loaded.ProposalID != result.Proposal.ID {
		t.Fatalf("detection proposal id = %v", loaded.ProposalID)
	}
	if loaded.Status != domain.DetectionStatusProposed {
		t.Fatalf("detection status = %v", loaded.Status)
	}
}

func TestBoundaryConfidenceTiers(t *testing.T) {
	tests := []struct {
		confidence float64
		tier       domain.Tier
		status     domain.DetectionStatus
	}{
		{0.90, domain.TierAutoPropose, domain.DetectionStatusProposed},
		{0.80, domain.TierAutoPropose, domain.DetectionStatusProposed},
		{0.75, domain.TierManualAlert, domain.DetectionStatusAlerted},
		{0.70, domain.TierManualAlert, domain.DetectionStatusAlerted},
		{0.50, domain.TierSilentLog, domain.DetectionStatusLogged},
	}
	for _, tt := range tests {
		f := newFixture(t, Config{})
		result, err := f.service.RecordDetection(context.Background(), domain.NewDetectionInput{
			PredictedClass: "Bot",
			Confidence:     tt.confidence,
			SourceIP:       "192.0.2.8",
		})
		if err != nil {
			t.Fatalf("confidence %v: %v", tt.confidence, err)
		}
		if result.Detection.Tier != tt.tier || result.Detection.Status != tt.status {
			t.Fatalf("confidence %v: tier %v status %v", tt.confidence, result.Detection.Tier, result.Detection.Status)
		}
	}
}

func TestSignToThresholdExecutesAndPays(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	proposal, err := f.service.CreateProposal(ctx, domain.CreateProposalInput{
		ThreatType: "DDoS",
		Target:     "203.0.113.7",
		CreatedBy:  "manager_0",
	})
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}

	f.clock.Advance(time.Minute)
	first, err := f.service.SignProposal(ctx, proposal.ID, "manager_0")
	if err != nil {
		t.Fatalf("first sign: %v", err)
	}
	if first.Executed {
		t.Fatal("one of two signatures must not execute")
	}
	if first.Proposal.Status != domain.ProposalStatusPending {
		t.Fatalf("status after first sign = %v", first.Proposal.Status)
	}

	f.clock.Advance(time.Minute)
	second, err := f.service.SignProposal(ctx, proposal.ID, "manager_1")
	if err != nil {
		t.Fatalf("second sign: %v", err)
	}
	if !second.Executed {
		t.Fatal("threshold signature must execute")
	}
	if second.Proposal.Status != domain.ProposalStatusApproved {
		t.Fatalf("status = %v", second.Proposal.Status)
	}
	if second.Receipt == nil {
		t.Fatal("expected receipt")
	}

	var total domain.Amount
	for _, transfer := range second.Receipt.Transfers {
		if !transfer.Confirmed {
			t.Fatalf("transfer not confirmed: %+v", transfer)
		}
		total += transfer.Amount
	}
	if total != domain.DefaultBasePool {
		t.Fatalf("paid %d, want %d", total, domain.DefaultBasePool)
	}

	// The treasury must be debited by exactly the pool.
	balance, _ := f.ledger.Balance(ctx, DefaultTreasuryAccount)
	if balance != 1_000_000-domain.DefaultBasePool {
		t.Fatalf("treasury balance = %d", balance)
	}

	// Re-loading the receipt returns the persisted record.
	receipt, err := f.service.Receipt(ctx, proposal.ID)
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if len(receipt.Transfers) != 2 {
		t.Fatalf("transfers = %d", len(receipt.Transfers))
	}
}

func TestConcurrentSigningExactlyOneExecution(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	proposal, err := f.service.CreateProposal(ctx, domain.CreateProposalInput{
		ThreatType: "DDoS",
		Target:     "203.0.113.7",
		CreatedBy:  SystemActor,
	})
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}

	signers := []string{"manager_0", "manager_1", "manager_2"}
	results := make([]SignResult, len(signers))
	errs := make([]error, len(signers))
	var wg sync.WaitGroup
	for i, signer := range signers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = f.service.SignProposal(ctx, proposal.ID, signer)
		}()
	}
	wg.Wait()

	var executed, succeeded, conflicts int
	for i := range signers {
		switch {
		case errs[i] == nil:
			succeeded++
			if results[i].Executed {
				executed++
			}
		default:
			if code := errorCode(t, errs[i]); code != apperrors.CodeProposalNotPending {
				t.Fatalf("unexpected error code %s", code)
			}
			conflicts++
		}
	}
	if executed != 1 {
		t.Fatalf("executions = %d, want exactly 1", executed)
	}
	if succeeded != 2 || conflicts != 1 {
		t.Fatalf("succeeded = %d conflicts = %d", succeeded, conflicts)
	}

	// Exactly one receipt, paying the full pool once.
	receipt, err := f.service.Receipt(ctx, proposal.ID)
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	var total domain.Amount
	for _, transfer := range receipt.Transfers {
		total += transfer.Amount
	}
	if total != domain.DefaultBasePool {
		t.Fatalf("paid %d, want %d", total, domain.DefaultBasePool)
	}
	balance, _ := f.ledger.Balance(ctx, DefaultTreasuryAccount)
	if balance != 1_000_000-domain.DefaultBasePool {
		t.Fatalf("treasury balance = %d", balance)
	}
}

func TestDuplicateSignatureRejected(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	proposal, err := f.service.CreateProposal(ctx, domain.CreateProposalInput{
		ThreatType: "Bot",
		Target:     "192.0.2.4",
		CreatedBy:  SystemActor,
	})
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}

	if _, err := f.service.SignProposal(ctx, proposal.ID, "manager_0"); err != nil {
		t.Fatalf("first sign: %v", err)
	}
	_, err = f.service.SignProposal(ctx, proposal.ID, "manager_0")
	if code := errorCode(t, err); code != apperrors.CodeProposalAlreadySigned {
		t.Fatalf("code = %s", code)
	}

	loaded, err := f.service.GetProposal(ctx, proposal.ID)
	if err != nil {
		t.Fatalf("get proposal: %v", err)
	}
	if len(loaded.Signatures) != 1 {
		t.Fatalf("signatures = %v", loaded.Signatures)
	}
}

func TestUnauthorizedSignerRejected(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	proposal, err := f.service.CreateProposal(ctx, domain.CreateProposalInput{
		ThreatType: "Bot",
		Target:     "192.0.2.4",
		CreatedBy:  SystemActor,
	})
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}

	_, err = f.service.SignProposal(ctx, proposal.ID, "intruder")
	if code := errorCode(t, err); code != apperrors.CodeProposalSignerForbidden {
		t.Fatalf("code = %s", code)
	}
}

func TestRejectResolvesProposal(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	proposal, err := f.service.CreateProposal(ctx, domain.CreateProposalInput{
		ThreatType: "SSH-Patator",
		Target:     "203.0.113.9",
		CreatedBy:  SystemActor,
	})
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}

	rejected, err := f.service.RejectProposal(ctx, proposal.ID, "manager_2")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != domain.ProposalStatusRejected || rejected.RejectedBy != "manager_2" {
		t.Fatalf("rejected = %+v", rejected)
	}

	// Terminal states refuse further signatures.
	_, err = f.service.SignProposal(ctx, proposal.ID, "manager_0")
	if code := errorCode(t, err); code != apperrors.CodeProposalNotPending {
		t.Fatalf("code = %s", code)
	}

	// The rejection feeds the signer's contribution record.
	report, err := f.service.Contribution(ctx, "manager_2")
	if err != nil {
		t.Fatalf("contribution: %v", err)
	}
	if report.TotalRejections != 1 {
		t.Fatalf("rejections = %d", report.TotalRejections)
	}
}

func TestWithdrawOnlyCreator(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	proposal, err := f.service.CreateProposal(ctx, domain.CreateProposalInput{
		ThreatType: "Bot",
		Target:     "192.0.2.4",
		CreatedBy:  "manager_1",
	})
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}

	_, err = f.service.WithdrawProposal(ctx, proposal.ID, "manager_0")
	if code := errorCode(t, err); code != apperrors.CodeProposalNotCreator {
		t.Fatalf("code = %s", code)
	}

	withdrawn, err := f.service.WithdrawProposal(ctx, proposal.ID, "manager_1")
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if withdrawn.Status != domain.ProposalStatusWithdrawn {
		t.Fatalf("status = %v", withdrawn.Status)
	}
}

func TestTransferFailureRecordedInReceipt(t *testing.T) {
	store := memory.New()
	// Treasury too small to cover both shares.
	ledger := treasury.NewMemoryLedger(map[string]domain.Amount{
		DefaultTreasuryAccount: domain.DefaultBasePool / 2,
	})
	clock := newTestClock()
	svc := New(store, ledger, nil, audit.NewEmitter(store), Config{}, WithClock(clock.Now))
	ctx := context.Background()

	proposal, err := svc.CreateProposal(ctx, domain.CreateProposalInput{
		ThreatType: "DDoS",
		Target:     "203.0.113.7",
		CreatedBy:  SystemActor,
	})
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	if _, err := svc.SignProposal(ctx, proposal.ID, "manager_0"); err != nil {
		t.Fatalf("first sign: %v", err)
	}
	result, err := svc.SignProposal(ctx, proposal.ID, "manager_1")
	if err != nil {
		t.Fatalf("second sign: %v", err)
	}
	if !result.Executed || result.Receipt == nil {
		t.Fatalf("result = %+v", result)
	}

	// The approval stands even though payouts partially failed.
	if result.Proposal.Status != domain.ProposalStatusApproved {
		t.Fatalf("status = %v", result.Proposal.Status)
	}
	var failures int
	for _, transfer := range result.Receipt.Transfers {
		if transfer.Error != "" {
			failures++
		}
	}
	if failures == 0 {
		t.Fatal("expected at least one failed transfer in the receipt")
	}
}

func TestContributionScoreReflectsActivity(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	proposal, err := f.service.CreateProposal(ctx, domain.CreateProposalInput{
		ThreatType: "DDoS",
		Target:     "203.0.113.7",
		CreatedBy:  SystemActor,
	})
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	f.clock.Advance(2 * time.Minute)
	if _, err := f.service.SignProposal(ctx, proposal.ID, "manager_0"); err != nil {
		t.Fatalf("sign: %v", err)
	}

	report, err := f.service.Contribution(ctx, "manager_0")
	if err != nil {
		t.Fatalf("contribution: %v", err)
	}
	if report.TotalSignatures != 1 {
		t.Fatalf("signatures = %d", report.TotalSignatures)
	}
	if report.AvgLatency != 2*time.Minute {
		t.Fatalf("avg latency = %v", report.AvgLatency)
	}
	if report.Score <= 0 || report.Score > 100 {
		t.Fatalf("score = %v", report.Score)
	}

	_, err = f.service.Contribution(ctx, "manager_9")
	if code := errorCode(t, err); code != apperrors.CodeSignerNotFound {
		t.Fatalf("code = %s", code)
	}
}

type failingClassifier struct{}

func (failingClassifier) Classify(context.Context) (classifier.Verdict, error) {
	return classifier.Verdict{}, errors.New("model backend down")
}

func TestClassifierFailureMapsToUnavailable(t *testing.T) {
	store := memory.New()
	svc := New(store, treasury.NewMemoryLedger(nil), failingClassifier{}, audit.NewEmitter(store), Config{})

	_, err := svc.SimulateDetection(context.Background())
	if code := errorCode(t, err); code != apperrors.CodeClassificationUnavailable {
		t.Fatalf("code = %s", code)
	}
}

func TestSimulateDetectionRoutes(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		result, err := f.service.SimulateDetection(ctx)
		if err != nil {
			t.Fatalf("simulate %d: %v", i, err)
		}
		if result.Detection.ID == 0 {
			t.Fatal("detection not persisted")
		}
		if result.Detection.Tier == domain.TierAutoPropose && result.Proposal == nil {
			t.Fatal("auto-propose without proposal")
		}
	}
	detections, err := f.service.ListDetections(ctx, 50)
	if err != nil {
		t.Fatalf("list detections: %v", err)
	}
	if len(detections) != 20 {
		t.Fatalf("detections = %d", len(detections))
	}
}
