// Package storage defines the persistence contracts for the governance
// engine. Implementations must provide per-proposal atomicity: signature
// rows are unique per signer and status flips are compare-and-swap against
// the expected current status.
package storage

import (
	"context"
	"time"

	"github.com/quorumsec/aegis/internal/governance/domain"
)

// ProposalFilter narrows ListProposals results.
type ProposalFilter struct {
	// Status filters by proposal status when non-nil.
	Status *domain.ProposalStatus
	// Limit caps the number of returned proposals; implementations apply a
	// default when zero.
	Limit int
}

// StatusChange carries the terminal-state fields written alongside a CAS flip.
type StatusChange struct {
	RejectedBy string
	ResolvedAt *time.Time
	ExecutedAt *time.Time
}

// ProposalStore persists proposals and their signature sets.
type ProposalStore interface {
	// CreateProposal persists a new proposal and returns it with its
	// monotonically increasing ID assigned.
	CreateProposal(ctx context.Context, proposal domain.Proposal) (domain.Proposal, error)

	// GetProposal loads a proposal with its insertion-ordered signatures.
	// Returns a NOT_FOUND domain error when absent.
	GetProposal(ctx context.Context, id int64) (domain.Proposal, error)

	// ListProposals returns proposals newest-first.
	ListProposals(ctx context.Context, filter ProposalFilter) ([]domain.Proposal, error)

	// AddSignature durably appends one signature. A duplicate
	// (proposal, signer) pair fails with an ALREADY_SIGNED domain error.
	AddSignature(ctx context.Context, proposalID int64, signer string, signedAt time.Time) error

	// CompareAndSwapStatus flips the proposal status only if it currently
	// equals from; otherwise it fails with a PROPOSAL_NOT_PENDING conflict.
	CompareAndSwapStatus(ctx context.Context, id int64, from, to domain.ProposalStatus, change StatusChange) error
}

// DetectionStore persists classifier detections.
type DetectionStore interface {
	// CreateDetection persists a detection and returns it with its ID assigned.
	CreateDetection(ctx context.Context, detection domain.Detection) (domain.Detection, error)

	// GetDetection loads a detection. Returns a NOT_FOUND domain error when absent.
	GetDetection(ctx context.Context, id int64) (domain.Detection, error)

	// ListDetections returns detections newest-first.
	ListDetections(ctx context.Context, limit int) ([]domain.Detection, error)

	// LinkProposal records the back-reference from a detection to the
	// proposal it spawned and updates the detection status.
	LinkProposal(ctx context.Context, detectionID, proposalID int64, status domain.DetectionStatus) error
}

// ContributionStore persists per-signer counters. Increments must be atomic
// so concurrent signatures across proposals never lose updates.
type ContributionStore interface {
	// RecordSign increments the signer's signature count and cumulative latency.
	RecordSign(ctx context.Context, signerID string, latency time.Duration) error

	// RecordReject increments the signer's rejection count.
	RecordReject(ctx context.Context, signerID string) error

	// GetContribution loads a signer's counters. Returns a SIGNER_NOT_FOUND
	// domain error for signers with no recorded activity.
	GetContribution(ctx context.Context, signerID string) (domain.SignerContribution, error)
}

// ReceiptStore persists execution receipts, at most one per proposal.
type ReceiptStore interface {
	// PutReceipt persists a receipt. Writing a second receipt for the same
	// proposal is an error; callers must check GetReceipt first.
	PutReceipt(ctx context.Context, receipt domain.ExecutionReceipt) error

	// GetReceipt loads the receipt for a proposal. Returns a
	// RECEIPT_NOT_FOUND domain error when absent.
	GetReceipt(ctx context.Context, proposalID int64) (domain.ExecutionReceipt, error)
}

// AuditEvent is one append-only audit record.
type AuditEvent struct {
	ID          string
	Kind        string
	DetectionID *int64
	ProposalID  *int64
	Actor       string
	Detail      string
	CreatedAt   time.Time
}

// AuditStore persists the append-only audit log.
type AuditStore interface {
	// AppendAuditEvent durably appends one event.
	AppendAuditEvent(ctx context.Context, event AuditEvent) error

	// ListAuditEvents returns events newest-first.
	ListAuditEvents(ctx context.Context, limit int) ([]AuditEvent, error)
}

// Stats summarizes stored governance activity for status reporting.
type Stats struct {
	TotalDetections  int64
	TotalProposals   int64
	PendingProposals int64
	TotalExecutions  int64
}

// StatsStore reports aggregate counts.
type StatsStore interface {
	Stats(ctx context.Context) (Stats, error)
}

// Store aggregates every persistence contract the engine needs.
type Store interface {
	ProposalStore
	DetectionStore
	ContributionStore
	ReceiptStore
	AuditStore
	StatsStore
}
