// Package memory provides an in-memory governance store for tests and
// ephemeral deployments. It mirrors the SQLite store's error semantics so
// services behave identically against either backend.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/quorumsec/aegis/internal/governance/domain"
	"github.com/quorumsec/aegis/internal/governance/storage"
	apperrors "github.com/quorumsec/aegis/internal/platform/errors"
)

// Store keeps all governance records in process memory.
type Store struct {
	mu sync.Mutex

	nextProposalID  int64
	nextDetectionID int64

	proposals     map[int64]domain.Proposal
	detections    map[int64]domain.Detection
	contributions map[string]domain.SignerContribution
	receipts      map[int64]domain.ExecutionReceipt
	audit         []storage.AuditEvent
}

var _ storage.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		nextProposalID:  1,
		nextDetectionID: 1,
		proposals:       make(map[int64]domain.Proposal),
		detections:      make(map[int64]domain.Detection),
		contributions:   make(map[string]domain.SignerContribution),
		receipts:        make(map[int64]domain.ExecutionReceipt),
	}
}

const defaultListLimit = 50

func cloneProposal(p domain.Proposal) domain.Proposal {
	p.Signatures = slices.Clone(p.Signatures)
	if p.DetectionID != nil {
		id := *p.DetectionID
		p.DetectionID = &id
	}
	if p.ResolvedAt != nil {
		ts := *p.ResolvedAt
		p.ResolvedAt = &ts
	}
	if p.ExecutedAt != nil {
		ts := *p.ExecutedAt
		p.ExecutedAt = &ts
	}
	return p
}

func cloneDetection(d domain.Detection) domain.Detection {
	if d.ProposalID != nil {
		id := *d.ProposalID
		d.ProposalID = &id
	}
	return d
}

// CreateProposal persists a new proposal and returns it with its ID assigned.
func (s *Store) CreateProposal(ctx context.Context, proposal domain.Proposal) (domain.Proposal, error) {
	if err := ctx.Err(); err != nil {
		return domain.Proposal{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	proposal.ID = s.nextProposalID
	s.nextProposalID++
	s.proposals[proposal.ID] = cloneProposal(proposal)
	return cloneProposal(proposal), nil
}

// GetProposal loads a proposal with its insertion-ordered signatures.
func (s *Store) GetProposal(ctx context.Context, id int64) (domain.Proposal, error) {
	if err := ctx.Err(); err != nil {
		return domain.Proposal{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	proposal, ok := s.proposals[id]
	if !ok {
		return domain.Proposal{}, apperrors.New(apperrors.CodeProposalNotFound, fmt.Sprintf("proposal %d not found", id))
	}
	return cloneProposal(proposal), nil
}

// ListProposals returns proposals newest-first.
func (s *Store) ListProposals(ctx context.Context, filter storage.ProposalFilter) ([]domain.Proposal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	proposals := make([]domain.Proposal, 0, len(s.proposals))
	for _, proposal := range s.proposals {
		if filter.Status != nil && proposal.Status != *filter.Status {
			continue
		}
		proposals = append(proposals, cloneProposal(proposal))
	}
	slices.SortFunc(proposals, func(a, b domain.Proposal) int {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if a.CreatedAt.After(b.CreatedAt) {
				return -1
			}
			return 1
		}
		return int(b.ID - a.ID)
	})
	if len(proposals) > limit {
		proposals = proposals[:limit]
	}
	return proposals, nil
}

// AddSignature appends one signature, rejecting duplicates per signer.
func (s *Store) AddSignature(ctx context.Context, proposalID int64, signer string, signedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	proposal, ok := s.proposals[proposalID]
	if !ok {
		return apperrors.New(apperrors.CodeProposalNotFound, fmt.Sprintf("proposal %d not found", proposalID))
	}
	if slices.Contains(proposal.Signatures, signer) {
		return apperrors.New(apperrors.CodeProposalAlreadySigned,
			fmt.Sprintf("%s has already signed proposal %d", signer, proposalID))
	}
	proposal.Signatures = append(proposal.Signatures, signer)
	s.proposals[proposalID] = proposal
	return nil
}

// CompareAndSwapStatus flips the proposal status only if it currently equals from.
func (s *Store) CompareAndSwapStatus(ctx context.Context, id int64, from, to domain.ProposalStatus, change storage.StatusChange) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	proposal, ok := s.proposals[id]
	if !ok || proposal.Status != from {
		return apperrors.New(apperrors.CodeProposalNotPending,
			fmt.Sprintf("proposal %d is not %s", id, domain.ProposalStatusLabel(from)))
	}
	proposal.Status = to
	proposal.RejectedBy = change.RejectedBy
	proposal.ResolvedAt = change.ResolvedAt
	proposal.ExecutedAt = change.ExecutedAt
	s.proposals[id] = cloneProposal(proposal)
	return nil
}

// CreateDetection persists a detection and returns it with its ID assigned.
func (s *Store) CreateDetection(ctx context.Context, detection domain.Detection) (domain.Detection, error) {
	if err := ctx.Err(); err != nil {
		return domain.Detection{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	detection.ID = s.nextDetectionID
	s.nextDetectionID++
	s.detections[detection.ID] = cloneDetection(detection)
	return cloneDetection(detection), nil
}

// GetDetection loads a detection record.
func (s *Store) GetDetection(ctx context.Context, id int64) (domain.Detection, error) {
	if err := ctx.Err(); err != nil {
		return domain.Detection{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	detection, ok := s.detections[id]
	if !ok {
		return domain.Detection{}, apperrors.New(apperrors.CodeDetectionNotFound, fmt.Sprintf("detection %d not found", id))
	}
	return cloneDetection(detection), nil
}

// ListDetections returns detections newest-first.
func (s *Store) ListDetections(ctx context.Context, limit int) ([]domain.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	detections := make([]domain.Detection, 0, len(s.detections))
	for _, detection := range s.detections {
		detections = append(detections, cloneDetection(detection))
	}
	slices.SortFunc(detections, func(a, b domain.Detection) int {
		if !a.DetectedAt.Equal(b.DetectedAt) {
			if a.DetectedAt.After(b.DetectedAt) {
				return -1
			}
			return 1
		}
		return int(b.ID - a.ID)
	})
	if len(detections) > limit {
		detections = detections[:limit]
	}
	return detections, nil
}

// LinkProposal records the proposal back-reference on a detection.
func (s *Store) LinkProposal(ctx context.Context, detectionID, proposalID int64, status domain.DetectionStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	detection, ok := s.detections[detectionID]
	if !ok {
		return apperrors.New(apperrors.CodeDetectionNotFound, fmt.Sprintf("detection %d not found", detectionID))
	}
	detection.ProposalID = &proposalID
	detection.Status = status
	s.detections[detectionID] = cloneDetection(detection)
	return nil
}

// RecordSign increments the signer's signature counters.
func (s *Store) RecordSign(ctx context.Context, signerID string, latency time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if latency < 0 {
		latency = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	contribution := s.contributions[signerID]
	contribution.SignerID = signerID
	contribution.TotalSignatures++
	contribution.TotalLatency += latency
	s.contributions[signerID] = contribution
	return nil
}

// RecordReject increments the signer's rejection counter.
func (s *Store) RecordReject(ctx context.Context, signerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	contribution := s.contributions[signerID]
	contribution.SignerID = signerID
	contribution.TotalRejections++
	s.contributions[signerID] = contribution
	return nil
}

// GetContribution loads a signer's counters.
func (s *Store) GetContribution(ctx context.Context, signerID string) (domain.SignerContribution, error) {
	if err := ctx.Err(); err != nil {
		return domain.SignerContribution{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	contribution, ok := s.contributions[signerID]
	if !ok {
		return domain.SignerContribution{}, apperrors.New(apperrors.CodeSignerNotFound,
			fmt.Sprintf("no contribution recorded for signer %s", signerID))
	}
	return contribution, nil
}

// PutReceipt persists a receipt, at most one per proposal.
func (s *Store) PutReceipt(ctx context.Context, receipt domain.ExecutionReceipt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.receipts[receipt.ProposalID]; exists {
		return fmt.Errorf("receipt for proposal %d already exists", receipt.ProposalID)
	}
	receipt.Transfers = slices.Clone(receipt.Transfers)
	s.receipts[receipt.ProposalID] = receipt
	return nil
}

// GetReceipt loads the receipt for a proposal.
func (s *Store) GetReceipt(ctx context.Context, proposalID int64) (domain.ExecutionReceipt, error) {
	if err := ctx.Err(); err != nil {
		return domain.ExecutionReceipt{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	receipt, ok := s.receipts[proposalID]
	if !ok {
		return domain.ExecutionReceipt{}, apperrors.New(apperrors.CodeReceiptNotFound,
			fmt.Sprintf("no receipt for proposal %d", proposalID))
	}
	receipt.Transfers = slices.Clone(receipt.Transfers)
	return receipt, nil
}

// AppendAuditEvent appends one audit record.
func (s *Store) AppendAuditEvent(ctx context.Context, event storage.AuditEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.audit = append(s.audit, event)
	return nil
}

// ListAuditEvents returns audit records newest-first.
func (s *Store) ListAuditEvents(ctx context.Context, limit int) ([]storage.AuditEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	events := make([]storage.AuditEvent, 0, min(limit, len(s.audit)))
	for i := len(s.audit) - 1; i >= 0 && len(events) < limit; i-- {
		events = append(events, s.audit[i])
	}
	return events, nil
}

// Stats reports aggregate governance counts.
func (s *Store) Stats(ctx context.Context) (storage.Stats, error) {
	if err := ctx.Err(); err != nil {
		return storage.Stats{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := storage.Stats{
		TotalDetections: int64(len(s.detections)),
		TotalProposals:  int64(len(s.proposals)),
		TotalExecutions: int64(len(s.receipts)),
	}
	for _, proposal := range s.proposals {
		if proposal.Status == domain.ProposalStatusPending {
			stats.PendingProposals++
		}
	}
	return stats, nil
}
