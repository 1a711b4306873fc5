package service

import (
	"context"
	"fmt"

	"github.com/quorumsec/aegis/internal/governance/audit"
	"github.com/quorumsec/aegis/internal/governance/domain"
	"github.com/quorumsec/aegis/internal/governance/storage"
)

// SignResult reports the outcome of a signature.
type SignResult struct {
	Proposal domain.Proposal
	// Executed is true when this signature reached the threshold and the
	// proposal was approved by it.
	Executed bool
	// Receipt holds the incentive disbursement record when Executed is true.
	Receipt *domain.ExecutionReceipt
}

// SignProposal appends one signature and, when the threshold is reached,
// approves the proposal and distributes incentives.
//
// Signatures for one proposal are processed under a per-proposal lock; the
// status flip is additionally compare-and-swapped in storage so at most one
// signature can ever trigger execution. Incentive transfers run after the
// approval is durable, outside the lock, so slow payouts never block other
// signers.
func (s *Service) SignProposal(ctx context.Context, proposalID int64, signer string) (SignResult, error) {
	result, err := s.signLocked(ctx, proposalID, signer)
	if err != nil {
		return SignResult{}, err
	}
	if !result.Executed {
		return result, nil
	}

	receipt, err := s.distributeIncentives(ctx, result.Proposal)
	if err != nil {
		// The approval is already durable; surface the proposal and log the
		// payout failure rather than failing the signature.
		s.logger.Printf("distribute incentives for proposal %d: %v", proposalID, err)
		return result, nil
	}
	result.Receipt = &receipt
	return result, nil
}

func (s *Service) signLocked(ctx context.Context, proposalID int64, signer string) (SignResult, error) {
	release, err := s.locks.acquire(ctx, proposalID)
	if err != nil {
		return SignResult{}, err
	}
	defer release()

	proposal, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		return SignResult{}, err
	}

	updated, reached, err := domain.ApplySignature(proposal, signer, s.cfg.Signers, s.clock)
	if err != nil {
		return SignResult{}, err
	}

	signedAt := s.clock().UTC()
	if err := s.store.AddSignature(ctx, proposalID, signer, signedAt); err != nil {
		return SignResult{}, err
	}

	// Latency is measured from proposal creation to this signature.
	if err := s.store.RecordSign(ctx, signer, signedAt.Sub(proposal.CreatedAt)); err != nil {
		s.logger.Printf("record signature for %s: %v", signer, err)
	}
	s.audit.Emit(ctx, storage.AuditEvent{
		Kind:       audit.KindProposalSigned,
		ProposalID: &proposalID,
		Actor:      signer,
		Detail:     fmt.Sprintf("%d/%d signatures", len(updated.Signatures), updated.RequiredSignatures),
	})

	if !reached {
		s.logger.Printf("proposal %d signed by %s (%d/%d)",
			proposalID, signer, len(updated.Signatures), updated.RequiredSignatures)
		return SignResult{Proposal: updated}, nil
	}

	// Threshold reached: flip to approved. The CAS backs up the lock; if
	// another path already resolved the proposal, this signature loses.
	err = s.store.CompareAndSwapStatus(ctx, proposalID,
		domain.ProposalStatusPending, domain.ProposalStatusApproved,
		storage.StatusChange{ResolvedAt: updated.ResolvedAt, ExecutedAt: updated.ExecutedAt})
	if err != nil {
		return SignResult{}, err
	}

	s.audit.Emit(ctx, storage.AuditEvent{
		Kind:       audit.KindProposalApproved,
		ProposalID: &proposalID,
		Actor:      signer,
		Detail:     fmt.Sprintf("%s %s executed", updated.ActionType, updated.Target),
	})
	s.logger.Printf("proposal %d approved, %s %s executed", proposalID, updated.ActionType, updated.Target)
	return SignResult{Proposal: updated, Executed: true}, nil
}
