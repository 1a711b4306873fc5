package service

import (
	"context"
	"fmt"

	"github.com/quorumsec/aegis/internal/governance/audit"
	"github.com/quorumsec/aegis/internal/governance/domain"
	"github.com/quorumsec/aegis/internal/governance/storage"
)

// CreateProposal opens a manual proposal on behalf of createdBy.
func (s *Service) CreateProposal(ctx context.Context, input domain.CreateProposalInput) (domain.Proposal, error) {
	if input.RequiredSignatures == 0 {
		input.RequiredSignatures = s.cfg.RequiredSignatures
	}
	proposal, err := domain.NewProposal(input, s.clock)
	if err != nil {
		return domain.Proposal{}, err
	}

	created, err := s.store.CreateProposal(ctx, proposal)
	if err != nil {
		return domain.Proposal{}, fmt.Errorf("create proposal: %w", err)
	}

	if created.DetectionID != nil {
		if err := s.store.LinkProposal(ctx, *created.DetectionID, created.ID, domain.DetectionStatusProposed); err != nil {
			s.logger.Printf("link detection %d to proposal %d: %v", *created.DetectionID, created.ID, err)
		}
	}

	s.audit.Emit(ctx, storage.AuditEvent{
		Kind:       audit.KindProposalCreated,
		ProposalID: &created.ID,
		Actor:      created.CreatedBy,
		Detail:     fmt.Sprintf("%s %s (%s)", created.ActionType, created.Target, created.ThreatType),
	})
	s.logger.Printf("proposal %d created by %s: %s %s", created.ID, created.CreatedBy, created.ActionType, created.Target)
	return created, nil
}

// GetProposal loads one proposal.
func (s *Service) GetProposal(ctx context.Context, id int64) (domain.Proposal, error) {
	return s.store.GetProposal(ctx, id)
}

// ListProposals lists proposals newest-first, optionally filtered by status.
func (s *Service) ListProposals(ctx context.Context, filter storage.ProposalFilter) ([]domain.Proposal, error) {
	return s.store.ListProposals(ctx, filter)
}

// RejectProposal resolves a pending proposal as rejected and counts the
// rejection against the signer's contribution record.
func (s *Service) RejectProposal(ctx context.Context, proposalID int64, signer string) (domain.Proposal, error) {
	release, err := s.locks.acquire(ctx, proposalID)
	if err != nil {
		return domain.Proposal{}, err
	}
	defer release()

	proposal, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		return domain.Proposal{}, err
	}
	updated, err := domain.Reject(proposal, signer, s.clock)
	if err != nil {
		return domain.Proposal{}, err
	}

	err = s.store.CompareAndSwapStatus(ctx, proposalID,
		domain.ProposalStatusPending, domain.ProposalStatusRejected,
		storage.StatusChange{RejectedBy: updated.RejectedBy, ResolvedAt: updated.ResolvedAt})
	if err != nil {
		return domain.Proposal{}, err
	}

	if err := s.store.RecordReject(ctx, signer); err != nil {
		s.logger.Printf("record rejection for %s: %v", signer, err)
	}
	s.audit.Emit(ctx, storage.AuditEvent{
		Kind:       audit.KindProposalRejected,
		ProposalID: &proposalID,
		Actor:      signer,
	})
	s.logger.Printf("proposal %d rejected by %s", proposalID, signer)
	return updated, nil
}

// WithdrawProposal lets the creator retract a pending proposal.
func (s *Service) WithdrawProposal(ctx context.Context, proposalID int64, requester string) (domain.Proposal, error) {
	release, err := s.locks.acquire(ctx, proposalID)
	if err != nil {
		return domain.Proposal{}, err
	}
	defer release()

	proposal, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		return domain.Proposal{}, err
	}
	updated, err := domain.Withdraw(proposal, requester, s.clock)
	if err != nil {
		return domain.Proposal{}, err
	}

	err = s.store.CompareAndSwapStatus(ctx, proposalID,
		domain.ProposalStatusPending, domain.ProposalStatusWithdrawn,
		storage.StatusChange{ResolvedAt: updated.ResolvedAt})
	if err != nil {
		return domain.Proposal{}, err
	}

	s.audit.Emit(ctx, storage.AuditEvent{
		Kind:       audit.KindProposalWithdrawn,
		ProposalID: &proposalID,
		Actor:      requester,
	})
	s.logger.Printf("proposal %d withdrawn by %s", proposalID, requester)
	return updated, nil
}

// Stats reports aggregate governance counts.
func (s *Service) Stats(ctx context.Context) (storage.Stats, error) {
	return s.store.Stats(ctx)
}

// ListAuditEvents returns audit records newest-first.
func (s *Service) ListAuditEvents(ctx context.Context, limit int) ([]storage.AuditEvent, error) {
	return s.store.ListAuditEvents(ctx, limit)
}
