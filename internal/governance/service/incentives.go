package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/quorumsec/aegis/internal/governance/audit"
	"github.com/quorumsec/aegis/internal/governance/domain"
	"github.com/quorumsec/aegis/internal/governance/storage"
	apperrors "github.com/quorumsec/aegis/internal/platform/errors"
)

// distributeIncentives pays each signer of an executed proposal its share of
// the base pool, weighted by contribution quality, and persists the receipt.
//
// The receipt check makes the payout idempotent per proposal: transfers are
// not idempotent themselves, so the decision to pay happens exactly once.
// Individual transfer failures are recorded in the receipt, never retried.
func (s *Service) distributeIncentives(ctx context.Context, proposal domain.Proposal) (domain.ExecutionReceipt, error) {
	existing, err := s.store.GetReceipt(ctx, proposal.ID)
	if err == nil {
		return existing, nil
	}
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeReceiptNotFound {
		return domain.ExecutionReceipt{}, fmt.Errorf("check existing receipt: %w", err)
	}

	signers := proposal.Signatures
	scores := make(map[string]float64, len(signers))
	for _, signer := range signers {
		contribution, err := s.store.GetContribution(ctx, signer)
		if err != nil {
			// A signer with no recorded history scores as a fresh signer.
			contribution = domain.SignerContribution{SignerID: signer}
		}
		scores[signer] = s.cfg.ScorePolicy.Score(contribution)
	}

	shares := domain.SplitPool(s.cfg.BasePool, signers, scores)
	receipt := domain.ExecutionReceipt{
		ProposalID: proposal.ID,
		ExecutedAt: s.clock().UTC(),
		Transfers:  make([]domain.Transfer, 0, len(signers)),
	}

	for i, signer := range signers {
		transfer := domain.Transfer{
			SignerID: signer,
			Account:  s.payoutAccount(signer),
			Amount:   shares[i],
		}
		transferCtx, cancel := context.WithTimeout(ctx, s.cfg.TransferTimeout)
		txRef, err := s.sink.Transfer(transferCtx, s.cfg.TreasuryAccount, transfer.Account, transfer.Amount)
		cancel()
		if err != nil {
			transfer.Error = err.Error()
			s.audit.Emit(ctx, storage.AuditEvent{
				Kind:       audit.KindIncentiveFailed,
				ProposalID: &proposal.ID,
				Actor:      signer,
				Detail:     err.Error(),
			})
			s.logger.Printf("incentive transfer to %s for proposal %d failed: %v", signer, proposal.ID, err)
		} else {
			transfer.TxRef = txRef
			transfer.Confirmed = true
			s.audit.Emit(ctx, storage.AuditEvent{
				Kind:       audit.KindIncentivePaid,
				ProposalID: &proposal.ID,
				Actor:      signer,
				Detail:     fmt.Sprintf("%d micro to %s (%s)", transfer.Amount, transfer.Account, txRef),
			})
		}
		receipt.Transfers = append(receipt.Transfers, transfer)
	}

	if err := s.store.PutReceipt(ctx, receipt); err != nil {
		return domain.ExecutionReceipt{}, fmt.Errorf("persist receipt: %w", err)
	}
	return receipt, nil
}

// Receipt loads the execution receipt for a proposal.
func (s *Service) Receipt(ctx context.Context, proposalID int64) (domain.ExecutionReceipt, error) {
	return s.store.GetReceipt(ctx, proposalID)
}
