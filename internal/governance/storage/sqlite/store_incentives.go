package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/quorumsec/aegis/internal/governance/domain"
	apperrors "github.com/quorumsec/aegis/internal/platform/errors"
)

// RecordSign atomically increments the signer's signature counters.
func (s *Store) RecordSign(ctx context.Context, signerID string, latency time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if latency < 0 {
		latency = 0
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO signer_contributions (signer_id, total_signatures, total_latency_ms)
VALUES (?, 1, ?)
ON CONFLICT (signer_id) DO UPDATE SET
	total_signatures = total_signatures + 1,
	total_latency_ms = total_latency_ms + excluded.total_latency_ms
`, signerID, latency.Milliseconds())
	if err != nil {
		return fmt.Errorf("record sign: %w", err)
	}
	return nil
}

// RecordReject atomically increments the signer's rejection counter.
func (s *Store) RecordReject(ctx context.Context, signerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO signer_contributions (signer_id, total_rejections)
VALUES (?, 1)
ON CONFLICT (signer_id) DO UPDATE SET
	total_rejections = total_rejections + 1
`, signerID)
	if err != nil {
		return fmt.Errorf("record reject: %w", err)
	}
	return nil
}

// GetContribution loads a signer's persisted counters.
func (s *Store) GetContribution(ctx context.Context, signerID string) (domain.SignerContribution, error) {
	if err := ctx.Err(); err != nil {
		return domain.SignerContribution{}, err
	}
	var (
		contribution domain.SignerContribution
		latencyMS    int64
	)
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT signer_id, total_signatures, total_rejections, total_latency_ms
FROM signer_contributions
WHERE signer_id = ?
`, signerID)
	if err := row.Scan(
		&contribution.SignerID,
		&contribution.TotalSignatures,
		&contribution.TotalRejections,
		&latencyMS,
	); err != nil {
		if err == sql.ErrNoRows {
			return domain.SignerContribution{}, apperrors.New(apperrors.CodeSignerNotFound,
				fmt.Sprintf("no contribution recorded for signer %s", signerID))
		}
		return domain.SignerContribution{}, fmt.Errorf("scan contribution: %w", err)
	}
	contribution.TotalLatency = time.Duration(latencyMS) * time.Millisecond
	return contribution, nil
}

// PutReceipt persists an execution receipt and its per-signer transfers.
func (s *Store) PutReceipt(ctx context.Context, receipt domain.ExecutionReceipt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin receipt transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO execution_receipts (proposal_id, executed_at) VALUES (?, ?)
`, receipt.ProposalID, toMillis(receipt.ExecutedAt)); err != nil {
		_ = tx.Rollback()
		if isUniqueViolation(err) {
			return fmt.Errorf("receipt for proposal %d already exists: %w", receipt.ProposalID, err)
		}
		return fmt.Errorf("insert receipt: %w", err)
	}

	for i, transfer := range receipt.Transfers {
		confirmed := 0
		if transfer.Confirmed {
			confirmed = 1
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO receipt_transfers (
	proposal_id, position, signer_id, account, amount, tx_ref, confirmed, error
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
			receipt.ProposalID,
			i,
			transfer.SignerID,
			transfer.Account,
			int64(transfer.Amount),
			transfer.TxRef,
			confirmed,
			transfer.Error,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert receipt transfer: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit receipt: %w", err)
	}
	return nil
}

// GetReceipt loads the execution receipt for a proposal.
func (s *Store) GetReceipt(ctx context.Context, proposalID int64) (domain.ExecutionReceipt, error) {
	if err := ctx.Err(); err != nil {
		return domain.ExecutionReceipt{}, err
	}
	var executedAt int64
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT executed_at FROM execution_receipts WHERE proposal_id = ?`, proposalID)
	if err := row.Scan(&executedAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.ExecutionReceipt{}, apperrors.New(apperrors.CodeReceiptNotFound,
				fmt.Sprintf("no receipt for proposal %d", proposalID))
		}
		return domain.ExecutionReceipt{}, fmt.Errorf("scan receipt: %w", err)
	}

	receipt := domain.ExecutionReceipt{
		ProposalID: proposalID,
		ExecutedAt: fromMillis(executedAt),
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT signer_id, account, amount, tx_ref, confirmed, error
FROM receipt_transfers
WHERE proposal_id = ?
ORDER BY position ASC
`, proposalID)
	if err != nil {
		return domain.ExecutionReceipt{}, fmt.Errorf("list receipt transfers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			transfer  domain.Transfer
			amount    int64
			confirmed int
		)
		if err := rows.Scan(
			&transfer.SignerID,
			&transfer.Account,
			&amount,
			&transfer.TxRef,
			&confirmed,
			&transfer.Error,
		); err != nil {
			return domain.ExecutionReceipt{}, fmt.Errorf("scan receipt transfer: %w", err)
		}
		transfer.Amount = domain.Amount(amount)
		transfer.Confirmed = confirmed != 0
		receipt.Transfers = append(receipt.Transfers, transfer)
	}
	if err := rows.Err(); err != nil {
		return domain.ExecutionReceipt{}, fmt.Errorf("iterate receipt transfers: %w", err)
	}
	return receipt, nil
}
