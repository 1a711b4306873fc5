// Package sqlite provides the durable SQLite-backed governance store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/quorumsec/aegis/internal/governance/domain"
	"github.com/quorumsec/aegis/internal/governance/storage"
	"github.com/quorumsec/aegis/internal/governance/storage/sqlite/migrations"
	apperrors "github.com/quorumsec/aegis/internal/platform/errors"
	"github.com/quorumsec/aegis/internal/platform/storage/sqlitemigrate"
	_ "modernc.org/sqlite"
)

const defaultListLimit = 50

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// toNullMillis maps optional domain times to sql.NullInt64 for nullable columns.
func toNullMillis(value *time.Time) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*value), Valid: true}
}

// fromNullMillis maps nullable SQL timestamps back into optional time values.
func fromNullMillis(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	t := fromMillis(value.Int64)
	return &t
}

func toNullID(value *int64) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *value, Valid: true}
}

func fromNullID(value sql.NullInt64) *int64 {
	if !value.Valid {
		return nil
	}
	id := value.Int64
	return &id
}

// isUniqueViolation detects SQLite unique-constraint failures.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Store provides SQLite-backed governance persistence.
//
// A single file backs the whole engine so proposal rows, signature rows, and
// receipts share one transaction and visibility boundary.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens a governance SQLite store and applies bundled migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateProposal persists a new proposal and returns it with its ID assigned.
func (s *Store) CreateProposal(ctx context.Context, proposal domain.Proposal) (domain.Proposal, error) {
	if err := ctx.Err(); err != nil {
		return domain.Proposal{}, err
	}
	result, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO proposals (
	detection_id,
	threat_type,
	confidence,
	target,
	action_type,
	required_signatures,
	status,
	created_by,
	created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		toNullID(proposal.DetectionID),
		proposal.ThreatType,
		proposal.Confidence,
		proposal.Target,
		proposal.ActionType,
		proposal.RequiredSignatures,
		domain.ProposalStatusLabel(proposal.Status),
		proposal.CreatedBy,
		toMillis(proposal.CreatedAt),
	)
	if err != nil {
		return domain.Proposal{}, fmt.Errorf("insert proposal: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return domain.Proposal{}, fmt.Errorf("proposal id: %w", err)
	}
	proposal.ID = id
	return proposal, nil
}

const proposalColumns = `
	id,
	detection_id,
	threat_type,
	confidence,
	target,
	action_type,
	required_signatures,
	status,
	created_by,
	rejected_by,
	created_at,
	resolved_at,
	executed_at
`

func scanProposal(scanner interface{ Scan(...any) error }) (domain.Proposal, error) {
	var (
		proposal    domain.Proposal
		detectionID sql.NullInt64
		status      string
		createdAt   int64
		resolvedAt  sql.NullInt64
		executedAt  sql.NullInt64
	)
	if err := scanner.Scan(
		&proposal.ID,
		&detectionID,
		&proposal.ThreatType,
		&proposal.Confidence,
		&proposal.Target,
		&proposal.ActionType,
		&proposal.RequiredSignatures,
		&status,
		&proposal.CreatedBy,
		&proposal.RejectedBy,
		&createdAt,
		&resolvedAt,
		&executedAt,
	); err != nil {
		return domain.Proposal{}, err
	}
	proposal.DetectionID = fromNullID(detectionID)
	proposal.Status = domain.ParseProposalStatus(status)
	proposal.CreatedAt = fromMillis(createdAt)
	proposal.ResolvedAt = fromNullMillis(resolvedAt)
	proposal.ExecutedAt = fromNullMillis(executedAt)
	return proposal, nil
}

// GetProposal loads a proposal with its insertion-ordered signatures.
func (s *Store) GetProposal(ctx context.Context, id int64) (domain.Proposal, error) {
	if err := ctx.Err(); err != nil {
		return domain.Proposal{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = ?`, id)
	proposal, err := scanProposal(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Proposal{}, apperrors.New(apperrors.CodeProposalNotFound, fmt.Sprintf("proposal %d not found", id))
		}
		return domain.Proposal{}, fmt.Errorf("scan proposal: %w", err)
	}

	signatures, err := s.proposalSignatures(ctx, id)
	if err != nil {
		return domain.Proposal{}, err
	}
	proposal.Signatures = signatures
	return proposal, nil
}

func (s *Store) proposalSignatures(ctx context.Context, proposalID int64) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT signer_id
FROM proposal_signatures
WHERE proposal_id = ?
ORDER BY rowid ASC
`, proposalID)
	if err != nil {
		return nil, fmt.Errorf("list signatures: %w", err)
	}
	defer rows.Close()

	var signatures []string
	for rows.Next() {
		var signer string
		if err := rows.Scan(&signer); err != nil {
			return nil, fmt.Errorf("scan signature: %w", err)
		}
		signatures = append(signatures, signer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signatures: %w", err)
	}
	return signatures, nil
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

	var (
		rows *sql.Rows
		err  error
	)
	if filter.Status != nil {
		rows, err = s.sqlDB.QueryContext(ctx,
			`SELECT `+proposalColumns+` FROM proposals WHERE status = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
			domain.ProposalStatusLabel(*filter.Status), limit)
	} else {
		rows, err = s.sqlDB.QueryContext(ctx,
			`SELECT `+proposalColumns+` FROM proposals ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	proposals := make([]domain.Proposal, 0, limit)
	for rows.Next() {
		proposal, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		proposals = append(proposals, proposal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate proposals: %w", err)
	}

	for i := range proposals {
		signatures, err := s.proposalSignatures(ctx, proposals[i].ID)
		if err != nil {
			return nil, err
		}
		proposals[i].Signatures = signatures
	}
	return proposals, nil
}

// AddSignature durably appends one signature row.
func (s *Store) AddSignature(ctx context.Context, proposalID int64, signer string, signedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO proposal_signatures (proposal_id, signer_id, signed_at)
VALUES (?, ?, ?)
`, proposalID, signer, toMillis(signedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Wrap(apperrors.CodeProposalAlreadySigned,
				fmt.Sprintf("%s has already signed proposal %d", signer, proposalID), err)
		}
		return fmt.Errorf("insert signature: %w", err)
	}
	return nil
}

// CompareAndSwapStatus flips the proposal status only if it currently equals from.
func (s *Store) CompareAndSwapStatus(ctx context.Context, id int64, from, to domain.ProposalStatus, change storage.StatusChange) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE proposals
SET status = ?, rejected_by = ?, resolved_at = ?, executed_at = ?
WHERE id = ? AND status = ?
`,
		domain.ProposalStatusLabel(to),
		change.RejectedBy,
		toNullMillis(change.ResolvedAt),
		toNullMillis(change.ExecutedAt),
		id,
		domain.ProposalStatusLabel(from),
	)
	if err != nil {
		return fmt.Errorf("update proposal status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("proposal status rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.New(apperrors.CodeProposalNotPending,
			fmt.Sprintf("proposal %d is not %s", id, domain.ProposalStatusLabel(from)))
	}
	return nil
}
