package sqlite

import (
	"context"
	"fmt"

	"github.com/quorumsec/aegis/internal/governance/domain"
	"github.com/quorumsec/aegis/internal/governance/storage"
)

// Stats reports aggregate governance counts.
func (s *Store) Stats(ctx context.Context) (storage.Stats, error) {
	if err := ctx.Err(); err != nil {
		return storage.Stats{}, err
	}
	var stats storage.Stats
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT
	(SELECT COUNT(*) FROM detections),
	(SELECT COUNT(*) FROM proposals),
	(SELECT COUNT(*) FROM proposals WHERE status = ?),
	(SELECT COUNT(*) FROM execution_receipts)
`, domain.ProposalStatusLabel(domain.ProposalStatusPending))
	if err := row.Scan(
		&stats.TotalDetections,
		&stats.TotalProposals,
		&stats.PendingProposals,
		&stats.TotalExecutions,
	); err != nil {
		return storage.Stats{}, fmt.Errorf("scan stats: %w", err)
	}
	return stats, nil
}
