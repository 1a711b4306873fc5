package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/quorumsec/aegis/internal/governance/storage"
)

// AppendAuditEvent durably appends one audit record.
func (s *Store) AppendAuditEvent(ctx context.Context, event storage.AuditEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO audit_events (id, kind, detection_id, proposal_id, actor, detail, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`,
		event.ID,
		event.Kind,
		toNullID(event.DetectionID),
		toNullID(event.ProposalID),
		event.Actor,
		event.Detail,
		toMillis(event.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
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
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, kind, detection_id, proposal_id, actor, detail, created_at
FROM audit_events
ORDER BY created_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	events := make([]storage.AuditEvent, 0, limit)
	for rows.Next() {
		var (
			event       storage.AuditEvent
			detectionID sql.NullInt64
			proposalID  sql.NullInt64
			createdAt   int64
		)
		if err := rows.Scan(
			&event.ID,
			&event.Kind,
			&detectionID,
			&proposalID,
			&event.Actor,
			&event.Detail,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.DetectionID = fromNullID(detectionID)
		event.ProposalID = fromNullID(proposalID)
		event.CreatedAt = fromMillis(createdAt)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
