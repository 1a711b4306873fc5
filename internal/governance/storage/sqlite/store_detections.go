package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/quorumsec/aegis/internal/governance/domain"
	apperrors "github.com/quorumsec/aegis/internal/platform/errors"
)

// CreateDetection persists a detection and returns it with its ID assigned.
func (s *Store) CreateDetection(ctx context.Context, detection domain.Detection) (domain.Detection, error) {
	if err := ctx.Err(); err != nil {
		return domain.Detection{}, err
	}
	result, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO detections (
	feature_ref,
	predicted_class,
	confidence,
	tier,
	source_ip,
	target_ip,
	status,
	proposal_id,
	detected_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		detection.FeatureRef,
		detection.PredictedClass,
		detection.Confidence,
		domain.TierLabel(detection.Tier),
		detection.SourceIP,
		detection.TargetIP,
		domain.DetectionStatusLabel(detection.Status),
		toNullID(detection.ProposalID),
		toMillis(detection.DetectedAt),
	)
	if err != nil {
		return domain.Detection{}, fmt.Errorf("insert detection: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return domain.Detection{}, fmt.Errorf("detection id: %w", err)
	}
	detection.ID = id
	return detection, nil
}

const detectionColumns = `
	id,
	feature_ref,
	predicted_class,
	confidence,
	tier,
	source_ip,
	target_ip,
	status,
	proposal_id,
	detected_at
`

func scanDetection(scanner interface{ Scan(...any) error }) (domain.Detection, error) {
	var (
		detection  domain.Detection
		tier       string
		status     string
		proposalID sql.NullInt64
		detectedAt int64
	)
	if err := scanner.Scan(
		&detection.ID,
		&detection.FeatureRef,
		&detection.PredictedClass,
		&detection.Confidence,
		&tier,
		&detection.SourceIP,
		&detection.TargetIP,
		&status,
		&proposalID,
		&detectedAt,
	); err != nil {
		return domain.Detection{}, err
	}
	detection.Tier = domain.ParseTier(tier)
	detection.Status = domain.ParseDetectionStatus(status)
	detection.ProposalID = fromNullID(proposalID)
	detection.DetectedAt = fromMillis(detectedAt)
	return detection, nil
}

// GetDetection loads a detection record.
func (s *Store) GetDetection(ctx context.Context, id int64) (domain.Detection, error) {
	if err := ctx.Err(); err != nil {
		return domain.Detection{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+detectionColumns+` FROM detections WHERE id = ?`, id)
	detection, err := scanDetection(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Detection{}, apperrors.New(apperrors.CodeDetectionNotFound, fmt.Sprintf("detection %d not found", id))
		}
		return domain.Detection{}, fmt.Errorf("scan detection: %w", err)
	}
	return detection, nil
}

// ListDetections returns detections newest-first.
func (s *Store) ListDetections(ctx context.Context, limit int) ([]domain.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+detectionColumns+` FROM detections ORDER BY detected_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list detections: %w", err)
	}
	defer rows.Close()

	detections := make([]domain.Detection, 0, limit)
	for rows.Next() {
		detection, err := scanDetection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan detection: %w", err)
		}
		detections = append(detections, detection)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate detections: %w", err)
	}
	return detections, nil
}

// LinkProposal records the proposal back-reference on a detection.
func (s *Store) LinkProposal(ctx context.Context, detectionID, proposalID int64, status domain.DetectionStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE detections SET proposal_id = ?, status = ? WHERE id = ?
`, proposalID, domain.DetectionStatusLabel(status), detectionID)
	if err != nil {
		return fmt.Errorf("link proposal: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("link proposal rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.New(apperrors.CodeDetectionNotFound, fmt.Sprintf("detection %d not found", detectionID))
	}
	return nil
}
