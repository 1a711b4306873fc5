package service

import (
	"context"
	"fmt"

	"github.com/quorumsec/aegis/internal/governance/audit"
	"github.com/quorumsec/aegis/internal/governance/domain"
	"github.com/quorumsec/aegis/internal/governance/storage"
	apperrors "github.com/quorumsec/aegis/internal/platform/errors"
)

// SystemActor marks records produced by the engine itself rather than a signer.
const SystemActor = "system"

// DetectionResult reports a routed detection and, for the auto-propose tier,
// the proposal it spawned.
type DetectionResult struct {
	Detection domain.Detection
	Proposal  *domain.Proposal
}

// SimulateDetection draws a verdict from the classifier and routes it through
// the confidence tiers.
func (s *Service) SimulateDetection(ctx context.Context) (DetectionResult, error) {
	if s.classifier == nil {
		return DetectionResult{}, apperrors.New(apperrors.CodeClassificationUnavailable, "no classifier configured")
	}
	verdict, err := s.classifier.Classify(ctx)
	if err != nil {
		return DetectionResult{}, apperrors.Wrap(apperrors.CodeClassificationUnavailable, "classifier failed", err)
	}
	return s.RecordDetection(ctx, domain.NewDetectionInput{
		FeatureRef:     verdict.FeatureRef,
		PredictedClass: verdict.PredictedClass,
		Confidence:     verdict.Confidence,
		SourceIP:       verdict.SourceIP,
		TargetIP:       verdict.TargetIP,
	})
}

// RecordDetection validates a verdict, persists it, and applies the tier
// response: immediate execution, automatic proposal, operator alert, or
// silent log.
func (s *Service) RecordDetection(ctx context.Context, input domain.NewDetectionInput) (DetectionResult, error) {
	detection, err := domain.NewDetection(input, s.clock)
	if err != nil {
		return DetectionResult{}, err
	}
	created, err := s.store.CreateDetection(ctx, detection)
	if err != nil {
		return DetectionResult{}, fmt.Errorf("create detection: %w", err)
	}

	result := DetectionResult{Detection: created}
	switch created.Tier {
	case domain.TierAutoExecute:
		// High confidence executes the block without collecting signatures.
		s.audit.Emit(ctx, storage.AuditEvent{
			Kind:        audit.KindDetectionExecuted,
			DetectionID: &created.ID,
			Actor:       SystemActor,
			Detail:      fmt.Sprintf("block %s (%s, confidence %.4f)", created.SourceIP, created.PredictedClass, created.Confidence),
		})
		s.logger.Printf("detection %d auto-executed: block %s (%s)", created.ID, created.SourceIP, created.PredictedClass)

	case domain.TierAutoPropose:
		proposal, err := s.CreateProposal(ctx, domain.CreateProposalInput{
			DetectionID:        &created.ID,
			ThreatType:         created.PredictedClass,
			Confidence:         created.Confidence,
			Target:             created.SourceIP,
			ActionType:         domain.ActionBlock,
			RequiredSignatures: s.cfg.RequiredSignatures,
			CreatedBy:          SystemActor,
		})
		if err != nil {
			return DetectionResult{}, fmt.Errorf("auto-propose for detection %d: %w", created.ID, err)
		}
		created.ProposalID = &proposal.ID
		result.Detection = created
		result.Proposal = &proposal
		s.audit.Emit(ctx, storage.AuditEvent{
			Kind:        audit.KindDetectionProposed,
			DetectionID: &created.ID,
			ProposalID:  &proposal.ID,
			Actor:       SystemActor,
		})

	case domain.TierManualAlert:
		s.audit.Emit(ctx, storage.AuditEvent{
			Kind:        audit.KindDetectionAlerted,
			DetectionID: &created.ID,
			Actor:       SystemActor,
			Detail:      fmt.Sprintf("%s from %s needs operator review", created.PredictedClass, created.SourceIP),
		})
		s.logger.Printf("detection %d alerted: %s from %s", created.ID, created.PredictedClass, created.SourceIP)

	default:
		s.audit.Emit(ctx, storage.AuditEvent{
			Kind:        audit.KindDetectionLogged,
			DetectionID: &created.ID,
			Actor:       SystemActor,
		})
	}
	return result, nil
}

// GetDetection loads one detection.
func (s *Service) GetDetection(ctx context.Context, id int64) (domain.Detection, error) {
	return s.store.GetDetection(ctx, id)
}

// ListDetections lists detections newest-first.
func (s *Service) ListDetections(ctx context.Context, limit int) ([]domain.Detection, error) {
	return s.store.ListDetections(ctx, limit)
}
