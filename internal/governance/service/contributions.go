package service

import (
	"context"
	"time"
)

// ContributionReport combines a signer's raw counters with the derived
// quality score.
type ContributionReport struct {
	SignerID        string
	TotalSignatures int64
	TotalRejections int64
	AvgLatency      time.Duration
	Score           float64
}

// Contribution reports a signer's recorded activity and quality score.
func (s *Service) Contribution(ctx context.Context, signerID string) (ContributionReport, error) {
	contribution, err := s.store.GetContribution(ctx, signerID)
	if err != nil {
		return ContributionReport{}, err
	}
	return ContributionReport{
		SignerID:        contribution.SignerID,
		TotalSignatures: contribution.TotalSignatures,
		TotalRejections: contribution.TotalRejections,
		AvgLatency:      contribution.AvgLatency(),
		Score:           s.cfg.ScorePolicy.Score(contribution),
	}, nil
}
