package domain

import "time"

// SignerContribution holds the persisted per-signer counters feeding the
// quality score. The score itself is never persisted; it is recomputed from
// these counters so a crash cannot leave a stale value behind.
type SignerContribution struct {
	SignerID        string
	TotalSignatures int64
	TotalRejections int64
	TotalLatency    time.Duration // cumulative signing latency across all signatures
}

// AvgLatency returns the mean signing latency, zero when nothing was signed.
func (c SignerContribution) AvgLatency() time.Duration {
	if c.TotalSignatures == 0 {
		return 0
	}
	return c.TotalLatency / time.Duration(c.TotalSignatures)
}

// ScorePolicy holds the tunable coefficients of the quality score.
//
// The weights are policy, not contract: deployments may rebalance them, but
// the score stays a bounded, monotone projection of the counters regardless
// of the chosen values.
type ScorePolicy struct {
	VolumeWeight    float64       // reward for signature volume, saturating at VolumeTarget
	LatencyWeight   float64       // reward for fast responses, saturating toward LatencyTarget
	RejectionWeight float64       // reward for a low rejection ratio
	VolumeTarget    int64         // signature count at which the volume component saturates
	LatencyTarget   time.Duration // average latency considered "good"
}

// DefaultScorePolicy returns the coefficients used when none are configured.
func DefaultScorePolicy() ScorePolicy {
	return ScorePolicy{
		VolumeWeight:    0.4,
		LatencyWeight:   0.4,
		RejectionWeight: 0.2,
		VolumeTarget:    20,
		LatencyTarget:   5 * time.Minute,
	}
}

// normalized scales the weights to sum to 1 so the score stays within [0,100]
// even for hand-tuned policies.
func (p ScorePolicy) normalized() ScorePolicy {
	sum := p.VolumeWeight + p.LatencyWeight + p.RejectionWeight
	if sum <= 0 {
		return DefaultScorePolicy()
	}
	p.VolumeWeight /= sum
	p.LatencyWeight /= sum
	p.RejectionWeight /= sum
	return p
}

// Score computes the signer's quality score in [0,100].
//
// Three components, each in [0,100]:
//   - volume: min(signatures, target)/target — more signing history is better,
//     saturating so veterans do not grow without bound
//   - latency: target/(target+avg) — faster average responses are better,
//     approaching zero as the average grows
//   - approval: 1 - rejections/(signatures+rejections) — frequent rejection
//     lowers the score
//
// A signer with no history scores the latency and approval components at
// their neutral maximum and the volume component at zero.
func (p ScorePolicy) Score(c SignerContribution) float64 {
	p = p.normalized()

	volumeTarget := p.VolumeTarget
	if volumeTarget <= 0 {
		volumeTarget = DefaultScorePolicy().VolumeTarget
	}
	latencyTarget := p.LatencyTarget
	if latencyTarget <= 0 {
		latencyTarget = DefaultScorePolicy().LatencyTarget
	}

	volume := float64(min(c.TotalSignatures, volumeTarget)) / float64(volumeTarget)

	latency := 1.0
	if avg := c.AvgLatency(); avg > 0 {
		latency = float64(latencyTarget) / float64(latencyTarget+avg)
	}

	approval := 1.0
	if total := c.TotalSignatures + c.TotalRejections; total > 0 {
		approval = 1 - float64(c.TotalRejections)/float64(total)
	}

	score := 100 * (p.VolumeWeight*volume + p.LatencyWeight*latency + p.RejectionWeight*approval)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
