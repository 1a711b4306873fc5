package domain

import "time"

// Amount is a value in micro-units: one unit equals 1_000_000 micro-units.
// Integer minor units keep reward splits exact and reproducible.
type Amount int64

// MicroPerUnit is the Amount scale factor.
const MicroPerUnit Amount = 1_000_000

// DefaultBasePool is the reward pool drawn per executed proposal: 0.01 unit.
const DefaultBasePool Amount = 10_000

// Transfer records the outcome of one reward payment attempt.
type Transfer struct {
	SignerID  string
	Account   string
	Amount    Amount
	TxRef     string
	Confirmed bool
	Error     string // empty on success; failures stay in the receipt, never retried here
}

// ExecutionReceipt is the immutable record produced once per executed
// proposal, documenting reward disbursement outcomes.
type ExecutionReceipt struct {
	ProposalID int64
	Transfers  []Transfer // one per signer, in signing order
	ExecutedAt time.Time
}

// SplitPool divides pool across signers proportionally to their quality
// scores. Signers are in signing order; any rounding residual is assigned to
// the last signer so the shares always sum exactly to pool.
//
// When all scores are equal — including the all-zero case — the pool splits
// evenly, again with the residual on the last signer.
func SplitPool(pool Amount, signers []string, scores map[string]float64) []Amount {
	if len(signers) == 0 {
		return nil
	}

	weights := make([]float64, len(signers))
	var sum float64
	for i, signer := range signers {
		w := scores[signer]
		if w < 0 {
			w = 0
		}
		weights[i] = w
		sum += w
	}
	if sum <= 0 {
		// No usable scores: fall back to equal weights.
		for i := range weights {
			weights[i] = 1
		}
		sum = float64(len(weights))
	}

	shares := make([]Amount, len(signers))
	var distributed Amount
	for i := 0; i < len(signers)-1; i++ {
		share := Amount(float64(pool) * weights[i] / sum)
		shares[i] = share
		distributed += share
	}
	shares[len(signers)-1] = pool - distributed
	return shares
}
