package domain

import "testing"

func sumAmounts(shares []Amount) Amount {
	var total Amount
	for _, share := range shares {
		total += share
	}
	return total
}

func TestSplitPoolEvenOnEqualScores(t *testing.T) {
	signers := []string{"manager_0", "manager_1"}
	scores := map[string]float64{"manager_0": 80, "manager_1": 80}

	shares := SplitPool(10_000, signers, scores)
	if len(shares) != 2 {
		t.Fatalf("expected 2 shares, got %d", len(shares))
	}
	if shares[0] != 5_000 || shares[1] != 5_000 {
		t.Fatalf("expected even split, got %v", shares)
	}
}

func TestSplitPoolResidualGoesToLastSigner(t *testing.T) {
	signers := []string{"manager_0", "manager_1", "manager_2"}
	scores := map[string]float64{"manager_0": 50, "manager_1": 50, "manager_2": 50}

	shares := SplitPool(10_000, signers, scores)
	if sumAmounts(shares) != 10_000 {
		t.Fatalf("expected shares to sum to pool, got %v", sumAmounts(shares))
	}
	// 10000/3 = 3333 each for the first two, residual 3334 on the last.
	if shares[0] != 3_333 || shares[1] != 3_333 || shares[2] != 3_334 {
		t.Fatalf("expected residual on last signer, got %v", shares)
	}
}

func TestSplitPoolProportionalToScores(t *testing.T) {
	signers := []string{"manager_0", "manager_1"}
	scores := map[string]float64{"manager_0": 75, "manager_1": 25}

	shares := SplitPool(10_000, signers, scores)
	if shares[0] != 7_500 || shares[1] != 2_500 {
		t.Fatalf("expected 75/25 split, got %v", shares)
	}
	if sumAmounts(shares) != 10_000 {
		t.Fatalf("expected no leakage, got sum %v", sumAmounts(shares))
	}
}

func TestSplitPoolZeroScoresFallBackToEven(t *testing.T) {
	signers := []string{"manager_0", "manager_1"}
	shares := SplitPool(10_000, signers, map[string]float64{})
	if shares[0] != 5_000 || shares[1] != 5_000 {
		t.Fatalf("expected even fallback split, got %v", shares)
	}
}

func TestSplitPoolSingleSignerTakesAll(t *testing.T) {
	shares := SplitPool(10_000, []string{"manager_1"}, map[string]float64{"manager_1": 12})
	if len(shares) != 1 || shares[0] != 10_000 {
		t.Fatalf("expected full pool to single signer, got %v", shares)
	}
}

func TestSplitPoolNoSigners(t *testing.T) {
	if shares := SplitPool(10_000, nil, nil); shares != nil {
		t.Fatalf("expected nil shares for no signers, got %v", shares)
	}
}

func TestSplitPoolDeterministic(t *testing.T) {
	signers := []string{"manager_0", "manager_1", "manager_2"}
	scores := map[string]float64{"manager_0": 91.5, "manager_1": 60.25, "manager_2": 33}

	first := SplitPool(10_000, signers, scores)
	for i := 0; i < 5; i++ {
		again := SplitPool(10_000, signers, scores)
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("split changed between calls: %v then %v", first, again)
			}
		}
	}
	if sumAmounts(first) != 10_000 {
		t.Fatalf("expected exact sum, got %v", sumAmounts(first))
	}
}
