package classifier

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
)

// attackClasses are the threat labels the simulated model draws from.
// Benign traffic never reaches the governance pipeline.
var attackClasses = []string{
	"Bot",
	"DDoS",
	"DoS GoldenEye",
	"DoS Hulk",
	"PortScan",
	"SSH-Patator",
}

// Simulated draws verdicts from a fixed attack-class catalog with confidence
// values spread across every response tier. It stands in for the model
// backend in demos and tests.
type Simulated struct {
	mu  sync.Mutex
	rng *rand.Rand

	sample int
}

// NewSimulated returns a simulated classifier seeded for reproducible runs.
func NewSimulated(seed int64) *Simulated {
	return &Simulated{rng: rand.New(rand.NewSource(seed))}
}

// Classify returns a random attack verdict.
func (s *Simulated) Classify(ctx context.Context) (Verdict, error) {
	if err := ctx.Err(); err != nil {
		return Verdict{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sample++
	class := attackClasses[s.rng.Intn(len(attackClasses))]
	// Spread confidence across [0.55, 1.0) so every tier shows up.
	confidence := 0.55 + s.rng.Float64()*0.45

	return Verdict{
		FeatureRef:     fmt.Sprintf("sample-%04d", s.sample),
		PredictedClass: class,
		Confidence:     confidence,
		SourceIP:       s.randomIP(),
		TargetIP:       s.randomIP(),
	}, nil
}

func (s *Simulated) randomIP() string {
	// TEST-NET-3 keeps simulated addresses out of routable space.
	return fmt.Sprintf("203.0.113.%d", 1+s.rng.Intn(254))
}
