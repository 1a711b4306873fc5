// Package classifier defines the threat classification port and a simulated
// implementation used for demos and tests.
package classifier

import (
	"context"
)

// Verdict is one classification result.
type Verdict struct {
	// FeatureRef identifies the feature vector that produced the verdict.
	FeatureRef string
	// PredictedClass is the threat class label.
	PredictedClass string
	// Confidence is the model's confidence in [0,1].
	Confidence float64
	// SourceIP and TargetIP locate the suspected traffic when known.
	SourceIP string
	TargetIP string
}

// Classifier produces threat verdicts. Implementations wrap a model backend;
// when the backend is unreachable they return a CLASSIFICATION_UNAVAILABLE
// domain error rather than guessing.
type Classifier interface {
	Classify(ctx context.Context) (Verdict, error)
}
