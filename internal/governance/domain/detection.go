package domain

import (
	"strings"
	"time"

	apperrors "github.com/quorumsec/aegis/internal/platform/errors"
)

// DetectionStatus records how a detection was routed.
type DetectionStatus int

const (
	// DetectionStatusUnspecified represents an invalid status value.
	DetectionStatusUnspecified DetectionStatus = iota
	// DetectionStatusExecuted indicates the action was performed automatically.
	DetectionStatusExecuted
	// DetectionStatusProposed indicates a proposal was created for the detection.
	DetectionStatusProposed
	// DetectionStatusAlerted indicates an operator alert was raised.
	DetectionStatusAlerted
	// DetectionStatusLogged indicates the detection was silently recorded.
	DetectionStatusLogged
)

// DetectionStatusLabel returns a stable string form for persistence and reporting.
func DetectionStatusLabel(status DetectionStatus) string {
	switch status {
	case DetectionStatusExecuted:
		return "executed"
	case DetectionStatusProposed:
		return "proposed"
	case DetectionStatusAlerted:
		return "alerted"
	case DetectionStatusLogged:
		return "logged"
	default:
		return "unspecified"
	}
}

// ParseDetectionStatus reverses DetectionStatusLabel for values loaded from storage.
func ParseDetectionStatus(label string) DetectionStatus {
	switch label {
	case "executed":
		return DetectionStatusExecuted
	case "proposed":
		return DetectionStatusProposed
	case "alerted":
		return DetectionStatusAlerted
	case "logged":
		return DetectionStatusLogged
	default:
		return DetectionStatusUnspecified
	}
}

// statusForTier maps a response tier to the detection status it produces.
func statusForTier(tier Tier) DetectionStatus {
	switch tier {
	case TierAutoExecute:
		return DetectionStatusExecuted
	case TierAutoPropose:
		return DetectionStatusProposed
	case TierManualAlert:
		return DetectionStatusAlerted
	default:
		return DetectionStatusLogged
	}
}

// Detection is the immutable record of one classifier verdict.
//
// Only Status and ProposalID change after creation, and only through the
// detection pipeline: Status when the tier routing completes, ProposalID when
// an operator later opens a proposal for an alerted detection.
type Detection struct {
	ID             int64
	FeatureRef     string
	PredictedClass string
	Confidence     float64
	Tier           Tier
	SourceIP       string
	TargetIP       string
	Status         DetectionStatus
	ProposalID     *int64
	DetectedAt     time.Time
}

// NewDetectionInput describes a classifier verdict to record.
type NewDetectionInput struct {
	FeatureRef     string
	PredictedClass string
	Confidence     float64
	SourceIP       string
	TargetIP       string
}

// NewDetection validates a classifier verdict and resolves its response tier.
func NewDetection(input NewDetectionInput, now func() time.Time) (Detection, error) {
	if now == nil {
		now = time.Now
	}
	if input.Confidence < 0 || input.Confidence > 1 {
		return Detection{}, apperrors.New(apperrors.CodeDetectionConfidenceInvalid, "confidence must be within [0,1]")
	}
	input.PredictedClass = strings.TrimSpace(input.PredictedClass)
	if input.PredictedClass == "" {
		return Detection{}, apperrors.New(apperrors.CodeDetectionConfidenceInvalid, "predicted class is required")
	}

	tier := ResolveTier(input.Confidence)
	return Detection{
		FeatureRef:     strings.TrimSpace(input.FeatureRef),
		PredictedClass: input.PredictedClass,
		Confidence:     input.Confidence,
		Tier:           tier,
		SourceIP:       strings.TrimSpace(input.SourceIP),
		TargetIP:       strings.TrimSpace(input.TargetIP),
		Status:         statusForTier(tier),
		DetectedAt:     now().UTC(),
	}, nil
}
