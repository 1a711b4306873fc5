package domain

// Tier describes the response tier derived from detection confidence.
type Tier int

const (
	// TierUnspecified represents an invalid tier value.
	TierUnspecified Tier = iota
	// TierAutoExecute indicates the action is performed immediately without a proposal.
	TierAutoExecute
	// TierAutoPropose indicates a proposal is created automatically for approval.
	TierAutoPropose
	// TierManualAlert indicates an operator-facing alert with no automatic proposal.
	TierManualAlert
	// TierSilentLog indicates the detection is recorded with no further action.
	TierSilentLog
)

// Confidence thresholds separating the response tiers. The band edges are
// load-bearing: tier statistics are only reproducible if every component
// classifies identically, so these must not drift.
const (
	AutoExecuteThreshold = 0.90
	AutoProposeThreshold = 0.80
	ManualAlertThreshold = 0.70
)

// ResolveTier maps a detection confidence to its response tier.
//
// The bands partition [0,1]: (0.90,1] auto-execute, [0.80,0.90] auto-propose,
// [0.70,0.80) manual alert, [0,0.70) silent log.
func ResolveTier(confidence float64) Tier {
	switch {
	case confidence > AutoExecuteThreshold:
		return TierAutoExecute
	case confidence >= AutoProposeThreshold:
		return TierAutoPropose
	case confidence >= ManualAlertThreshold:
		return TierManualAlert
	default:
		return TierSilentLog
	}
}

// TierLabel returns a stable string form for persistence and reporting.
func TierLabel(tier Tier) string {
	switch tier {
	case TierAutoExecute:
		return "auto_execute"
	case TierAutoPropose:
		return "auto_propose"
	case TierManualAlert:
		return "manual_alert"
	case TierSilentLog:
		return "silent_log"
	default:
		return "unspecified"
	}
}

// ParseTier reverses TierLabel for values loaded from storage.
func ParseTier(label string) Tier {
	switch label {
	case "auto_execute":
		return TierAutoExecute
	case "auto_propose":
		return TierAutoPropose
	case "manual_alert":
		return TierManualAlert
	case "silent_log":
		return TierSilentLog
	default:
		return TierUnspecified
	}
}
