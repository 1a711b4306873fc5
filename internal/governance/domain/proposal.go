package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	apperrors "github.com/quorumsec/aegis/internal/platform/errors"
)

// ProposalStatus describes the lifecycle of a proposal.
//
// The machine is monotone: Pending is the only non-terminal state, and the
// three terminal states are final and mutually exclusive.
type ProposalStatus int

const (
	// ProposalStatusUnspecified represents an invalid status value.
	ProposalStatusUnspecified ProposalStatus = iota
	// ProposalStatusPending indicates the proposal is collecting signatures.
	ProposalStatusPending
	// ProposalStatusApproved indicates the threshold was reached and the proposal executed.
	ProposalStatusApproved
	// ProposalStatusRejected indicates a signer rejected the proposal.
	ProposalStatusRejected
	// ProposalStatusWithdrawn indicates the creator withdrew the proposal.
	ProposalStatusWithdrawn
)

// ProposalStatusLabel returns a stable string form for persistence and reporting.
func ProposalStatusLabel(status ProposalStatus) string {
	switch status {
	case ProposalStatusPending:
		return "pending"
	case ProposalStatusApproved:
		return "approved"
	case ProposalStatusRejected:
		return "rejected"
	case ProposalStatusWithdrawn:
		return "withdrawn"
	default:
		return "unspecified"
	}
}

// ParseProposalStatus reverses ProposalStatusLabel for values loaded from storage.
func ParseProposalStatus(label string) ProposalStatus {
	switch label {
	case "pending":
		return ProposalStatusPending
	case "approved":
		return ProposalStatusApproved
	case "rejected":
		return ProposalStatusRejected
	case "withdrawn":
		return ProposalStatusWithdrawn
	default:
		return ProposalStatusUnspecified
	}
}

// Action types a proposal may request against its target.
const (
	ActionBlock   = "block"
	ActionUnblock = "unblock"
)

var (
	// ErrTargetEmpty indicates a missing proposal target.
	ErrTargetEmpty = apperrors.New(apperrors.CodeProposalTargetEmpty, "proposal target is required")
	// ErrThresholdInvalid indicates a non-positive signature threshold.
	ErrThresholdInvalid = apperrors.New(apperrors.CodeProposalThresholdInvalid, "required signatures must be at least 1")
	// ErrActionInvalid indicates an unknown action type.
	ErrActionInvalid = apperrors.New(apperrors.CodeProposalActionInvalid, "action type must be block or unblock")
	// ErrProposalNotPending indicates the proposal left the pending state.
	ErrProposalNotPending = apperrors.New(apperrors.CodeProposalNotPending, "proposal is not pending")
	// ErrAlreadySigned indicates the signer already signed this proposal.
	ErrAlreadySigned = apperrors.New(apperrors.CodeProposalAlreadySigned, "signer has already signed this proposal")
	// ErrSignerForbidden indicates the signer is not in the proposal's approval set.
	ErrSignerForbidden = apperrors.New(apperrors.CodeProposalSignerForbidden, "signer is not authorized for this proposal")
	// ErrNotCreator indicates a withdraw attempt by someone other than the creator.
	ErrNotCreator = apperrors.New(apperrors.CodeProposalNotCreator, "only the proposal creator may withdraw it")
)

// Proposal is a pending request for multi-party approval of a security action.
type Proposal struct {
	ID                 int64
	DetectionID        *int64
	ThreatType         string
	Confidence         float64
	Target             string
	ActionType         string
	RequiredSignatures int
	Signatures         []string // insertion-ordered signer roles
	Status             ProposalStatus
	CreatedBy          string
	RejectedBy         string
	CreatedAt          time.Time
	ResolvedAt         *time.Time
	ExecutedAt         *time.Time
}

// CreateProposalInput describes the fields needed to open a proposal.
type CreateProposalInput struct {
	DetectionID        *int64
	ThreatType         string
	Confidence         float64
	Target             string
	ActionType         string
	RequiredSignatures int
	CreatedBy          string
}

// NormalizeCreateProposalInput trims and validates proposal input.
func NormalizeCreateProposalInput(input CreateProposalInput) (CreateProposalInput, error) {
	input.Target = strings.TrimSpace(input.Target)
	input.ThreatType = strings.TrimSpace(input.ThreatType)
	input.CreatedBy = strings.TrimSpace(input.CreatedBy)
	input.ActionType = strings.TrimSpace(input.ActionType)
	if input.ActionType == "" {
		input.ActionType = ActionBlock
	}

	if input.Target == "" {
		return CreateProposalInput{}, ErrTargetEmpty
	}
	if input.RequiredSignatures < 1 {
		return CreateProposalInput{}, ErrThresholdInvalid
	}
	if input.ActionType != ActionBlock && input.ActionType != ActionUnblock {
		return CreateProposalInput{}, ErrActionInvalid
	}
	return input, nil
}

// NewProposal builds a pending proposal from validated input.
//
// The ID is assigned by storage; callers receive it back from the store.
func NewProposal(input CreateProposalInput, now func() time.Time) (Proposal, error) {
	if now == nil {
		now = time.Now
	}
	normalized, err := NormalizeCreateProposalInput(input)
	if err != nil {
		return Proposal{}, err
	}
	return Proposal{
		DetectionID:        normalized.DetectionID,
		ThreatType:         normalized.ThreatType,
		Confidence:         normalized.Confidence,
		Target:             normalized.Target,
		ActionType:         normalized.ActionType,
		RequiredSignatures: normalized.RequiredSignatures,
		Signatures:         nil,
		Status:             ProposalStatusPending,
		CreatedBy:          normalized.CreatedBy,
		CreatedAt:          now().UTC(),
	}, nil
}

// HasSigned reports whether the signer role already appears in the signature set.
func (p Proposal) HasSigned(signer string) bool {
	return slices.Contains(p.Signatures, signer)
}

// ApplySignature validates and appends a signature, reporting whether the
// threshold was reached by this signature.
//
// The returned proposal carries the updated signature set; when reached is
// true its status has transitioned to Approved and ResolvedAt/ExecutedAt are
// set. Callers must persist the transition atomically against the current
// status.
func ApplySignature(p Proposal, signer string, authorized []string, now func() time.Time) (updated Proposal, reached bool, err error) {
	if now == nil {
		now = time.Now
	}
	signer = strings.TrimSpace(signer)
	if signer == "" {
		return Proposal{}, false, apperrors.New(apperrors.CodeSignerInvalid, "signer role is required")
	}
	if p.Status != ProposalStatusPending {
		return Proposal{}, false, statusConflict(p)
	}
	if !slices.Contains(authorized, signer) {
		return Proposal{}, false, apperrors.WithMetadata(
			apperrors.CodeProposalSignerForbidden,
			fmt.Sprintf("%s is not an authorized signer", signer),
			map[string]string{"Signer": signer},
		)
	}
	if p.HasSigned(signer) {
		return Proposal{}, false, apperrors.WithMetadata(
			apperrors.CodeProposalAlreadySigned,
			fmt.Sprintf("%s has already signed proposal %d", signer, p.ID),
			map[string]string{"Signer": signer},
		)
	}

	updated = p
	updated.Signatures = append(slices.Clone(p.Signatures), signer)
	if len(updated.Signatures) >= updated.RequiredSignatures {
		ts := now().UTC()
		updated.Status = ProposalStatusApproved
		updated.ResolvedAt = &ts
		updated.ExecutedAt = &ts
		reached = true
	}
	return updated, reached, nil
}

// Reject transitions a pending proposal to Rejected, recording the rejecting signer.
func Reject(p Proposal, signer string, now func() time.Time) (Proposal, error) {
	if now == nil {
		now = time.Now
	}
	signer = strings.TrimSpace(signer)
	if signer == "" {
		return Proposal{}, apperrors.New(apperrors.CodeSignerInvalid, "signer role is required")
	}
	if p.Status != ProposalStatusPending {
		return Proposal{}, statusConflict(p)
	}
	ts := now().UTC()
	updated := p
	updated.Status = ProposalStatusRejected
	updated.RejectedBy = signer
	updated.ResolvedAt = &ts
	return updated, nil
}

// Withdraw transitions a pending proposal to Withdrawn.
//
// Only the original creator may withdraw; managers resolve proposals through
// sign or reject instead.
func Withdraw(p Proposal, requester string, now func() time.Time) (Proposal, error) {
	if now == nil {
		now = time.Now
	}
	if p.Status != ProposalStatusPending {
		return Proposal{}, statusConflict(p)
	}
	if strings.TrimSpace(requester) == "" || requester != p.CreatedBy {
		return Proposal{}, apperrors.WithMetadata(
			apperrors.CodeProposalNotCreator,
			fmt.Sprintf("%s did not create proposal %d", requester, p.ID),
			map[string]string{"Requester": requester, "Creator": p.CreatedBy},
		)
	}
	ts := now().UTC()
	updated := p
	updated.Status = ProposalStatusWithdrawn
	updated.ResolvedAt = &ts
	return updated, nil
}

func statusConflict(p Proposal) error {
	return apperrors.WithMetadata(
		apperrors.CodeProposalNotPending,
		fmt.Sprintf("proposal %d is %s", p.ID, ProposalStatusLabel(p.Status)),
		map[string]string{"Status": ProposalStatusLabel(p.Status)},
	)
}
