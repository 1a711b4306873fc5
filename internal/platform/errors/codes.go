// Package errors provides structured error handling for the governance engine.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Proposal errors
	CodeProposalTargetEmpty      Code = "PROPOSAL_TARGET_EMPTY"
	CodeProposalThresholdInvalid Code = "PROPOSAL_THRESHOLD_INVALID"
	CodeProposalActionInvalid    Code = "PROPOSAL_ACTION_INVALID"
	CodeProposalNotFound         Code = "PROPOSAL_NOT_FOUND"
	CodeProposalNotPending       Code = "PROPOSAL_NOT_PENDING"
	CodeProposalAlreadySigned    Code = "PROPOSAL_ALREADY_SIGNED"
	CodeProposalSignerForbidden  Code = "PROPOSAL_SIGNER_FORBIDDEN"
	CodeProposalNotCreator       Code = "PROPOSAL_NOT_CREATOR"
	CodeProposalBusy             Code = "PROPOSAL_BUSY"

	// Detection errors
	CodeDetectionNotFound          Code = "DETECTION_NOT_FOUND"
	CodeClassificationUnavailable  Code = "CLASSIFICATION_UNAVAILABLE"
	CodeDetectionConfidenceInvalid Code = "DETECTION_CONFIDENCE_INVALID"

	// Incentive errors
	CodeReceiptNotFound Code = "RECEIPT_NOT_FOUND"
	CodeTransferFailed  Code = "TRANSFER_FAILED"

	// Signer errors
	CodeSignerNotFound Code = "SIGNER_NOT_FOUND"
	CodeSignerInvalid  Code = "SIGNER_INVALID"

	// Auth errors
	CodeRoleTokenInvalid Code = "ROLE_TOKEN_INVALID"
	CodeRoleTokenExpired Code = "ROLE_TOKEN_EXPIRED"

	// Transport errors
	CodeRequestInvalid Code = "REQUEST_INVALID"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - validation failures, bad input
	case CodeProposalTargetEmpty,
		CodeProposalThresholdInvalid,
		CodeProposalActionInvalid,
		CodeDetectionConfidenceInvalid,
		CodeSignerInvalid,
		CodeRequestInvalid:
		return http.StatusBadRequest

	// Conflict - state no longer allows the operation
	case CodeProposalNotPending,
		CodeProposalAlreadySigned:
		return http.StatusConflict

	// Forbidden - role not entitled to the action
	case CodeProposalSignerForbidden,
		CodeProposalNotCreator:
		return http.StatusForbidden

	// Unauthorized - role assertion missing or invalid
	case CodeRoleTokenInvalid,
		CodeRoleTokenExpired:
		return http.StatusUnauthorized

	// Not found - resource doesn't exist
	case CodeNotFound,
		CodeProposalNotFound,
		CodeDetectionNotFound,
		CodeReceiptNotFound,
		CodeSignerNotFound:
		return http.StatusNotFound

	// Contention - caller should retry
	case CodeProposalBusy:
		return http.StatusServiceUnavailable

	// Upstream dependency down
	case CodeClassificationUnavailable:
		return http.StatusBadGateway

	// Recorded per-signer in the receipt; surfaced only on direct transfer calls
	case CodeTransferFailed:
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}
