package errors

import (
	stderrors "errors"
	"net/http"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := New(CodeProposalNotPending, "proposal is not pending")
	target := New(CodeProposalNotPending, "different message")

	if !stderrors.Is(err, target) {
		t.Fatal("expected errors with the same code to match")
	}
	if stderrors.Is(err, New(CodeProposalNotFound, "proposal is not pending")) {
		t.Fatal("expected errors with different codes not to match")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(CodeUnknown, "persist proposal", cause)

	if !stderrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable via errors.Is")
	}
	if err.Error() != "persist proposal" {
		t.Fatalf("expected message to be the wrapper message, got %q", err.Error())
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeProposalTargetEmpty, http.StatusBadRequest},
		{CodeProposalThresholdInvalid, http.StatusBadRequest},
		{CodeProposalNotPending, http.StatusConflict},
		{CodeProposalAlreadySigned, http.StatusConflict},
		{CodeProposalSignerForbidden, http.StatusForbidden},
		{CodeProposalNotCreator, http.StatusForbidden},
		{CodeProposalNotFound, http.StatusNotFound},
		{CodeReceiptNotFound, http.StatusNotFound},
		{CodeProposalBusy, http.StatusServiceUnavailable},
		{CodeClassificationUnavailable, http.StatusBadGateway},
		{CodeRoleTokenInvalid, http.StatusUnauthorized},
		{CodeUnknown, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		if got := tc.code.HTTPStatus(); got != tc.want {
			t.Fatalf("code %s: expected status %d, got %d", tc.code, tc.want, got)
		}
	}
}
