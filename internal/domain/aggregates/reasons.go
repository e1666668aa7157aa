package aggregates

import "errors"

// Failure reasons. Aggregate errors carry one of these as Cause so callers can
// branch with errors.Is without inspecting messages.
var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrModalityNotFound        = errors.New("modality not found")
	ErrModalityMismatch        = errors.New("modality mismatch")
	ErrMachineNotFound         = errors.New("machine not found")
	ErrMachineModalityMismatch = errors.New("machine modality mismatch")
	ErrPatientMismatch         = errors.New("patient mismatch")
	ErrDuplicateInstance       = errors.New("duplicate instance")
	ErrStudyOrderMismatch      = errors.New("study belongs to a different order or patient")
	ErrSeriesStudyMismatch     = errors.New("series belongs to a different study")
	ErrStudyDeleted            = errors.New("study instance uid belongs to a deleted study")
	ErrSeriesDeleted           = errors.New("series instance uid belongs to a deleted series")
	ErrInvariantViolation      = errors.New("invariant violation")

	ErrStudyNotFound            = errors.New("study not found")
	ErrInvalidStateTransition   = errors.New("invalid state transition")
	ErrAlreadySigned            = errors.New("already signed")
	ErrAuthenticationFailed     = errors.New("authentication failed")
	ErrSigningKeyNotProvisioned = errors.New("signing key not provisioned")
	ErrSigningFailed            = errors.New("signing failed")
	ErrSignatureNotFound        = errors.New("signature not found")
)

var reasons = []error{
	ErrOrderNotFound,
	ErrModalityNotFound,
	ErrModalityMismatch,
	ErrMachineNotFound,
	ErrMachineModalityMismatch,
	ErrPatientMismatch,
	ErrDuplicateInstance,
	ErrStudyOrderMismatch,
	ErrSeriesStudyMismatch,
	ErrStudyDeleted,
	ErrSeriesDeleted,
	ErrInvariantViolation,
	ErrStudyNotFound,
	ErrInvalidStateTransition,
	ErrAlreadySigned,
	ErrAuthenticationFailed,
	ErrSigningKeyNotProvisioned,
	ErrSigningFailed,
	ErrSignatureNotFound,
}

// Fail builds an aggregate error whose Cause is the given reason.
func Fail(code ErrorCode, op string, reason error, detail string) error {
	msg := reason.Error()
	if detail != "" {
		msg = msg + ": " + detail
	}
	return NewError(code, op, msg, reason)
}
