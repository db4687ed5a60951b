package errs

import (
	"errors"
	"fmt"
)

// Kind groups error codes by how a caller should react to them.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindPolicy         Kind = "policy_violation"
	KindConflict       Kind = "resource_conflict"
	KindNotFound       Kind = "not_found"
	KindInfrastructure Kind = "infrastructure"
)

// Error is the typed failure returned by every command and query.
// errors.Is matches on Code, so a detailed copy still matches its sentinel.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Withf returns a copy of e with extra detail appended to the message.
func (e *Error) Withf(format string, args ...any) *Error {
	c := *e
	c.Message = e.Message + ": " + fmt.Sprintf(format, args...)
	return &c
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	c := *e
	c.Err = cause
	return &c
}

func newErr(k Kind, code, msg string) *Error { return &Error{Kind: k, Code: code, Message: msg} }

var (
	ErrInvalidInput = newErr(KindValidation, "invalid_input", "invalid input")

	ErrLoanSettingsDisabled = newErr(KindPolicy, "loan_settings_disabled", "loans are disabled for this group")
	ErrAmountExceedsLimit   = newErr(KindPolicy, "amount_exceeds_limit", "requested amount exceeds the borrowing limit")
	ErrTermExceedsLimit     = newErr(KindPolicy, "term_exceeds_limit", "requested term exceeds the maximum loan term")
	ErrSelfVoteForbidden    = newErr(KindPolicy, "self_vote_forbidden", "borrower cannot vote on or decide their own loan")
	ErrDuplicateVote        = newErr(KindPolicy, "duplicate_vote", "member already voted on this loan")
	ErrAlreadyPaid          = newErr(KindPolicy, "already_paid", "contribution already paid")
	ErrAmountMismatch       = newErr(KindPolicy, "amount_mismatch", "payment amount does not match the amount due")
	ErrOverpayment          = newErr(KindPolicy, "overpayment", "repayment exceeds the outstanding balance")
	ErrForbidden            = newErr(KindPolicy, "forbidden", "member is not allowed to perform this action")
	ErrNotMember            = newErr(KindPolicy, "not_member", "not an active member of the group")
	ErrLoanNotVoting        = newErr(KindPolicy, "loan_not_voting", "loan vote already decided")
	ErrInvalidTransition    = newErr(KindPolicy, "invalid_transition", "loan is not in a state that allows this action")
	ErrGroupNotActive       = newErr(KindPolicy, "group_not_active", "group is not active")
	ErrOpenLoanExists       = newErr(KindPolicy, "open_loan_exists", "borrower already has an open loan request")

	ErrInsufficientFunds = newErr(KindConflict, "insufficient_funds", "insufficient group funds")
	ErrVersionConflict   = newErr(KindConflict, "version_conflict", "group was modified concurrently")

	ErrGroupNotFound        = newErr(KindNotFound, "group_not_found", "group not found")
	ErrLoanNotFound         = newErr(KindNotFound, "loan_not_found", "loan not found")
	ErrContributionNotFound = newErr(KindNotFound, "contribution_not_found", "contribution not found")

	ErrBusy        = newErr(KindInfrastructure, "busy", "group is busy, retry later")
	ErrUnavailable = newErr(KindInfrastructure, "unavailable", "ledger store unavailable")
	ErrLedgerDrift = newErr(KindInfrastructure, "ledger_drift", "group summary does not match the ledger")
)

// Invalid builds a validation error with a caller-facing message.
func Invalid(format string, args ...any) *Error {
	return ErrInvalidInput.Withf(format, args...)
}

// KindOf reports the kind of err. Untyped errors are infrastructure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInfrastructure
}

// CodeOf returns the error code, or "" for untyped errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Infra passes typed errors through and wraps anything else as unavailable.
func Infra(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return ErrUnavailable.Wrap(err)
}
