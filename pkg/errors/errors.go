// Package errors defines the tagged error taxonomy shared by services and
// the HTTP layer. Services construct errors with a Code and a human-readable
// reason; the transport layer translates codes to HTTP statuses so handlers
// never hand-roll status mapping.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code tags a failure class. Codes are stable API surface: they appear in
// JSON error envelopes and are matched by callers via Is.
type Code string

const (
	// CodeValidation marks missing or malformed required fields.
	CodeValidation Code = "validation_error"
	// CodeConflict marks uniqueness violations and already-decided submissions.
	CodeConflict Code = "conflict"
	// CodeUnauthorized marks missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks an authenticated caller without rights (wrong role,
	// not the owning manager).
	CodeForbidden Code = "forbidden"
	// CodeLocked marks edits attempted while a record is pending review or
	// already approved.
	CodeLocked Code = "locked_state"
	// CodeNotFound marks a missing entity or submission.
	CodeNotFound Code = "not_found"
	// CodeReconciliation marks a decision whose ledger writes landed but whose
	// entity propagation failed; recoverable via the reapply operation.
	CodeReconciliation Code = "reconciliation_required"
	// CodeBadRequest marks an unparseable request body or unknown domain.
	CodeBadRequest Code = "bad_request"
	// CodeInternal is the generic storage/unknown failure returned to callers.
	CodeInternal Code = "internal_error"
)

// Error is the tagged failure type surfaced to callers.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a tagged error with a human-readable reason.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Newf builds a tagged error with a formatted reason.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error without losing its chain.
func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for untagged
// errors so unexpected storage failures never leak details to callers.
func CodeOf(err error) Code {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP status. Locked edits use 423 so
// clients can distinguish review locks from ordinary conflicts.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeLocked:
		return http.StatusLocked
	default:
		return http.StatusInternalServerError
	}
}
