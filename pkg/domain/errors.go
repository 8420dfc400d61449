package domain

import (
	"errors"
	"fmt"
)

// Code classifies engine failures for callers and transport adapters.
type Code string

// Failure codes.
const (
	CodeNotFound           Code = "not_found"
	CodeNotOwnerOrApproved Code = "not_owner_or_approved"
	CodeNotAuthorized      Code = "not_authorized"
	CodeNotEligible        Code = "not_eligible"
	CodeNotReady           Code = "not_ready"
	CodeAlreadyOnAuction   Code = "already_on_auction"
	CodeNoSuchAuction      Code = "no_such_auction"
	CodeNotSeller          Code = "not_seller"
	CodeInsufficientValue  Code = "insufficient_value"
	CodeDurationOverflow   Code = "duration_overflow"
	CodeInvalidDuration    Code = "invalid_duration"
	CodeSystemPaused       Code = "system_paused"
	CodeNotPaused          Code = "not_paused"
	CodeLimitReached       Code = "limit_reached"
	CodeInvalidArgument    Code = "invalid_argument"
	CodeAlreadyInitialized Code = "already_initialized"
	CodeInvariant          Code = "invariant_violation"
)

// Error is a classified engine failure. Two errors match under errors.Is when
// their codes are equal, so sentinels compare against decorated instances.
type Error struct {
	Code    Code
	Op      string
	Message string
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Message != "":
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Message)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return string(e.Code)
}

// Is matches on Code.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// Sentinel errors for errors.Is comparisons.
var (
	ErrNotOwnerOrApproved = &Error{Code: CodeNotOwnerOrApproved}
	ErrNotAuthorized      = &Error{Code: CodeNotAuthorized}
	ErrNotEligible        = &Error{Code: CodeNotEligible}
	ErrNotReady           = &Error{Code: CodeNotReady}
	ErrAlreadyOnAuction   = &Error{Code: CodeAlreadyOnAuction}
	ErrNoSuchAuction      = &Error{Code: CodeNoSuchAuction}
	ErrNotSeller          = &Error{Code: CodeNotSeller}
	ErrInsufficientValue  = &Error{Code: CodeInsufficientValue}
	ErrDurationOverflow   = &Error{Code: CodeDurationOverflow}
	ErrInvalidDuration    = &Error{Code: CodeInvalidDuration}
	ErrSystemPaused       = &Error{Code: CodeSystemPaused}
	ErrNotPaused          = &Error{Code: CodeNotPaused}
	ErrLimitReached       = &Error{Code: CodeLimitReached}
	ErrInvalidArgument    = &Error{Code: CodeInvalidArgument}
	ErrAlreadyInitialized = &Error{Code: CodeAlreadyInitialized}
	ErrInvariantViolation = &Error{Code: CodeInvariant}
	ErrNotFoundAny        = &Error{Code: CodeNotFound}
)

// Failf decorates a sentinel with the failing operation and a formatted message.
func Failf(sentinel *Error, op, format string, args ...any) error {
	return &Error{Code: sentinel.Code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// ErrNotFound reports a missing record.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// Is matches ErrNotFoundAny and other ErrNotFound values for the same entity.
func (e ErrNotFound) Is(target error) bool {
	switch t := target.(type) {
	case ErrNotFound:
		return t.Entity == e.Entity && (t.ID == "" || t.ID == e.ID)
	case *Error:
		return t.Code == CodeNotFound
	}
	return false
}

// KittyNotFound builds the not found error for a kitty id.
func KittyNotFound(id KittyID) error {
	return ErrNotFound{Entity: EntityKitty, ID: id.String()}
}

// CodeOf extracts the failure code from err, or "" when unclassified.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Code
	}
	var nf ErrNotFound
	if errors.As(err, &nf) {
		return CodeNotFound
	}
	var rv RuleViolationError
	if errors.As(err, &rv) {
		return CodeInvariant
	}
	return ""
}
