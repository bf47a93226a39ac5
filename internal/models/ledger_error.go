package models

import (
	"errors"
	"fmt"
)

// LedgerErrorKind classifies a ledger failure so the HTTP layer can pick a status code
type LedgerErrorKind string

const (
	ErrKindValidation         LedgerErrorKind = "validation_error"
	ErrKindNotFound           LedgerErrorKind = "not_found"
	ErrKindAuthorization      LedgerErrorKind = "unauthorized"
	ErrKindAlreadyCancelled   LedgerErrorKind = "already_cancelled"
	ErrKindInventoryInvariant LedgerErrorKind = "inventory_invariant_violation"
	ErrKindConflict           LedgerErrorKind = "conflict"
)

// LedgerError is returned by the booking ledger for every failure that is not a plain
// storage error
type LedgerError struct {
	Kind    LedgerErrorKind
	Message string
	Err     error
}

func (e *LedgerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

// NewValidationError reports missing or malformed input
func NewValidationError(format string, args ...interface{}) *LedgerError {
	return &LedgerError{Kind: ErrKindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError reports an unknown station, train or booking
func NewNotFoundError(format string, args ...interface{}) *LedgerError {
	return &LedgerError{Kind: ErrKindNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewAuthorizationError reports a request without a usable caller identity
func NewAuthorizationError(message string) *LedgerError {
	return &LedgerError{Kind: ErrKindAuthorization, Message: message}
}

// NewAlreadyCancelledError reports a second cancellation (or payment) of a cancelled booking
func NewAlreadyCancelledError(pnr string) *LedgerError {
	return &LedgerError{Kind: ErrKindAlreadyCancelled, Message: fmt.Sprintf("booking %s is already cancelled", pnr)}
}

// NewInventoryInvariantError signals a caller bug: a seat counter would leave [0, total]
func NewInventoryInvariantError(format string, args ...interface{}) *LedgerError {
	return &LedgerError{Kind: ErrKindInventoryInvariant, Message: fmt.Sprintf(format, args...)}
}

// NewConflictError reports a unique identifier collision
func NewConflictError(format string, args ...interface{}) *LedgerError {
	return &LedgerError{Kind: ErrKindConflict, Message: fmt.Sprintf(format, args...)}
}

// IsLedgerErrorKind reports whether err wraps a LedgerError of the given kind
func IsLedgerErrorKind(err error, kind LedgerErrorKind) bool {
	var ledgerErr *LedgerError
	if errors.As(err, &ledgerErr) {
		return ledgerErr.Kind == kind
	}
	return false
}
