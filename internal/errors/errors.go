package errors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Domain error types for the account ledger
var (
	ErrAccountNotFound         = errors.New("account not found")
	ErrAccountAlreadyExists    = errors.New("account already exists")
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrLimitExceeded           = errors.New("transaction limit exceeded")
	ErrAccountInactive         = errors.New("account is not active")
	ErrIdentifierExhausted     = errors.New("unable to generate a unique account number")
	ErrConcurrencyConflict     = errors.New("concurrent modification detected")
	ErrPersistenceFailure      = errors.New("persistence failure")
	ErrBusy                    = errors.New("account is busy, retry later")
	ErrDuplicateReference      = errors.New("duplicate transaction reference")
	ErrInvalidAccountID        = errors.New("invalid account ID")
	ErrSameAccount             = errors.New("source and destination accounts cannot be the same")
	ErrAlreadyReversed         = errors.New("transaction already reversed")
	ErrNotReversible           = errors.New("transaction cannot be reversed")
	ErrInvalidStatusTransition = errors.New("invalid account status transition")
	ErrNonZeroBalance          = errors.New("account balance must be zero to close")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// LimitExceededError carries the amount by which a transfer overshoots the limit.
type LimitExceededError struct {
	Period    string
	Limit     decimal.Decimal
	Total     decimal.Decimal
	ExceedsBy decimal.Decimal
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s limit %s exceeded by %s (already transacted %s)",
		e.Period, e.Limit.StringFixed(2), e.ExceedsBy.StringFixed(2), e.Total.StringFixed(2))
}

func (e *LimitExceededError) Unwrap() error {
	return ErrLimitExceeded
}

// PersistenceError reports a failed store write. The in-memory state has
// already been rolled back when this error is returned.
type PersistenceError struct {
	Operation string
	Cause     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during '%s': %v", e.Operation, e.Cause)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistenceFailure, e.Cause}
}

func NewPersistenceError(operation string, cause error) error {
	return &PersistenceError{
		Operation: operation,
		Cause:     cause,
	}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrTransactionNotFound)
}

func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAccountAlreadyExists)
}

// IsRetryable reports errors a caller may retry unchanged.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBusy) || errors.Is(err, ErrConcurrencyConflict)
}

// AsLimitExceeded extracts the limit payload from err.
func AsLimitExceeded(err error) (*LimitExceededError, bool) {
	var limitErr *LimitExceededError
	if errors.As(err, &limitErr) {
		return limitErr, true
	}
	return nil, false
}
