package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same error code, so a detailed
// error created with NewDomainError matches the sentinel of its category.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorf creates a new domain error with a formatted message
func NewDomainErrorf(code, format string, args ...any) *DomainError {
	return NewDomainError(code, fmt.Sprintf(format, args...))
}

// Error codes
const (
	CodeNotFound               = "NOT_FOUND"
	CodeAlreadyExists          = "ALREADY_EXISTS"
	CodeValidation             = "VALIDATION_ERROR"
	CodeConcurrencyConflict    = "CONCURRENCY_CONFLICT"
	CodeInvalidStateTransition = "INVALID_STATE_TRANSITION"
	CodeInsufficientStock      = "INSUFFICIENT_STOCK"
	CodeInsufficientBalance    = "INSUFFICIENT_BALANCE"
	CodeIncompatibleUnits      = "INCOMPATIBLE_UNITS"
	CodeCyclicUnitGraph        = "CYCLIC_UNIT_GRAPH"
	CodeLockTimeout            = "LOCK_TIMEOUT"
	CodePaymentOverAllocation  = "PAYMENT_OVER_ALLOCATION"
	CodeCouponUnavailable      = "COUPON_UNAVAILABLE"
	CodeRegisterAlreadyOpen    = "CASH_REGISTER_ALREADY_OPEN"
)

// Common domain errors
var (
	ErrNotFound               = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists          = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrValidation             = NewDomainError(CodeValidation, "Invalid input provided")
	ErrConcurrencyConflict    = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrInvalidStateTransition = NewDomainError(CodeInvalidStateTransition, "Transition not allowed from current state")
	ErrInsufficientStock      = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrInsufficientBalance    = NewDomainError(CodeInsufficientBalance, "Insufficient balance available")
	ErrIncompatibleUnits      = NewDomainError(CodeIncompatibleUnits, "Units do not share a base unit")
	ErrCyclicUnitGraph        = NewDomainError(CodeCyclicUnitGraph, "Unit conversion graph contains a cycle")
	ErrLockTimeout            = NewDomainError(CodeLockTimeout, "Timed out waiting for a lock, retry later")
	ErrPaymentOverAllocation  = NewDomainError(CodePaymentOverAllocation, "Payments would exceed the document total")
	ErrCouponUnavailable      = NewDomainError(CodeCouponUnavailable, "Coupon cannot be applied")
	ErrRegisterAlreadyOpen    = NewDomainError(CodeRegisterAlreadyOpen, "A cash register is already open for this user and warehouse")
)

// NewValidationError creates a VALIDATION_ERROR with the given message
func NewValidationError(format string, args ...any) *DomainError {
	return NewDomainErrorf(CodeValidation, format, args...)
}

// NewInvalidTransitionError creates an INVALID_STATE_TRANSITION error
func NewInvalidTransitionError(from, to string) *DomainError {
	return NewDomainErrorf(CodeInvalidStateTransition, "Cannot transition from %s to %s", from, to)
}

// IsNotFound reports whether err is a NOT_FOUND error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
