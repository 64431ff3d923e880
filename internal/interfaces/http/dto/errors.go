package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	// ErrCodeValidation is used when a request or domain value is rejected
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeRequestTooLarge is used when the body exceeds the limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	// ErrCodeRateLimited is used when a client exceeds its request budget
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	// ErrCodeLockTimeout is used when a stock or document lock is not acquired in time
	ErrCodeLockTimeout = "ERR_LOCK_TIMEOUT"
	// ErrCodeIdempotencyInFlight is used when a request with the same
	// Idempotency-Key is still being handled
	ErrCodeIdempotencyInFlight = "ERR_IDEMPOTENCY_IN_FLIGHT"
)

// Business rule error codes
const (
	ErrCodeInvalidState          = "ERR_INVALID_STATE"
	ErrCodeInsufficientStock     = "ERR_INSUFFICIENT_STOCK"
	ErrCodeInsufficientBalance   = "ERR_INSUFFICIENT_BALANCE"
	ErrCodeIncompatibleUnits     = "ERR_INCOMPATIBLE_UNITS"
	ErrCodeCyclicUnitGraph       = "ERR_CYCLIC_UNIT_GRAPH"
	ErrCodePaymentOverAllocation = "ERR_PAYMENT_OVER_ALLOCATION"
	ErrCodeCouponUnavailable     = "ERR_COUPON_UNAVAILABLE"
	ErrCodeRegisterAlreadyOpen   = "ERR_REGISTER_ALREADY_OPEN"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Input errors -> 400 Bad Request
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeLockTimeout:         http.StatusServiceUnavailable,
	ErrCodeIdempotencyInFlight: http.StatusConflict,
	ErrCodeRegisterAlreadyOpen: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:          http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock:     http.StatusUnprocessableEntity,
	ErrCodeInsufficientBalance:   http.StatusUnprocessableEntity,
	ErrCodeIncompatibleUnits:     http.StatusUnprocessableEntity,
	ErrCodeCyclicUnitGraph:       http.StatusUnprocessableEntity,
	ErrCodePaymentOverAllocation: http.StatusUnprocessableEntity,
	ErrCodeCouponUnavailable:     http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainErrorCodes maps domain error codes to API error codes
var domainErrorCodes = map[string]string{
	"NOT_FOUND":                  ErrCodeNotFound,
	"ALREADY_EXISTS":             ErrCodeAlreadyExists,
	"VALIDATION_ERROR":           ErrCodeValidation,
	"CONCURRENCY_CONFLICT":       ErrCodeConcurrencyConflict,
	"INVALID_STATE_TRANSITION":   ErrCodeInvalidState,
	"INSUFFICIENT_STOCK":         ErrCodeInsufficientStock,
	"INSUFFICIENT_BALANCE":       ErrCodeInsufficientBalance,
	"INCOMPATIBLE_UNITS":         ErrCodeIncompatibleUnits,
	"CYCLIC_UNIT_GRAPH":          ErrCodeCyclicUnitGraph,
	"LOCK_TIMEOUT":               ErrCodeLockTimeout,
	"PAYMENT_OVER_ALLOCATION":    ErrCodePaymentOverAllocation,
	"COUPON_UNAVAILABLE":         ErrCodeCouponUnavailable,
	"CASH_REGISTER_ALREADY_OPEN": ErrCodeRegisterAlreadyOpen,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Unknown codes are returned as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := domainErrorCodes[code]; ok {
		return apiCode
	}
	return code
}
