// Package errors provides the categorized error taxonomy for the giveaway
// service and its mapping to HTTP status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/AyuTriphasari/baget/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryValidation represents malformed input (4xx, no side effects)
	CategoryValidation ErrorCategory = "validation"
	// CategoryOwnership represents identity/address ownership failures
	CategoryOwnership ErrorCategory = "ownership"
	// CategoryRateLimit represents rate limit rejections
	CategoryRateLimit ErrorCategory = "rate_limit"
	// CategoryChainRead represents blockchain RPC read failures
	CategoryChainRead ErrorCategory = "chain_read"
	// CategoryReceipt represents claim receipt verification failures
	CategoryReceipt ErrorCategory = "receipt"
	// CategoryReconciliation represents ledger backfill failures
	CategoryReconciliation ErrorCategory = "reconciliation"
	// CategoryNotFound represents missing resources
	CategoryNotFound ErrorCategory = "not_found"
	// CategoryDatabase represents relational store failures
	CategoryDatabase ErrorCategory = "database"
	// CategorySystem represents other internal failures
	CategorySystem ErrorCategory = "system"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to a ServiceError for API responses
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// NewInvalidParameterError creates an input validation error
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_INPUT",
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NewOwnershipVerificationError creates an ownership verification failure.
// The verifier fails closed, so lookup failures surface through here too.
func NewOwnershipVerificationError(fid uint64) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryOwnership,
		StatusCode: http.StatusForbidden,
		Code:       "OWNERSHIP_VERIFICATION_FAILED",
		Message:    "FID ownership verification failed",
		Details: map[string]interface{}{
			"fid": fid,
		},
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError() *CategorizedError {
	return &CategorizedError{
		Category:   CategoryRateLimit,
		StatusCode: http.StatusTooManyRequests,
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "too many requests",
	}
}

// NewChainReadError creates a blockchain read failure. Read endpoints never
// surface this as a hard failure; they fall back to ledger-derived status.
func NewChainReadError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryChainRead,
		StatusCode: http.StatusBadGateway,
		Code:       "CHAIN_READ_FAILED",
		Message:    fmt.Sprintf("chain read failed during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewReceiptVerificationError creates a claim receipt verification failure
func NewReceiptVerificationError(reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryReceipt,
		StatusCode: http.StatusUnprocessableEntity,
		Code:       "RECEIPT_VERIFICATION_FAILED",
		Message:    reason,
	}
}

// NewReconciliationError creates a reconciliation failure. Callers degrade to
// zero-synced rather than propagating it to the triggering request.
func NewReconciliationError(giveawayID string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryReconciliation,
		StatusCode: http.StatusInternalServerError,
		Code:       "RECONCILIATION_FAILED",
		Message:    fmt.Sprintf("reconciliation failed for giveaway %s", giveawayID),
		Cause:      cause,
		Details: map[string]interface{}{
			"giveawayId": giveawayID,
		},
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string, id string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found: %s", resource, id),
		Details: map[string]interface{}{
			"resource": resource,
			"id":       id,
		},
	}
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryDatabase,
		StatusCode: http.StatusInternalServerError,
		Code:       "DATABASE_ERROR",
		Message:    fmt.Sprintf("database error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Cause:      cause,
	}
}

// Categorize categorizes an existing error, unwrapping as needed so a
// categorized cause wrapped with %w keeps its category and status code.
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr
	}

	return NewInternalError("unexpected error", err)
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsRetryable determines if an error is worth a caller-side retry. Input,
// ownership and receipt failures are final; transient infrastructure
// failures are not.
func IsRetryable(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	switch catErr.Category {
	case CategoryChainRead, CategoryDatabase, CategorySystem:
		return true
	default:
		return false
	}
}
