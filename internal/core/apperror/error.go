// Package apperror provides structured error handling for the stock ledger core.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"

	// Validation errors (400)
	CodeValidation = "VALIDATION_ERROR"

	// Business rule violations (422)
	CodeInvalidStateTransition  = "INVALID_STATE_TRANSITION"
	CodeInsufficientStock       = "INSUFFICIENT_STOCK"
	CodeQuantityExceedsOriginal = "QUANTITY_EXCEEDS_ORIGINAL"
	CodeQuantityNonPositive     = "QUANTITY_NON_POSITIVE"
	CodeConversionNotFound      = "CONVERSION_NOT_FOUND"
	CodeMissingRejectionReason  = "MISSING_REJECTION_REASON"
	CodeIncompleteDecisionSet   = "INCOMPLETE_DECISION_SET"

	// Ledger invariant violations (500, unretriable)
	CodeLedgerInconsistent = "LEDGER_INCONSISTENT"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict  = "CONFLICT"
	CodeDuplicate = "DUPLICATE_ENTRY"
)

// AppError is the standard error type for the service.
// It implements the error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInvalidStateTransition is returned when an approval or reversal is
// attempted on a record that is already in a terminal state.
func NewInvalidStateTransition(entity, from, attempted string) *AppError {
	return &AppError{
		Code:       CodeInvalidStateTransition,
		Message:    fmt.Sprintf("%s cannot transition from %s", entity, from),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"entity": entity, "status": from, "attempted": attempted},
	}
}

// NewInsufficientStock creates a stock shortage error
func NewInsufficientStock(batchID string, requested, available string) *AppError {
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    "Insufficient stock in batch",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"batch_id":  batchID,
			"requested": requested,
			"available": available,
		},
	}
}

// NewQuantityExceedsOriginal is returned when an approved quantity is
// larger than the originally issued quantity.
func NewQuantityExceedsOriginal(lineID string, approved, original string) *AppError {
	return &AppError{
		Code:       CodeQuantityExceedsOriginal,
		Message:    "Approved quantity exceeds original quantity",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"line_id":  lineID,
			"approved": approved,
			"original": original,
		},
	}
}

// NewQuantityNonPositive is returned when an approved quantity is zero or negative.
func NewQuantityNonPositive(lineID string, approved string) *AppError {
	return &AppError{
		Code:       CodeQuantityNonPositive,
		Message:    "Approved quantity must be positive",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"line_id": lineID, "approved": approved},
	}
}

// NewConversionNotFound is returned when neither a direct nor an inverse
// UOM conversion exists for an item/unit pair. Callers must not assume
// a 1:1 factor.
func NewConversionNotFound(itemID, fromUOM, toUOM string) *AppError {
	return &AppError{
		Code:       CodeConversionNotFound,
		Message:    fmt.Sprintf("No conversion from %s to %s", fromUOM, toUOM),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"item_id": itemID, "from_uom": fromUOM, "to_uom": toUOM},
	}
}

// NewMissingRejectionReason is returned when a rejection carries no reason.
func NewMissingRejectionReason() *AppError {
	return &AppError{
		Code:       CodeMissingRejectionReason,
		Message:    "Rejection reason is required",
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewIncompleteDecisionSet is returned when a partial-accept call does not
// cover every approval item exactly once.
func NewIncompleteDecisionSet(message string) *AppError {
	return &AppError{
		Code:       CodeIncompleteDecisionSet,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewLedgerInconsistent signals an internal invariant violation
// (e.g. a batch balance that would go negative during a reversal).
// Unretriable; indicates a bug or concurrent-write violation upstream.
func NewLedgerInconsistent(message string) *AppError {
	return &AppError{
		Code:       CodeLedgerInconsistent,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// AsAppError extracts an AppError from the error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsNotFound reports whether err carries CodeNotFound.
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// HasCode checks if error carries the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}
