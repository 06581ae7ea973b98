package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable machine-readable reasons carried by AppError
const (
	ReasonNotFound            = "NOT_FOUND"
	ReasonPatientNotFound     = "PATIENT_NOT_FOUND"
	ReasonTestNotFound        = "TEST_NOT_FOUND"
	ReasonInvalidSelection    = "INVALID_SELECTION"
	ReasonPricingInputInvalid = "PRICING_INPUT_INVALID"
	ReasonValidationFailed    = "VALIDATION_FAILED"
	ReasonAlreadyReconciled   = "ALREADY_RECONCILED"
	ReasonAlreadyRequested    = "ALREADY_REQUESTED"
	ReasonInvalidTransition   = "INVALID_TRANSITION"
	ReasonSequenceUnavailable = "SEQUENCE_UNAVAILABLE"
	ReasonStorageUnavailable  = "STORAGE_UNAVAILABLE"
	ReasonConflict            = "CONFLICT"
	ReasonBadRequest          = "BAD_REQUEST"
	ReasonUnauthorized        = "UNAUTHORIZED"
	ReasonForbidden           = "FORBIDDEN"
	ReasonRateLimited         = "RATE_LIMITED"
	ReasonIdempotencyMismatch = "IDEMPOTENCY_KEY_REUSED"
	ReasonInternal            = "INTERNAL"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code      int          `json:"code"`
	Reason    string       `json:"reason,omitempty"`
	Message   string       `json:"message"`
	Errors    []FieldError `json:"errors,omitempty"`
	Retryable bool         `json:"retryable,omitempty"`
	Err       error        `json:"-"`
}

// FieldError represents a validation error for a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common errors
var (
	ErrNotFound           = &AppError{Code: http.StatusNotFound, Reason: ReasonNotFound, Message: "Resource not found"}
	ErrUnauthorized       = &AppError{Code: http.StatusUnauthorized, Reason: ReasonUnauthorized, Message: "Unauthorized"}
	ErrForbidden          = &AppError{Code: http.StatusForbidden, Reason: ReasonForbidden, Message: "Forbidden"}
	ErrBadRequest         = &AppError{Code: http.StatusBadRequest, Reason: ReasonBadRequest, Message: "Bad request"}
	ErrInternalServer     = &AppError{Code: http.StatusInternalServerError, Reason: ReasonInternal, Message: "Internal server error"}
	ErrInvalidCredentials = &AppError{Code: http.StatusUnauthorized, Reason: ReasonUnauthorized, Message: "Invalid email or password"}
	ErrInvalidToken       = &AppError{Code: http.StatusUnauthorized, Reason: ReasonUnauthorized, Message: "Invalid token"}
)

// NewAppError creates a new application error
func NewAppError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(fieldErrors []FieldError) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Reason:  ReasonValidationFailed,
		Message: "Validation failed",
		Errors:  fieldErrors,
	}
}

// NewNotFoundError creates a not found error with a custom message
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Reason:  ReasonNotFound,
		Message: resource + " not found",
	}
}

// NewPatientNotFoundError reports an unknown patient reference
func NewPatientNotFoundError(id fmt.Stringer) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Reason:  ReasonPatientNotFound,
		Message: "Patient not found",
		Errors:  []FieldError{{Field: "patient_id", Message: fmt.Sprintf("patient %s does not exist", id)}},
	}
}

// NewTestNotFoundError reports one or more unknown lab test references
func NewTestNotFoundError(fieldErrors []FieldError) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Reason:  ReasonTestNotFound,
		Message: "Lab test not found",
		Errors:  fieldErrors,
	}
}

// NewInvalidSelectionError reports an order whose test selection resolved to nothing
func NewInvalidSelectionError(fieldErrors []FieldError) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Reason:  ReasonInvalidSelection,
		Message: "No valid lab tests selected",
		Errors:  fieldErrors,
	}
}

// NewPricingInputError reports a malformed discount, coverage or tendered amount
func NewPricingInputError(field, message string) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Reason:  ReasonPricingInputInvalid,
		Message: "Invalid pricing input",
		Errors:  []FieldError{{Field: field, Message: message}},
	}
}

// NewConflictError creates a conflict error with a custom message
func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Reason:  ReasonConflict,
		Message: message,
	}
}

// NewAlreadyReconciledError reports that a reconciliation already exists for the date
func NewAlreadyReconciledError(date string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Reason:  ReasonAlreadyReconciled,
		Message: "Cash has already been reconciled for " + date,
		Errors:  []FieldError{{Field: "reconciliation_date", Message: "a reconciliation already exists for " + date}},
	}
}

// NewAlreadyRequestedError reports a duplicate correction request
func NewAlreadyRequestedError() *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Reason:  ReasonAlreadyRequested,
		Message: "A correction has already been requested for this reconciliation",
	}
}

// NewInvalidTransitionError reports a state change the entity does not allow
func NewInvalidTransitionError(entity, from, to string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Reason:  ReasonInvalidTransition,
		Message: fmt.Sprintf("%s cannot move from %s to %s", entity, from, to),
	}
}

// NewBadRequestError creates a bad request error with a custom message
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Reason:  ReasonBadRequest,
		Message: message,
	}
}

// NewIdempotencyMismatchError reports a reused Idempotency-Key whose request differs
// from the one it was first used with
func NewIdempotencyMismatchError() *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Reason:  ReasonIdempotencyMismatch,
		Message: "Idempotency-Key was already used with a different request",
	}
}

// NewSequenceUnavailableError is returned when the counter store cannot allocate a number
func NewSequenceUnavailableError(err error) *AppError {
	return &AppError{
		Code:      http.StatusServiceUnavailable,
		Reason:    ReasonSequenceUnavailable,
		Message:   "Unable to allocate a sequence number",
		Retryable: true,
		Err:       err,
	}
}

// NewStorageError wraps an unexpected persistence failure as a retryable error
func NewStorageError(operation string, err error) *AppError {
	return &AppError{
		Code:      http.StatusServiceUnavailable,
		Reason:    ReasonStorageUnavailable,
		Message:   "Failed to " + operation,
		Retryable: true,
		Err:       err,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// HasReason reports whether err is an AppError with the given reason
func HasReason(err error, reason string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Reason == reason
	}
	return false
}

// GetAppError converts an error to AppError if possible
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Code:    http.StatusInternalServerError,
		Reason:  ReasonInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// Wrap returns err untouched when it is already an AppError, otherwise a storage error
func Wrap(operation string, err error) error {
	if err == nil {
		return nil
	}
	if IsAppError(err) {
		return err
	}
	return NewStorageError(operation, err)
}
