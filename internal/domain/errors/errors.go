package errors

import (
	"fmt"
	"net/http"
)

// Error codes shared by every layer. AppError.Is compares on these.
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeInvalidInput   = "INVALID_INPUT"
	CodeInvalidDate    = "INVALID_DATE"
	CodeMissingAccount = "MISSING_ACCOUNT"
	CodeAuthentication = "AUTHENTICATION_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeInternal       = "INTERNAL_ERROR"
	CodeTenant         = "TENANT_ERROR"
)

// Sentinels for errors.Is checks.
var (
	ErrMissingAccount = AppError{Code: CodeMissingAccount}
	ErrInvalidDate    = AppError{Code: CodeInvalidDate}
	ErrNotFound       = AppError{Code: CodeNotFound}
	ErrTenant         = AppError{Code: CodeTenant}
)

// AppError is a custom error type for application errors
type AppError struct {
	Code       string
	Message    string
	StatusCode int // Same rule as HTTP status codes
	Err        error
	Details    map[string]interface{}
}

// Error returns a string representation of the error
func (e AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is implements the errors.Is interface
func (e AppError) Is(target error) bool {
	if target, ok := target.(AppError); ok {
		return target.Code == e.Code
	}
	return false
}

// Unwrap returns the underlying error
func (e AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a single detail to the error
func (e AppError) WithDetail(key string, value interface{}) AppError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	e.Details = details
	return e
}

// NewValidationError creates a new validation error
func NewValidationError(message string) AppError {
	return AppError{
		Code:       CodeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewInvalidInputError creates a new invalid input error
func NewInvalidInputError(message string, err error) AppError {
	return AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

// NewInvalidDateError reports a start or end date that could not be parsed.
func NewInvalidDateError(field string, value string, err error) AppError {
	return AppError{
		Code:       CodeInvalidDate,
		Message:    fmt.Sprintf("invalid %s %q, expected YYYY-MM-DD or RFC3339", field, value),
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

// NewMissingAccountError reports a statement request without a usable account.
// err carries the lookup failure when the account ID did not resolve.
func NewMissingAccountError(report string, err error) AppError {
	return AppError{
		Code:       CodeMissingAccount,
		Message:    fmt.Sprintf("%s requires an account", report),
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

// NewAuthenticationError creates a new authentication error
func NewAuthenticationError(message string) AppError {
	return AppError{
		Code:       CodeAuthentication,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) AppError {
	return AppError{
		Code:       CodeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) AppError {
	return AppError{
		Code:       CodeConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) AppError {
	return AppError{
		Code:       CodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewTenantError creates a new tenant-related error
func NewTenantError(message string) AppError {
	return AppError{
		Code:       CodeTenant,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}
