package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// Error code constants
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeInvalidGeometry   = "INVALID_GEOMETRY"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeDependency        = "DEPENDENCY_FAILURE"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeGone              = "GONE"
	ErrCodeRateLimit         = "RATE_LIMIT_EXCEEDED"
	ErrCodeDatabase          = "DATABASE_ERROR"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// ServiceError represents a service-level error with context
type ServiceError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode,omitempty"`
	Details    string `json:"details,omitempty"`
	Cause      error  `json:"-"`
}

func (e ServiceError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e ServiceError) Unwrap() error {
	return e.Cause
}

// Is matches on Code so callers can compare against the sentinel kinds below.
func (e ServiceError) Is(target error) bool {
	t, ok := target.(ServiceError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinel kinds for errors.Is
var (
	ErrValidation        = ServiceError{Code: ErrCodeValidation}
	ErrNotFound          = ServiceError{Code: ErrCodeNotFound}
	ErrInvalidTransition = ServiceError{Code: ErrCodeInvalidTransition}
	ErrDependencyFailure = ServiceError{Code: ErrCodeDependency}
)

// GetServiceError extracts a ServiceError from an error chain
func GetServiceError(err error) (ServiceError, bool) {
	var serviceErr ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr, true
	}
	return ServiceError{}, false
}

func IsServiceError(err error) bool {
	_, ok := GetServiceError(err)
	return ok
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ServiceError{Code: ErrCodeInvalidGeometry})
}

func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

func IsDependencyFailure(err error) bool {
	return errors.Is(err, ErrDependencyFailure)
}

// Common service error constructors

func NewValidationError(message string) error {
	return ServiceError{
		Code:       ErrCodeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewInvalidGeometryError(details string) error {
	return ServiceError{
		Code:       ErrCodeInvalidGeometry,
		Message:    "Invalid zone geometry",
		Details:    details,
		StatusCode: http.StatusBadRequest,
		Cause:      ErrInvalidGeometry,
	}
}

func NewNotFoundError(resource string) error {
	return ServiceError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func NewInvalidTransitionError(from, to string) error {
	return ServiceError{
		Code:       ErrCodeInvalidTransition,
		Message:    fmt.Sprintf("Cannot change alert status from %s to %s", from, to),
		StatusCode: http.StatusConflict,
	}
}

// NewDependencyFailure wraps a failed collaborator call (email, push,
// directory lookup, store).
func NewDependencyFailure(dependency string, cause error) error {
	return ServiceError{
		Code:       ErrCodeDependency,
		Message:    fmt.Sprintf("%s call failed", dependency),
		Cause:      cause,
		StatusCode: http.StatusBadGateway,
	}
}

func NewUnauthorizedError(message string) error {
	return ServiceError{
		Code:       ErrCodeUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string) error {
	return ServiceError{
		Code:       ErrCodeForbidden,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConflictError(message string) error {
	return ServiceError{
		Code:       ErrCodeConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewGoneError(message string) error {
	return ServiceError{
		Code:       ErrCodeGone,
		Message:    message,
		StatusCode: http.StatusGone,
	}
}

func NewInternalError(message string, cause error) error {
	return ServiceError{
		Code:       ErrCodeInternal,
		Message:    message,
		Cause:      cause,
		StatusCode: http.StatusInternalServerError,
	}
}

func NewDatabaseError(operation string, cause error) error {
	return ServiceError{
		Code:       ErrCodeDatabase,
		Message:    fmt.Sprintf("Database operation failed: %s", operation),
		Cause:      cause,
		StatusCode: http.StatusInternalServerError,
	}
}

// Business logic specific errors
func NewUserNotFoundError() error {
	return NewNotFoundError("User")
}

func NewAlertNotFoundError() error {
	return NewNotFoundError("Alert")
}

func NewZoneNotFoundError() error {
	return NewNotFoundError("Zone")
}

func NewInvalidCredentialsError() error {
	return NewUnauthorizedError("Invalid credentials")
}

func NewInsufficientPermissionsError() error {
	return NewForbiddenError("Insufficient permissions")
}
