package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// Standard error types
var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrBadRequest          = errors.New("bad request")
	ErrValidation          = errors.New("validation error")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrAlreadyProcessing   = errors.New("case is already being processed")
	ErrNoDocuments         = errors.New("no documents uploaded")
	ErrExtraction          = errors.New("extraction failed")
	ErrRuleEngine          = errors.New("rule evaluation failed")
	ErrStorage             = errors.New("storage failure")
	ErrAdvisoryUnavailable = errors.New("advisory generator unavailable")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenInvalid        = errors.New("invalid token")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	IncidentID string            `json:"incident_id,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Code:       "FORBIDDEN",
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

// InvalidTransition signals a case status change that is not an edge of the
// lifecycle graph.
func InvalidTransition(from, to string) *AppError {
	return &AppError{
		Err:        ErrInvalidTransition,
		Code:       "INVALID_TRANSITION",
		Message:    fmt.Sprintf("cannot transition case from %s to %s", from, to),
		StatusCode: http.StatusConflict,
	}
}

func AlreadyProcessing() *AppError {
	return &AppError{
		Err:        ErrAlreadyProcessing,
		Code:       "ALREADY_PROCESSING",
		Message:    "a processing job already holds this case",
		StatusCode: http.StatusConflict,
	}
}

func NoDocuments() *AppError {
	return &AppError{
		Err:        ErrNoDocuments,
		Code:       "NO_DOCUMENTS",
		Message:    "upload at least one document before processing",
		StatusCode: http.StatusBadRequest,
	}
}

func Extraction(err error) *AppError {
	return &AppError{
		Err:        errors.Join(ErrExtraction, err),
		Code:       "EXTRACTION_ERROR",
		Message:    "document extraction failed",
		StatusCode: http.StatusInternalServerError,
	}
}

func RuleEngine(err error) *AppError {
	return &AppError{
		Err:        errors.Join(ErrRuleEngine, err),
		Code:       "RULE_ENGINE_ERROR",
		Message:    "rule evaluation failed",
		StatusCode: http.StatusInternalServerError,
	}
}

// Storage wraps a persistence failure with a stable incident identifier so the
// client-visible 500 can be correlated with server logs.
func Storage(err error) *AppError {
	return &AppError{
		Err:        errors.Join(ErrStorage, err),
		Code:       "STORAGE_ERROR",
		Message:    "a storage error occurred; the action was not applied",
		StatusCode: http.StatusInternalServerError,
		IncidentID: uuid.New().String(),
	}
}

func AdvisoryUnavailable(err error) *AppError {
	return &AppError{
		Err:        errors.Join(ErrAdvisoryUnavailable, err),
		Code:       "ADVISORY_UNAVAILABLE",
		Message:    "advisory generator unavailable",
		StatusCode: http.StatusServiceUnavailable,
	}
}

func InvalidCredentials() *AppError {
	return &AppError{
		Err:        ErrInvalidCredentials,
		Code:       "INVALID_CREDENTIALS",
		Message:    "invalid email or password",
		StatusCode: http.StatusUnauthorized,
	}
}

func TokenExpired() *AppError {
	return &AppError{
		Err:        ErrTokenExpired,
		Code:       "TOKEN_EXPIRED",
		Message:    "token has expired",
		StatusCode: http.StatusUnauthorized,
	}
}

func TokenInvalid() *AppError {
	return &AppError{
		Err:        ErrTokenInvalid,
		Code:       "TOKEN_INVALID",
		Message:    "invalid token",
		StatusCode: http.StatusUnauthorized,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
