package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Error codes carried in the error envelope. The HTTP layer maps typed
// errors to these codes; core packages only ever raise the typed errors.
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeBadRequest         = "BAD_REQUEST"
	CodeDatabaseError      = "DATABASE_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
)

// ValidationError represents errors from invalid input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// UnauthorizedError represents a missing or invalid bearer credential
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "missing or invalid credentials"
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *UnauthorizedError {
	return &UnauthorizedError{Message: message}
}

// ForbiddenError represents an access attempt by a non-owner
type ForbiddenError struct {
	Resource string
}

func (e *ForbiddenError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("not allowed to access %s", e.Resource)
	}
	return "not allowed"
}

// NotFoundError represents errors when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with ID '%s' not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConflictError represents a unique constraint violation surfaced to the caller
type ConflictError struct {
	Resource string
	Message  string
}

func (e *ConflictError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s already exists", e.Resource)
}

// NewConflictError creates a new conflict error
func NewConflictError(resource, message string) *ConflictError {
	return &ConflictError{Resource: resource, Message: message}
}

// BadRequestError represents a semantic request error
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string {
	return e.Message
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string) *BadRequestError {
	return &BadRequestError{Message: message}
}

// StorageError represents errors from database operations
type StorageError struct {
	Operation string
	Cause     error
}

func (e *StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("storage error during %s: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("storage error during %s", e.Operation)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new storage error
func NewStorageError(operation string, cause error) *StorageError {
	return &StorageError{Operation: operation, Cause: cause}
}

// RateLimitError carries the seconds a client must wait before retrying
type RateLimitError struct {
	RetryAfter int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %d seconds", e.RetryAfter)
}

// IsValidationError checks if an error is a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFoundError checks if an error is a NotFoundError
func IsNotFoundError(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// IsConflictError checks if an error is a ConflictError
func IsConflictError(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsStorageError checks if an error is a StorageError
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// ErrorCodeFromError returns the envelope error code for an error
func ErrorCodeFromError(err error) string {
	var (
		ve  *ValidationError
		ue  *UnauthorizedError
		fe  *ForbiddenError
		nfe *NotFoundError
		ce  *ConflictError
		bre *BadRequestError
		rle *RateLimitError
		se  *StorageError
	)
	switch {
	case errors.As(err, &ve):
		return CodeValidationError
	case errors.As(err, &ue):
		return CodeUnauthorized
	case errors.As(err, &fe):
		return CodeForbidden
	case errors.As(err, &nfe):
		return CodeNotFound
	case errors.As(err, &ce):
		return CodeConflict
	case errors.As(err, &bre):
		return CodeBadRequest
	case errors.As(err, &rle):
		return CodeRateLimitExceeded
	case errors.As(err, &se):
		return CodeDatabaseError
	default:
		return CodeDatabaseError
	}
}

// HTTPStatusFromError returns the appropriate HTTP status code for an error
func HTTPStatusFromError(err error) int {
	switch ErrorCodeFromError(err) {
	case CodeValidationError:
		return http.StatusUnprocessableEntity
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse is the envelope every non-2xx response conforms to
type ErrorResponse struct {
	Detail        string         `json:"detail"`
	ErrorCode     string         `json:"error_code"`
	CorrelationID string         `json:"correlation_id"`
	Timestamp     time.Time      `json:"timestamp"`
	Details       map[string]any `json:"details"`
}

type correlationIDKey struct{}

// WithCorrelationID stores a correlation ID on the request context
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationID returns the correlation ID from the context, minting one
// when the middleware did not run (tests, background jobs).
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// WriteError writes the error envelope for a typed error
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	details := map[string]any{}
	var ve *ValidationError
	if errors.As(err, &ve) && ve.Field != "" {
		details["field"] = ve.Field
	}
	var rle *RateLimitError
	if errors.As(err, &rle) {
		details["retry_after"] = rle.RetryAfter
		w.Header().Set("Retry-After", fmt.Sprintf("%d", rle.RetryAfter))
	}

	detail := err.Error()
	if IsStorageError(err) {
		// Driver details stay in the logs, not on the wire.
		detail = "internal database error"
	}

	statusCode := HTTPStatusFromError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Detail:        detail,
		ErrorCode:     ErrorCodeFromError(err),
		CorrelationID: CorrelationID(r.Context()),
		Timestamp:     time.Now().UTC(),
		Details:       details,
	})
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}
