package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// PostgresErrorMessage describes Postgres related failures.
	PostgresErrorMessage = "postgres operation failed"
	// GenerationErrorMessage describes a failed agent generation.
	GenerationErrorMessage = "agent generation failed"
	// DeliveryErrorMessage describes a message the chat platform refused.
	DeliveryErrorMessage = "failed to send telegram message"
)

// Kind classifies an AppError for callers that branch on the failure type.
type Kind string

const (
	KindInternal      Kind = "internal"
	KindConfiguration Kind = "configuration"
	KindGeneration    Kind = "generation"
	KindDelivery      Kind = "delivery"
	KindStorage       Kind = "storage"
)

// AppError wraps an underlying error with an HTTP status and safe message.
// Detail carries diagnostic text such as an upstream response body.
type AppError struct {
	Err     error
	Kind    Kind
	Status  int
	Message string
	Detail  string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	default:
		return e.Message
	}
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Kind:    KindInternal,
		Status:  status,
		Message: message,
	}
}

// Configuration reports a missing or invalid setting. It is raised before any
// network call is attempted.
func Configuration(message string) *AppError {
	return &AppError{
		Kind:    KindConfiguration,
		Status:  http.StatusInternalServerError,
		Message: message,
	}
}

// Generation wraps a failed language-model call.
func Generation(err error) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Err:     err,
		Kind:    KindGeneration,
		Status:  http.StatusBadGateway,
		Message: GenerationErrorMessage,
	}
}

// Delivery reports a chat-platform rejection. body is the upstream response body.
func Delivery(err error, body string) *AppError {
	return &AppError{
		Err:     err,
		Kind:    KindDelivery,
		Status:  http.StatusBadGateway,
		Message: DeliveryErrorMessage,
		Detail:  body,
	}
}

// IsKind reports whether any AppError in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Kind == kind
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
