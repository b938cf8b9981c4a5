package errors

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// AppError is the engine's error type. Code classifies the failure the way
// callers need to react to it: INVALID_ARGUMENT is never retried,
// FAILED_PRECONDITION is a state violation surfaced to the user,
// UNAVAILABLE is safe to retry because every mutation is idempotent.
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func InvalidArgument(msg string) error {
	return New(CodeInvalidArgument, msg)
}

func NotFound(msg string) error {
	return New(CodeNotFound, msg)
}

func AlreadyExists(msg string) error {
	return New(CodeAlreadyExists, msg)
}

func FailedPrecondition(msg string) error {
	return New(CodeFailedPrecondition, msg)
}

func Unavailable(msg string, cause error) error {
	return Wrap(CodeUnavailable, msg, cause)
}

func Internal(msg string, cause error) error {
	return Wrap(CodeInternal, msg, cause)
}

// CodeOf extracts the Code from err, mapping infra errors to engine codes.
// Keeps service and handler layers free of gorm/context error checks.
func CodeOf(err error) Code {
	if err == nil {
		return CodeUnknown
	}

	var app *AppError
	if errors.As(err, &app) {
		return app.Code
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return CodeNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return CodeUnavailable
	default:
		return CodeInternal
	}
}

// Map normalizes an arbitrary error into an AppError so every failure that
// crosses the service boundary carries a code.
func Map(err error) error {
	if err == nil {
		return nil
	}
	var app *AppError
	if errors.As(err, &app) {
		return err
	}

	switch CodeOf(err) {
	case CodeNotFound:
		return Wrap(CodeNotFound, "record not found", err)
	case CodeUnavailable:
		return Wrap(CodeUnavailable, "store unavailable", err)
	default:
		return Wrap(CodeInternal, "internal error", err)
	}
}
