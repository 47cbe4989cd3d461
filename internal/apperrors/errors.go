package apperrors

import (
	"fmt"
	"log/slog"
	"net/http"
)

// AppError is the structured error type surfaced at the boundary layers
// (internal/pool callers, internal/httpapi, cmd/tfidxd). Core packages
// (internal/shard, internal/diskformat) return plain sentinel-wrapped
// errors; httpapi and the CLI translate those into AppError for logging
// and response shaping.
type AppError struct {
	Code      string
	Message   string
	Category  Category
	Severity  Severity
	Cause     error
	Retryable bool
}

func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && e.Code == t.Code
}

// New creates an AppError, deriving category/severity from code.
func New(code, message string, cause error) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap turns an existing error into an AppError under code, or returns nil
// if err is nil.
func Wrap(code string, err error) *AppError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// IOFailure wraps an on-disk read/write/metadata error.
func IOFailure(message string, cause error) *AppError { return New(ErrCodeIOFailure, message, cause) }

// DeserializeFailure wraps a corpus/shard decode error.
func DeserializeFailure(message string, cause error) *AppError {
	return New(ErrCodeDeserializeFailure, message, cause)
}

// LockPoisoned wraps a recovered-panic shard error.
func LockPoisoned(shardID int, cause error) *AppError {
	return New(ErrCodeLockPoisoned, fmt.Sprintf("shard %d lock poisoned", shardID), cause)
}

// ShardMissing reports an out-of-range shard id.
func ShardMissing(shardID int) *AppError {
	return New(ErrCodeShardMissing, fmt.Sprintf("shard %d out of range", shardID), nil)
}

// InvalidRequest wraps a malformed request at an HTTP or CLI boundary.
func InvalidRequest(message string, cause error) *AppError {
	return New(ErrCodeInvalidRequest, message, cause)
}

// Log emits a structured slog record for err at warn level, escalating
// to slog.Error when the error's severity is fatal. Boundary
// layers (httpapi, cmd/tfidxd) call this instead of ad hoc slog calls so
// every surfaced error carries its code and category.
func Log(err *AppError, args ...any) {
	fields := append([]any{
		slog.String("code", err.Code),
		slog.String("category", string(err.Category)),
	}, args...)
	if err.Severity == SeverityFatal {
		slog.Error(err.Message, fields...)
		return
	}
	slog.Warn(err.Message, fields...)
}

// HTTPStatus maps an AppError's category to the HTTP status httpapi should
// respond with.
func HTTPStatus(err *AppError) int {
	switch err.Category {
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryIO, CategoryDeserialize, CategoryConcurrency:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// IsFatal reports whether err is an AppError with fatal severity.
func IsFatal(err error) bool {
	ae, ok := err.(*AppError)
	return ok && ae.Severity == SeverityFatal
}

// Code extracts the error code, or "" if err is not an AppError.
func Code(err error) string {
	if ae, ok := err.(*AppError); ok {
		return ae.Code
	}
	return ""
}
