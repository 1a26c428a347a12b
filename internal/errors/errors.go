package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable error type mapped to HTTP statuses and process exit codes.
type Code int

const (
	CodeSuccess           Code = 0
	CodeInternal          Code = 1
	CodeValidation        Code = 2
	CodeNotFound          Code = 3
	CodeConflict          Code = 4
	CodeIllegalTransition Code = 5
	CodeAuth              Code = 10
	CodeRateLimited       Code = 11
	CodeExternalAPI       Code = 12
	CodePersistence       Code = 13
)

// Error is a typed error that carries a stable error code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	if e, ok := As(err); ok {
		return e.Code == code
	}
	return false
}

func ExitCode(err error) int {
	if err == nil {
		return int(CodeSuccess)
	}
	if typed, ok := As(err); ok {
		return int(typed.Code)
	}
	return int(CodeInternal)
}

// HTTPStatus maps an error to the status code the API responds with.
// Upstream failures surface as 500 so callers see one failure class for the aggregator.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	typed, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch typed.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeIllegalTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// TypeName is the short label used in logs and metrics.
func TypeName(err error) string {
	typed, ok := As(err)
	if !ok {
		return "internal_error"
	}
	switch typed.Code {
	case CodeValidation:
		return "validation_error"
	case CodeNotFound:
		return "not_found"
	case CodeConflict:
		return "conflict"
	case CodeIllegalTransition:
		return "illegal_transition"
	case CodeAuth:
		return "auth_error"
	case CodeRateLimited:
		return "rate_limited"
	case CodeExternalAPI:
		return "external_api_error"
	case CodePersistence:
		return "persistence_error"
	default:
		return "internal_error"
	}
}
