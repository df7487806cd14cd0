package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned by the content core. Only these three surface as the
// result of a call; everything else is reported as a warning list alongside a
// successful write.
const (
	CodeValidation    = "validation_error"
	CodeNotFound      = "not_found"
	CodeConflict      = "conflict"
	CodeConfiguration = "configuration_error"
	CodeUnauthorized  = "unauthorized"
	CodeInternal      = "internal_error"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Validation(format string, args ...any) *Error {
	return New(http.StatusUnprocessableEntity, CodeValidation, fmt.Errorf(format, args...))
}

func NotFound(format string, args ...any) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf(format, args...))
}

func Conflict(format string, args ...any) *Error {
	return New(http.StatusConflict, CodeConflict, fmt.Errorf(format, args...))
}

// Configuration marks a fatal setup problem (unknown section type, bad rule
// table). Callers must not retry.
func Configuration(format string, args ...any) *Error {
	return New(http.StatusInternalServerError, CodeConfiguration, fmt.Errorf(format, args...))
}

func Unauthorized(format string, args ...any) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, fmt.Errorf(format, args...))
}

// IsCode reports whether err wraps an *Error with the given code.
func IsCode(err error, code string) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// From extracts the *Error from err, or wraps it as an internal error.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return New(http.StatusInternalServerError, CodeInternal, err)
}
