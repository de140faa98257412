// Package apperr defines the error taxonomy shared across the backend:
// storage lookups, connection admission and HTTP handlers all speak in
// these codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code int

const (
	CodeInternal Code = iota
	CodeNotFound
	CodeUnauthorized
	CodeConflict
	CodeInvalid
)

var code2http = map[Code]int{
	CodeNotFound:     http.StatusNotFound,
	CodeUnauthorized: http.StatusUnauthorized,
	CodeConflict:     http.StatusConflict,
	CodeInvalid:      http.StatusBadRequest,
	CodeInternal:     http.StatusInternalServerError,
}

type Error struct {
	Code    Code
	Message string
	err     error
}

func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, err error, message string) *Error {
	return &Error{Code: code, Message: message, err: err}
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.err }

// CodeOf returns the code carried by err, or CodeInternal for any error
// outside the taxonomy.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HTTPStatus maps err's code to the status an HTTP handler should answer with.
func HTTPStatus(err error) int {
	if s, ok := code2http[CodeOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func IsNotFound(err error) bool     { return CodeOf(err) == CodeNotFound }
func IsUnauthorized(err error) bool { return CodeOf(err) == CodeUnauthorized }
func IsConflict(err error) bool     { return CodeOf(err) == CodeConflict }
