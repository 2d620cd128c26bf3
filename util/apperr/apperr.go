package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	Validation Kind = "validation"
	NotFound   Kind = "not_found"
	Conflict   Kind = "conflict"
	Permission Kind = "permission"
	Unauth     Kind = "unauthenticated"
	Gateway    Kind = "gateway"
	Internal   Kind = "internal"
)

// Code is the machine readable reason, stable across releases.
type Code string

type Error struct {
	Kind   Kind
	Code   Code
	Msg    string            // safe to show to the caller
	Fields map[string]string // field level validation detail
	Err    error             // cause, logged only
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, code Code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

func Wrap(kind Kind, code Code, msg string, err error) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg, Err: err}
}

func Invalid(code Code, msg string, fields map[string]string) *Error {
	return &Error{Kind: Validation, Code: code, Msg: msg, Fields: fields}
}

func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// CodeOf extracts the code, "" for foreign errors.
func CodeOf(err error) Code {
	if ae, ok := As(err); ok {
		return ae.Code
	}
	return ""
}

func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return Internal
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Validation, Conflict, Gateway:
		return http.StatusBadRequest
	case Unauth:
		return http.StatusUnauthorized
	case Permission:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func PublicMessage(err error) string {
	if ae, ok := As(err); ok && ae.Msg != "" {
		return ae.Msg
	}
	return "internal error"
}
