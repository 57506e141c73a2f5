// Package apperr defines the error taxonomy shared by the formation service
// and its HTTP layer.
//
// Services return *Error values (or wrap them); the HTTP layer maps the Kind
// to a status code and renders Message, Items and Details in the response
// envelope. Anything that is not an *Error is treated as Internal.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error.
type Kind string

const (
	KindBadRequest   Kind = "bad_request"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindRateLimited  Kind = "rate_limited"
	KindInternal     Kind = "internal"
)

// Item is one itemized validation failure, e.g. a rejected candidate.
type Item struct {
	Candidate string `json:"candidate"`
	Reason    string `json:"reason"`
}

// Error is a classified error with a user-facing message.
type Error struct {
	Kind    Kind
	Message string
	Items   []Item
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetails returns e with the given details attached.
func (e *Error) WithDetails(d map[string]any) *Error {
	e.Details = d
	return e
}

func BadRequest(msg string) *Error { return &Error{Kind: KindBadRequest, Message: msg} }
func NotFound(msg string) *Error   { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) *Error   { return &Error{Kind: KindConflict, Message: msg} }
func Forbidden(msg string) *Error  { return &Error{Kind: KindForbidden, Message: msg} }

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// Invalid is a BadRequest carrying itemized failures.
func Invalid(msg string, items []Item) *Error {
	return &Error{Kind: KindBadRequest, Message: msg, Items: items}
}

// Internal wraps an unexpected failure. The cause is kept for logging but
// never rendered to clients.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// ConflictFrom wraps a storage-level constraint violation.
func ConflictFrom(msg string, err error) *Error {
	return &Error{Kind: KindConflict, Message: msg, Err: err}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the Kind of err. Unclassified errors are Internal.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a Kind to its HTTP status code.
func HTTPStatus(k Kind) int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
