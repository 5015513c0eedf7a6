package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindDomain
	KindPayloadTooLarge
	KindRateLimited
)

// Status maps a Kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindDomain:
		return http.StatusBadRequest
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is the typed outcome handlers return. Detail is client-facing;
// Err is the cause and is only ever logged.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Detail, e.Err)
	}
	return e.Detail
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(detail string) *Error   { return &Error{Kind: KindNotFound, Detail: detail} }
func Validation(detail string) *Error { return &Error{Kind: KindValidation, Detail: detail} }
func Domain(detail string) *Error     { return &Error{Kind: KindDomain, Detail: detail} }

func PayloadTooLarge() *Error {
	return &Error{Kind: KindPayloadTooLarge, Detail: "Request payload is too large"}
}

func RateLimited() *Error {
	return &Error{Kind: KindRateLimited, Detail: "Rate limit exceeded"}
}

// Internal wraps an unexpected failure. The cause never reaches the client.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Detail: internalDetail, Err: err}
}

// As classifies any error. Unknown errors and known-but-unmapped database
// errors become KindInternal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if e, ok := FromPG(err); ok {
		return e
	}
	return Internal(err)
}
