// Package apierr pairs an error with the HTTP status and the stable code
// that the chat API reports for it.
package apierr

import (
	"fmt"
	"net/http"
)

// Codes reported in the "code" field of an error response.
const (
	CodeInvalidRequest    = "invalid_request"
	CodeForbidden         = "forbidden"
	CodeNotFound          = "not_found"
	CodeInvalidSearch     = "invalid_search"
	CodeTranslationFailed = "translation_failed"
	CodeFDARequestFailed  = "fda_request_failed"
	CodeCompletionFailed  = "completion_failed"
	CodeInternal          = "internal"
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
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func BadRequest(err error) *Error { return New(http.StatusBadRequest, CodeInvalidRequest, err) }

func Forbidden(err error) *Error { return New(http.StatusForbidden, CodeForbidden, err) }

func NotFound(err error) *Error { return New(http.StatusNotFound, CodeNotFound, err) }

// Upstream reports a server-side failure as a 500. code names the failing
// pipeline stage, or CodeInternal.
func Upstream(code string, err error) *Error {
	return New(http.StatusInternalServerError, code, err)
}
