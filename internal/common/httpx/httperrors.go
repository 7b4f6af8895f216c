package httpx

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/lasselehtinen/elvis/internal/common/apperrors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Error is an application error in the Elvis format. Code travels in the
// body as errorcode; StatusCode is the HTTP status, 200 unless set, since the
// API reports most application errors with a successful status.
type Error struct {
	Code       int    `json:"errorcode"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
}

// Send writes the error response to the provided ResponseWriter.
// If the writer is nil, no action is taken.
func (e *Error) Send(w http.ResponseWriter) {
	if w == nil {
		return
	}
	rspJson, err := json.Marshal(e)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Unable to parse error"))
		return
	}
	status := e.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	if rec, ok := w.(errorCodeRecorder); ok {
		rec.recordErrorCode(e.Code)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(rspJson)
}

// Error returns the error message.
func (e *Error) Error() string {
	return e.Message
}

// SendError sends an application error. The error's code becomes the
// errorcode, falling back to its status code, then 500.
// If the error is nil, no action is taken.
func SendError(w http.ResponseWriter, err apperrors.Error) {
	if err == nil {
		return
	}
	code := err.Code()
	if code == 0 {
		code = err.StatusCode()
	}
	if code == 0 {
		code = http.StatusInternalServerError
	}
	httperror := &Error{
		Code:    code,
		Message: err.ErrorAll(),
	}
	httperror.Send(w)
}

// Common Errors

// ErrApplicationError returns an error for internal failures.
func ErrApplicationError(msg ...string) *Error {
	m := "unable to process request"
	if len(msg) > 0 && msg[0] != "" {
		m = msg[0]
	}
	return &Error{
		Code:    http.StatusInternalServerError,
		Message: m,
	}
}

// ErrUnAuthorized returns an error for calls without a valid session.
func ErrUnAuthorized(msg ...string) *Error {
	m := "Not logged in"
	if len(msg) > 0 && msg[0] != "" {
		m = msg[0]
	}
	return &Error{
		Code:    http.StatusUnauthorized,
		Message: m,
	}
}

// ErrInvalidRequest returns an error for missing or malformed parameters.
func ErrInvalidRequest(msg ...string) *Error {
	m := "invalid request"
	if len(msg) > 0 && msg[0] != "" {
		m = msg[0]
	}
	return &Error{
		Code:    http.StatusBadRequest,
		Message: m,
	}
}

// ErrNotFound returns a 404 answer.
func ErrNotFound(msg ...string) *Error {
	m := "not found"
	if len(msg) > 0 && msg[0] != "" {
		m = msg[0]
	}
	return &Error{
		Code:       http.StatusNotFound,
		Message:    m,
		StatusCode: http.StatusNotFound,
	}
}

// ErrConflict returns an error for operations blocked by the state of an
// object, such as an asset checked out by another user.
func ErrConflict(msg string) *Error {
	return &Error{
		Code:    http.StatusConflict,
		Message: msg,
	}
}

// ErrReqMethodNotSupported returns an error for unsupported HTTP methods.
func ErrReqMethodNotSupported() *Error {
	return &Error{
		Code:       http.StatusMethodNotAllowed,
		Message:    "request method not supported",
		StatusCode: http.StatusMethodNotAllowed,
	}
}
