package httpx

import (
	"net/http"
)

// ResponseWriter records what a handler answered. Besides the HTTP status it
// keeps the Elvis errorcode of an application error, since those usually go
// out with status 200.
type ResponseWriter struct {
	http.ResponseWriter
	status    int
	size      int
	errorCode int
}

// NewResponseWriter wraps w. Wrapping a *ResponseWriter returns it unchanged
// so stacked middleware share one record.
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	if rw, ok := w.(*ResponseWriter); ok {
		return rw
	}
	return &ResponseWriter{ResponseWriter: w}
}

// WriteHeader sends the status once; later calls are ignored.
func (rw *ResponseWriter) WriteHeader(code int) {
	if rw.status != 0 {
		return
	}
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *ResponseWriter) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// Written reports whether the status line went out.
func (rw *ResponseWriter) Written() bool {
	return rw.status != 0
}

// Status returns the HTTP status, 200 if nothing was written.
func (rw *ResponseWriter) Status() int {
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}

// Size returns the number of body bytes written.
func (rw *ResponseWriter) Size() int {
	return rw.size
}

// ErrorCode returns the errorcode of the application error sent through rw,
// or 0.
func (rw *ResponseWriter) ErrorCode() int {
	return rw.errorCode
}

type errorCodeRecorder interface {
	recordErrorCode(code int)
}

func (rw *ResponseWriter) recordErrorCode(code int) {
	rw.errorCode = code
}
