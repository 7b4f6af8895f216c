package elvis

import (
	"fmt"
	"net/http"

	"github.com/lasselehtinen/elvis/internal/common/apperrors"
)

var (
	ErrElvis           apperrors.Error = apperrors.New("elvis client error")
	ErrNotFound        apperrors.Error = ErrElvis.New("requested resource not found").SetStatusCode(http.StatusNotFound)
	ErrAuthentication  apperrors.Error = ErrElvis.New("authentication failed").SetStatusCode(http.StatusUnauthorized)
	ErrRemoteAPI       apperrors.Error = ErrElvis.New("remote api error")
	ErrTransport       apperrors.Error = ErrElvis.New("transport error")
	ErrUnknownEndpoint apperrors.Error = ErrElvis.New("unknown endpoint")
	ErrInvalidArgument apperrors.Error = ErrElvis.New("invalid argument").SetStatusCode(http.StatusBadRequest)
	ErrInvalidResponse apperrors.Error = ErrElvis.New("invalid response")
	ErrNoSession       apperrors.Error = ErrInvalidArgument.New("no session, login first")
)

// NotFoundError is returned when the server answers 404. The base URL is
// usually misconfigured.
type NotFoundError struct {
	BaseURL string
	URL     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("requested resource not found, check the api endpoint uri %q", e.BaseURL)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// AuthenticationError is returned when the server rejects a login.
type AuthenticationError struct {
	Message string // fault message supplied by the server
}

func (e *AuthenticationError) Error() string {
	if e.Message == "" {
		return "authentication failed"
	}
	return "authentication failed: " + e.Message
}

func (e *AuthenticationError) Unwrap() error {
	return ErrAuthentication
}

// RemoteAPIError is an application level error reported by the server.
type RemoteAPIError struct {
	Code       int    // errorcode from the response body, or the HTTP status
	Message    string // message from the response body
	StatusCode int    // HTTP status of the response
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("remote api error %d: %s", e.Code, e.Message)
}

func (e *RemoteAPIError) Unwrap() error {
	return ErrRemoteAPI
}

// TransportError reports a failure to complete the HTTP exchange: network
// errors, timeouts, cancellation and local file I/O.
type TransportError struct {
	Endpoint Endpoint
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}
