// Package httpclient provides the HTTP transport used to talk to REST APIs.
// It executes fully built request URLs, attaches per-request headers and a
// cookie jar, uploads files as multipart forms and streams large responses.
// The package requires a Configurator implementation for connection settings.
package httpclient

import (
	"context"
)

// HTTPClientInterface defines the interface for HTTP client implementations.
// Implementations never interpret the response status; classifying the
// outcome is left to the caller.
type HTTPClientInterface interface {
	// DoRequest makes an HTTP request with the given options and reads the
	// whole response body.
	DoRequest(ctx context.Context, opts RequestOptions) (*Response, error)

	// StreamRequest makes an HTTP request with the given options and returns
	// the response with an unread body. The caller is responsible for closing
	// StreamResponse.Body.
	StreamRequest(ctx context.Context, opts RequestOptions) (*StreamResponse, error)
}

// Verify that the HTTPClient and TestHTTPClient implement the HTTPClientInterface.
var _ HTTPClientInterface = &HTTPClient{}
var _ HTTPClientInterface = &TestHTTPClient{}
