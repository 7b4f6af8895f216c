package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/pkg/errors"
)

// TestHTTPClient serves requests directly from an http.Handler. It uses
// httptest.NewRecorder to capture responses without making network calls,
// while still honouring the cookie jar the way http.Client does.
type TestHTTPClient struct {
	config  Configurator
	handler http.Handler
}

// NewTestClient creates a new test HTTP client that routes every request to
// handler.
func NewTestClient(config Configurator, handler http.Handler) (*TestHTTPClient, error) {
	if handler == nil {
		return nil, errors.New("test client requires a handler")
	}
	return &TestHTTPClient{
		config:  config,
		handler: handler,
	}, nil
}

func (c *TestHTTPClient) serve(ctx context.Context, opts RequestOptions) (*httptest.ResponseRecorder, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	req, err := newRequest(ctx, c.config, opts)
	if err != nil {
		return nil, err
	}
	if req.Body != nil {
		defer req.Body.Close()
	}
	if opts.Jar != nil {
		for _, ck := range opts.Jar.Cookies(req.URL) {
			req.AddCookie(ck)
		}
	}

	rr := httptest.NewRecorder()
	c.handler.ServeHTTP(rr, req)

	if opts.Jar != nil {
		if cookies := rr.Result().Cookies(); len(cookies) > 0 {
			opts.Jar.SetCookies(req.URL, cookies)
		}
	}
	return rr, nil
}

// DoRequest serves the request in process and returns the recorded response.
func (c *TestHTTPClient) DoRequest(ctx context.Context, opts RequestOptions) (*Response, error) {
	rr, err := c.serve(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Response{
		StatusCode: rr.Code,
		Status:     http.StatusText(rr.Code),
		Header:     rr.Header(),
		Body:       rr.Body.Bytes(),
	}, nil
}

// StreamRequest serves the request in process; the body reads from the
// recorded output.
func (c *TestHTTPClient) StreamRequest(ctx context.Context, opts RequestOptions) (*StreamResponse, error) {
	rr, err := c.serve(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &StreamResponse{
		StatusCode: rr.Code,
		Status:     http.StatusText(rr.Code),
		Header:     rr.Header(),
		Body:       io.NopCloser(bytes.NewReader(rr.Body.Bytes())),
	}, nil
}
