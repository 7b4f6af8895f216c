package httpclient

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Configurator defines the interface for providing connection settings.
type Configurator interface {
	GetServerURL() string
	GetTimeout() time.Duration // zero means no timeout
	GetInsecureSkipVerify() bool
	GetUserAgent() string
}

// RequestOptions contains options for making HTTP requests.
// Method and URL are required, all other fields are optional.
type RequestOptions struct {
	Method    string            // HTTP method (GET, POST)
	URL       string            // absolute request URL, query string included
	Headers   map[string]string // extra headers, empty values are skipped
	Jar       http.CookieJar    // cookies sent with and stored from this request
	Body      io.Reader         // request body, ignored when Multipart is set
	Multipart *MultipartFile    // send Body as multipart/form-data with one file part
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Status     string // e.g. "200 OK"
	Header     http.Header
	Body       []byte
}

// ReasonPhrase returns the status text without the numeric code.
func (r *Response) ReasonPhrase() string {
	return reasonPhrase(r.StatusCode, r.Status)
}

// StreamResponse is an HTTP response whose body has not been read.
type StreamResponse struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       io.ReadCloser
}

// ReasonPhrase returns the status text without the numeric code.
func (r *StreamResponse) ReasonPhrase() string {
	return reasonPhrase(r.StatusCode, r.Status)
}

func reasonPhrase(code int, status string) string {
	phrase := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
	if phrase == "" {
		phrase = http.StatusText(code)
	}
	return phrase
}

// HTTPClient executes requests against a REST API server over the network.
// It is safe for concurrent use; per-call state such as cookies travels in
// RequestOptions.
type HTTPClient struct {
	config     Configurator
	httpClient *http.Client
}

// ClientOptions contains options for configuring the HTTP client.
type ClientOptions struct {
	Transport http.RoundTripper // overrides the default transport
}

// NewClient creates a new HTTP client using the provided configuration.
func NewClient(config Configurator, opts ...ClientOptions) *HTTPClient {
	clientOpts := ClientOptions{}
	if len(opts) > 0 {
		clientOpts = opts[0]
	}

	httpClient := &http.Client{
		Timeout: config.GetTimeout(),
	}
	switch {
	case clientOpts.Transport != nil:
		httpClient.Transport = clientOpts.Transport
	case config.GetInsecureSkipVerify():
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
		httpClient.Transport = transport
	}

	return &HTTPClient{
		config:     config,
		httpClient: httpClient,
	}
}

// newRequest builds the request for opts. The returned request owns any
// opened upload file; it is released when the request body is closed.
func newRequest(ctx context.Context, config Configurator, opts RequestOptions) (*http.Request, error) {
	if opts.URL == "" {
		return nil, errors.New("request URL not set")
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	body := opts.Body
	contentType := ""
	if opts.Multipart != nil {
		var err error
		var form io.ReadCloser
		form, contentType, err = openMultipart(opts.Multipart)
		if err != nil {
			return nil, err
		}
		body = form
	}

	req, err := http.NewRequestWithContext(ctx, method, opts.URL, body)
	if err != nil {
		if rc, ok := body.(io.Closer); ok && opts.Multipart != nil {
			_ = rc.Close()
		}
		return nil, errors.Wrap(err, "failed to create request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if ua := config.GetUserAgent(); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	for k, v := range opts.Headers {
		if k != "" && v != "" {
			req.Header.Set(k, v)
		}
	}
	return req, nil
}

// clientFor returns the http.Client for one call. A jar in opts gets its own
// shallow copy of the client so concurrent calls never share cookies.
func (c *HTTPClient) clientFor(opts RequestOptions) *http.Client {
	if opts.Jar == nil {
		return c.httpClient
	}
	clientCopy := *c.httpClient
	clientCopy.Jar = opts.Jar
	return &clientCopy
}

// DoRequest makes an HTTP request with the given options and returns the
// fully read response, whatever its status code.
func (c *HTTPClient) DoRequest(ctx context.Context, opts RequestOptions) (*Response, error) {
	req, err := newRequest(ctx, c.config, opts)
	if err != nil {
		return nil, err
	}

	resp, err := c.clientFor(opts).Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// StreamRequest makes an HTTP request with the given options and returns the
// response with its body unread. The caller must close StreamResponse.Body.
// The configured timeout bounds the wait for the response headers only, so a
// large download may take longer than that to read.
func (c *HTTPClient) StreamRequest(ctx context.Context, opts RequestOptions) (*StreamResponse, error) {
	ctx, cancel := context.WithCancel(ctx)
	req, err := newRequest(ctx, c.config, opts)
	if err != nil {
		cancel()
		return nil, err
	}

	hc := *c.clientFor(opts)
	hc.Timeout = 0
	timeout := c.config.GetTimeout()
	var timer *time.Timer
	if timeout > 0 {
		timer = time.AfterFunc(timeout, cancel)
	}

	resp, err := hc.Do(req)
	if timer != nil && !timer.Stop() {
		if err == nil {
			resp.Body.Close()
		}
		cancel()
		return nil, errors.Errorf("request failed: no response headers within %s", timeout)
	}
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, "request failed")
	}

	return &StreamResponse{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       &cancelOnClose{ReadCloser: resp.Body, cancel: cancel},
	}, nil
}

// cancelOnClose releases the request context once the body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
