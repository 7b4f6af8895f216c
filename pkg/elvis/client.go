package elvis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lasselehtinen/elvis/internal/common/httpclient"
)

// DefaultTimeout bounds a call when Config.Timeout is not set. Zip downloads
// are bounded only until the response headers arrive.
const DefaultTimeout = 60 * time.Second

// Config holds the connection settings of a Client.
type Config struct {
	APIEndpointURI     string        `validate:"required,url"` // services root, e.g. https://dam.example.com/services/
	Username           string        // used by Login
	Password           string        // used by Login
	Timeout            time.Duration // zero selects DefaultTimeout, negative disables the timeout
	ZipDir             string        // scratch directory for zip downloads
	InsecureSkipVerify bool
}

// GetServerURL implements httpclient.Configurator.
func (c Config) GetServerURL() string { return c.APIEndpointURI }

// GetTimeout implements httpclient.Configurator.
func (c Config) GetTimeout() time.Duration { return c.Timeout }

// GetInsecureSkipVerify implements httpclient.Configurator.
func (c Config) GetInsecureSkipVerify() bool { return c.InsecureSkipVerify }

// GetUserAgent implements httpclient.Configurator.
func (c Config) GetUserAgent() string { return UserAgent() }

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) normalize() error {
	switch {
	case c.Timeout == 0:
		c.Timeout = DefaultTimeout
	case c.Timeout < 0:
		c.Timeout = 0
	}
	if err := validate.Struct(c); err != nil {
		return ErrInvalidArgument.Msg("invalid client configuration").Err(err)
	}
	if !strings.HasPrefix(c.APIEndpointURI, "http://") && !strings.HasPrefix(c.APIEndpointURI, "https://") {
		return ErrInvalidArgument.Msg("api endpoint uri must use http or https")
	}
	if !strings.HasSuffix(c.APIEndpointURI, "/") {
		c.APIEndpointURI += "/"
	}
	return nil
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for request tracing.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithHTTPClient replaces the HTTP transport, for instance with an
// httpclient.TestHTTPClient in tests.
func WithHTTPClient(hc httpclient.HTTPClientInterface) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// Client calls the Elvis REST API. It keeps no session state; all
// authenticated calls take the Session returned by Login.
type Client struct {
	config     Config
	http       httpclient.HTTPClientInterface
	logger     zerolog.Logger
	builder    *URIBuilder
	dispatcher *Dispatcher
}

// New validates config and returns a client.
func New(config Config, opts ...Option) (*Client, error) {
	if err := config.normalize(); err != nil {
		return nil, err
	}
	c := &Client{
		config: config,
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.NewClient(c.config)
	}
	c.builder = NewURIBuilder(c.config.APIEndpointURI)
	c.dispatcher = NewDispatcher(c.http, c.config.APIEndpointURI, c.config.ZipDir, c.logger)
	return c, nil
}

// Config returns the normalized configuration.
func (c *Client) Config() Config {
	return c.config
}

// Builder returns the URI builder of the client.
func (c *Client) Builder() *URIBuilder {
	return c.builder
}

// ZipDir returns the directory zip downloads are saved to.
func (c *Client) ZipDir() string {
	return c.dispatcher.ZipDir()
}

// Query builds the URI for endpoint and dispatches it. It is the single path
// every operation takes and can be used directly for endpoints that have no
// typed wrapper. filePath is only valid for create and update.
func (c *Client) Query(ctx context.Context, s *Session, endpoint Endpoint, params *Params, metadata Metadata, filePath string) (*Response, error) {
	if endpoint.RequiresSession() && s == nil {
		return nil, ErrNoSession
	}
	uri, err := c.builder.BuildURI(endpoint, params, metadata)
	if err != nil {
		return nil, err
	}
	return c.dispatcher.Dispatch(ctx, Request{
		Session:  s,
		Endpoint: endpoint,
		URI:      uri,
		FilePath: filePath,
	})
}

// checkArg fails with ErrInvalidArgument when value does not satisfy tag.
func checkArg(name string, value any, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		return ErrInvalidArgument.Msg(fmt.Sprintf("%s: failed %q check", name, tag))
	}
	return nil
}
