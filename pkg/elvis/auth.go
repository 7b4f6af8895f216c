package elvis

import (
	"context"
)

// Login authenticates with the configured credentials and returns a new
// session holding the CSRF token and session cookies. A rejected login
// returns an *AuthenticationError carrying the server's fault message.
func (c *Client) Login(ctx context.Context) (*Session, error) {
	if err := checkArg("username", c.config.Username, "required"); err != nil {
		return nil, err
	}
	if err := checkArg("password", c.config.Password, "required"); err != nil {
		return nil, err
	}
	s, err := newSession(c.config.APIEndpointURI)
	if err != nil {
		return nil, err
	}
	params := NewParams().
		Set("username", c.config.Username).
		Set("password", c.config.Password)
	uri, err := c.builder.BuildURI(EndpointLogin, params, nil)
	if err != nil {
		return nil, err
	}
	rsp, err := c.dispatcher.Dispatch(ctx, Request{Session: s, Endpoint: EndpointLogin, URI: uri})
	if err != nil {
		return nil, err
	}
	if !rsp.Get("loginSuccess").Bool() {
		return nil, &AuthenticationError{Message: rsp.Get("loginFaultMessage").String()}
	}
	s.csrfToken = rsp.Get("csrfToken").String()
	c.logger.Debug().Str("user", c.config.Username).Msg("logged in")
	return s, nil
}

// Logout ends the session on the server. It reports whether the server
// confirmed the logout.
func (c *Client) Logout(ctx context.Context, s *Session) (bool, error) {
	rsp, err := c.Query(ctx, s, EndpointLogout, nil, nil, "")
	if err != nil {
		return false, err
	}
	return rsp.Get("logoutSuccess").Bool(), nil
}

// Profile returns the profile of the session's user.
func (c *Client) Profile(ctx context.Context, s *Session) (*Response, error) {
	return c.Query(ctx, s, EndpointProfile, nil, nil, "")
}
