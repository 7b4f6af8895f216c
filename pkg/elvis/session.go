package elvis

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"golang.org/x/net/publicsuffix"
)

// CSRFHeader carries the session's CSRF token on every authenticated call.
const CSRFHeader = "X-CSRF-TOKEN"

// Session is an authenticated Elvis session: the CSRF token returned by login
// and the cookie jar holding the server's session cookies. A Session belongs
// to one logical user and is passed explicitly to every call.
type Session struct {
	csrfToken string
	jar       http.CookieJar
	baseURL   *url.URL
}

func newSession(baseURL string) (*Session, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, ErrInvalidArgument.Msg("invalid base url").Err(err)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, ErrElvis.Msg("unable to create cookie jar").Err(err)
	}
	return &Session{jar: hostJar{jar}, baseURL: u}, nil
}

// hostJar stores cookies set without a path for the whole host. The server
// answers login under the services path while zip downloads live at the host
// root, and both must see the session cookie.
type hostJar struct {
	http.CookieJar
}

func (j hostJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	scoped := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		if c == nil {
			continue
		}
		if c.Path == "" {
			cp := *c
			cp.Path = "/"
			c = &cp
		}
		scoped = append(scoped, c)
	}
	j.CookieJar.SetCookies(u, scoped)
}

// RestoreSession rebuilds a session from a token and cookies saved with
// Session.CSRFToken and Session.Cookies.
func RestoreSession(baseURL, csrfToken string, cookies []*http.Cookie) (*Session, error) {
	s, err := newSession(baseURL)
	if err != nil {
		return nil, err
	}
	s.csrfToken = csrfToken
	if len(cookies) > 0 {
		s.jar.SetCookies(s.baseURL, cookies)
	}
	return s, nil
}

// CSRFToken returns the token sent in the X-CSRF-TOKEN header.
func (s *Session) CSRFToken() string {
	if s == nil {
		return ""
	}
	return s.csrfToken
}

// Cookies returns the session cookies the jar would send to the base URL.
func (s *Session) Cookies() []*http.Cookie {
	if s == nil || s.jar == nil {
		return nil
	}
	return s.jar.Cookies(s.baseURL)
}

func (s *Session) headers() map[string]string {
	if s == nil || s.csrfToken == "" {
		return nil
	}
	return map[string]string{CSRFHeader: s.csrfToken}
}

func (s *Session) cookieJar() http.CookieJar {
	if s == nil {
		return nil
	}
	return s.jar
}
