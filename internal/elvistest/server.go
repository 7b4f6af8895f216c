// Package elvistest provides an in-process fake of the Elvis REST API for
// tests. It keeps assets, folders, relations, auth keys and usage logs in
// memory, enforces the CSRF token plus session cookie handshake and records
// every call it receives.
//
// Serve it over the network with httptest.NewServer(srv), or in process with
// httpclient.NewTestClient(cfg, srv).
package elvistest

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"

	"github.com/lasselehtinen/elvis/internal/common/httpx"
	commonmiddleware "github.com/lasselehtinen/elvis/internal/common/middleware"
	"github.com/lasselehtinen/elvis/internal/common/uuid"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	SessionCookie = "JSESSIONID"
	csrfHeader    = "X-CSRF-TOKEN"
)

// Call is one request received by the server.
type Call struct {
	Method      string
	Path        string
	RawQuery    string
	CSRFToken   string
	ContentType string
}

// Server is a fake Elvis server. The zero value is not usable; use New.
type Server struct {
	Router *chi.Mux

	// NotModifiedAsErrorcode makes messages report an unchanged bundle with
	// a 200 answer carrying errorcode 304 instead of an HTTP 304.
	NotModifiedAsErrorcode bool

	username string
	password string

	mu        sync.Mutex
	sessions  map[string]*userSession
	assets    map[string]*asset
	order     []string
	folders   map[string]bool
	relations map[string]*relation
	authKeys  map[string]*authKey
	usage     []usageEntry
	messages  messageBundle
	calls     []Call
	clock     int64
}

type userSession struct {
	user string
	csrf string
}

// New returns a server accepting username and password.
func New(username, password string) *Server {
	s := &Server{
		username:  username,
		password:  password,
		sessions:  make(map[string]*userSession),
		assets:    make(map[string]*asset),
		folders:   make(map[string]bool),
		relations: make(map[string]*relation),
		authKeys:  make(map[string]*authKey),
		messages:  defaultMessages(),
		clock:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
	}
	s.Router = chi.NewRouter()
	s.MountHandlers()
	return s
}

// MountHandlers installs the middleware and routes.
func (s *Server) MountHandlers() {
	s.Router.Use(commonmiddleware.RequestLogger)
	s.Router.Use(commonmiddleware.PanicHandler)
	s.Router.Use(s.recordCall)

	s.Router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.ErrNotFound("no such resource " + r.URL.Path).Send(w)
	})
	s.Router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.ErrReqMethodNotSupported().Send(w)
	})

	s.Router.Route("/services", func(r chi.Router) {
		r.Post("/login", httpx.WrapHttpRsp(s.login))
		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Post("/logout", httpx.WrapHttpRsp(s.logout))
			r.Post("/profile", httpx.WrapHttpRsp(s.profile))
			r.Post("/search", httpx.WrapHttpRsp(s.search))
			r.Post("/browse", httpx.WrapHttpRsp(s.browse))
			r.Post("/create", httpx.WrapHttpRsp(s.create))
			r.Post("/update", httpx.WrapHttpRsp(s.update))
			r.Post("/updatebulk", httpx.WrapHttpRsp(s.updateBulk))
			r.Post("/move", httpx.WrapHttpRsp(s.move))
			r.Post("/copy", httpx.WrapHttpRsp(s.copy))
			r.Post("/remove", httpx.WrapHttpRsp(s.remove))
			r.Post("/createFolder", httpx.WrapHttpRsp(s.createFolder))
			r.Post("/createRelation", httpx.WrapHttpRsp(s.createRelation))
			r.Post("/removeRelation", httpx.WrapHttpRsp(s.removeRelation))
			r.Post("/logUsage", httpx.WrapHttpRsp(s.logUsage))
			r.Post("/queryStats", httpx.WrapHttpRsp(s.queryStats))
			r.Post("/messages", httpx.WrapHttpRsp(s.getMessages))
			r.Post("/checkout/{assetId}", httpx.WrapHttpRsp(s.checkout))
			r.Post("/undocheckout/{assetId}", httpx.WrapHttpRsp(s.undoCheckout))
			r.Post("/createAuthKey", httpx.WrapHttpRsp(s.createAuthKey))
			r.Post("/updateAuthKey", httpx.WrapHttpRsp(s.updateAuthKey))
			r.Post("/revokeAuthKeys", httpx.WrapHttpRsp(s.revokeAuthKeys))
		})
	})

	s.Router.With(s.requireSession).Get("/zip/{filename}", httpx.WrapHttpRsp(s.zip))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// Calls returns the requests received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// LastCall returns the most recent request.
func (s *Server) LastCall() Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return Call{}
	}
	return s.calls[len(s.calls)-1]
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) recordCall(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, Call{
			Method:      r.Method,
			Path:        r.URL.Path,
			RawQuery:    r.URL.RawQuery,
			CSRFToken:   r.Header.Get(csrfHeader),
			ContentType: r.Header.Get("Content-Type"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

type sessionKey struct{}

// requireSession accepts a request only when its session cookie is live and
// its CSRF header matches the token issued with that session.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie(SessionCookie)
		if err != nil {
			unauthorized().Send(w)
			return
		}
		s.mu.Lock()
		us, ok := s.sessions[ck.Value]
		s.mu.Unlock()
		if !ok || us.csrf != r.Header.Get(csrfHeader) {
			unauthorized().Send(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), ck.Value, us)))
	})
}

func unauthorized() *httpx.Error {
	e := httpx.ErrUnAuthorized()
	e.StatusCode = http.StatusUnauthorized
	return e
}

func (s *Server) login(r *http.Request) (*httpx.Response, error) {
	user := httpx.Param(r, "username")
	pass := httpx.Param(r, "password")
	if user != s.username || pass != s.password {
		return &httpx.Response{
			StatusCode: http.StatusOK,
			Response: map[string]any{
				"loginSuccess":      false,
				"loginFaultMessage": "Invalid username or password",
			},
		}, nil
	}
	id := uuid.New().String()
	csrf, err := uuid.RandomName(32)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.sessions[id] = &userSession{user: user, csrf: csrf}
	s.mu.Unlock()
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Cookies:    []*http.Cookie{{Name: SessionCookie, Value: id, HttpOnly: true}},
		Response: map[string]any{
			"loginSuccess":  true,
			"csrfToken":     csrf,
			"serverVersion": "6.0.0",
		},
	}, nil
}

func (s *Server) logout(r *http.Request) (*httpx.Response, error) {
	id, _ := sessionFrom(r.Context())
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return ok(map[string]any{"logoutSuccess": true}), nil
}

func (s *Server) profile(r *http.Request) (*httpx.Response, error) {
	_, us := sessionFrom(r.Context())
	return ok(map[string]any{
		"username":    us.user,
		"fullName":    strings.ToUpper(us.user[:1]) + us.user[1:],
		"email":       us.user + "@example.com",
		"userZone":    userZone(us.user),
		"authorities": []string{"ROLE_USER", "ROLE_API"},
		"groups":      []string{"users"},
	}), nil
}

func userZone(user string) string {
	return "/Users/" + user
}

func ok(v any) *httpx.Response {
	return &httpx.Response{StatusCode: http.StatusOK, Response: v}
}

// now returns a strictly increasing timestamp in milliseconds.
func (s *Server) now() int64 {
	s.clock++
	return s.clock
}
