// Package httpx provides HTTP response helpers for servers speaking the Elvis
// REST conventions: JSON answers, application errors reported as an
// errorcode/message body, bare status answers and binary downloads.
package httpx

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/lasselehtinen/elvis/internal/common/apperrors"
)

// Response represents an HTTP response with configurable status code and
// content type. Response is marshaled to JSON unless ContentType is set, in
// which case Body is written as is.
type Response struct {
	StatusCode  int
	Response    any
	ContentType string
	Body        []byte
	Cookies     []*http.Cookie
}

// RequestHandler defines a function type for handling HTTP requests.
type RequestHandler func(r *http.Request) (*Response, error)

// WrapHttpRsp wraps a RequestHandler to provide standardized HTTP response
// handling, including error handling and content type management.
func WrapHttpRsp(handler RequestHandler) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if err != nil {
			sendErr(w, err)
			return
		}
		if rsp == nil {
			ErrApplicationError().Send(w)
			return
		}
		for _, c := range rsp.Cookies {
			http.SetCookie(w, c)
		}
		if rsp.StatusCode == 0 {
			rsp.StatusCode = http.StatusOK
		}

		switch {
		case rsp.StatusCode == http.StatusNotModified || rsp.StatusCode == http.StatusNoContent:
			w.WriteHeader(rsp.StatusCode)
		case rsp.ContentType == "" || rsp.ContentType == "application/json":
			SendJsonRsp(r.Context(), w, rsp.StatusCode, rsp.Response)
		default:
			w.Header().Set("Content-Type", rsp.ContentType)
			w.WriteHeader(rsp.StatusCode)
			if _, err := w.Write(rsp.Body); err != nil {
				log.Ctx(r.Context()).Error().Err(err).Msg("unable to write response body")
			}
		}
	})
}

func sendErr(w http.ResponseWriter, err error) {
	switch e := err.(type) {
	case *Error:
		e.Send(w)
	case apperrors.Error:
		SendError(w, e)
	default:
		ErrApplicationError(err.Error()).Send(w)
	}
}

// Param returns the request parameter key from the query string or, for
// form encoded and multipart bodies, the form.
func Param(r *http.Request, key string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return r.FormValue(key)
}
