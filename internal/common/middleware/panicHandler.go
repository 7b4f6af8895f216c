package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog/log"

	"github.com/lasselehtinen/elvis/internal/common/httpx"
	"github.com/lasselehtinen/elvis/internal/common/logtrace"
)

// PanicHandler turns a handler panic into an Elvis application error. The
// answer carries errorcode 500 and the request ID so a failing call can be
// matched with the logged stack. Nothing is sent if the handler already
// started its answer, and http.ErrAbortHandler is passed on.
func PanicHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := httpx.NewResponseWriter(w)
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}
			log.Ctx(r.Context()).Error().
				Str("panic", fmt.Sprintf("%v", rec)).
				Str("service", r.URL.Path).
				Bytes("stack_trace", debug.Stack()).
				Msg("panic occurred")

			if rw.Written() {
				return
			}
			msg := "unable to process request"
			if id := logtrace.RequestIdFromContext(r.Context()); id != "" {
				msg += ", request " + id
			}
			e := httpx.ErrApplicationError(msg)
			e.StatusCode = http.StatusInternalServerError
			e.Send(rw)
		}()
		next.ServeHTTP(rw, r)
	})
}
