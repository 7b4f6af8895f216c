// Package middleware provides HTTP middleware components for request logging
// and panic recovery. It integrates with zerolog for structured logging and
// supports request tracing through unique request IDs.
package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lasselehtinen/elvis/internal/common/httpx"
	"github.com/lasselehtinen/elvis/internal/common/logtrace"
	"github.com/lasselehtinen/elvis/internal/common/uuid"
)

const RequestIDHeader = "X-Elvis-Request-ID"

// RequestLogger creates middleware that logs incoming requests and adds a unique request ID
// to both the request context and response headers. It logs request details including URL,
// method, path and remote IP. Credentials in the query string are masked.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()

		requestID := uuid.RequestID()
		ctx = logtrace.WithRequestID(ctx, requestID)
		ctx = log.With().Str("request_id", requestID).Logger().WithContext(ctx)

		w.Header().Set(RequestIDHeader, requestID)
		rw := httpx.NewResponseWriter(w)

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		requestURL := logtrace.RedactURL(fmt.Sprintf("%s://%s%s", scheme, r.Host, r.RequestURI))
		requestFields := map[string]any{
			"requestURL":    requestURL,
			"requestMethod": r.Method,
			"requestPath":   r.URL.Path,
			"remoteIP":      r.RemoteAddr,
		}
		log.Ctx(ctx).Debug().Fields(requestFields).Msg("incoming request")

		defer func() {
			ev := log.Ctx(ctx).Debug().
				Int("status", rw.Status()).
				Int("size", rw.Size()).
				Str("duration", fmt.Sprintf("%dms", time.Since(start).Milliseconds()))
			if code := rw.ErrorCode(); code != 0 {
				ev = ev.Int("errorcode", code)
			}
			ev.Msg("request completed")
		}()

		next.ServeHTTP(rw, r.WithContext(ctx))
	})
}
