package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/marmos91/dittodir/internal/logger"
	"github.com/marmos91/dittodir/internal/ratelimiter"
	"github.com/marmos91/dittodir/pkg/metrics"
)

type contextKey struct{}

var ownerKey = contextKey{}

// OwnerFromContext returns the owner set by the owner middleware.
func OwnerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey).(string)
	return owner
}

// requireOwner reads the authenticated owner from header. Requests without
// it are rejected with 401.
func requireOwner(header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner := r.Header.Get(header)
			if owner == "" {
				writeStatus(w, http.StatusUnauthorized, "missing "+header+" header")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey, owner)))
		})
	}
}

// rateLimit rejects requests above the owner's budget with 429.
func rateLimit(limiter *ratelimiter.KeyedLimiter, m metrics.APIMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner := OwnerFromContext(r.Context())
			if !limiter.Allow(owner) {
				m.RecordRateLimited()
				logger.Debug("API rate limit exceeded: owner=%s path=%s", owner, r.URL.Path)
				w.Header().Set("Retry-After", "1")
				writeStatus(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// instrument logs every request and records its metrics under the matched
// route pattern.
func instrument(m metrics.APIMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			m.RecordRequestStart(r.Method)
			next.ServeHTTP(ww, r)
			m.RecordRequestEnd(r.Method)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			duration := time.Since(start)
			m.RecordRequest(route, r.Method, status, duration)

			logger.Debug("API %s %s: status=%d bytes=%d duration=%s request_id=%s",
				r.Method, r.URL.Path, status, ww.BytesWritten(), duration, middleware.GetReqID(r.Context()))
		})
	}
}
