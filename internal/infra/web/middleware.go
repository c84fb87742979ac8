package web

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"chat-session-relay/internal/infra/logging"
	"chat-session-relay/internal/infra/redis"
)

// requestLogger emits one structured line per request, carrying chi's
// request id as trace_id.
func requestLogger(logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logging.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
			l := logging.With(ctx, logger)

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))
			l.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(start)).
				Msg("http request")
		})
	}
}

// RateLimit throttles callers per client IP using redis counters. Limiter
// backend errors fail open so a redis outage does not take the API down.
func RateLimit(rl *redis.RateLimiter, limit int, window time.Duration, logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := rl.Allow(r.Context(), redis.IPKey(clientIP(r)), limit, window)
			if err != nil {
				logger.Warn().Err(err).Msg("rate limiter unavailable")
				ok = true
			}
			if !ok {
				writeJSON(w, http.StatusTooManyRequests, errorBody{Error: errorDetail{
					Message: "too many requests",
					Type:    "rate_limited",
				}})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
