package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"outfit-db-api/internal/ratelimit"
	"outfit-db-api/pkg/apierror"
	"outfit-db-api/pkg/response"
)

// NewRateLimit caps requests per client IP, taken from RemoteAddr. Forwarding
// headers count only if a trusted proxy setup ran chi's RealIP first.
// Limiter errors let the request through.
func NewRateLimit(limiter ratelimit.Limiter, logger *zap.Logger) func(http.Handler) http.Handler {
	logger = logger.Named("ratelimit")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)

			res, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Warn("limiter unavailable, allowing request", zap.String("client", key), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("RateLimit-Remaining", strconv.Itoa(res.Remaining))

			if !res.Allowed {
				if secs := int(math.Ceil(res.RetryAfter.Seconds())); secs > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(secs))
				}
				response.Error(w, apierror.TooManyRequests(""))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr when present.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
