package middleware

import (
	"net/http"
	"strconv"

	"github.com/legal-directory-api/internal/ratelimit"
	"go.uber.org/zap"
)

// RateLimit enforces policy per client IP. A backend error admits the
// request and is logged.
func RateLimit(backend ratelimit.Backend, policy ratelimit.Policy, log *zap.Logger) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(policy.Window.Seconds()))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			ok, err := backend.Allow(r.Context(), policy.Key(ip), policy.Limit, policy.Window)
			if err != nil {
				log.Warn("rate limiter unavailable, admitting request",
					zap.String("policy", policy.Name), zap.String("ip", ip), zap.Error(err))
				ok = true
			}
			if !ok {
				w.Header().Set("Retry-After", retryAfter)
				writeJSONError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
