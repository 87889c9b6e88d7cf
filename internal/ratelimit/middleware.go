package ratelimit

import (
	"math"
	"net/http"
	"strconv"
)

// DenyFunc writes the rejection response. Retry-After is already set.
type DenyFunc func(w http.ResponseWriter, r *http.Request, d Decision)

// Middleware consumes quota for the request's key before next runs and calls
// deny instead of next when the key is over quota.
func (l *Limiter) Middleware(deny DenyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := l.Check(r.Context(), KeyFromRequest(r))
			if d.Allowed {
				next.ServeHTTP(w, r)
				return
			}
			secs := int(math.Ceil(d.RetryAfter(l.now()).Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			deny(w, r, d)
		})
	}
}
