package ratelimit

import (
	"net/http"
	"strings"
)

// AnonymousKey is shared by every request that carries no X-Forwarded-For
const AnonymousKey = "anonymous"

// KeyFromRequest returns the first comma-separated X-Forwarded-For value,
// trimmed, or AnonymousKey when the header is absent or empty.
func KeyFromRequest(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	first, _, _ := strings.Cut(xff, ",")
	if first = strings.TrimSpace(first); first != "" {
		return first
	}
	return AnonymousKey
}
