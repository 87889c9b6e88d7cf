package health

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

const (
	HealthyPath = "/-/healthy"
	ReadyPath   = "/-/ready"
)

// Handler answers 200 with okBody while p passes and 503 with the failure
// reason otherwise. A nil probe always passes.
func Handler(p Probe, okBody string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if p != nil {
			if err := p.Check(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(err.Error() + "\n"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(okBody + "\n"))
	}
}

// Routes registers the liveness and readiness endpoints on r
func Routes(r chi.Router, healthy, ready Probe) {
	r.Get(HealthyPath, Handler(healthy, "ok"))
	r.Get(ReadyPath, Handler(ready, "ready"))
}
