package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/charactergen/internal/health"
	"github.com/keithlinneman/charactergen/internal/httpmw"
	"github.com/keithlinneman/charactergen/internal/log"
)

type Options struct {
	Logger       log.Logger
	Port         int
	WriteTimeout time.Duration
	UseRecoverMW bool
	OnPanic      func() // called after a recovered panic, e.g. to bump http_panic_total
	MetricsMW    func(http.Handler) http.Handler
	Health       health.Probe
	Readiness    health.Probe

	// CORS applies to everything mounted under /api
	CORS httpmw.CORSOptions
	// MaxBodyBytes caps request bodies, DefaultMaxBodyBytes when zero
	MaxBodyBytes int64
	// APIRoutes mounts handlers on the /api subrouter
	APIRoutes func(chi.Router)
	// SiteHandler serves everything the router does not match
	SiteHandler http.Handler
}
