package opshttp

import (
	"net/http"

	"github.com/keithlinneman/charactergen/internal/health"
)

type Options struct {
	Port        int
	Metrics     http.Handler
	EnablePprof bool
	Health      health.Probe
	Readiness   health.Probe
	// AllowPublic serves callers outside loopback and private ranges
	AllowPublic bool
	// OnPanic is called after a recovered panic, typically to bump a counter
	OnPanic func()
}
