package opshttp

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/keithlinneman/charactergen/internal/health"
	"github.com/keithlinneman/charactergen/internal/log"
)

func getFreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp4", ":0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func startOps(t *testing.T, opts *Options) int {
	t.Helper()
	if opts.Port == 0 {
		opts.Port = getFreePort(t)
	}
	ctx := context.Background()
	stop, err := Start(ctx, log.Nop(), opts)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = stop(ctx) })
	return opts.Port
}

func opsGet(t *testing.T, port int, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d%s", port, path))
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestStart_Endpoints(t *testing.T) {
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# HELP chargen_fake fake\n"))
	})

	tests := []struct {
		name     string
		opts     Options
		path     string
		wantCode int
		wantBody string
	}{
		{"healthy", Options{Health: health.Fixed(true, "")}, health.HealthyPath, http.StatusOK, "ok"},
		{"unhealthy", Options{Health: health.Fixed(false, "something broke")}, health.HealthyPath, http.StatusServiceUnavailable, "something broke"},
		{"nil probes pass", Options{}, health.ReadyPath, http.StatusOK, "ready"},
		{"not ready", Options{Readiness: health.Fixed(false, "redis: dial tcp refused")}, health.ReadyPath, http.StatusServiceUnavailable, "redis: dial tcp refused"},
		{"metrics", Options{Metrics: metricsHandler}, "/metrics", http.StatusOK, "chargen_fake"},
		{"metrics absent", Options{}, "/metrics", http.StatusNotFound, ""},
		{"pprof enabled", Options{EnablePprof: true}, "/debug/pprof/", http.StatusOK, "goroutine"},
		{"pprof disabled", Options{}, "/debug/pprof/", http.StatusNotFound, ""},
		{"pprof subpath disabled", Options{}, "/debug/pprof/heap", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			port := startOps(t, &opts)
			code, body := opsGet(t, port, tt.path)
			if code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %q)", code, tt.wantCode, body)
			}
			if tt.wantBody != "" && !strings.Contains(body, tt.wantBody) {
				t.Fatalf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestStart_ReadinessFollowsShutdownGate(t *testing.T) {
	var gate health.ShutdownGate
	port := startOps(t, &Options{Readiness: health.All(gate.Probe())})

	if code, _ := opsGet(t, port, health.ReadyPath); code != http.StatusOK {
		t.Fatalf("before drain: %d", code)
	}
	gate.Set("shutting down")
	code, body := opsGet(t, port, health.ReadyPath)
	if code != http.StatusServiceUnavailable || !strings.Contains(body, "shutting down") {
		t.Fatalf("after drain: %d %q", code, body)
	}
}

func TestStart_GracefulShutdown(t *testing.T) {
	port := getFreePort(t)
	ctx := context.Background()

	stop, err := Start(ctx, log.Nop(), &Options{Port: port})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if code, _ := opsGet(t, port, health.HealthyPath); code != http.StatusOK {
		t.Fatalf("not serving: %d", code)
	}

	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := stop(sctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	// idempotent
	if err := stop(sctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if _, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d%s", port, health.HealthyPath)); err == nil {
		t.Fatal("server still accepting connections after shutdown")
	}
}

func TestStart_PortConflict(t *testing.T) {
	port := getFreePort(t)
	ctx := context.Background()

	stop, err := Start(ctx, log.Nop(), &Options{Port: port})
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer stop(ctx)

	if _, err := Start(ctx, log.Nop(), &Options{Port: port}); err == nil {
		t.Fatal("expected error for port conflict")
	}
}

func TestRequireNonPublicNetwork(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := requireNonPublicNetwork(log.Nop(), inner)

	tests := []struct {
		remote string
		want   int
	}{
		{"127.0.0.1:12345", http.StatusOK},
		{"[::1]:12345", http.StatusOK},
		{"10.0.0.1:8080", http.StatusOK},
		{"172.16.0.1:8080", http.StatusOK},
		{"192.168.1.1:8080", http.StatusOK},
		{"169.254.1.1:8080", http.StatusOK},
		{"[::ffff:10.1.2.3]:80", http.StatusOK},
		{"8.8.8.8:12345", http.StatusForbidden},
		{"203.0.113.1:80", http.StatusForbidden},
		{"[2001:4860::8888]:443", http.StatusForbidden},
		{"garbage", http.StatusForbidden},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, health.HealthyPath, http.NoBody)
		req.RemoteAddr = tt.remote
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.remote, rec.Code, tt.want)
		}
	}
}

func TestNewHandler_AllowPublic(t *testing.T) {
	h := newHandler(log.Nop(), &Options{AllowPublic: true})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, health.HealthyPath, http.NoBody)
	req.RemoteAddr = "8.8.8.8:1234"
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestNewHandler_RecoversPanics(t *testing.T) {
	var panics atomic.Int32
	opts := &Options{
		Health:  health.CheckFunc(func(context.Context) error { panic("probe exploded") }),
		OnPanic: func() { panics.Add(1) },
	}
	h := newHandler(log.Nop(), opts)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, health.HealthyPath, http.NoBody)
	req.RemoteAddr = "127.0.0.1:1"
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if panics.Load() != 1 {
		t.Fatalf("OnPanic calls = %d", panics.Load())
	}
}
