package httpmw

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/charactergen/internal/log"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("ok"))
})

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(okHandler, mark("outer"), nil, mark("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if strings.Join(order, ",") != "outer,inner" {
		t.Fatalf("order = %v", order)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if len(seen) != 32 || rec.Header().Get(DefaultRequestIDHeader) != seen {
		t.Fatalf("generated id = %q, header = %q", seen, rec.Header().Get(DefaultRequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DefaultRequestIDHeader, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc-123" {
		t.Fatalf("inbound id not propagated: %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DefaultRequestIDHeader, strings.Repeat("x", 500))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if len(seen) != 32 {
		t.Fatalf("oversized inbound id should be replaced, got len %d", len(seen))
	}
}

func TestRequestIDFromContext_Empty(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("got %q", got)
	}
	if ctx := WithRequestID(context.Background(), ""); RequestIDFromContext(ctx) != "" {
		t.Fatal("empty id should not be stored")
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	csp := rec.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "img-src 'self' data: blob:") {
		t.Fatalf("CSP must allow data: images, got %q", csp)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" || rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("missing hardening headers: %v", rec.Header())
	}
}

func TestMaxBody(t *testing.T) {
	var readErr error
	h := MaxBody(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("short")))
	if readErr != nil {
		t.Fatalf("small body: %v", readErr)
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("much longer than eight")))
	if readErr == nil {
		t.Fatal("oversized body should fail to read")
	}
}

func newRecordingTracer(t *testing.T) (trace.Tracer, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp.Tracer("test"), sr
}

// withSpan starts a server span around next, like otelhttp does
func withSpan(tr trace.Tracer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tr.Start(r.Context(), "HTTP "+r.Method)
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func TestTraceResponseHeaders(t *testing.T) {
	tr, _ := newRecordingTracer(t)
	h := withSpan(tr, TraceResponseHeaders("", "")(okHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if len(rec.Header().Get("X-Trace-Id")) != 32 || len(rec.Header().Get("X-Span-Id")) != 16 {
		t.Fatalf("trace headers = %v", rec.Header())
	}

	rec = httptest.NewRecorder()
	TraceResponseHeaders("", "")(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Trace-Id") != "" {
		t.Fatal("no span, no header")
	}
}

func TestAnnotateHTTPRoute(t *testing.T) {
	tr, sr := newRecordingTracer(t)

	r := chi.NewRouter()
	r.Use(AnnotateHTTPRoute)
	r.Post("/api/{name}", okHandler)

	withSpan(tr, r).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/generate-image", nil))

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d", len(spans))
	}
	if spans[0].Name() != "POST /api/{name}" {
		t.Fatalf("span name = %q", spans[0].Name())
	}
}

func TestWithLoggerAndAccessLog(t *testing.T) {
	spy := newSpyLogger()

	r := chi.NewRouter()
	r.Use(RequestID(""), WithLogger(spy), AccessLog())
	r.Post("/api/generate-image", func(w http.ResponseWriter, r *http.Request) {
		if log.FromContext(r.Context()) != log.Logger(spy) {
			t.Error("request logger not in context")
		}
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{}`))
	})
	r.Get("/style.css", okHandler)

	req := httptest.NewRequest(http.MethodPost, "/api/generate-image", strings.NewReader("{}"))
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	r.ServeHTTP(httptest.NewRecorder(), req)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/style.css", nil))

	if len(spy.infos) != 1 {
		t.Fatalf("access lines = %d, want 1 (static asset skipped)", len(spy.infos))
	}
	kv := map[string]any{}
	for i := 0; i+1 < len(spy.infos[0].kv); i += 2 {
		kv[spy.infos[0].kv[i].(string)] = spy.infos[0].kv[i+1]
	}
	if kv["http.response.status_code"] != http.StatusTooManyRequests {
		t.Fatalf("status = %v", kv["http.response.status_code"])
	}
	if kv["http.route"] != "/api/generate-image" {
		t.Fatalf("route = %v", kv["http.route"])
	}
	if kv["http.response.body.size"] != int64(2) {
		t.Fatalf("body size = %v", kv["http.response.body.size"])
	}
}

func TestForwardedForAndScheme(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", " 198.51.100.2 ,10.0.0.1")
	req.Header.Set("X-Forwarded-Proto", "HTTPS, http")
	if got := forwardedFor(req); got != "198.51.100.2" {
		t.Fatalf("forwardedFor = %q", got)
	}
	if got := schemeFromRequest(req); got != "https" {
		t.Fatalf("scheme = %q", got)
	}

	req.Header.Set("X-Forwarded-Proto", "gopher")
	if got := schemeFromRequest(req); got != "http" {
		t.Fatalf("unknown scheme should fall back, got %q", got)
	}
}

func TestCORS(t *testing.T) {
	preflight := func(h http.Handler, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/generate-image", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	dev := CORS(CORSOptions{})(okHandler)
	if got := preflight(dev, "http://localhost:5173").Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("development origin = %q, want *", got)
	}

	prod := CORS(CORSOptions{Production: true, Origin: "https://chars.example.org"})(okHandler)
	if got := preflight(prod, "https://chars.example.org").Header().Get("Access-Control-Allow-Origin"); got != "https://chars.example.org" {
		t.Fatalf("production origin = %q", got)
	}
	if got := preflight(prod, "https://evil.example").Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("foreign origin allowed: %q", got)
	}
}

func TestScope(t *testing.T) {
	spy := newSpyLogger()
	var got log.Logger
	h := Scope("generate")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = log.FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req.WithContext(log.WithContext(req.Context(), spy)))
	if got != log.Logger(spy) {
		t.Fatal("scoped logger should derive from the request logger")
	}
}
