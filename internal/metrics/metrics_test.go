package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"

	"github.com/keithlinneman/charactergen/internal/version"
)

// gather returns the family with the given name, or nil
func gather(t *testing.T, m *ServerMetrics, name string) *dto.MetricFamily {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestNew_Scrape(t *testing.T) {
	m := New()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	for _, name := range []string{
		"http_inflight_requests",
		"http_panic_total",
		"http_requests_rate_limited_total",
		"ratelimit_store_errors_total",
		"profiling_active",
		"go_goroutines",
	} {
		if !strings.Contains(rec.Body.String(), name) {
			t.Errorf("metric %q missing from scrape", name)
		}
	}
}

func TestGenerationResults(t *testing.T) {
	m := New()
	m.IncGenerationResult("success")
	m.IncGenerationResult("success")
	m.IncGenerationResult("quota")

	f := gather(t, m, "generation_results_total")
	if f == nil {
		t.Fatal("generation_results_total missing")
	}
	got := map[string]float64{}
	for _, metric := range f.GetMetric() {
		got[labelValue(metric, "category")] = metric.GetCounter().GetValue()
	}
	if got["success"] != 2 || got["quota"] != 1 {
		t.Fatalf("counts = %v", got)
	}
}

func TestObserveUpstream(t *testing.T) {
	m := New()
	m.ObserveUpstream("ok", 4.2)
	m.ObserveUpstream("error", 0.3)

	f := gather(t, m, "generation_upstream_duration_seconds")
	if f == nil || len(f.GetMetric()) != 2 {
		t.Fatalf("upstream histogram = %v", f)
	}
	for _, metric := range f.GetMetric() {
		if metric.GetHistogram().GetSampleCount() != 1 {
			t.Fatalf("outcome %q sample count = %d", labelValue(metric, "outcome"), metric.GetHistogram().GetSampleCount())
		}
	}
}

func TestCounters(t *testing.T) {
	m := New()
	m.IncHttpPanic()
	m.IncRateLimitDenied()
	m.IncRateLimitDenied()
	m.IncRateLimitStoreError()
	m.SetProfilingActive(true)

	tests := []struct {
		name string
		want float64
	}{
		{"http_panic_total", 1},
		{"http_requests_rate_limited_total", 2},
		{"ratelimit_store_errors_total", 1},
	}
	for _, tt := range tests {
		f := gather(t, m, tt.name)
		if f == nil {
			t.Fatalf("%s missing", tt.name)
		}
		if got := f.GetMetric()[0].GetCounter().GetValue(); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
	if got := gather(t, m, "profiling_active").GetMetric()[0].GetGauge().GetValue(); got != 1 {
		t.Errorf("profiling_active = %v", got)
	}
}

func TestSetBuildInfo(t *testing.T) {
	m := New()
	dirty := true
	m.SetBuildInfo(version.Info{App: "charactergen", Component: "server", Version: "1.0.0", Commit: "abc", VCSDirty: &dirty})

	f := gather(t, m, "build_info")
	if f == nil {
		t.Fatal("build_info missing")
	}
	metric := f.GetMetric()[0]
	if labelValue(metric, "app") != "charactergen" || labelValue(metric, "vcs_dirty") != "true" {
		t.Fatalf("labels = %v", metric.GetLabel())
	}
	if metric.GetGauge().GetValue() != 1 {
		t.Fatal("build_info value should be 1")
	}
}
