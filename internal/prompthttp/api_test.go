package prompthttp

import (
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/charactergen/internal/log"
	"github.com/keithlinneman/charactergen/internal/prompt"
)

func newRouter(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/api", NewAPI(log.Nop(), opts...).RegisterRoutes)
	return r
}

func post(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, ComposeResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/compose-prompt", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	var resp ComposeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

func TestHandleOptions(t *testing.T) {
	h := newRouter(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/prompt-options", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content-type = %q", ct)
	}
	var resp OptionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Fields) != len(prompt.Fields) {
		t.Fatalf("fields = %d, want %d", len(resp.Fields), len(prompt.Fields))
	}
	if got := resp.Values[prompt.FieldAspectRatio]; len(got) != 4 || got[0] != "9:16" {
		t.Fatalf("aspectRatio values = %v", got)
	}
	if resp.Defaults != prompt.Defaults() {
		t.Fatalf("defaults = %+v", resp.Defaults)
	}
}

func TestHandleCompose_Defaults(t *testing.T) {
	rec, resp := post(t, newRouter(t), `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if resp.Prompt != prompt.Compose(prompt.Defaults()) {
		t.Fatalf("prompt = %q", resp.Prompt)
	}
}

func TestHandleCompose_Options(t *testing.T) {
	o := prompt.Defaults()
	o.Mood = "mysterious"
	o.Background = "forest"
	body, _ := json.Marshal(ComposeRequest{Options: &o})

	rec, resp := post(t, newRouter(t), string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(resp.Prompt, "mysterious expression") || !strings.Contains(resp.Prompt, "forest background") {
		t.Fatalf("prompt = %q", resp.Prompt)
	}
}

func TestHandleCompose_Random(t *testing.T) {
	seeded := func() *rand.Rand { return rand.New(rand.NewPCG(7, 11)) }
	rec, resp := post(t, newRouter(t, WithRand(seeded)), `{"random":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	want := prompt.Randomize(seeded())
	if resp.Options != want {
		t.Fatalf("options = %+v, want %+v", resp.Options, want)
	}
	if resp.Prompt != prompt.Compose(want) {
		t.Fatalf("prompt mismatch")
	}
}

func TestHandleCompose_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed", `{"options":`, "invalid request body"},
		{"unknown field", `{"prompt":"x"}`, "invalid request body"},
		{"value outside catalog", `{"options":{"gender":"robot"}}`, "gender"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := post(t, newRouter(t), tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
			if !strings.Contains(resp.Error, tt.want) {
				t.Fatalf("error = %q, want %q", resp.Error, tt.want)
			}
			if resp.Prompt != "" {
				t.Fatal("rejected request should carry no prompt")
			}
		})
	}
}
