package generatehttp

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/charactergen/internal/imagegen"
	"github.com/keithlinneman/charactergen/internal/log"
	"github.com/keithlinneman/charactergen/internal/ratelimit"
)

const (
	Path          = "/generate-image"
	DefaultPrefix = "Create a high-quality, detailed image: "
)

// User-facing messages outside the classified provider failures
const (
	MsgRateLimited      = "Rate limit exceeded. Please try again later."
	MsgInvalidPrompt    = "Invalid prompt provided"
	MsgConfigError      = "Server configuration error"
	MsgNoImage          = "Could not generate the image. Please try again or adjust the description."
	MsgMethodNotAllowed = "Method not allowed"
)

// Result is the response body for every outcome
type Result struct {
	Success  bool   `json:"success"`
	ImageURL string `json:"imageUrl,omitempty"`
	Error    string `json:"error,omitempty"`
}

type Request struct {
	Prompt *string `json:"prompt"`
}

// Recorder receives outcome counts and provider latency
type Recorder interface {
	IncGenerationResult(category string)
	ObserveUpstream(outcome string, seconds float64)
}

type nopRecorder struct{}

func (nopRecorder) IncGenerationResult(string)      {}
func (nopRecorder) ObserveUpstream(string, float64) {}

type Handler struct {
	gen     imagegen.Generator
	prefix  string
	metrics Recorder
	now     func() time.Time
}

type Option func(*Handler)

func WithPrefix(p string) Option { return func(h *Handler) { h.prefix = p } }

func WithRecorder(r Recorder) Option {
	return func(h *Handler) {
		if r != nil {
			h.metrics = r
		}
	}
}

// New builds the handler. A nil generator means no provider credential is
// configured and every admitted request gets a configuration error.
func New(gen imagegen.Generator, opts ...Option) *Handler {
	h := &Handler{
		gen:     gen,
		prefix:  DefaultPrefix,
		metrics: nopRecorder{},
		now:     time.Now,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// RegisterRoutes mounts the endpoint relative to /api. Only POST passes
// through the limiter, so other methods get 405 without spending quota.
func (h *Handler) RegisterRoutes(r chi.Router, limiter *ratelimit.Limiter) {
	// registered first so the POST route below replaces it for POST only
	r.HandleFunc(Path, h.MethodNotAllowed)

	post := r
	if limiter != nil {
		post = r.With(limiter.Middleware(h.Deny))
	}
	post.Post(Path, h.ServeHTTP)
}

// Deny answers a request over its quota
func (h *Handler) Deny(w http.ResponseWriter, r *http.Request, _ ratelimit.Decision) {
	h.metrics.IncGenerationResult(CategoryRateLimited)
	writeResult(r.Context(), w, http.StatusTooManyRequests, Result{Error: MsgRateLimited})
}

func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	writeResult(r.Context(), w, http.StatusMethodNotAllowed, Result{Error: MsgMethodNotAllowed})
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	L := log.FromContext(ctx)

	prompt, ok := decodePrompt(r)
	if !ok {
		h.finish(ctx, w, CategoryValidation, http.StatusBadRequest, Result{Error: MsgInvalidPrompt})
		return
	}

	if h.gen == nil {
		L.Error(ctx, imagegen.ErrNoAPIKey, "image generation requested without a provider credential")
		h.finish(ctx, w, CategoryConfig, http.StatusInternalServerError, Result{Error: MsgConfigError})
		return
	}

	start := h.now()
	resp, err := h.gen.GenerateContent(ctx, h.prefix+prompt)
	var imageURL, text string
	if err == nil {
		imageURL, text, err = extractImage(resp)
	}
	elapsed := h.now().Sub(start).Seconds()

	if err != nil {
		h.metrics.ObserveUpstream("error", elapsed)
		c := Classify(err)
		L.Error(ctx, err, "image generation failed",
			"generation.category", c.Category,
			"http.response.status_code", c.Status,
		)
		h.finish(ctx, w, c.Category, c.Status, Result{Error: c.Message})
		return
	}
	h.metrics.ObserveUpstream("ok", elapsed)

	if imageURL == "" {
		msg := MsgNoImage
		if text != "" {
			msg = text
		}
		L.Info(ctx, "provider returned no image", "provider.text_length", len(text))
		h.finish(ctx, w, CategoryNoImage, http.StatusBadRequest, Result{Error: msg})
		return
	}

	L.Debug(ctx, "image generated", "image.data_url_length", len(imageURL))
	h.finish(ctx, w, CategorySuccess, http.StatusOK, Result{Success: true, ImageURL: imageURL})
}

// decodePrompt requires a JSON object whose prompt is a non-blank string
func decodePrompt(r *http.Request) (string, bool) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == nil {
		return "", false
	}
	p := strings.TrimSpace(*req.Prompt)
	return p, p != ""
}

func (h *Handler) finish(ctx context.Context, w http.ResponseWriter, category string, status int, res Result) {
	h.metrics.IncGenerationResult(category)
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.String("app.generation.category", category))
	}
	writeResult(ctx, w, status, res)
}

func writeResult(ctx context.Context, w http.ResponseWriter, status int, res Result) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		log.FromContext(ctx).Warn(ctx, "failed to encode JSON response", "error", err)
	}
}
