package prompthttp

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/charactergen/internal/log"
	"github.com/keithlinneman/charactergen/internal/prompt"
)

// API serves the prompt composer endpoints
type API struct {
	logger  log.Logger
	newRand func() *rand.Rand
}

type Option func(*API)

// WithRand overrides the source used for random characters
func WithRand(f func() *rand.Rand) Option {
	return func(a *API) { a.newRand = f }
}

func NewAPI(logger log.Logger, opts ...Option) *API {
	if logger == nil {
		logger = log.Nop()
	}
	a := &API{
		logger: logger,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// RegisterRoutes attaches the composer endpoints, relative to the /api mount
func (a *API) RegisterRoutes(r chi.Router) {
	r.Get("/prompt-options", a.HandleOptions)
	r.Post("/compose-prompt", a.HandleCompose)
}

type OptionsResponse struct {
	Fields   []string            `json:"fields"`
	Values   map[string][]string `json:"values"`
	Defaults prompt.Options      `json:"defaults"`
	Template string              `json:"template"`
}

type ComposeRequest struct {
	Options *prompt.Options `json:"options,omitempty"`
	Random  bool            `json:"random,omitempty"`
}

type ComposeResponse struct {
	Prompt  string         `json:"prompt,omitempty"`
	Options prompt.Options `json:"options"`
	Error   string         `json:"error,omitempty"`
}

func (a *API) HandleOptions(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(r.Context(), w, http.StatusOK, OptionsResponse{
		Fields:   prompt.Fields,
		Values:   prompt.Catalog(),
		Defaults: prompt.Defaults(),
		Template: prompt.Template,
	})
}

// HandleCompose fills the template from the posted options, from a random
// character when random is set, or from the defaults when neither is sent.
func (a *API) HandleCompose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ComposeRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		a.writeJSON(ctx, w, http.StatusBadRequest, ComposeResponse{Error: "invalid request body"})
		return
	}

	var opts prompt.Options
	switch {
	case req.Random:
		opts = prompt.Randomize(a.newRand())
	case req.Options != nil:
		opts = *req.Options
	default:
		opts = prompt.Defaults()
	}

	if err := prompt.Validate(opts); err != nil {
		log.FromContext(ctx).Debug(ctx, "rejected prompt options", "error", err)
		a.writeJSON(ctx, w, http.StatusBadRequest, ComposeResponse{Options: opts, Error: unwrapJoined(err)})
		return
	}

	a.writeJSON(ctx, w, http.StatusOK, ComposeResponse{Prompt: prompt.Compose(opts), Options: opts})
}

// unwrapJoined reports the first of a joined error set
func unwrapJoined(err error) string {
	var j interface{ Unwrap() []error }
	if errors.As(err, &j) {
		if errs := j.Unwrap(); len(errs) > 0 {
			return errs[0].Error()
		}
	}
	return err.Error()
}

func (a *API) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Warn(ctx, "failed to encode JSON response", "error", err)
	}
}
