package imagegen

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"

	"github.com/keithlinneman/charactergen/internal/otelx"
	"github.com/keithlinneman/charactergen/internal/xerrors"
)

const (
	DefaultModel   = "gemini-2.0-flash-preview-image-generation"
	DefaultTimeout = 60 * time.Second
)

// ErrNoAPIKey is returned by NewGenAI when no credential is configured
var ErrNoAPIKey = errors.New("imagegen: API_KEY not configured")

// Generator produces content for a fully built prompt
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (*genai.GenerateContentResponse, error)
}

type GeneratorFunc func(ctx context.Context, prompt string) (*genai.GenerateContentResponse, error)

func (f GeneratorFunc) GenerateContent(ctx context.Context, prompt string) (*genai.GenerateContentResponse, error) {
	return f(ctx, prompt)
}

type Options struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	// BaseURL overrides the provider endpoint, used by tests
	BaseURL string
	// HTTPClient defaults to one with an otel transport
	HTTPClient *http.Client
}

type GenAI struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	config  *genai.GenerateContentConfig
}

func NewGenAI(ctx context.Context, o Options) (*GenAI, error) {
	if o.APIKey == "" {
		return nil, xerrors.WithStack(ErrNoAPIKey)
	}
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	hc := o.HTTPClient
	if hc == nil {
		hc = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      o.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  hc,
		HTTPOptions: genai.HTTPOptions{BaseURL: o.BaseURL},
	})
	if err != nil {
		return nil, xerrors.Wrap(err, "create genai client")
	}

	return &GenAI{
		client:  client,
		model:   o.Model,
		timeout: o.Timeout,
		config: &genai.GenerateContentConfig{
			ResponseModalities: []string{string(genai.ModalityText), string(genai.ModalityImage)},
		},
	}, nil
}

func (g *GenAI) Model() string { return g.model }

// GenerateContent sends prompt as a single user turn. Deadline errors are
// reported with the word timeout so callers can treat them as transient.
func (g *GenAI) GenerateContent(ctx context.Context, prompt string) (*genai.GenerateContentResponse, error) {
	ctx, span := otelx.Tracer("imagegen").Start(ctx, "imagegen.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("gen_ai.request.model", g.model),
		attribute.Int("app.prompt.length", len(prompt)),
	)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = xerrors.Wrapf(err, "provider timeout after %s", g.timeout)
		} else {
			err = xerrors.Wrap(err, "generate content")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate content failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("gen_ai.response.candidates", len(resp.Candidates)))
	return resp, nil
}
