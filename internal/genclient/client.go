package genclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/keithlinneman/charactergen/internal/version"
	"github.com/keithlinneman/charactergen/internal/xerrors"
)

const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = time.Second
	GeneratePath        = "/api/generate-image"

	// a data URL for a large PNG runs to several MB
	maxResponseBytes = 32 << 20
)

type Result struct {
	Success  bool   `json:"success"`
	ImageURL string `json:"imageUrl,omitempty"`
	Error    string `json:"error,omitempty"`
}

type Client struct {
	baseURL      string
	http         *http.Client
	maxAttempts  int
	initialDelay time.Duration
	onRetry      func(attempt int, delay time.Duration, err error)
	busy         atomic.Bool
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithRetry sets the attempt bound and the delay before the first retry
func WithRetry(maxAttempts int, initialDelay time.Duration) Option {
	return func(c *Client) {
		c.maxAttempts = maxAttempts
		c.initialDelay = initialDelay
	}
}

// WithOnRetry is called before each wait with the 1-based attempt that failed.
// It is a notice only: the next attempt still follows.
func WithOnRetry(f func(attempt int, delay time.Duration, err error)) Option {
	return func(c *Client) { c.onRetry = f }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		maxAttempts:  DefaultMaxAttempts,
		initialDelay: DefaultInitialDelay,
	}
	for _, o := range opts {
		o(c)
	}
	if c.maxAttempts < 1 {
		c.maxAttempts = 1
	}
	return c
}

// Generate returns the image data URL for prompt. Retryable failures are
// retried after initialDelay·2^i; the last error is returned once attempts
// run out. There is no wait after the final attempt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	if !c.busy.CompareAndSwap(false, true) {
		return "", ErrInFlight
	}
	defer c.busy.Store(false)

	attempt := 0
	url, err := backoff.Retry(ctx, func() (string, error) {
		attempt++
		u, err := c.attempt(ctx, prompt)
		if err != nil && !retryable(err) {
			return "", backoff.Permanent(err)
		}
		return u, err
	},
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(uint(c.maxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, delay time.Duration) {
			if c.onRetry != nil {
				c.onRetry(attempt, delay, err)
			}
		}),
	)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	return url, err
}

// newBackOff yields initialDelay, 2·initialDelay, 4·initialDelay, ...
func (c *Client) newBackOff() *backoff.ExponentialBackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     c.initialDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         time.Hour,
	}
}

// InFlight reports whether a Generate call is pending
func (c *Client) InFlight() bool { return c.busy.Load() }

func (c *Client) attempt(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return "", xerrors.WithStack(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+GeneratePath, bytes.NewReader(body))
	if err != nil {
		return "", xerrors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", xerrors.Wrap(err, "network error")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", xerrors.Wrap(err, "network error reading response")
	}

	var res Result
	decErr := json.Unmarshal(raw, &res)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode, Message: res.Error}
	}
	if decErr != nil {
		return "", xerrors.Wrap(errors.Join(errDecode, decErr), "decode result")
	}
	if !res.Success || res.ImageURL == "" {
		msg := res.Error
		if msg == "" {
			msg = "no image data in result"
		}
		return "", &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}
	return res.ImageURL, nil
}
