package imagegen

import (
	"context"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/keithlinneman/charactergen/internal/xerrors"
)

const (
	DefaultRPS   = 2.0
	DefaultBurst = 4
)

// Throttled waits on a shared token bucket before each call
type Throttled struct {
	next    Generator
	limiter *rate.Limiter
}

// NewThrottled allows rps calls per second with the given burst.
// rps <= 0 disables throttling.
func NewThrottled(next Generator, rps float64, burst int) *Throttled {
	lim := rate.NewLimiter(rate.Inf, 0)
	if rps > 0 {
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return &Throttled{next: next, limiter: lim}
}

func (t *Throttled) GenerateContent(ctx context.Context, prompt string) (*genai.GenerateContentResponse, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, xerrors.Wrap(err, "throttle timeout")
	}
	return t.next.GenerateContent(ctx, prompt)
}
