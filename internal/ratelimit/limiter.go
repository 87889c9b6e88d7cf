package ratelimit

import (
	"context"
	"time"
)

const (
	DefaultLimit  = 10
	DefaultWindow = 60 * time.Minute
)

// Limiter applies one quota to every key through a Store
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	now    func() time.Time

	// OnFirstDenied is called once per key per window, used for logging
	OnFirstDenied func(key string)

	// OnDenied is called on every rejection, used for incrementing prometheus counters
	OnDenied func(key string)

	// OnStoreError is called when the store fails; the request is admitted
	OnStoreError func(key string, err error)
}

type Option func(*Limiter)

// WithQuota sets how many requests a key may make per window
func WithQuota(limit int, window time.Duration) Option {
	return func(l *Limiter) {
		l.limit = limit
		l.window = window
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func WithOnFirstDenied(fn func(key string)) Option {
	return func(l *Limiter) { l.OnFirstDenied = fn }
}

func WithOnDenied(fn func(key string)) Option {
	return func(l *Limiter) { l.OnDenied = fn }
}

func WithOnStoreError(fn func(key string, err error)) Option {
	return func(l *Limiter) { l.OnStoreError = fn }
}

func New(store Store, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		limit:  DefaultLimit,
		window: DefaultWindow,
		now:    time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Allow reports whether key may proceed, consuming one unit of its quota if so
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	return l.Check(ctx, key).Allowed
}

// Check is Allow with the full decision, used to set Retry-After
func (l *Limiter) Check(ctx context.Context, key string) Decision {
	now := l.now()
	d, err := l.store.Take(ctx, key, l.limit, l.window, now)
	if err != nil {
		if l.OnStoreError != nil {
			l.OnStoreError(key, err)
		}
		return Decision{Allowed: true, Limit: l.limit, ResetAt: now.Add(l.window)}
	}
	if d.Allowed {
		return d
	}

	if d.FirstDenied && l.OnFirstDenied != nil {
		l.OnFirstDenied(key)
	}
	if l.OnDenied != nil {
		l.OnDenied(key)
	}
	return d
}
