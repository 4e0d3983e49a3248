package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter paces accepted connections with a token bucket.
//
// A nil *Limiter is valid and never throttles, so callers can hold one
// unconditionally and let configuration decide whether it exists.
type Limiter struct {
	limiter *rate.Limiter
}

// New returns a Limiter admitting perSecond connections on average with
// bursts of up to burst. It returns nil when perSecond is zero.
//
// A burst of zero is raised to one, since a bucket that holds no tokens
// would never admit anything.
func New(perSecond float64, burst int) *Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Enabled reports whether the limiter throttles at all.
func (l *Limiter) Enabled() bool {
	return l != nil
}

// Allow consumes a token if one is available without waiting.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	return l.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	return l.limiter.Wait(ctx)
}

// Tokens returns the tokens currently in the bucket. Used for metrics logs.
func (l *Limiter) Tokens() float64 {
	if l == nil {
		return 0
	}
	return l.limiter.Tokens()
}
