package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outgoing imgur requests
type Limiter interface {
	// Allow reports whether a request may proceed right now
	Allow() bool
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
	// Reset restores the full burst
	Reset()
}

// TokenBucket is a Limiter backed by golang.org/x/time/rate.
type TokenBucket struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	limiter *rate.Limiter
}

// NewTokenBucket allows rps requests per second with the given burst.
func NewTokenBucket(rps float64, burst int) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	return &TokenBucket{
		limit:   rate.Limit(rps),
		burst:   burst,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// NewPerInterval allows one request per interval.
func NewPerInterval(interval time.Duration, burst int) *TokenBucket {
	if interval <= 0 {
		return NewTokenBucket(float64(rate.Inf), burst)
	}
	return NewTokenBucket(float64(rate.Every(interval)), burst)
}

func (tb *TokenBucket) current() *rate.Limiter {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.limiter
}

func (tb *TokenBucket) Allow() bool {
	return tb.current().Allow()
}

func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.current().Wait(ctx)
}

func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.limiter = rate.NewLimiter(tb.limit, tb.burst)
}

// Unlimited never blocks. Tests use it against a local server.
type Unlimited struct{}

func (Unlimited) Allow() bool                    { return true }
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
func (Unlimited) Reset()                         {}
