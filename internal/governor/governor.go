// Package governor bounds and paces the requests sent to the upstream catalog.
//
// A Governor owns a fixed number of slots. Every call acquires a slot, waits a
// random delay drawn from [MinDelay, MaxDelay], takes a token from the optional
// rate limiter and only then runs. The slot is released when the call returns,
// whatever its outcome.
package governor

import (
	"context"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"go.uber.org/ratelimit"
)

type Config struct {
	MaxConcurrency       int
	MinDelay             time.Duration
	MaxDelay             time.Duration
	MaxRequestsPerSecond int // 0 disables the rate ceiling
}

type Governor struct {
	slots    chan struct{}
	minDelay time.Duration
	maxDelay time.Duration
	rl       ratelimit.Limiter
	inFlight atomic.Int32
	jitter   func(n int64) int64
}

func New(cfg Config) *Governor {
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}

	rl := ratelimit.NewUnlimited()
	if cfg.MaxRequestsPerSecond > 0 {
		rl = ratelimit.New(cfg.MaxRequestsPerSecond)
	}

	return &Governor{
		slots:    make(chan struct{}, cfg.MaxConcurrency),
		minDelay: cfg.MinDelay,
		maxDelay: cfg.MaxDelay,
		rl:       rl,
		jitter:   rand.Int64N,
	}
}

// Do runs fn while holding a slot
func (g *Governor) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	select {
	case g.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-g.slots }()

	if err := g.pause(ctx); err != nil {
		return err
	}
	g.rl.Take()

	g.inFlight.Add(1)
	defer g.inFlight.Add(-1)

	return fn(ctx)
}

// Call is Do for functions returning a value
func Call[T any](ctx context.Context, g *Governor, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := g.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

// InFlight is the number of calls currently running fn
func (g *Governor) InFlight() int {
	return int(g.inFlight.Load())
}

func (g *Governor) Limit() int {
	return cap(g.slots)
}

func (g *Governor) delay() time.Duration {
	span := int64(g.maxDelay - g.minDelay)
	if span <= 0 {
		return g.minDelay
	}
	return g.minDelay + time.Duration(g.jitter(span+1))
}

func (g *Governor) pause(ctx context.Context) error {
	d := g.delay()
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
