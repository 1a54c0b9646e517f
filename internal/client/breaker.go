package client

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// breaker stops all upstream traffic once the upstream has refused
// threshold requests in a row, and lets it through again after cooldown.
// A zero threshold or cooldown disables it.
type breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	refusals  int
	openUntil time.Time
	now       func() time.Time
}

func newBreaker(threshold int, cooldown time.Duration) *breaker {
	return &breaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

func (b *breaker) enabled() bool {
	return b.threshold > 0 && b.cooldown > 0
}

// remaining is how long requests stay disabled; zero means closed
func (b *breaker) remaining() time.Duration {
	if !b.enabled() {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.openUntil.IsZero() {
		return 0
	}

	left := b.openUntil.Sub(b.now())
	if left <= 0 {
		b.openUntil = time.Time{}
		b.refusals = 0
		log.Info("✅ Circuit breaker closed - upstream requests allowed again")
		return 0
	}
	return left
}

// refused counts a blocked response and reports whether it opened the breaker
func (b *breaker) refused() bool {
	if !b.enabled() {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.refusals++
	if b.refusals < b.threshold || !b.openUntil.IsZero() {
		return false
	}

	b.openUntil = b.now().Add(b.cooldown)
	log.Warnf("🚫 Circuit breaker opened after %d refused requests, upstream disabled until %s",
		b.refusals, b.openUntil.Format("15:04:05"))
	return true
}

// answered resets the refusal streak
func (b *breaker) answered() {
	if !b.enabled() {
		return
	}

	b.mu.Lock()
	b.refusals = 0
	b.mu.Unlock()
}
