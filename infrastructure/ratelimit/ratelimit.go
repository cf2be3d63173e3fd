// Package ratelimit implements the per-provider adaptive token bucket.
// It wraps golang.org/x/time/rate with header-adaptive reseeding
// (Retry-After, X-RateLimit-Remaining, X-RateLimit-Reset) so a resilient
// caller can track a provider's live rate-limit budget rather than a
// fixed static rate.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config shapes one provider's bucket.
type Config struct {
	Capacity     float64
	RefillPerSec float64
}

// DefaultConfig matches the run-configuration defaults.
func DefaultConfig() Config {
	return Config{Capacity: 100, RefillPerSec: 50}
}

// Limiter is a per-provider adaptive token bucket. Safe for concurrent use;
// waiters are served in the order golang.org/x/time/rate's internal queue
// admits them, which is FIFO for a single limiter instance.
type Limiter struct {
	mu         sync.Mutex
	limiter    *rate.Limiter
	notBefore  time.Time
	throttleStreak int
}

// New constructs a Limiter from cfg.
func New(cfg Config) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RefillPerSec), int(math.Max(1, cfg.Capacity))),
	}
}

// Wait blocks until a token is available and the "not before" gate (if any)
// has passed, or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	notBefore := l.notBefore
	l.mu.Unlock()

	if !notBefore.IsZero() {
		if d := time.Until(notBefore); d > 0 {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
			}
		}
	}

	return l.limiter.Wait(ctx)
}

// ThrottleSignal carries the throttling hints a provider response may
// include.
type ThrottleSignal struct {
	// RetryAfter, if non-zero, sets an absolute "not before" instant.
	RetryAfter time.Duration
	// HasRemaining/Remaining and HasReset/ResetAt reseed tokens and the
	// refill curve when the provider reports its own bucket state.
	HasRemaining bool
	Remaining    int
	HasReset     bool
	ResetAt      time.Time
	// Throttled429 is true when the provider returned the 429 class with no
	// further signal; the limiter backs off exponentially up to a cap.
	Throttled429 bool
}

const maxExponentialBackoff = 5 * time.Minute

// Adapt applies a ThrottleSignal observed on a response, reseeding the
// bucket or extending the "not before" gate.
func (l *Limiter) Adapt(sig ThrottleSignal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if sig.RetryAfter > 0 {
		nb := time.Now().Add(sig.RetryAfter)
		if nb.After(l.notBefore) {
			l.notBefore = nb
		}
		l.throttleStreak = 0
		return
	}

	if sig.HasReset {
		remaining := sig.Remaining
		if !sig.HasRemaining {
			remaining = 0
		}
		l.limiter.SetBurstAt(time.Now(), max(1, remaining))
		if until := time.Until(sig.ResetAt); until > 0 {
			refill := float64(l.limiter.Burst()) / until.Seconds()
			l.limiter.SetLimitAt(time.Now(), rate.Limit(refill))
		}
		l.throttleStreak = 0
		return
	}

	if sig.Throttled429 {
		l.throttleStreak++
		backoff := time.Duration(math.Min(
			float64(maxExponentialBackoff),
			float64(time.Second)*math.Pow(2, float64(l.throttleStreak)),
		))
		nb := time.Now().Add(backoff)
		if nb.After(l.notBefore) {
			l.notBefore = nb
		}
	}
}

// Reset clears the throttle streak and "not before" gate after a
// successful, unthrottled call.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.throttleStreak = 0
	l.notBefore = time.Time{}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
