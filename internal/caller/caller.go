// Package caller implements the Resilient Caller: the per-request
// composition of circuit breaker, rate limiter, bulkhead, session
// attachment, retry, and error categorization around a single outbound
// call. Composition order (outermost first): circuit breaker -> rate
// limiter -> bulkhead -> session attachment -> execution -> retry -> error
// categorization.
package caller

import (
	"context"
	"sync"
	"time"

	"github.com/heymumford/migrationcore/infrastructure/bulkhead"
	migerrors "github.com/heymumford/migrationcore/infrastructure/errors"
	"github.com/heymumford/migrationcore/infrastructure/ratelimit"
	"github.com/heymumford/migrationcore/infrastructure/resilience"
	"github.com/heymumford/migrationcore/internal/runconfig"
	"github.com/heymumford/migrationcore/internal/session"
)

// Result is what a CallFunc produces on success, plus any throttling
// signal the provider attached to the response so the rate limiter can
// adapt even on success.
type Result struct {
	Data    any
	Signal  ratelimit.ThrottleSignal
}

// CallFunc performs one attempt of the underlying adapter operation. It
// receives the current session token (already refreshed) so it can attach
// auth material to the outbound call; it must not retry internally.
type CallFunc func(ctx context.Context, token session.Token) (Result, error)

// providerState bundles the per-provider resilience primitives the
// "explicit per-provider state objects" design note calls for, replacing
// any global mutable resilience registry.
type providerState struct {
	breaker  *resilience.Breaker
	limiter  *ratelimit.Limiter
	bulkhead *bulkhead.Bulkhead
	retry    resilience.RetryConfig
}

// Caller composes the resilience stack for every provider registered with
// it and the shared Session Manager.
type Caller struct {
	mu        sync.RWMutex
	providers map[string]*providerState
	sessions  *session.Manager
}

// New constructs a Caller backed by sessions for token lifecycle.
func New(sessions *session.Manager) *Caller {
	return &Caller{providers: make(map[string]*providerState), sessions: sessions}
}

// Configure installs or replaces the resilience configuration for
// providerID, deriving the breaker/limiter/bulkhead/retry shapes from a
// run's Options.
func (c *Caller) Configure(providerID string, opts runconfig.Options) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[providerID] = &providerState{
		breaker: resilience.NewBreaker(providerID, resilience.BreakerConfig{
			FailureThreshold: opts.Circuit.FailureThreshold,
			ResetTimeout:     time.Duration(opts.Circuit.ResetMs) * time.Millisecond,
			HalfOpenProbes:   opts.Circuit.HalfOpenProbes,
		}),
		limiter: ratelimit.New(ratelimit.Config{
			Capacity:     opts.Rate.Capacity,
			RefillPerSec: opts.Rate.RefillPerSec,
		}),
		bulkhead: bulkhead.New(bulkhead.Config{MaxConcurrent: opts.Bulkhead.MaxConcurrent}, opts.RequestTimeout()),
		retry: resilience.RetryConfig{
			MaxAttempts: opts.Retry.MaxAttempts,
			BaseDelay:   time.Duration(opts.Retry.BaseMs) * time.Millisecond,
			CapDelay:    time.Duration(opts.Retry.CapMs) * time.Millisecond,
			Factor:      opts.Retry.Factor,
			Jitter:      opts.Retry.Jitter,
		},
	}
}

func (c *Caller) stateFor(providerID string) (*providerState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.providers[providerID]
	if !ok {
		return nil, migerrors.New(migerrors.Unknown, "caller not configured for provider "+providerID)
	}
	return st, nil
}

// BreakerState exposes the breaker's state for a provider, for metrics and
// tests.
func (c *Caller) BreakerState(providerID string) (resilience.State, error) {
	st, err := c.stateFor(providerID)
	if err != nil {
		return resilience.StateClosed, err
	}
	return st.breaker.State(), nil
}

// Call executes fn against providerID through the full resilient pipeline,
// retrying per the provider's retry policy and honoring a single
// reauthenticate-and-replay on authentication failure.
func (c *Caller) Call(ctx context.Context, providerID string, fn CallFunc) (Result, error) {
	st, err := c.stateFor(providerID)
	if err != nil {
		return Result{}, err
	}

	reauthUsed := false
	var lastErr error

	for attempt := 1; attempt <= maxInt(1, st.retry.MaxAttempts); attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{}, migerrors.Wrap(migerrors.Cancelled, "call cancelled", err)
		}

		if err := st.breaker.Allow(); err != nil {
			return Result{}, err
		}

		if err := st.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return Result{}, migerrors.Wrap(migerrors.Cancelled, "rate limiter wait cancelled", err)
			}
			return Result{}, migerrors.Wrap(migerrors.Unknown, "rate limiter wait failed", err)
		}

		release, err := st.bulkhead.Acquire(ctx)
		if err != nil {
			st.breaker.Report(false, false)
			return Result{}, err
		}

		token, err := c.sessions.GetToken(ctx, providerID)
		if err != nil {
			release()
			st.breaker.Report(false, false)
			return Result{}, err
		}

		result, callErr := fn(ctx, token)
		release()

		if callErr == nil {
			st.limiter.Adapt(result.Signal)
			st.breaker.Report(true, false)
			return result, nil
		}

		kind := migerrors.KindOf(callErr)
		st.breaker.Report(false, kind.CountsTowardCircuit())
		if result.Signal != (ratelimit.ThrottleSignal{}) {
			st.limiter.Adapt(result.Signal)
		}
		lastErr = callErr

		if kind == migerrors.AuthenticationFailed && !reauthUsed {
			reauthUsed = true
			if _, reauthErr := c.sessions.ForceReauth(ctx, providerID); reauthErr != nil {
				return Result{}, migerrors.Wrap(migerrors.AuthenticationFailed, "reauthentication failed", reauthErr)
			}
			attempt-- // the replay does not use up a retry attempt
			continue  // replay once immediately, no backoff delay
		}

		if !kind.Retriable() {
			return Result{}, callErr
		}
		if attempt >= st.retry.MaxAttempts {
			break
		}

		delay := st.retry.DelayForAttempt(attempt)
		if kind == migerrors.Throttled && result.Signal.RetryAfter > 0 {
			delay = result.Signal.RetryAfter
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Result{}, migerrors.Wrap(migerrors.Cancelled, "retry backoff cancelled", ctx.Err())
		case <-timer.C:
		}
	}

	return Result{}, lastErr
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
