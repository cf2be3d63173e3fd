// Package resilience implements the circuit breaker and retry policy
// shared by every resilient caller instance: a hand-rolled closed/open/
// half-open breaker and a jittered exponential-backoff retry policy, kept
// dependency-free since both are small enough that a wrapper library would
// add an import for no real reduction in code.
package resilience

import (
	"sync"
	"time"

	migerrors "github.com/heymumford/migrationcore/infrastructure/errors"
)

// State is a circuit breaker's position in the closed/open/half-open state
// machine.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures one breaker instance.
type BreakerConfig struct {
	// FailureThreshold is F: consecutive failures before the breaker opens.
	FailureThreshold int
	// ResetTimeout is T: how long the breaker stays open before allowing a
	// half-open probe.
	ResetTimeout time.Duration
	// HalfOpenProbes is P: concurrent probe calls permitted while half-open.
	HalfOpenProbes int
	OnStateChange  func(provider string, from, to State)
}

// DefaultBreakerConfig matches the run-configuration defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		HalfOpenProbes:   3,
	}
}

// Breaker is a per-provider (optionally per-endpoint-class) circuit
// breaker. Safe for concurrent use.
type Breaker struct {
	mu           sync.Mutex
	provider     string
	config       BreakerConfig
	state        State
	failures     int
	halfOpenReqs int
	lastOpened   time.Time
}

// NewBreaker constructs a Breaker in the closed state.
func NewBreaker(provider string, cfg BreakerConfig) *Breaker {
	return &Breaker{provider: provider, config: cfg, state: StateClosed}
}

// State reports the breaker's current state, transitioning open→half-open
// first if the reset timeout has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeTransitionToHalfOpenLocked()
	return b.state
}

func (b *Breaker) maybeTransitionToHalfOpenLocked() {
	if b.state == StateOpen && time.Since(b.lastOpened) >= b.config.ResetTimeout {
		b.setStateLocked(StateHalfOpen)
		b.halfOpenReqs = 0
	}
}

// Allow reports whether a call may proceed, consuming a half-open probe
// slot if applicable. It never blocks — the resilient caller calls this
// before acquiring the rate limiter, so a fast-fail never consumes a token
// or bulkhead slot.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeTransitionToHalfOpenLocked()

	switch b.state {
	case StateOpen:
		return migerrors.New(migerrors.CircuitOpen, "circuit open for "+b.provider)
	case StateHalfOpen:
		if b.halfOpenReqs >= b.config.HalfOpenProbes {
			return migerrors.New(migerrors.CircuitOpen, "half-open probe budget exhausted for "+b.provider)
		}
		b.halfOpenReqs++
	}
	return nil
}

// Report records the outcome of a call that Allow permitted. countsFailure
// should be derived from the error kind's CountsTowardCircuit flag — not
// every failure counts.
func (b *Breaker) Report(success bool, countsFailure bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		if success {
			b.setStateLocked(StateClosed)
			b.failures = 0
		} else if countsFailure {
			b.setStateLocked(StateOpen)
		}
	case StateClosed:
		if success {
			b.failures = 0
			return
		}
		if !countsFailure {
			return
		}
		b.failures++
		if b.failures >= b.config.FailureThreshold {
			b.setStateLocked(StateOpen)
		}
	case StateOpen:
		// Outcomes while open shouldn't occur (Allow fast-fails), but stay
		// defensive rather than panic on a racing caller.
	}
}

func (b *Breaker) setStateLocked(newState State) {
	if newState == b.state {
		return
	}
	old := b.state
	b.state = newState
	if newState == StateOpen {
		b.lastOpened = time.Now()
		b.failures = 0
	}
	if newState == StateHalfOpen {
		b.halfOpenReqs = 0
	}
	if b.config.OnStateChange != nil {
		provider, cfg := b.provider, b.config
		go cfg.OnStateChange(provider, old, newState)
	}
}

// Failures returns the current consecutive-failure count, for tests and
// metrics.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
