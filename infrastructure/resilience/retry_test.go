package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelayForAttempt_GrowsExponentiallyWithinJitterBounds(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, CapDelay: 10 * time.Second, Factor: 2.0, Jitter: 0.1}

	for attempt := 1; attempt <= 4; attempt++ {
		base := float64(cfg.BaseDelay) * pow(cfg.Factor, attempt-1)
		lower := time.Duration(base)
		upper := time.Duration(base * 1.1)

		d := cfg.DelayForAttempt(attempt)
		assert.GreaterOrEqual(t, d, lower, "attempt %d", attempt)
		assert.LessOrEqual(t, d, upper, "attempt %d", attempt)
	}
}

func TestDelayForAttempt_RespectsCap(t *testing.T) {
	cfg := RetryConfig{BaseDelay: time.Second, CapDelay: 2 * time.Second, Factor: 10.0, Jitter: 0}

	d := cfg.DelayForAttempt(5)
	assert.Equal(t, 2*time.Second, d)
}

func TestDelayForAttempt_ClampsAttemptBelowOne(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, CapDelay: time.Second, Factor: 2.0, Jitter: 0}

	assert.Equal(t, cfg.DelayForAttempt(1), cfg.DelayForAttempt(0))
	assert.Equal(t, cfg.DelayForAttempt(1), cfg.DelayForAttempt(-3))
}
