package resilience

import (
	"math/rand"
	"time"
)

// RetryConfig shapes the backoff curve for one provider.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	CapDelay    time.Duration
	Factor      float64
	Jitter      float64
}

// DefaultRetryConfig matches the run-configuration defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		CapDelay:    10 * time.Second,
		Factor:      2.0,
		Jitter:      0.1,
	}
}

// DelayForAttempt computes the delay before attempt n (1-indexed: n=1 is
// the delay before the second call), per
// min(cap, base·factor^(n-1))·(1+jitter·random()).
func (c RetryConfig) DelayForAttempt(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	raw := float64(c.BaseDelay) * pow(c.Factor, n-1)
	if capped := float64(c.CapDelay); raw > capped {
		raw = capped
	}
	jittered := raw * (1 + c.Jitter*rand.Float64())
	return time.Duration(jittered)
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
