package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWait_ConsumesAvailableTokenImmediately(t *testing.T) {
	l := New(Config{Capacity: 2, RefillPerSec: 1})

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestWait_RespectsRetryAfterGate(t *testing.T) {
	l := New(Config{Capacity: 10, RefillPerSec: 10})
	l.Adapt(ThrottleSignal{RetryAfter: 60 * time.Millisecond})

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestWait_CancelledContextReturnsError(t *testing.T) {
	l := New(Config{Capacity: 10, RefillPerSec: 10})
	l.Adapt(ThrottleSignal{RetryAfter: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	assert.Error(t, err)
}

func TestAdapt_Throttled429BacksOffExponentially(t *testing.T) {
	l := New(Config{Capacity: 10, RefillPerSec: 10})

	l.Adapt(ThrottleSignal{Throttled429: true})
	first := l.notBefore

	l.Adapt(ThrottleSignal{Throttled429: true})
	second := l.notBefore

	assert.True(t, second.After(first), "second backoff window should extend further than the first")
}

func TestReset_ClearsThrottleState(t *testing.T) {
	l := New(Config{Capacity: 10, RefillPerSec: 10})
	l.Adapt(ThrottleSignal{RetryAfter: time.Hour})

	l.Reset()

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}
