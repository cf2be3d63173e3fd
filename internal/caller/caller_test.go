package caller

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	migerrors "github.com/heymumford/migrationcore/infrastructure/errors"
	"github.com/heymumford/migrationcore/internal/runconfig"
	"github.com/heymumford/migrationcore/internal/session"
)

type stubExchanger struct {
	exchanges int
}

func (s *stubExchanger) Exchange(ctx context.Context, cred session.Credential) (string, string, time.Time, error) {
	s.exchanges++
	return "tok", "refresh", time.Now().Add(time.Hour), nil
}

func (s *stubExchanger) Refresh(ctx context.Context, refreshToken string) (string, string, time.Time, error) {
	return "tok2", "refresh2", time.Now().Add(time.Hour), nil
}

func newTestCaller(t *testing.T, opts runconfig.Options) (*Caller, *stubExchanger) {
	t.Helper()
	sessions := session.New()
	exch := &stubExchanger{}
	sessions.Register("jira", session.Credential{Kind: session.CredentialBearer}, exch)

	c := New(sessions)
	c.Configure("jira", opts)
	return c, exch
}

func fastOptions() runconfig.Options {
	opts := runconfig.Defaults()
	opts.Retry.MaxAttempts = 3
	opts.Retry.BaseMs = 1
	opts.Retry.CapMs = 5
	opts.Circuit.FailureThreshold = 5
	opts.Bulkhead.MaxConcurrent = 4
	opts.Rate.Capacity = 100
	opts.Rate.RefillPerSec = 1000
	return opts
}

func TestCall_SucceedsOnFirstAttempt(t *testing.T) {
	c, _ := newTestCaller(t, fastOptions())

	calls := 0
	res, err := c.Call(context.Background(), "jira", func(ctx context.Context, tok session.Token) (Result, error) {
		calls++
		return Result{Data: "ok"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", res.Data)
	assert.Equal(t, 1, calls)
}

func TestCall_RetriesRetriableErrorsThenSucceeds(t *testing.T) {
	c, _ := newTestCaller(t, fastOptions())

	calls := 0
	res, err := c.Call(context.Background(), "jira", func(ctx context.Context, tok session.Token) (Result, error) {
		calls++
		if calls < 3 {
			return Result{}, migerrors.New(migerrors.NetworkError, "transient")
		}
		return Result{Data: "ok"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", res.Data)
	assert.Equal(t, 3, calls)
}

func TestCall_NonRetriableErrorFailsImmediately(t *testing.T) {
	c, _ := newTestCaller(t, fastOptions())

	calls := 0
	_, err := c.Call(context.Background(), "jira", func(ctx context.Context, tok session.Token) (Result, error) {
		calls++
		return Result{}, migerrors.New(migerrors.ValidationFailed, "bad request")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, migerrors.ValidationFailed, migerrors.KindOf(err))
}

func TestCall_ExhaustsRetriesAndReturnsLastError(t *testing.T) {
	opts := fastOptions()
	opts.Retry.MaxAttempts = 2
	c, _ := newTestCaller(t, opts)

	calls := 0
	_, err := c.Call(context.Background(), "jira", func(ctx context.Context, tok session.Token) (Result, error) {
		calls++
		return Result{}, migerrors.New(migerrors.ServerError, "down")
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestCall_ReauthenticatesOnceOnAuthenticationFailure(t *testing.T) {
	c, exch := newTestCaller(t, fastOptions())

	calls := 0
	_, err := c.Call(context.Background(), "jira", func(ctx context.Context, tok session.Token) (Result, error) {
		calls++
		if calls == 1 {
			return Result{}, migerrors.New(migerrors.AuthenticationFailed, "token expired")
		}
		return Result{Data: "ok"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, exch.exchanges, "initial exchange plus one forced reauth")
}

func TestCall_ReauthenticatesAtMostOncePerCall(t *testing.T) {
	opts := fastOptions()
	opts.Retry.MaxAttempts = 5
	c, _ := newTestCaller(t, opts)

	calls := 0
	_, err := c.Call(context.Background(), "jira", func(ctx context.Context, tok session.Token) (Result, error) {
		calls++
		return Result{}, migerrors.New(migerrors.AuthenticationFailed, "always invalid")
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls, "one original attempt plus exactly one reauth replay, not one per remaining attempt")
}

func TestCall_OpensCircuitAfterRepeatedCountingFailures(t *testing.T) {
	opts := fastOptions()
	opts.Circuit.FailureThreshold = 2
	opts.Retry.MaxAttempts = 1
	c, _ := newTestCaller(t, opts)

	for i := 0; i < 2; i++ {
		_, _ = c.Call(context.Background(), "jira", func(ctx context.Context, tok session.Token) (Result, error) {
			return Result{}, migerrors.New(migerrors.ServerError, "down")
		})
	}

	state, err := c.BreakerState("jira")
	require.NoError(t, err)
	assert.Equal(t, "open", state.String())

	_, err = c.Call(context.Background(), "jira", func(ctx context.Context, tok session.Token) (Result, error) {
		t.Fatal("fn must not be called while the circuit is open")
		return Result{}, nil
	})
	require.Error(t, err)
	assert.Equal(t, migerrors.CircuitOpen, migerrors.KindOf(err))
}

func TestCall_NotConfiguredProviderFails(t *testing.T) {
	c := New(session.New())
	_, err := c.Call(context.Background(), "unknown", func(ctx context.Context, tok session.Token) (Result, error) {
		return Result{}, nil
	})
	require.Error(t, err)
}
