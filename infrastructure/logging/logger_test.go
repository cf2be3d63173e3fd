package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithRunID_RoundTripsThroughContext(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-123")
	assert.Equal(t, "run-123", RunID(ctx))
}

func TestRunID_EmptyWhenNeverSet(t *testing.T) {
	assert.Equal(t, "", RunID(context.Background()))
}

func TestWithContext_CarriesRunTraceAndProviderFields(t *testing.T) {
	l := New("test-component", "info", "text")
	ctx := WithRunID(context.Background(), "run-1")
	ctx = WithTraceID(ctx, "trace-1")
	ctx = WithProviderID(ctx, "jira")

	entry := l.WithContext(ctx)
	assert.Equal(t, "run-1", entry.Data["run_id"])
	assert.Equal(t, "trace-1", entry.Data["trace_id"])
	assert.Equal(t, "jira", entry.Data["provider_id"])
	assert.Equal(t, "test-component", entry.Data["component"])
}

func TestWithFields_StampsComponentAlongsideCallerFields(t *testing.T) {
	l := New("test-component", "info", "text")
	entry := l.WithFields(map[string]any{"custom": "value"})
	assert.Equal(t, "value", entry.Data["custom"])
	assert.Equal(t, "test-component", entry.Data["component"])
}

func TestNew_DefaultsToInfoLevelOnInvalidLevelName(t *testing.T) {
	l := New("test-component", "not-a-real-level", "text")
	assert.Equal(t, "info", l.GetLevel().String())
}
