package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindTraits_EveryKindHasTraits(t *testing.T) {
	kinds := []Kind{
		AuthenticationFailed, AuthorizationFailed, ValidationFailed, NotFound,
		Throttled, NetworkError, ServerError, Timeout, CircuitOpen,
		BulkheadTimeout, Cancelled, DependencyMissing, MappingError, Unknown,
	}
	for _, k := range kinds {
		assert.NotEmpty(t, k.Code(), "kind %s must have a code", k)
		assert.NotZero(t, k.HTTPStatus(), "kind %s must have an http status", k)
	}
}

func TestRetriableKinds(t *testing.T) {
	retriable := []Kind{Throttled, NetworkError, ServerError, Timeout, BulkheadTimeout}
	for _, k := range retriable {
		assert.True(t, k.Retriable(), "%s should be retriable", k)
	}

	nonRetriable := []Kind{AuthenticationFailed, AuthorizationFailed, ValidationFailed, NotFound, CircuitOpen, Cancelled, DependencyMissing, MappingError}
	for _, k := range nonRetriable {
		assert.False(t, k.Retriable(), "%s should not be retriable", k)
	}
}

func TestCountsTowardCircuitKinds(t *testing.T) {
	counts := []Kind{NetworkError, ServerError, Timeout, Unknown}
	for _, k := range counts {
		assert.True(t, k.CountsTowardCircuit(), "%s should count toward the circuit", k)
	}

	doesNot := []Kind{AuthenticationFailed, ValidationFailed, Throttled, CircuitOpen, BulkheadTimeout, Cancelled}
	for _, k := range doesNot {
		assert.False(t, k.CountsTowardCircuit(), "%s should not count toward the circuit", k)
	}
}

func TestWrap_PreservesCauseForUnwrap(t *testing.T) {
	cause := errors.New("boom")
	wrapped := Wrap(NetworkError, "request failed", cause)

	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, wrapped.Error(), "boom")
}

func TestAs_ExtractsMigrationError(t *testing.T) {
	wrapped := Wrap(Timeout, "deadline exceeded", errors.New("ctx"))
	outer := errors.New("outer: " + wrapped.Error())

	_, ok := As(outer)
	assert.False(t, ok, "plain errors.New should not unwrap to a MigrationError")

	me, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, Timeout, me.Kind)
}

func TestKindOf_ReturnsUnknownForPlainError(t *testing.T) {
	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
}

func TestKindOf_NilIsEmptyKind(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestWithDetails_MergesWithoutOverwritingUnrelatedKeys(t *testing.T) {
	err := New(ValidationFailed, "bad field")
	err.WithDetails(map[string]any{"field": "title"})
	err.WithDetails(map[string]any{"provider": "jira"})

	assert.Equal(t, "title", err.Details["field"])
	assert.Equal(t, "jira", err.Details["provider"])
}

func TestIs_MatchesOnlyTheGivenKind(t *testing.T) {
	err := New(NotFound, "missing")
	assert.True(t, Is(err, NotFound))
	assert.False(t, Is(err, Timeout))
}
