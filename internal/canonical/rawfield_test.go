package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	migerrors "github.com/heymumford/migrationcore/infrastructure/errors"
)

const samplePayload = `{"fields":{"summary":"Login fails on retry","priority":{"name":"High"}}}`

func TestRawField_ReadsNestedDottedPathFromJSONBytes(t *testing.T) {
	v, ok := RawField([]byte(samplePayload), "fields.summary")
	require.True(t, ok)
	assert.Equal(t, "Login fails on retry", v)
}

func TestRawField_ReadsFromJSONString(t *testing.T) {
	v, ok := RawField(samplePayload, "fields.priority.name")
	require.True(t, ok)
	assert.Equal(t, "High", v)
}

func TestRawField_MissingPathReturnsFalse(t *testing.T) {
	_, ok := RawField([]byte(samplePayload), "fields.missing")
	assert.False(t, ok)
}

func TestRawField_NonJSONRawValueReturnsFalse(t *testing.T) {
	_, ok := RawField(42, "fields.summary")
	assert.False(t, ok)
}

func TestRawFieldStrict_MissingPathReturnsMappingError(t *testing.T) {
	_, err := RawFieldStrict([]byte(samplePayload), "fields.missing")
	require.Error(t, err)
	assert.Equal(t, migerrors.MappingError, migerrors.KindOf(err))
}

func TestRawFieldStrict_PresentPathReturnsValue(t *testing.T) {
	v, err := RawFieldStrict([]byte(samplePayload), "fields.summary")
	require.NoError(t, err)
	assert.Equal(t, "Login fails on retry", v)
}
