package runconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_MergesOverridesOntoDefaults(t *testing.T) {
	opts, err := Parse(map[string]any{
		"source_provider_id": "jira",
		"target_provider_id": "qtest",
		"retry.max_attempts": 5,
	})
	require.NoError(t, err)

	assert.Equal(t, "jira", opts.SourceProviderID)
	assert.Equal(t, "qtest", opts.TargetProviderID)
	assert.Equal(t, 5, opts.Retry.MaxAttempts)
	assert.Equal(t, Defaults().Retry.BaseMs, opts.Retry.BaseMs, "keys not overridden keep their default")
}

func TestParse_RejectsUnrecognizedKeys(t *testing.T) {
	_, err := Parse(map[string]any{
		"source_provider_id": "jira",
		"target_provider_id": "qtest",
		"retry.max_retries":  5,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry.max_retries")
}

func TestParse_RequiresSourceAndTargetProviderID(t *testing.T) {
	_, err := Parse(map[string]any{"retry.max_attempts": 5})
	require.Error(t, err)
}

func TestParse_AcceptsJSONNumberShapedFloatsForIntFields(t *testing.T) {
	opts, err := Parse(map[string]any{
		"source_provider_id": "jira",
		"target_provider_id": "qtest",
		"item_parallelism":   float64(8),
	})
	require.NoError(t, err)
	assert.Equal(t, 8, opts.ItemParallelism)
}

func TestParse_RejectsWrongTypeForKnownKey(t *testing.T) {
	_, err := Parse(map[string]any{
		"source_provider_id": "jira",
		"target_provider_id": "qtest",
		"compensate_on_abort": "yes",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compensate_on_abort")
}

func TestParse_AcceptsOpaqueSelectionAndFieldMapping(t *testing.T) {
	opts, err := Parse(map[string]any{
		"source_provider_id": "jira",
		"target_provider_id": "qtest",
		"selection":          map[string]any{"jql": "project = ABC"},
		"field_mapping":      map[string]any{"profile": "default"},
	})
	require.NoError(t, err)
	assert.Equal(t, "project = ABC", opts.Selection.(map[string]any)["jql"])
	assert.Equal(t, "default", opts.FieldMapping.(map[string]any)["profile"])
}

func TestDefaults_RunTimeoutZeroMeansUnbounded(t *testing.T) {
	opts := Defaults()
	assert.Equal(t, time.Duration(0), opts.RunTimeout())
}

func TestOptions_TimeoutHelpersConvertMillisecondsToDuration(t *testing.T) {
	opts := Defaults()
	assert.Equal(t, 10*time.Second, opts.RequestTimeout())
	assert.Equal(t, 60*time.Second, opts.OperationTimeout())
}
