package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ReturnsBaselineDefaults(t *testing.T) {
	cfg := New()
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "memory", cfg.Checkpoint.Driver)
	assert.Equal(t, "data/checkpoints", cfg.Checkpoint.Path)
}

func TestLoad_AppliesYAMLFileOverridesOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("logging:\n  level: debug\ncheckpoint:\n  driver: file\n  path: /var/lib/migrationcore\n"), 0o644))

	t.Setenv("CONFIG_FILE", cfgPath)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "file", cfg.Checkpoint.Driver)
	assert.Equal(t, "/var/lib/migrationcore", cfg.Checkpoint.Path)
	assert.Equal(t, "text", cfg.Logging.Format, "keys absent from the file keep their default")
}

func TestLoad_EnvironmentOverridesWinOverYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("logging:\n  level: debug\n"), 0o644))

	t.Setenv("CONFIG_FILE", cfgPath)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_MissingConfigFileIsNotAnError(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Checkpoint.Driver)
}
