package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Database.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 60, cfg.Player.SaveIntervalSeconds)
	assert.Equal(t, 10, cfg.Player.ProbeTimeoutSeconds)
	assert.Equal(t, "https://vixsrc.to", cfg.Sources.PrimaryBase)
	assert.Equal(t, "https://vidsrc.cc/v2/embed", cfg.Sources.FallbackBase)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database:
  path: /tmp/test-famflix.db
logging:
  level: debug
  format: json
player:
  save_interval_seconds: 30
sources:
  primary_base: https://primary.example
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, _, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test-famflix.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 30, cfg.Player.SaveIntervalSeconds)
	assert.Equal(t, "https://primary.example", cfg.Sources.PrimaryBase)
	// Untouched sections keep their defaults.
	assert.Equal(t, "https://vidsrc.cc/v2/embed", cfg.Sources.FallbackBase)
	assert.Equal(t, 10, cfg.Player.ProbeTimeoutSeconds)
}

func TestLoadValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
player:
  save_interval_seconds: 0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, _, err := Load(path)
	assert.ErrorContains(t, err, "save_interval_seconds")
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{not yaml"), 0644))

	_, _, err := Load(path)
	assert.Error(t, err)
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, WriteDefault(path))

	cfg, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Player.SaveIntervalSeconds)

	t.Run("refuses to overwrite", func(t *testing.T) {
		err := WriteDefault(path)
		assert.ErrorContains(t, err, "already exists")
	})
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]string{
		"debug": "DEBUG",
		"info":  "INFO",
		"warn":  "WARN",
		"error": "ERROR",
		"bogus": "INFO",
	}
	for input, want := range cases {
		assert.Equal(t, want, parseLogLevel(input).String(), "level %q", input)
	}
}
