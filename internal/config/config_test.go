package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, 9222, cfg.Browser.DebugPort)
	assert.False(t, cfg.EnableAX)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider: openai
enable_ax: true
browser:
  debug_port: 9333
  headless: true
providers:
  - name: openai
    model: gpt-4o
    api_key: sk-test
`), 0o644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider)
	assert.True(t, cfg.EnableAX)
	assert.Equal(t, 9333, cfg.Browser.DebugPort)

	p, err := cfg.ActiveProvider()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", p.Model)
	assert.Equal(t, "sk-test", p.APIKey)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WAYFIND_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.Provider)

	p, err := cfg.ActiveProvider()
	require.NoError(t, err)
	assert.Equal(t, "g-key", p.APIKey)
}

func TestActiveProviderUnknown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = "nonexistent"
	_, err := cfg.ActiveProvider()
	assert.Error(t, err)
}
