// Package config loads the yaml configuration from ~/.wayfind, with
// environment-variable overrides and OS-keychain fallback for API keys.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// keyringService is the OS keychain service name API keys are stored
// under (account = provider name).
const keyringService = "wayfind"

// Config holds the full application configuration.
type Config struct {
	DataDir string `yaml:"data_dir"` // ~/.wayfind

	// Provider selects the active decision-maker profile by name.
	Provider  string           `yaml:"provider"`
	Providers []ProviderConfig `yaml:"providers"`

	// Embedding configures the semantic ranker. Disabled when Provider
	// is empty.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Browser settings.
	Browser BrowserConfig `yaml:"browser"`

	// EnableAX gates the accessibility-tree index. Off by default; the
	// DOM scan alone is authoritative.
	EnableAX bool `yaml:"enable_ax"`

	// AutoConfirm skips the interactive step confirmation prompt.
	AutoConfirm bool `yaml:"auto_confirm"`
}

// ProviderConfig is one decision-maker profile.
type ProviderConfig struct {
	Name    string `yaml:"name"`               // anthropic, openai, gemini, ollama, deepseek, groq, openrouter, custom
	APIKey  string `yaml:"api_key,omitempty"`  // falls back to env, then keychain
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"` // OpenAI-compatible endpoints and Ollama
}

// EmbeddingConfig selects the embedding provider for semantic ranking.
type EmbeddingConfig struct {
	Provider string `yaml:"provider,omitempty"` // "openai", "ollama" or "" (disabled)
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
}

// BrowserConfig controls Chrome attachment.
type BrowserConfig struct {
	Path      string `yaml:"path,omitempty"` // Chrome executable override
	DebugPort int    `yaml:"debug_port"`     // CDP port, default 9222
	Headless  bool   `yaml:"headless"`
}

// DefaultDataDir returns ~/.wayfind.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".wayfind"
	}
	return filepath.Join(home, ".wayfind")
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:  DefaultDataDir(),
		Provider: "anthropic",
		Providers: []ProviderConfig{
			{Name: "anthropic", Model: "claude-sonnet-4-20250514"},
			{Name: "openai", Model: "gpt-4o-mini"},
			{Name: "gemini", Model: "gemini-2.0-flash"},
			{Name: "ollama", Model: "llama3.1", BaseURL: "http://localhost:11434"},
		},
		Browser: BrowserConfig{DebugPort: 9222},
	}
}

// Path returns the config file path for a data dir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, "config.yaml")
}

// Load loads config from ~/.wayfind/config.yaml, applying env overrides.
// A missing file yields the defaults.
func Load() (*Config, error) {
	return LoadFrom(Path(DefaultDataDir()))
}

// LoadFrom loads config from a specific path.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv fills provider keys from the conventional environment
// variables when the file carries none.
func (c *Config) applyEnv() {
	if v := os.Getenv("WAYFIND_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("WAYFIND_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	for i := range c.Providers {
		if c.Providers[i].APIKey != "" {
			continue
		}
		if v := os.Getenv(envKeyVar(c.Providers[i].Name)); v != "" {
			c.Providers[i].APIKey = v
		}
	}
	if c.Embedding.APIKey == "" && c.Embedding.Provider == "openai" {
		c.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

func envKeyVar(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	case "deepseek":
		return "DEEPSEEK_API_KEY"
	case "groq":
		return "GROQ_API_KEY"
	case "openrouter":
		return "OPENROUTER_API_KEY"
	default:
		return "WAYFIND_" + strings.ToUpper(provider) + "_API_KEY"
	}
}

// ActiveProvider returns the selected provider profile with its API key
// resolved (file, then env via applyEnv, then OS keychain).
func (c *Config) ActiveProvider() (ProviderConfig, error) {
	for _, p := range c.Providers {
		if p.Name != c.Provider {
			continue
		}
		if p.APIKey == "" && p.Name != "ollama" {
			if key, err := keyring.Get(keyringService, p.Name); err == nil {
				p.APIKey = key
			}
		}
		return p, nil
	}
	return ProviderConfig{}, fmt.Errorf("provider %q not configured", c.Provider)
}

// StoreKey saves a provider API key in the OS keychain.
func StoreKey(provider, key string) error {
	return keyring.Set(keyringService, provider, key)
}

// Save writes the config file, creating the data dir if needed.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(Path(c.DataDir), data, 0o644)
}
