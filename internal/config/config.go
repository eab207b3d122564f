// Package config loads threechat settings from config.toml and the
// environment.
//
// Precedence, lowest first: built-in defaults, ~/.config/threechat/config.toml,
// environment variables (a .env file in the working directory is loaded into
// the environment by main).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"threechat/internal/db"
	"threechat/internal/persona"

	"github.com/BurntSushi/toml"
)

const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
)

type Config struct {
	// Provider selects the model backend: gemini, openrouter or openai
	Provider string `toml:"provider"`
	// APIKey is the credential for Provider. Its absence is reported when a
	// session is bound, not at startup.
	APIKey string `toml:"api_key"`
	// Model overrides the provider's default model
	Model string `toml:"model"`
	// BaseURL overrides the provider endpoint
	BaseURL string `toml:"base_url"`

	// Storage picks the history backend: sqlite or bolt
	Storage        string `toml:"storage"`
	DBPath         string `toml:"db_path"`
	LogPath        string `toml:"log_path"`
	DefaultPersona string `toml:"default_persona"`
}

// Dir returns the threechat config directory.
func Dir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, herr := os.UserHomeDir()
		if herr != nil {
			return "", err
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "threechat"), nil
}

// DefaultPath is the config.toml location, or "" if no config dir exists.
func DefaultPath() string {
	dir, err := Dir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "config.toml")
}

func Default() *Config {
	cfg := &Config{
		Provider:       ProviderGemini,
		Storage:        db.BackendSQLite,
		DefaultPersona: persona.Default().ID,
	}
	if p, err := db.DefaultPath(); err == nil {
		cfg.DBPath = p
	}
	if dir, err := Dir(); err == nil {
		cfg.LogPath = filepath.Join(dir, "threechat.log")
	}
	return cfg
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys in config %s: %v", path, undecoded)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the environment. getenv is os.Getenv
// outside of tests.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("THREECHAT_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := getenv("THREECHAT_MODEL"); v != "" {
		c.Model = v
	}
	if v := getenv("THREECHAT_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := getenv("THREECHAT_STORAGE"); v != "" {
		c.Storage = v
	}
	if v := getenv("THREECHAT_DB"); v != "" {
		c.DBPath = v
	}
	if v := getenv("THREECHAT_LOG"); v != "" {
		c.LogPath = v
	}
	if v := getenv("THREECHAT_PERSONA"); v != "" {
		c.DefaultPersona = v
	}

	if v := getenv("API_KEY"); v != "" {
		c.APIKey = v
		return
	}
	var providerKey string
	switch c.Provider {
	case ProviderGemini:
		providerKey = getenv("GEMINI_API_KEY")
	case ProviderOpenRouter:
		providerKey = getenv("OPENROUTER_API_KEY")
	case ProviderOpenAI:
		providerKey = getenv("OPENAI_API_KEY")
	}
	if providerKey != "" {
		c.APIKey = providerKey
	}
}

func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderOpenRouter, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown provider %q (supported: %s, %s, %s)",
			c.Provider, ProviderGemini, ProviderOpenRouter, ProviderOpenAI)
	}
	switch c.Storage {
	case db.BackendSQLite, db.BackendBolt:
	default:
		return fmt.Errorf("unknown storage %q (supported: %s, %s)", c.Storage, db.BackendSQLite, db.BackendBolt)
	}
	if c.DBPath == "" {
		return errors.New("db path cannot be empty")
	}
	if _, ok := persona.Find(c.DefaultPersona); !ok {
		return fmt.Errorf("unknown default persona %q", c.DefaultPersona)
	}
	return nil
}
