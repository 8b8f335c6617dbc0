// Package config assembles runtime configuration from defaults, an optional
// .env file, and CALLSIGHT_* environment variables, in that order of
// precedence (later layers win).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/callsight-ai/callsight/internal/provider"
)

type Config struct {
	Server   ServerConfig
	Provider ProviderConfig
	Storage  StorageConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port      int
	AuthToken string
}

type ProviderConfig struct {
	Name    string
	Model   string
	APIKey  string
	BaseURL string
}

type StorageConfig struct {
	DataDir string
	// RetentionDays of 0 disables history pruning.
	RetentionDays int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4600,
		},
		Provider: ProviderConfig{
			Name:  provider.NameOpenAI,
			Model: "gpt-4o-mini",
		},
		Storage: StorageConfig{
			DataDir:       defaultDataDir(),
			RetentionDays: 90,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a .env file in the working directory (if
// present) and CALLSIGHT_* environment variables. Missing .env is not an
// error; env vars always win over file values.
func Load() (Config, error) {
	return loadFrom(".env")
}

func loadFrom(envFile string) (Config, error) {
	cfg := defaults()

	if _, err := os.Stat(envFile); err == nil {
		// godotenv.Load never overwrites variables already set in the
		// environment, which gives env vars precedence for free.
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("reading %s: %w", envFile, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Provider.Name {
	case provider.NameOpenAI, provider.NameAnthropic:
	default:
		return fmt.Errorf("unknown provider %q (supported: %s, %s)",
			c.Provider.Name, provider.NameOpenAI, provider.NameAnthropic)
	}
	if c.Provider.APIKey == "" {
		return fmt.Errorf("missing required config: provider API key. Set CALLSIGHT_API_KEY or add it to .env")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Storage.RetentionDays < 0 {
		return fmt.Errorf("retention days must not be negative, got %d", c.Storage.RetentionDays)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}

// ProviderSettings translates the provider section for the provider
// constructor.
func (c Config) ProviderSettings() provider.Config {
	return provider.Config{
		Name:    c.Provider.Name,
		Model:   c.Provider.Model,
		APIKey:  c.Provider.APIKey,
		BaseURL: c.Provider.BaseURL,
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".callsight"
	}
	return filepath.Join(home, ".callsight")
}
