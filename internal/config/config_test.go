package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// clearEnv blanks every CALLSIGHT_* variable the loader reads so values from
// the developer's shell cannot leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
		os.Unsetenv(s.env)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("CALLSIGHT_API_KEY", "sk-test")

	cfg, err := loadFrom(filepath.Join(t.TempDir(), "absent.env"))
	if err != nil {
		t.Fatalf("loadFrom: %v", err)
	}
	if cfg.Provider.Name != "openai" {
		t.Errorf("Provider.Name = %q, want openai", cfg.Provider.Name)
	}
	if cfg.Server.Port != 4600 {
		t.Errorf("Server.Port = %d, want 4600", cfg.Server.Port)
	}
	if cfg.Storage.RetentionDays != 90 {
		t.Errorf("RetentionDays = %d, want 90", cfg.Storage.RetentionDays)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CALLSIGHT_API_KEY", "sk-test")
	t.Setenv("CALLSIGHT_PROVIDER", "anthropic")
	t.Setenv("CALLSIGHT_MODEL", "claude-sonnet-4-20250514")
	t.Setenv("CALLSIGHT_SERVER_PORT", "9100")
	t.Setenv("CALLSIGHT_RETENTION_DAYS", "7")

	cfg, err := loadFrom(filepath.Join(t.TempDir(), "absent.env"))
	if err != nil {
		t.Fatalf("loadFrom: %v", err)
	}
	if cfg.Provider.Name != "anthropic" {
		t.Errorf("Provider.Name = %q", cfg.Provider.Name)
	}
	if cfg.Provider.Model != "claude-sonnet-4-20250514" {
		t.Errorf("Provider.Model = %q", cfg.Provider.Model)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Storage.RetentionDays != 7 {
		t.Errorf("RetentionDays = %d", cfg.Storage.RetentionDays)
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	content := "CALLSIGHT_API_KEY=sk-from-file\nCALLSIGHT_MODEL=gpt-4o\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadFrom(envFile)
	if err != nil {
		t.Fatalf("loadFrom: %v", err)
	}
	if cfg.Provider.APIKey != "sk-from-file" {
		t.Errorf("APIKey = %q, want value from env file", cfg.Provider.APIKey)
	}
	if cfg.Provider.Model != "gpt-4o" {
		t.Errorf("Model = %q", cfg.Provider.Model)
	}
}

func TestLoadEnvWinsOverFile(t *testing.T) {
	clearEnv(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte("CALLSIGHT_API_KEY=sk-from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CALLSIGHT_API_KEY", "sk-from-env")

	cfg, err := loadFrom(envFile)
	if err != nil {
		t.Fatalf("loadFrom: %v", err)
	}
	if cfg.Provider.APIKey != "sk-from-env" {
		t.Errorf("APIKey = %q, env var should win over file", cfg.Provider.APIKey)
	}
}

func TestLoadMissingAPIKey(t *testing.T) {
	clearEnv(t)

	_, err := loadFrom(filepath.Join(t.TempDir(), "absent.env"))
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
	if !strings.Contains(err.Error(), "CALLSIGHT_API_KEY") {
		t.Errorf("error should name the env var: %v", err)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"unknown provider", map[string]string{"CALLSIGHT_PROVIDER": "bard"}},
		{"bad port", map[string]string{"CALLSIGHT_SERVER_PORT": "70000"}},
		{"non-numeric port", map[string]string{"CALLSIGHT_SERVER_PORT": "eighty"}},
		{"negative retention", map[string]string{"CALLSIGHT_RETENTION_DAYS": "-1"}},
		{"unknown log level", map[string]string{"CALLSIGHT_LOG_LEVEL": "verbose"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("CALLSIGHT_API_KEY", "sk-test")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := loadFrom(filepath.Join(t.TempDir(), "absent.env")); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
