package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("ZEROSHOT_SETTINGS_FILE", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	s, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Stop.GracePeriod.Seconds() != 5 {
		t.Errorf("GracePeriod = %v, want 5s default", s.Stop.GracePeriod)
	}
	if s.Isolation.ContainerImage != "ubuntu:24.04" {
		t.Errorf("ContainerImage = %q, want ubuntu:24.04 default", s.Isolation.ContainerImage)
	}
}

func TestLoadEnvOverridesAPIKey(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("ZEROSHOT_SETTINGS_FILE", "")
	t.Setenv("ANTHROPIC_API_KEY", "env-key")

	s, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Anthropic.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env-key from environment", s.Anthropic.APIKey)
	}
}

func TestLoadExplicitSettingsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom-settings.yaml")
	content := "stop:\n  grace_period: 10s\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("ZEROSHOT_SETTINGS_FILE", path)
	t.Setenv("ANTHROPIC_API_KEY", "")

	s, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Stop.GracePeriod.Seconds() != 10 {
		t.Errorf("GracePeriod = %v, want 10s from explicit settings file", s.Stop.GracePeriod)
	}
}

func TestLoadMissingExplicitSettingsFileErrors(t *testing.T) {
	t.Setenv("ZEROSHOT_SETTINGS_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := Load(); err == nil {
		t.Error("expected error when ZEROSHOT_SETTINGS_FILE points to a missing file")
	}
}
