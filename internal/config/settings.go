// Package config loads zeroshot's ambient settings (provider credentials,
// grace-period tuning) and declarative cluster configuration. Grounded on
// the teacher's internal/config/config.go: same XDG + project-override +
// environment-variable layering via spf13/viper, generalized from Alphie's
// fixed section set to zeroshot's provider/isolation/timeout settings and
// from ".alphie.yaml"/"alphie" paths to ZEROSHOT_SETTINGS_FILE (spec.md §6).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Settings holds the ambient configuration surrounding a cluster run:
// nothing here is part of the core spec.md contract, but every real
// deployment needs it (credential lookup, grace windows, worktree root).
type Settings struct {
	Anthropic AnthropicSettings `mapstructure:"anthropic"`
	Isolation IsolationSettings `mapstructure:"isolation"`
	Stop      StopSettings      `mapstructure:"stop"`
}

// AnthropicSettings holds direct-API credentials (spec.md §6's
// ANTHROPIC_API_KEY environment contract, plus optional Bedrock routing).
type AnthropicSettings struct {
	APIKey        string `mapstructure:"api_key"`
	UseAWSBedrock bool   `mapstructure:"use_aws_bedrock"`
	AWSRegion     string `mapstructure:"aws_region"`
	AWSProfile    string `mapstructure:"aws_profile"`
}

// IsolationSettings configures where worktrees/containers are provisioned.
type IsolationSettings struct {
	WorktreeRoot   string `mapstructure:"worktree_root"`
	ContainerImage string `mapstructure:"container_image"`
}

// StopSettings configures the Supervisor's graceful-stop grace window
// (spec.md §9's open question: "expose it as a configurable duration with a
// conservative default").
type StopSettings struct {
	GracePeriod time.Duration `mapstructure:"grace_period"`
}

// Load loads Settings with the same precedence as the teacher's Load:
// environment variables highest, then project config, then user config,
// then built-in defaults.
//
// Precedence (highest to lowest):
//  1. Environment variables (ANTHROPIC_API_KEY, ZEROSHOT_SETTINGS_FILE)
//  2. Project config (.zeroshot.yaml in the working directory or a parent)
//  3. User config (XDG_CONFIG_HOME/zeroshot/settings.yaml)
//  4. Built-in defaults
func Load() (*Settings, error) {
	v := viper.New()
	setSettingsDefaults(v)

	if explicit := os.Getenv("ZEROSHOT_SETTINGS_FILE"); explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading ZEROSHOT_SETTINGS_FILE=%s: %w", explicit, err)
		}
	} else {
		userConfigDir := userConfigDir()
		v.SetConfigName("settings")
		v.SetConfigType("yaml")
		v.AddConfigPath(userConfigDir)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading user settings: %w", err)
			}
		}

		if projectFile := findProjectSettings(); projectFile != "" {
			pv := viper.New()
			pv.SetConfigFile(projectFile)
			if err := pv.ReadInConfig(); err == nil {
				if err := v.MergeConfigMap(pv.AllSettings()); err != nil {
					return nil, fmt.Errorf("merging project settings: %w", err)
				}
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("unmarshaling settings: %w", err)
	}
	s.Anthropic.APIKey = os.ExpandEnv(s.Anthropic.APIKey)

	return s, nil
}

func setSettingsDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.use_aws_bedrock", false)
	v.SetDefault("isolation.worktree_root", filepath.Join(os.TempDir(), "zeroshot-worktrees"))
	v.SetDefault("isolation.container_image", "ubuntu:24.04")
	v.SetDefault("stop.grace_period", "5s")
}

// userConfigDir returns zeroshot's XDG config directory.
func userConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "zeroshot")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "zeroshot")
	}
	return filepath.Join(home, ".config", "zeroshot")
}

// findProjectSettings looks for .zeroshot.yaml in the current directory and
// its ancestors, matching the teacher's findProjectConfig walk.
func findProjectSettings() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(cwd, ".zeroshot.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			return ""
		}
		cwd = parent
	}
}
