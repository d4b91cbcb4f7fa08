package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/daresTheDevil/zeroshot/pkg/models"
)

// ProviderConfig is one entry in a ClusterConfig's provider table: a named
// backend (subprocess CLI or direct API) plus the per-Level model mapping
// spec.md §6 calls for ("per-provider mapping tables translate to concrete
// model ids").
type ProviderConfig struct {
	Name          string                    `yaml:"name"`
	Binary        string                    `yaml:"binary,omitempty"`
	UseAPI        bool                      `yaml:"use_api,omitempty"`
	MinLevel      models.Level              `yaml:"min_level,omitempty"`
	MaxLevel      models.Level              `yaml:"max_level,omitempty"`
	DefaultLevel  models.Level              `yaml:"default_level,omitempty"`
	SupportsEffort bool                     `yaml:"supports_effort,omitempty"`
	ModelMapping  map[models.Level]string   `yaml:"model_mapping,omitempty"`
}

// ResolveModel implements runtime.ModelResolver: it looks up level in the
// mapping table, clamping to the provider's bounds, and honors an effort
// override only when the provider declares support (spec.md §6).
func (p ProviderConfig) ResolveModel(level models.Level, effort models.ReasoningEffort) (string, models.ReasoningEffort) {
	l := p.clampLevel(level)
	resolved, ok := p.ModelMapping[l]
	if !ok {
		resolved = string(l)
	}
	if !p.SupportsEffort {
		effort = ""
	}
	return resolved, effort
}

func (p ProviderConfig) clampLevel(level models.Level) models.Level {
	if level == "" {
		if p.DefaultLevel != "" {
			return p.DefaultLevel
		}
		return models.Level2
	}
	order := map[models.Level]int{models.Level1: 1, models.Level2: 2, models.Level3: 3}
	lv, min, max := order[level], order[p.MinLevel], order[p.MaxLevel]
	if p.MinLevel != "" && lv < min {
		return p.MinLevel
	}
	if p.MaxLevel != "" && lv > max {
		return p.MaxLevel
	}
	return level
}

// ClusterConfig is the declarative wiring for one cluster (spec.md §3
// "Agent... declarative config"): the agent list, the provider table, and
// the seed event the Supervisor publishes on start.
type ClusterConfig struct {
	Agents      []models.AgentConfig `yaml:"agents"`
	Providers   []ProviderConfig     `yaml:"providers"`
	Provider    string               `yaml:"provider"`
	SeedTopic   string               `yaml:"seed_topic,omitempty"`
	SeedPayload map[string]any       `yaml:"seed_payload,omitempty"`
}

// Validate checks the invariants a cluster config must satisfy before a
// cluster can be started: at least one agent, a resolvable default
// provider, and agent ids unique within the cluster.
func (c ClusterConfig) Validate() error {
	if len(c.Agents) == 0 {
		return fmt.Errorf("cluster config: at least one agent is required")
	}
	seen := make(map[string]bool, len(c.Agents))
	for _, a := range c.Agents {
		if a.ID == "" {
			return fmt.Errorf("cluster config: agent with empty id")
		}
		if seen[a.ID] {
			return fmt.Errorf("cluster config: duplicate agent id %q", a.ID)
		}
		seen[a.ID] = true
	}
	if c.Provider == "" {
		return fmt.Errorf("cluster config: provider is required")
	}
	if _, ok := c.ProviderByName(c.Provider); !ok {
		return fmt.Errorf("cluster config: provider %q not present in providers list", c.Provider)
	}
	return nil
}

// ProviderByName looks up a named provider entry.
func (c ClusterConfig) ProviderByName(name string) (ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

// LoadClusterConfig reads and validates a cluster configuration file.
func LoadClusterConfig(path string) (ClusterConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ClusterConfig{}, fmt.Errorf("reading cluster config %s: %w", path, err)
	}

	var cfg ClusterConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ClusterConfig{}, fmt.Errorf("parsing cluster config %s: %w", path, err)
	}

	if cfg.SeedTopic == "" {
		cfg.SeedTopic = models.TopicIssueOpened
	}

	if err := cfg.Validate(); err != nil {
		return ClusterConfig{}, err
	}
	return cfg, nil
}
