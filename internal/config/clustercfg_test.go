package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/daresTheDevil/zeroshot/pkg/models"
)

func TestProviderConfigResolveModelClampsAndMaps(t *testing.T) {
	p := ProviderConfig{
		Name:           "claude",
		MinLevel:       models.Level1,
		MaxLevel:       models.Level2,
		DefaultLevel:   models.Level2,
		SupportsEffort: true,
		ModelMapping:   map[models.Level]string{models.Level1: "haiku", models.Level2: "sonnet"},
	}

	if got, _ := p.ResolveModel(models.Level3, models.EffortHigh); got != "sonnet" {
		t.Errorf("ResolveModel(Level3) = %q, want clamped to Level2 mapping (sonnet)", got)
	}
	if got, effort := p.ResolveModel(models.Level1, models.EffortLow); got != "haiku" || effort != models.EffortLow {
		t.Errorf("ResolveModel(Level1) = (%q, %q), want (haiku, low)", got, effort)
	}
	if got, effort := p.ResolveModel("", ""); got != "sonnet" || effort != "" {
		t.Errorf("ResolveModel(empty level) = (%q, %q), want default level's mapping (sonnet)", got, effort)
	}
}

func TestProviderConfigResolveModelDropsEffortWhenUnsupported(t *testing.T) {
	p := ProviderConfig{ModelMapping: map[models.Level]string{models.Level2: "sonnet"}}
	_, effort := p.ResolveModel(models.Level2, models.EffortHigh)
	if effort != "" {
		t.Errorf("effort = %q, want empty (provider does not support effort overrides)", effort)
	}
}

func TestClusterConfigValidateRequiresAgents(t *testing.T) {
	c := ClusterConfig{Provider: "claude", Providers: []ProviderConfig{{Name: "claude"}}}
	if err := c.Validate(); err == nil {
		t.Error("expected error for a cluster config with no agents")
	}
}

func TestClusterConfigValidateRejectsDuplicateAgentIDs(t *testing.T) {
	c := ClusterConfig{
		Agents:    []models.AgentConfig{{ID: "a"}, {ID: "a"}},
		Provider:  "claude",
		Providers: []ProviderConfig{{Name: "claude"}},
	}
	if err := c.Validate(); err == nil {
		t.Error("expected error for duplicate agent ids")
	}
}

func TestClusterConfigValidateRejectsUnknownProvider(t *testing.T) {
	c := ClusterConfig{
		Agents:   []models.AgentConfig{{ID: "a"}},
		Provider: "missing",
	}
	if err := c.Validate(); err == nil {
		t.Error("expected error when the default provider isn't in the providers list")
	}
}

func TestLoadClusterConfigFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cluster.yaml")
	content := `
providers:
  - name: claude
    binary: claude
    default_level: level2
    model_mapping:
      level2: claude-sonnet-4
agents:
  - id: worker
    role: worker
    prompt: "do {{task}}"
    triggers:
      - topic: ISSUE_OPENED
        action:
          kind: execute_task
provider: claude
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadClusterConfig(path)
	if err != nil {
		t.Fatalf("LoadClusterConfig: %v", err)
	}
	if len(cfg.Agents) != 1 || cfg.Agents[0].ID != "worker" {
		t.Fatalf("Agents = %+v", cfg.Agents)
	}
	if cfg.SeedTopic != models.TopicIssueOpened {
		t.Errorf("SeedTopic = %q, want default ISSUE_OPENED", cfg.SeedTopic)
	}
}

func TestLoadClusterConfigMissingFile(t *testing.T) {
	if _, err := LoadClusterConfig("/nonexistent/cluster.yaml"); err == nil {
		t.Error("expected error for missing cluster config file")
	}
}
