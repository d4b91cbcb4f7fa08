package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daresTheDevil/zeroshot/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show resolved ambient settings",
	Long: `config prints the ambient settings zeroshot resolved for this
invocation (provider credentials, isolation defaults, stop grace period),
after applying the environment/project/user/default precedence described
in internal/config. It has no set/save form: settings are edited directly
in the settings.yaml file or overridden with environment variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		displayAllConfig(settings)
		return nil
	},
}

// displayAllConfig prints every resolved setting, masking the API key.
// Grounded on the teacher's cmd/alphie/config.go displayAllConfig, adapted
// from Alphie's tier/token-budget/quality-gate fields to zeroshot's
// provider-credential/isolation/stop-grace fields.
func displayAllConfig(cfg *config.Settings) {
	apiKeyDisplay := "(not set)"
	if cfg.Anthropic.APIKey != "" {
		apiKeyDisplay = "****"
	}

	fmt.Printf("anthropic.api_key: %s\n", apiKeyDisplay)
	fmt.Printf("anthropic.use_aws_bedrock: %t\n", cfg.Anthropic.UseAWSBedrock)
	fmt.Printf("anthropic.aws_region: %s\n", displayOrUnset(cfg.Anthropic.AWSRegion))
	fmt.Printf("anthropic.aws_profile: %s\n", displayOrUnset(cfg.Anthropic.AWSProfile))
	fmt.Printf("isolation.worktree_root: %s\n", displayOrUnset(cfg.Isolation.WorktreeRoot))
	fmt.Printf("isolation.container_image: %s\n", displayOrUnset(cfg.Isolation.ContainerImage))
	fmt.Printf("stop.grace_period: %s\n", cfg.Stop.GracePeriod)
}

func displayOrUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}
