package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

// checkProviderCLI verifies that binary is available in PATH, generalized
// from the teacher's CheckClaudeCLI to any configured provider binary
// rather than a hardcoded "claude".
func checkProviderCLI(binary string) error {
	if binary == "" {
		return nil
	}
	if _, err := exec.LookPath(binary); err != nil {
		return fmt.Errorf("provider binary %q not found in PATH\n\n"+
			"Install it, or configure a different provider's binary path, or\n"+
			"switch the cluster config's provider entry to use_api: true", binary)
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "zeroshot",
	Short: "Declarative multi-agent cluster orchestrator",
	Long: `zeroshot starts clusters of independent agents that drive themselves
off a shared event bus: each agent evaluates its triggers against new
events, spawns a provider CLI or calls a provider API directly, and
publishes the result back onto the bus.

Clusters are declared, not scripted: agents, triggers, hooks, and prompts
all live in one YAML cluster configuration file.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(killCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
