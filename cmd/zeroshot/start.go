package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/daresTheDevil/zeroshot/internal/config"
	"github.com/daresTheDevil/zeroshot/internal/orchestrator"
	"github.com/daresTheDevil/zeroshot/internal/tui"
	"github.com/daresTheDevil/zeroshot/pkg/models"
)

var (
	startWorktree   bool
	startDocker     bool
	startRepoRoot   string
	startImage      string
	startMaxRetries int
	startSeedTopic  string
)

var startCmd = &cobra.Command{
	Use:   "start <cluster-config.yaml>",
	Short: "Start a cluster from a declarative config and run it to completion",
	Long: `start loads a cluster configuration file, provisions isolation if
requested, and runs the cluster in the foreground: agents drive themselves
off the bus until a stop_cluster action fires, the process receives
SIGINT/SIGTERM (graceful stop), or SIGUSR1 (immediate kill).`,
	Args: cobra.ExactArgs(1),
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVar(&startWorktree, "worktree", false, "isolate the cluster in a git worktree")
	startCmd.Flags().BoolVar(&startDocker, "docker", false, "isolate the cluster in a container")
	startCmd.Flags().StringVar(&startRepoRoot, "repo-root", "", "repository root for worktree isolation, or bind-mount source for docker")
	startCmd.Flags().StringVar(&startImage, "image", "", "container image (docker isolation only)")
	startCmd.Flags().IntVar(&startMaxRetries, "max-retries", 3, "max execute_task retries per agent before giving up")
	startCmd.Flags().StringVar(&startSeedTopic, "seed-topic", "", "override the cluster config's seed topic")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadClusterConfig(args[0])
	if err != nil {
		return err
	}

	providerCfg, _ := cfg.ProviderByName(cfg.Provider)
	if !providerCfg.UseAPI {
		if err := checkProviderCLI(providerCfg.Binary); err != nil {
			return err
		}
	}

	settings, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	sup, err := orchestrator.NewSupervisor(settings)
	if err != nil {
		return fmt.Errorf("constructing supervisor: %w", err)
	}
	defer sup.Close()

	ctx := context.Background()
	id, err := sup.Start(ctx, cfg, orchestrator.SeedEvent{Topic: startSeedTopic}, orchestrator.StartOptions{
		Worktree:       startWorktree,
		Docker:         startDocker,
		RepoRoot:       startRepoRoot,
		ContainerImage: startImage,
		MaxRetries:     startMaxRetries,
	})
	if err != nil {
		return fmt.Errorf("starting cluster: %w", err)
	}
	fmt.Printf("cluster started: %s\n", id)

	if err := writePIDFile(id); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v (stop/kill by cluster id won't work for this run)\n", err)
	}
	defer removePIDFile(id)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGUSR1 {
				fmt.Println("received kill signal, tearing down immediately")
				_ = sup.Kill(ctx, id)
			} else {
				fmt.Println("received stop signal, shutting down gracefully")
				_ = sup.Stop(ctx, id)
			}
		case <-ticker.C:
			summary, ok := sup.GetCluster(id)
			if !ok {
				return fmt.Errorf("cluster %s disappeared from the registry", id)
			}
			fmt.Println(tui.PlainStatus(summary, nil))
			if summary.State == models.ClusterStopped {
				return nil
			}
			if summary.State == models.ClusterError {
				return fmt.Errorf("cluster %s ended in error state", id)
			}
		}
	}
}
