package main

import (
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
)

var killCmd = &cobra.Command{
	Use:   "kill <cluster-id>",
	Short: "Immediately tear down a running cluster",
	Long: `kill signals the process hosting the given cluster id to tear it
down immediately: every agent's child process group is signaled, isolation
is cleaned up without waiting, and the cluster is marked stopped. A
worktree's branch is preserved.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := readPID(args[0])
		if err != nil {
			return err
		}
		if err := syscall.Kill(pid, syscall.SIGUSR1); err != nil {
			return fmt.Errorf("signaling cluster %s (pid %d): %w", args[0], pid, err)
		}
		fmt.Printf("kill requested for cluster %s\n", args[0])
		return nil
	},
}

var killAllCmd = &cobra.Command{
	Use:   "kill-all",
	Short: "Kill every cluster with a recorded pidfile",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := listRunningClusterIDs()
		if err != nil {
			return err
		}
		for _, id := range ids {
			pid, err := readPID(id)
			if err != nil {
				continue
			}
			if err := syscall.Kill(pid, syscall.SIGUSR1); err != nil {
				fmt.Printf("cluster %s: %v\n", id, err)
				continue
			}
			fmt.Printf("kill requested for cluster %s\n", id)
		}
		return nil
	},
}

func init() {
	killCmd.AddCommand(killAllCmd)
}
