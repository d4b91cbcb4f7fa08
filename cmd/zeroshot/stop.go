package main

import (
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop <cluster-id>",
	Short: "Request graceful shutdown of a running cluster",
	Long: `stop signals the process hosting the given cluster id to begin a
graceful shutdown: no new triggers fire, in-flight executions are given a
grace window to finish, then isolation is cleaned up.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := readPID(args[0])
		if err != nil {
			return err
		}
		if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
			return fmt.Errorf("signaling cluster %s (pid %d): %w", args[0], pid, err)
		}
		fmt.Printf("stop requested for cluster %s\n", args[0])
		return nil
	},
}
