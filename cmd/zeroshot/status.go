package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daresTheDevil/zeroshot/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recently recorded clusters",
	Long: `status reads the ledger mirror database (project-local first, then
the global one) and lists clusters that have been recorded, along with
their last known state, token usage, and cost. This is observability only:
a cluster still running in another process is reflected here only as of
its last mirrored event.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	dbPath := state.ProjectDBPath(cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		dbPath = state.GlobalDBPath()
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No recorded clusters. Run 'zeroshot start <config.yaml>' to start one.")
		return nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	rows, err := db.Query(`SELECT id, state, isolation_kind, tokens_used, cost_usd, created_at FROM clusters ORDER BY created_at DESC LIMIT 20`)
	if err != nil {
		return fmt.Errorf("querying clusters: %w", err)
	}
	defer rows.Close()

	printed := false
	for rows.Next() {
		var id, clusterState, isolationKind, createdAt string
		var tokens int64
		var cost float64
		if err := rows.Scan(&id, &clusterState, &isolationKind, &tokens, &cost, &createdAt); err != nil {
			return fmt.Errorf("scanning cluster row: %w", err)
		}
		fmt.Printf("%s  %-12s  isolation=%-10s  %6d tok  $%.4f  started %s\n", id, clusterState, isolationKind, tokens, cost, createdAt)
		printed = true
	}
	if !printed {
		fmt.Println("No recorded clusters. Run 'zeroshot start <config.yaml>' to start one.")
	}
	return nil
}
