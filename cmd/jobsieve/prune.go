package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsieve/internal/store"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete stored records older than the retention window",
	RunE:  runPrune,
}

func init() {
	pruneCmd.Flags().Duration("older-than", 0, "retention window (overrides dedup.retention)")
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Dedup.Store != "sqlite" {
		logger.Info("memory store keeps nothing between runs, nothing to prune")
		return nil
	}
	retention := cfg.Dedup.Retention
	if d, _ := cmd.Flags().GetDuration("older-than"); d > 0 {
		retention = d
	}
	if retention <= 0 {
		return fmt.Errorf("retention must be positive, got %s", retention)
	}

	st, err := store.NewSQLiteStore(cfg.Dedup.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	n, err := st.Cleanup(retention)
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	logger.Info("pruned records", "deleted", n, "older_than", retention.String())
	return nil
}
