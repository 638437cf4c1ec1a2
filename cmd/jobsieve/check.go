package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsieve/internal/model"
	"github.com/amishk599/jobsieve/internal/sink"
	"github.com/amishk599/jobsieve/internal/store"
)

var checkCmd = &cobra.Command{
	Use:    "check",
	Short:  "Run once, log matches, exit",
	Long:   "One-shot run over a throwaway memory store: relevant jobs are logged instead of written to the configured sinks, and nothing is persisted.",
	PreRun: func(cmd *cobra.Command, args []string) { bindRunFlags(cmd) },
	RunE:   runCheck,
}

func init() {
	addRunFlags(checkCmd)
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("check mode: no records will be persisted")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := a.newPipeline(ctx, store.NewMemoryStore(), []model.Sink{sink.NewLogSink(logger)})
	if err != nil {
		return err
	}
	summary, err := p.Run(ctx)
	fmt.Println(renderSummary(summary))
	return err
}
