package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsieve/internal/metrics"
	"github.com/amishk599/jobsieve/internal/model"
	"github.com/amishk599/jobsieve/internal/scheduler"
	"github.com/amishk599/jobsieve/internal/store"
)

var watchCmd = &cobra.Command{
	Use:    "watch",
	Short:  "Run the pipeline on a schedule",
	Long:   "Runs the pipeline immediately and then every schedule.interval; blocks until SIGINT/SIGTERM.",
	PreRun: func(cmd *cobra.Command, args []string) { bindRunFlags(cmd) },
	RunE:   runWatch,
}

func init() {
	addRunFlags(watchCmd)
	watchCmd.Flags().Duration("interval", 0, "time between runs (overrides schedule.interval)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if d, _ := cmd.Flags().GetDuration("interval"); d > 0 {
		cfg.Schedule.Interval = d
	}
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("config loaded",
		"interval", cfg.Schedule.Interval.String(),
		"sources", len(cfg.EnabledSources()),
		"sinks", len(cfg.Sinks),
		"store", cfg.Dedup.Store,
	)

	lock, err := acquireRunLock(cfg.Dedup.Store, cfg.Dedup.Path)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A persistent store spans runs; a memory store is rebuilt for each run
	// so that every run starts from an empty fingerprint set.
	var persistent *store.SQLiteStore
	if cfg.Dedup.Store == "sqlite" {
		if persistent, err = store.NewSQLiteStore(cfg.Dedup.Path); err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer persistent.Close()
	}

	sinks, err := a.openSinks(ctx)
	if err != nil {
		return err
	}
	defer closeSinks(sinks, logger)

	if cfg.Metrics.Listen != "" {
		srv := metrics.Start(cfg.Metrics.Listen, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(shutdownCtx)
		}()
	}

	runner := scheduler.RunnerFunc(func(ctx context.Context) (*model.RunSummary, error) {
		var st recordStore = persistent
		if persistent == nil {
			st = store.NewMemoryStore()
		}
		p, err := a.newPipeline(ctx, st, sinks)
		if err != nil {
			return nil, err
		}
		return p.Run(ctx)
	})

	sched := scheduler.NewScheduler(runner, cfg.Schedule.Interval, logger)
	if persistent != nil {
		sched = sched.WithPruner(persistent, cfg.Dedup.Retention)
	}
	if err := sched.Run(ctx); err != nil {
		return err
	}

	logger.Info("goodbye")
	return nil
}
