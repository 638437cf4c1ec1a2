package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/amishk599/jobsieve/internal/api"
	"github.com/amishk599/jobsieve/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored jobs over HTTP",
	Long:  "Serves a read-only JSON API over the sqlite dedup store (/healthz, /jobs, /stats, /metrics).",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "listen address (overrides api.listen)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Dedup.Store != "sqlite" {
		return fmt.Errorf("serve needs dedup.store: sqlite, got %q", cfg.Dedup.Store)
	}
	addr := cfg.API.Listen
	if v, _ := cmd.Flags().GetString("listen"); v != "" {
		addr = v
	}

	st, err := store.NewSQLiteStore(cfg.Dedup.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if !viper.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.NewHandler(st, logger), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return api.NewServer(addr, router, logger).ListenAndServe(ctx)
}
