package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsieve/internal/sink"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification subcommands",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test notification",
	Long:  "Sends a test job to every configured slack sink.",
	RunE:  runNotifyTest,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyTestCmd)
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.Fetch.Timeout}
	ctx := context.Background()
	sent := 0
	var errs []error
	for _, sc := range cfg.Sinks {
		if sc.Type != "slack" {
			continue
		}
		s, err := sink.Open(ctx, sink.Config{Type: sc.Type, WebhookURL: sc.WebhookURL}, httpClient, logger)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := sink.SendTestMessage(ctx, s); err != nil {
			errs = append(errs, err)
		} else {
			sent++
		}
		_ = s.Close()
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("test notification failed: %w", err)
	}
	if sent == 0 {
		return errors.New("no slack sink configured")
	}
	logger.Info("test notification sent successfully", "sinks", sent)
	return nil
}
