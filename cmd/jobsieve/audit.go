package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsieve/internal/adapter"
	"github.com/amishk599/jobsieve/internal/audit"
	"github.com/amishk599/jobsieve/internal/config"
	"github.com/amishk599/jobsieve/internal/dedup"
	"github.com/amishk599/jobsieve/internal/model"
	"github.com/amishk599/jobsieve/internal/pipeline"
	"github.com/amishk599/jobsieve/internal/store"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Browse scored jobs interactively (TUI)",
	Long:  "Shows the source picker TUI, crawls the chosen source without writing anything, then launches the split-pane audit view.",
	RunE:  runAuditCmd,
}

func init() {
	rootCmd.AddCommand(auditCmd)
}

func runAuditCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Any log output before the alt-screen starts corrupts the display.
	silentLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := newApp(cfg, silentLogger)
	if err != nil {
		return err
	}
	return runAudit(a)
}

func runAudit(a *app) error {
	enabled := a.cfg.EnabledSources()
	if len(enabled) == 0 {
		fmt.Println("No enabled sources in config.")
		return nil
	}

	for {
		choice, err := audit.RunSourcePicker(enabled)
		if err != nil {
			return fmt.Errorf("picker: %w", err)
		}
		if choice < 0 {
			return nil
		}
		src := enabled[choice]

		records, err := audit.RunLoader(src.Name, a.crawlSource(src), a.runTimeout())
		if err != nil {
			fmt.Printf("Error crawling %s: %v\n", src.Name, err)
			continue
		}

		wantQuit, err := audit.RunAuditTUI(records, a.cfg.Relevance.MinRelevanceScore)
		if err != nil {
			fmt.Printf("TUI error: %v\n", err)
		}
		if wantQuit {
			return nil
		}
		// else: loop → back to picker
	}
}

// crawlSource returns a crawl of one source through a sink-less pipeline over
// a throwaway memory store. The returned records are every unique record the
// source produced, classified.
func (a *app) crawlSource(src config.SourceConfig) audit.CrawlFunc {
	return func(ctx context.Context) ([]model.JobRecord, error) {
		ad, err := a.adapter(ctx, src)
		if err != nil {
			return nil, err
		}
		deduplicator := dedup.New(store.NewMemoryStore(), a.policy)
		p, err := pipeline.New([]*adapter.Adapter{ad},
			a.normalizer(), deduplicator, a.classifier, nil, a.options(), a.logger)
		if err != nil {
			return nil, err
		}

		_, runErr := p.Run(ctx)
		records, err := deduplicator.Records(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		var rf *model.RunFailure
		if len(records) == 0 && errors.As(runErr, &rf) {
			return nil, rf
		}
		return records, nil
	}
}
