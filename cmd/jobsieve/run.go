package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobsieve/internal/model"
	"github.com/amishk599/jobsieve/internal/store"
)

var runCmd = &cobra.Command{
	Use:    "run",
	Short:  "Run the pipeline once",
	Long:   "Crawls every enabled source once, writes relevant jobs to the configured sinks and prints a per-source summary.",
	PreRun: func(cmd *cobra.Command, args []string) { bindRunFlags(cmd) },
	RunE:   runRun,
}

func init() {
	addRunFlags(runCmd)
	runCmd.Flags().Bool("dry-run", false, "crawl and score without writing to any sink")
	rootCmd.AddCommand(runCmd)
	rootCmd.PreRun = func(cmd *cobra.Command, args []string) { bindRunFlags(cmd) }
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}

	lock, err := acquireRunLock(cfg.Dedup.Store, cfg.Dedup.Path)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A dry run must not mark anything as seen, so it never touches the
	// persistent store.
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	var (
		st    recordStore = store.NewMemoryStore()
		sinks []model.Sink
	)
	if dryRun {
		logger.Info("dry run, sinks and persistent store disabled")
	} else {
		if st, err = a.openStore(); err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		if sinks, err = a.openSinks(ctx); err != nil {
			st.Close()
			return err
		}
		defer closeSinks(sinks, logger)
	}
	defer st.Close()

	p, err := a.newPipeline(ctx, st, sinks)
	if err != nil {
		return err
	}

	summary, err := p.Run(ctx)
	fmt.Println(renderSummary(summary))
	return err
}

// acquireRunLock takes the non-blocking process lock guarding the dedup store.
func acquireRunLock(storeKind, dbPath string) (*flock.Flock, error) {
	path := lockPath(storeKind, dbPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another jobsieve process holds %s", path)
	}
	return lock, nil
}

// lockPath returns the file guarding the dedup store against concurrent
// runs. A memory store has nothing to guard on disk, so its lock lives in the
// temp dir and only serializes runs on this host.
func lockPath(storeKind, dbPath string) string {
	if storeKind == "sqlite" && dbPath != "" {
		return dbPath + ".lock"
	}
	return filepath.Join(os.TempDir(), "jobsieve.lock")
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Padding(0, 1)
)

// renderSummary formats a run summary as a per-source table plus totals.
func renderSummary(s *model.RunSummary) string {
	if s == nil {
		return ""
	}
	failed := make(map[int]bool)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Source", "Fetched", "Dropped", "New", "Merged", "Dupes", "Fallbacks", "Kept", "Written", "Errors")

	row := 0
	for _, name := range s.Sources() {
		st := s.PerSource[name]
		if st.Failed {
			failed[row] = true
		}
		t.Row(name, itoa(st.Fetched), itoa(st.Dropped), itoa(st.Deduped), itoa(st.Merged),
			itoa(st.Duplicates), itoa(st.Fallbacks), itoa(st.Kept), itoa(st.Written), itoa(st.Errors))
		row++
	}
	tot := s.Totals()
	t.Row("total", itoa(tot.Fetched), itoa(tot.Dropped), itoa(tot.Deduped), itoa(tot.Merged),
		itoa(tot.Duplicates), itoa(tot.Fallbacks), itoa(tot.Kept), itoa(s.Written), itoa(tot.Errors))

	t.StyleFunc(func(r, c int) lipgloss.Style {
		switch {
		case r == table.HeaderRow:
			return headerStyle
		case failed[r]:
			return failedStyle
		default:
			return cellStyle
		}
	})

	out := fmt.Sprintf("run %s\n%s", s.RunID, t.Render())
	if s.SinkErrors > 0 {
		out += fmt.Sprintf("\n%d sink error(s)", s.SinkErrors)
	}
	return out
}

func itoa(n int) string { return strconv.Itoa(n) }
