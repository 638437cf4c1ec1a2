// Package sink delivers finished job records to files, databases and
// notification channels.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/amishk599/jobsieve/internal/model"
)

// Config describes one configured sink.
type Config struct {
	Type       string // csv, jsonl, json, html, markdown, sqlite, postgres, log, slack
	Path       string // file or directory for file sinks, database file for sqlite
	DSN        string // postgres connection string
	WebhookURL string // slack incoming webhook
}

// Open creates the sink described by cfg.
func Open(ctx context.Context, cfg Config, client *http.Client, logger *slog.Logger) (model.Sink, error) {
	switch cfg.Type {
	case "csv":
		return NewCSVSink(cfg.Path)
	case "jsonl":
		return NewJSONLSink(cfg.Path)
	case "json":
		return NewSiteSink(cfg.Path, false)
	case "html":
		return NewSiteSink(cfg.Path, true)
	case "markdown":
		return NewMarkdownSink(cfg.Path), nil
	case "sqlite":
		return NewSQLiteSink(cfg.Path)
	case "postgres":
		return NewPostgresSink(ctx, cfg.DSN)
	case "log":
		return NewLogSink(logger), nil
	case "slack":
		if client == nil {
			client = http.DefaultClient
		}
		return NewSlackSink(cfg.WebhookURL, client, logger), nil
	default:
		return nil, fmt.Errorf("unknown sink type %q", cfg.Type)
	}
}

// Multi fans a batch out to several sinks. Every sink is attempted; the
// failures are joined.
type Multi []model.Sink

var _ model.Sink = Multi(nil)

func (m Multi) Name() string {
	names := make([]string, len(m))
	for i, s := range m {
		names[i] = nameOf(s)
	}
	return "multi(" + strings.Join(names, ",") + ")"
}

func (m Multi) Write(ctx context.Context, records []model.JobRecord) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, records); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", nameOf(s), err))
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", nameOf(s), err))
		}
	}
	return errors.Join(errs...)
}

func nameOf(s model.Sink) string {
	if n, ok := s.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}

// ensureDir creates the parent directory of path.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// writeFileAtomic replaces path with data via a temp file and rename.
func writeFileAtomic(path string, data []byte) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func scoreString(r model.JobRecord) string {
	if r.RelevanceScore == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *r.RelevanceScore)
}
