package sink

import (
	"context"
	"log/slog"

	"github.com/amishk599/jobsieve/internal/model"
)

// Ensure LogSink implements model.Sink.
var _ model.Sink = (*LogSink)(nil)

// LogSink writes each record to the given logger as a structured message.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

// Write logs each record. Returns nil (stdout logging does not fail).
func (s *LogSink) Write(_ context.Context, records []model.JobRecord) error {
	for _, r := range records {
		args := []any{
			"company", r.Company,
			"title", r.Title,
			"location", r.Location,
			"url", r.URL,
			"score", r.Score(),
			"category", r.Category,
		}
		if r.PostedAt != "" {
			args = append(args, "posted_at", r.PostedAt)
		}
		if len(r.Tags) > 0 {
			args = append(args, "tags", r.Tags)
		}
		s.logger.Info("relevant job", args...)
	}
	return nil
}

func (s *LogSink) Close() error { return nil }
