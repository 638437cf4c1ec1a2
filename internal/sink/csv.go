package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/amishk599/jobsieve/internal/model"
)

var csvHeader = []string{
	"title",
	"company",
	"location",
	"url",
	"posted_at",
	"source",
	"tags",
	"relevance_score",
	"category",
	"salary",
	"sponsorship",
	"work_mode",
	"first_seen",
	"fingerprint",
}

// CSVSink appends records to a CSV file, writing the header once.
type CSVSink struct {
	mu   sync.Mutex
	file *os.File
}

var _ model.Sink = (*CSVSink)(nil)

// NewCSVSink opens path for appending, creating it with a header row when new.
func NewCSVSink(path string) (*CSVSink, error) {
	if err := ensureDir(path); err != nil {
		return nil, fmt.Errorf("csv sink: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("csv sink: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("csv sink: %w", err)
	}
	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(csvHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("csv sink header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("csv sink header: %w", err)
		}
	}
	return &CSVSink{file: f}, nil
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) Write(_ context.Context, records []model.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := csv.NewWriter(s.file)
	for _, r := range records {
		row := []string{
			r.Title,
			r.Company,
			r.Location,
			r.URL,
			r.PostedAt,
			r.Source,
			strings.Join(r.Tags, ", "),
			scoreString(r),
			r.Category,
			r.Salary,
			r.Sponsorship,
			r.WorkMode,
			r.FirstSeen.Format(time.RFC3339),
			r.Fingerprint,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("csv sink: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csv sink: %w", err)
	}
	return nil
}

func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
