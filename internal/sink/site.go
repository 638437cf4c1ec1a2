package sink

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/amishk599/jobsieve/internal/model"
)

//go:embed templates
var templateFS embed.FS

var indexTemplate = template.Must(template.New("index.html.tmpl").
	Funcs(template.FuncMap{"score": scoreString}).
	ParseFS(templateFS, "templates/index.html.tmpl"))

// SiteSink maintains jobs.json in a directory for a static browsing page and,
// optionally, renders index.html from it. Records already present (by
// fingerprint) are not added again.
type SiteSink struct {
	mu       sync.Mutex
	dir      string
	withHTML bool
	now      func() time.Time
}

var _ model.Sink = (*SiteSink)(nil)

// NewSiteSink creates dir if needed.
func NewSiteSink(dir string, withHTML bool) (*SiteSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("site sink: %w", err)
	}
	return &SiteSink{dir: dir, withHTML: withHTML, now: time.Now}, nil
}

func (s *SiteSink) Name() string {
	if s.withHTML {
		return "html"
	}
	return "json"
}

func (s *SiteSink) Write(_ context.Context, records []model.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs, err := s.load()
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(jobs))
	for _, j := range jobs {
		known[j.Fingerprint] = true
	}
	for _, r := range records {
		if !known[r.Fingerprint] {
			jobs = append(jobs, r)
			known[r.Fingerprint] = true
		}
	}

	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return fmt.Errorf("site sink: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, "jobs.json"), data); err != nil {
		return fmt.Errorf("site sink: %w", err)
	}

	if !s.withHTML {
		return nil
	}
	var buf bytes.Buffer
	err = indexTemplate.Execute(&buf, struct {
		Title   string
		Updated time.Time
		Jobs    []model.JobRecord
	}{"AI/ML Jobs", s.now(), jobs})
	if err != nil {
		return fmt.Errorf("site sink render: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, "index.html"), buf.Bytes()); err != nil {
		return fmt.Errorf("site sink: %w", err)
	}
	return nil
}

func (s *SiteSink) load() ([]model.JobRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, "jobs.json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("site sink: %w", err)
	}
	var jobs []model.JobRecord
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("site sink: decode jobs.json: %w", err)
	}
	return jobs, nil
}

func (s *SiteSink) Close() error { return nil }
