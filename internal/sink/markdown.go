package sink

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/amishk599/jobsieve/internal/model"
	"github.com/amishk599/jobsieve/internal/normalize"
)

var markdownTemplate = template.Must(template.New("month.md.tmpl").
	Funcs(template.FuncMap{
		"cell":   markdownCell,
		"posted": postedDate,
		"tags":   func(tags []string) string { return markdownCell(strings.Join(tags, ", ")) },
		"score":  scoreString,
	}).
	ParseFS(templateFS, "templates/month.md.tmpl"))

// MarkdownSink appends a table row per record to a monthly report,
// dir/YYYY/month.md, grouped by the record's first-seen time.
type MarkdownSink struct {
	mu  sync.Mutex
	dir string
}

var _ model.Sink = (*MarkdownSink)(nil)

func NewMarkdownSink(dir string) *MarkdownSink {
	return &MarkdownSink{dir: dir}
}

func (s *MarkdownSink) Name() string { return "markdown" }

func (s *MarkdownSink) Close() error { return nil }

func (s *MarkdownSink) Write(_ context.Context, records []model.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var order []string
	rows := make(map[string]*bytes.Buffer)
	for _, r := range records {
		path := s.pathFor(r.FirstSeen)
		buf, ok := rows[path]
		if !ok {
			buf = &bytes.Buffer{}
			rows[path] = buf
			order = append(order, path)
		}
		if err := markdownTemplate.ExecuteTemplate(buf, "row", r); err != nil {
			return fmt.Errorf("markdown sink: %w", err)
		}
	}

	for _, path := range order {
		if err := s.appendRows(path, rows[path].Bytes()); err != nil {
			return fmt.Errorf("markdown sink: %w", err)
		}
	}
	return nil
}

func (s *MarkdownSink) pathFor(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	t = t.UTC()
	return filepath.Join(s.dir, fmt.Sprintf("%04d", t.Year()), strings.ToLower(t.Month().String())+".md")
}

func (s *MarkdownSink) appendRows(path string, rows []byte) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		month := strings.TrimSuffix(filepath.Base(path), ".md")
		header := struct{ Month, Year string }{
			Month: strings.ToUpper(month[:1]) + month[1:],
			Year:  filepath.Base(filepath.Dir(path)),
		}
		if err := markdownTemplate.ExecuteTemplate(f, "header", header); err != nil {
			return err
		}
	}
	_, err = f.Write(rows)
	return err
}

// markdownCell keeps a value inside one table cell.
func markdownCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.Join(strings.Fields(s), " ")
}

// postedDate shows the date part of a normalized posted_at value.
func postedDate(s string) string {
	if t, ok := normalize.ParseDate(s); ok {
		return t.Format("2006-01-02")
	}
	if s == "" {
		return "-"
	}
	return markdownCell(s)
}
