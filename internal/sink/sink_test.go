package sink

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/amishk599/jobsieve/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func scorePtr(f float64) *float64 { return &f }

func sampleRecord(fp, title, company string) model.JobRecord {
	return model.JobRecord{
		Title:          title,
		Company:        company,
		Location:       "Remote, US",
		URL:            "https://example.com/jobs/" + fp,
		PostedAt:       "2026-01-15T10:00:00Z",
		Source:         "greenhouse",
		Tags:           []string{"AI", "Remote"},
		Fingerprint:    fp,
		RelevanceScore: scorePtr(0.85),
		Category:       "Engineering",
		FirstSeen:      time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC),
	}
}

func TestOpen_UnknownType(t *testing.T) {
	_, err := Open(context.Background(), Config{Type: "fax"}, nil, discardLogger())
	if err == nil {
		t.Fatal("expected error for unknown sink type")
	}
}

func TestOpen_FileSinks(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		cfg  Config
		name string
	}{
		{Config{Type: "csv", Path: filepath.Join(dir, "out.csv")}, "csv"},
		{Config{Type: "jsonl", Path: filepath.Join(dir, "out.jsonl")}, "jsonl"},
		{Config{Type: "json", Path: filepath.Join(dir, "site")}, "json"},
		{Config{Type: "html", Path: filepath.Join(dir, "site")}, "html"},
		{Config{Type: "markdown", Path: filepath.Join(dir, "md")}, "markdown"},
		{Config{Type: "sqlite", Path: filepath.Join(dir, "out.db")}, "sqlite"},
		{Config{Type: "log"}, "log"},
		{Config{Type: "slack", WebhookURL: "http://localhost"}, "slack"},
	}
	for _, tt := range tests {
		t.Run(tt.cfg.Type, func(t *testing.T) {
			s, err := Open(context.Background(), tt.cfg, nil, discardLogger())
			if err != nil {
				t.Fatalf("Open(%s) = %v", tt.cfg.Type, err)
			}
			if got := nameOf(s); got != tt.name {
				t.Errorf("name = %q, want %q", got, tt.name)
			}
			if err := s.Close(); err != nil {
				t.Errorf("Close(%s) = %v", tt.cfg.Type, err)
			}
		})
	}
}

func TestCSVSink_HeaderWrittenOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "jobs.csv")

	for i, fp := range []string{"a", "b"} {
		s, err := NewCSVSink(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		if err := s.Write(context.Background(), []model.JobRecord{sampleRecord(fp, "ML Engineer", "Acme")}); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		s.Close()
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "title" {
		t.Errorf("first row should be header, got %v", rows[0])
	}
	if rows[1][6] != "AI, Remote" {
		t.Errorf("tags cell = %q", rows[1][6])
	}
	if rows[1][7] != "0.85" {
		t.Errorf("score cell = %q", rows[1][7])
	}
	if rows[2][13] != "b" {
		t.Errorf("fingerprint cell = %q, want b", rows[2][13])
	}
}

func TestCSVSink_UnclassifiedScoreEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.csv")
	s, err := NewCSVSink(path)
	if err != nil {
		t.Fatal(err)
	}
	rec := sampleRecord("a", "Engineer", "Acme")
	rec.RelevanceScore = nil
	if err := s.Write(context.Background(), []model.JobRecord{rec}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	data, _ := os.ReadFile(path)
	rows, _ := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if rows[1][7] != "" {
		t.Errorf("expected empty score cell, got %q", rows[1][7])
	}
}

func TestJSONLSink_OneObjectPerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.jsonl")
	s, err := NewJSONLSink(path)
	if err != nil {
		t.Fatal(err)
	}
	recs := []model.JobRecord{sampleRecord("a", "One", "A"), sampleRecord("b", "Two", "B")}
	if err := s.Write(context.Background(), recs); err != nil {
		t.Fatal(err)
	}
	s.Close()

	f, _ := os.Open(path)
	defer f.Close()
	var titles []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r model.JobRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		titles = append(titles, r.Title)
	}
	if strings.Join(titles, ",") != "One,Two" {
		t.Errorf("titles = %v", titles)
	}
}

func TestSiteSink_MergesByFingerprint(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSiteSink(dir, true)
	if err != nil {
		t.Fatal(err)
	}
	s.now = func() time.Time { return time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	if err := s.Write(ctx, []model.JobRecord{sampleRecord("a", "Research Scientist", "Acme")}); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(ctx, []model.JobRecord{sampleRecord("a", "Research Scientist", "Acme"), sampleRecord("b", "ML <Ops>", "Beta")}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "jobs.json"))
	if err != nil {
		t.Fatal(err)
	}
	var jobs []model.JobRecord
	if err := json.Unmarshal(data, &jobs); err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs after merge, got %d", len(jobs))
	}

	page, err := os.ReadFile(filepath.Join(dir, "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	html := string(page)
	if !strings.Contains(html, "2 jobs, updated 2026-03-05") {
		t.Errorf("missing job count line:\n%s", html)
	}
	if !strings.Contains(html, "ML &lt;Ops&gt;") {
		t.Error("expected title to be escaped")
	}
}

func TestSiteSink_JSONOnly(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewSiteSink(dir, false)
	if err := s.Write(context.Background(), []model.JobRecord{sampleRecord("a", "X", "Y")}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "index.html")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("index.html should not exist, stat err = %v", err)
	}
}

func TestMarkdownSink_MonthlyFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewMarkdownSink(dir)
	ctx := context.Background()

	march := sampleRecord("a", "Applied | Scientist", "Acme")
	april := sampleRecord("b", "ML Engineer", "Beta")
	april.FirstSeen = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	april.PostedAt = ""

	if err := s.Write(ctx, []model.JobRecord{march, april}); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(ctx, []model.JobRecord{sampleRecord("c", "Researcher", "Gamma")}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "2026", "march.md"))
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if strings.Count(content, "# AI/ML Jobs - March 2026") != 1 {
		t.Errorf("header should appear once:\n%s", content)
	}
	if !strings.Contains(content, `| Applied \| Scientist | Acme | Remote, US | [Apply](https://example.com/jobs/a) | 2026-01-15 | AI, Remote | 0.85 |`) {
		t.Errorf("unexpected row:\n%s", content)
	}
	if !strings.Contains(content, "| Researcher | Gamma |") {
		t.Errorf("second write not appended:\n%s", content)
	}

	data, err = os.ReadFile(filepath.Join(dir, "2026", "april.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "| - | AI, Remote |") {
		t.Errorf("missing posted date should render as '-':\n%s", data)
	}
}

func TestSQLiteSink_IgnoresKnownFingerprints(t *testing.T) {
	s, err := NewSQLiteSink(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	ctx := context.Background()

	if err := s.Write(ctx, []model.JobRecord{sampleRecord("a", "A", "X"), sampleRecord("b", "B", "Y")}); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(ctx, []model.JobRecord{sampleRecord("b", "B", "Y"), sampleRecord("c", "C", "Z")}); err != nil {
		t.Fatal(err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}
}

func TestLogSink_WriteReturnsNil(t *testing.T) {
	s := NewLogSink(discardLogger())
	if err := s.Write(context.Background(), nil); err != nil {
		t.Errorf("Write(nil) = %v, want nil", err)
	}
	if err := s.Write(context.Background(), []model.JobRecord{sampleRecord("a", "Engineer", "Acme")}); err != nil {
		t.Errorf("Write() = %v, want nil", err)
	}
}

type failingSink struct{ name string }

func (f failingSink) Name() string { return f.name }
func (f failingSink) Write(context.Context, []model.JobRecord) error {
	return errors.New("disk full")
}
func (f failingSink) Close() error { return nil }

func TestMulti_AttemptsEverySink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.jsonl")
	jl, err := NewJSONLSink(path)
	if err != nil {
		t.Fatal(err)
	}
	m := Multi{failingSink{name: "broken"}, jl}
	defer m.Close()

	err = m.Write(context.Background(), []model.JobRecord{sampleRecord("a", "A", "B")})
	if err == nil || !strings.Contains(err.Error(), "broken: disk full") {
		t.Errorf("expected joined error naming the sink, got %v", err)
	}
	if data, _ := os.ReadFile(path); len(data) == 0 {
		t.Error("second sink should still receive the batch")
	}
	if got := m.Name(); got != "multi(broken,jsonl)" {
		t.Errorf("Name() = %q", got)
	}
}
