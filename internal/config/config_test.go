package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
search:
  keywords: [machine learning]
  max_pages: 2
  filters:
    location: United States
sources:
  - kind: linkedin
  - name: acme
    kind: greenhouse
    board: acme
    company: Acme Corp
  - kind: indeed
    enabled: false
rate_limit:
  min_delay: 3s
  source_overrides:
    linkedin: 5s
retry:
  max_attempts: 4
  base_delay: 1s
pipeline:
  concurrency: 2
  run_timeout: 2m
dedup:
  store: sqlite
  path: data/seen.db
  merge:
    posted_at: keep-earliest
relevance:
  min_relevance_score: 0.5
sinks:
  - type: jsonl
    path: out/jobs.jsonl
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.MaxPages != 2 || cfg.Search.Filters["location"] != "United States" {
		t.Errorf("Search = %+v", cfg.Search)
	}
	if len(cfg.Sources) != 3 {
		t.Fatalf("Sources = %+v", cfg.Sources)
	}
	if cfg.Sources[0].Name != "linkedin" || !cfg.Sources[0].Enabled {
		t.Errorf("source name should default to kind and be enabled: %+v", cfg.Sources[0])
	}
	if cfg.Sources[1].Board != "acme" || cfg.Sources[1].Company != "Acme Corp" {
		t.Errorf("Sources[1] = %+v", cfg.Sources[1])
	}
	if got := len(cfg.EnabledSources()); got != 2 {
		t.Errorf("EnabledSources() = %d, want 2", got)
	}
	if cfg.RateLimit.MinDelayFor("linkedin") != 5*time.Second || cfg.RateLimit.MinDelayFor("acme") != 3*time.Second {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	if cfg.Retry.MaxAttempts != 4 || cfg.Retry.BaseDelay != time.Second || cfg.Retry.MaxDelay != time.Minute {
		t.Errorf("Retry = %+v", cfg.Retry)
	}
	if cfg.Pipeline.Concurrency != 2 || cfg.Pipeline.RunTimeout != 2*time.Minute {
		t.Errorf("Pipeline = %+v", cfg.Pipeline)
	}
	if cfg.Dedup.Store != "sqlite" || cfg.Dedup.Path != "data/seen.db" || cfg.Dedup.PostedAt != "keep-earliest" {
		t.Errorf("Dedup = %+v", cfg.Dedup)
	}
	if cfg.Relevance.MinRelevanceScore != 0.5 {
		t.Errorf("MinRelevanceScore = %v, want 0.5", cfg.Relevance.MinRelevanceScore)
	}
	if len(cfg.Sinks) != 1 || cfg.Sinks[0].Type != "jsonl" {
		t.Errorf("Sinks = %+v", cfg.Sinks)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("sources:\n  - kind: remoteok\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Search.MaxPages != 3 {
		t.Errorf("MaxPages = %d, want 3", cfg.Search.MaxPages)
	}
	if cfg.Relevance.MinRelevanceScore != 0.7 {
		t.Errorf("MinRelevanceScore = %v, want 0.7", cfg.Relevance.MinRelevanceScore)
	}
	if len(cfg.Relevance.Keywords) != len(DefaultKeywords) || len(cfg.Relevance.ExcludedKeywords) != len(DefaultExcludedKeywords) {
		t.Errorf("expected default keyword lists, got %v / %v", cfg.Relevance.Keywords, cfg.Relevance.ExcludedKeywords)
	}
	if cfg.Dedup.Store != "memory" || cfg.Dedup.PostedAt != "first-seen" {
		t.Errorf("Dedup = %+v", cfg.Dedup)
	}
	if cfg.AI.BaseURL != defaultOpenAIBaseURL || cfg.AI.Timeout != 30*time.Second {
		t.Errorf("AI = %+v", cfg.AI)
	}
	if cfg.Schedule.Interval != time.Hour {
		t.Errorf("Schedule.Interval = %v, want 1h", cfg.Schedule.Interval)
	}
	if len(cfg.Sinks) != 2 || cfg.Sinks[0].Type != "csv" || cfg.Sinks[1].Type != "markdown" {
		t.Errorf("default sinks = %+v", cfg.Sinks)
	}
}

func TestLoad_ZeroMinScoreIsKept(t *testing.T) {
	cfg, err := Parse([]byte("sources:\n  - kind: remoteok\nrelevance:\n  min_relevance_score: 0\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Relevance.MinRelevanceScore != 0 {
		t.Errorf("MinRelevanceScore = %v, want 0", cfg.Relevance.MinRelevanceScore)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("JOBSIEVE_TEST_KEY", "sk-test")
	cfg, err := Parse([]byte(`
sources:
  - kind: remoteok
ai:
  enabled: true
  api_key: ${JOBSIEVE_TEST_KEY}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.AI.APIKey != "sk-test" {
		t.Errorf("APIKey = %q, want sk-test", cfg.AI.APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "search: [broken"))
	if err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "no enabled sources",
			yaml:    "sources:\n  - kind: remoteok\n    enabled: false\n",
			wantErr: "at least one source must be enabled",
		},
		{
			name:    "missing kind",
			yaml:    "sources:\n  - name: foo\n",
			wantErr: "sources[0].kind is required",
		},
		{
			name:    "duplicate names",
			yaml:    "sources:\n  - kind: lever\n    board: a\n  - kind: lever\n    board: b\n",
			wantErr: "duplicate source name",
		},
		{
			name:    "bad duration",
			yaml:    "sources:\n  - kind: remoteok\nretry:\n  base_delay: soon\n",
			wantErr: "parse retry.base_delay",
		},
		{
			name:    "base above max",
			yaml:    "sources:\n  - kind: remoteok\nretry:\n  base_delay: 2m\n  max_delay: 1m\n",
			wantErr: "exceeds retry.max_delay",
		},
		{
			name:    "zero max delay",
			yaml:    "sources:\n  - kind: remoteok\nretry:\n  max_delay: 0s\n",
			wantErr: "must be positive",
		},
		{
			name:    "score out of range",
			yaml:    "sources:\n  - kind: remoteok\nrelevance:\n  min_relevance_score: 1.5\n",
			wantErr: "min_relevance_score must be between 0 and 1",
		},
		{
			name:    "unknown store",
			yaml:    "sources:\n  - kind: remoteok\ndedup:\n  store: redis\n",
			wantErr: "dedup.store",
		},
		{
			name:    "unknown posted_at policy",
			yaml:    "sources:\n  - kind: remoteok\ndedup:\n  merge:\n    posted_at: newest\n",
			wantErr: "dedup.merge.posted_at",
		},
		{
			name:    "slack without hooks prefix",
			yaml:    "sources:\n  - kind: remoteok\nsinks:\n  - type: slack\n    webhook_url: https://example.com/hook\n",
			wantErr: "must start with https://hooks.slack.com/",
		},
		{
			name:    "file sink without path",
			yaml:    "sources:\n  - kind: remoteok\nsinks:\n  - type: csv\n",
			wantErr: "sinks[0].path is required",
		},
		{
			name:    "unknown sink",
			yaml:    "sources:\n  - kind: remoteok\nsinks:\n  - type: fax\n",
			wantErr: "unknown sink type",
		},
		{
			name:    "ai without key",
			yaml:    "sources:\n  - kind: remoteok\nai:\n  enabled: true\n",
			wantErr: "ai.api_key or ai.keyring_account is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}
