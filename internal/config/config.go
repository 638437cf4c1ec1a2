package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for jobsieve.
type Config struct {
	Search    SearchConfig
	Sources   []SourceConfig
	RateLimit RateLimitConfig
	Retry     RetryConfig
	Pipeline  PipelineConfig
	Dedup     DedupConfig
	Tags      TagsConfig
	Relevance RelevanceConfig
	AI        AIConfig
	Fetch     FetchConfig
	Sinks     []SinkConfig
	Schedule  ScheduleConfig
	Metrics   MetricsConfig
	API       APIConfig
}

// SearchConfig is what every source looks for in one run.
type SearchConfig struct {
	Keywords []string          `yaml:"keywords"`
	MaxPages int               `yaml:"max_pages"`
	Filters  map[string]string `yaml:"filters"`
}

// SourceConfig describes one job source to crawl.
type SourceConfig struct {
	Name    string            // defaults to Kind
	Kind    string            // linkedin, indeed, remoteok, greenhouse, lever, ashby, gem, weworkremotely
	BaseURL string            // overrides the strategy's default endpoint
	Board   string            // ATS board token or company slug
	Company string            // company name injected into every record
	Params  map[string]string // extra query parameters
	Enabled bool
}

// RateLimitConfig controls per-source request spacing.
type RateLimitConfig struct {
	MinDelay        time.Duration            // minimum gap between requests to the same source
	SourceOverrides map[string]time.Duration // per-source overrides, keyed by source name
}

// MinDelayFor returns the configured delay for the given source, falling back to MinDelay.
func (r RateLimitConfig) MinDelayFor(source string) time.Duration {
	if d, ok := r.SourceOverrides[source]; ok {
		return d
	}
	return r.MinDelay
}

// RetryConfig is the per-page backoff schedule.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      time.Duration
}

// PipelineConfig bounds a single run.
type PipelineConfig struct {
	Concurrency int           // sources crawled at once
	RunTimeout  time.Duration // zero disables the run deadline
}

// DedupConfig selects the fingerprint store.
type DedupConfig struct {
	Store     string        // "memory" (per run) or "sqlite" (across runs)
	Path      string        // sqlite database file
	PostedAt  string        // merge policy for conflicting posting dates
	Retention time.Duration // prune window for persisted fingerprints
}

// TagsConfig controls keyword tagging. An empty mapping tags every relevance
// keyword with itself.
type TagsConfig struct {
	Mapping   map[string]string `yaml:"mapping"`
	ScanChars int               `yaml:"scan_chars"`
}

// RelevanceConfig holds the keyword lists and the output threshold.
type RelevanceConfig struct {
	Keywords          []string
	ExcludedKeywords  []string
	MinRelevanceScore float64
}

// AIConfig controls the optional LLM classifier.
type AIConfig struct {
	Enabled          bool
	BaseURL          string        // defaults to https://api.openai.com/v1
	Model            string        // OpenAI model identifier, e.g. "gpt-4o-mini"
	APIKey           string        // expanded from env var by Load
	KeyringAccount   string        // OS keyring account to read the key from when APIKey is empty
	Timeout          time.Duration // per-request timeout
	DescriptionChars int           // description prefix sent in the prompt
}

// FetchConfig configures the HTTP page fetcher.
type FetchConfig struct {
	Timeout          time.Duration
	UserAgent        string
	CacheTTL         time.Duration
	RespectRobotsTxt bool
}

// SinkConfig describes one output.
type SinkConfig struct {
	Type       string `yaml:"type"`        // csv, jsonl, json, html, markdown, sqlite, postgres, log, slack
	Path       string `yaml:"path"`        // file or directory
	DSN        string `yaml:"dsn"`         // postgres only
	WebhookURL string `yaml:"webhook_url"` // slack only
}

// ScheduleConfig controls the watch loop.
type ScheduleConfig struct {
	Interval time.Duration
}

// MetricsConfig enables the Prometheus endpoint in watch mode.
type MetricsConfig struct {
	Listen string `yaml:"listen"` // empty disables
}

// APIConfig is the read-only HTTP API served by `jobsieve serve`.
type APIConfig struct {
	Listen string `yaml:"listen"`
}

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultModel         = "gpt-4o-mini"
	defaultMinScore      = 0.7
	slackWebhookPrefix   = "https://hooks.slack.com/"
)

// DefaultKeywords are the relevance keywords used when none are configured.
var DefaultKeywords = []string{
	"AI", "Artificial Intelligence", "Machine Learning", "ML",
	"Deep Learning", "Research Scientist", "Data Science",
	"Computer Vision", "NLP", "Natural Language Processing",
	"Neural Networks", "LLM", "Large Language Models",
	"ML Engineer", "AI Engineer", "ML Researcher",
}

// DefaultExcludedKeywords mark roles that are out of scope.
var DefaultExcludedKeywords = []string{
	"Sales", "Marketing", "Administrative", "HR",
	"Recruiter", "Account Manager", "Business Development",
}

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	Search    SearchConfig       `yaml:"search"`
	Sources   []rawSourceConfig  `yaml:"sources"`
	RateLimit rawRateLimitConfig `yaml:"rate_limit"`
	Retry     rawRetryConfig     `yaml:"retry"`
	Pipeline  rawPipelineConfig  `yaml:"pipeline"`
	Dedup     rawDedupConfig     `yaml:"dedup"`
	Tags      TagsConfig         `yaml:"tags"`
	Relevance rawRelevanceConfig `yaml:"relevance"`
	AI        rawAIConfig        `yaml:"ai"`
	Fetch     rawFetchConfig     `yaml:"fetch"`
	Sinks     []SinkConfig       `yaml:"sinks"`
	Schedule  rawScheduleConfig  `yaml:"schedule"`
	Metrics   MetricsConfig      `yaml:"metrics"`
	API       APIConfig          `yaml:"api"`
}

type rawSourceConfig struct {
	Name    string            `yaml:"name"`
	Kind    string            `yaml:"kind"`
	BaseURL string            `yaml:"base_url"`
	Board   string            `yaml:"board"`
	Company string            `yaml:"company"`
	Params  map[string]string `yaml:"params"`
	Enabled *bool             `yaml:"enabled"`
}

type rawRateLimitConfig struct {
	MinDelay        string            `yaml:"min_delay"`
	SourceOverrides map[string]string `yaml:"source_overrides"`
}

type rawRetryConfig struct {
	MaxAttempts int    `yaml:"max_attempts"`
	BaseDelay   string `yaml:"base_delay"`
	MaxDelay    string `yaml:"max_delay"`
	Jitter      string `yaml:"jitter"`
}

type rawPipelineConfig struct {
	Concurrency int    `yaml:"concurrency"`
	RunTimeout  string `yaml:"run_timeout"`
}

type rawDedupConfig struct {
	Store string `yaml:"store"`
	Path  string `yaml:"path"`
	Merge struct {
		PostedAt string `yaml:"posted_at"`
	} `yaml:"merge"`
	Retention string `yaml:"retention"`
}

type rawRelevanceConfig struct {
	Keywords          []string `yaml:"keywords"`
	ExcludedKeywords  []string `yaml:"excluded_keywords"`
	MinRelevanceScore *float64 `yaml:"min_relevance_score"`
}

type rawAIConfig struct {
	Enabled          bool   `yaml:"enabled"`
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	APIKey           string `yaml:"api_key"`
	KeyringAccount   string `yaml:"keyring_account"`
	Timeout          string `yaml:"timeout"`
	DescriptionChars int    `yaml:"description_chars"`
}

type rawFetchConfig struct {
	Timeout          string `yaml:"timeout"`
	UserAgent        string `yaml:"user_agent"`
	CacheTTL         string `yaml:"cache_ttl"`
	RespectRobotsTxt bool   `yaml:"respect_robots_txt"`
}

type rawScheduleConfig struct {
	Interval string `yaml:"interval"`
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML bytes. Environment variables are expanded first.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var d durations
	cfg := &Config{
		Search: raw.Search,
		RateLimit: RateLimitConfig{
			MinDelay:        d.parse("rate_limit.min_delay", raw.RateLimit.MinDelay, 2*time.Second),
			SourceOverrides: make(map[string]time.Duration),
		},
		Retry: RetryConfig{
			MaxAttempts: raw.Retry.MaxAttempts,
			BaseDelay:   d.parse("retry.base_delay", raw.Retry.BaseDelay, 2*time.Second),
			MaxDelay:    d.parse("retry.max_delay", raw.Retry.MaxDelay, time.Minute),
			Jitter:      d.parse("retry.jitter", raw.Retry.Jitter, 500*time.Millisecond),
		},
		Pipeline: PipelineConfig{
			Concurrency: raw.Pipeline.Concurrency,
			RunTimeout:  d.parse("pipeline.run_timeout", raw.Pipeline.RunTimeout, 10*time.Minute),
		},
		Dedup: DedupConfig{
			Store:     raw.Dedup.Store,
			Path:      raw.Dedup.Path,
			PostedAt:  raw.Dedup.Merge.PostedAt,
			Retention: d.parse("dedup.retention", raw.Dedup.Retention, 30*24*time.Hour),
		},
		Tags: raw.Tags,
		Relevance: RelevanceConfig{
			Keywords:          raw.Relevance.Keywords,
			ExcludedKeywords:  raw.Relevance.ExcludedKeywords,
			MinRelevanceScore: defaultMinScore,
		},
		AI: AIConfig{
			Enabled:          raw.AI.Enabled,
			BaseURL:          raw.AI.BaseURL,
			Model:            raw.AI.Model,
			APIKey:           raw.AI.APIKey,
			KeyringAccount:   raw.AI.KeyringAccount,
			Timeout:          d.parse("ai.timeout", raw.AI.Timeout, 30*time.Second),
			DescriptionChars: raw.AI.DescriptionChars,
		},
		Fetch: FetchConfig{
			Timeout:          d.parse("fetch.timeout", raw.Fetch.Timeout, 30*time.Second),
			UserAgent:        raw.Fetch.UserAgent,
			CacheTTL:         d.parse("fetch.cache_ttl", raw.Fetch.CacheTTL, 10*time.Minute),
			RespectRobotsTxt: raw.Fetch.RespectRobotsTxt,
		},
		Sinks:    raw.Sinks,
		Schedule: ScheduleConfig{Interval: d.parse("schedule.interval", raw.Schedule.Interval, time.Hour)},
		Metrics:  raw.Metrics,
		API:      raw.API,
	}
	for name, v := range raw.RateLimit.SourceOverrides {
		cfg.RateLimit.SourceOverrides[name] = d.parse(fmt.Sprintf("rate_limit.source_overrides[%q]", name), v, 0)
	}
	if d.err != nil {
		return nil, d.err
	}

	for _, s := range raw.Sources {
		src := SourceConfig{
			Name:    s.Name,
			Kind:    strings.ToLower(strings.TrimSpace(s.Kind)),
			BaseURL: s.BaseURL,
			Board:   s.Board,
			Company: s.Company,
			Params:  s.Params,
			Enabled: s.Enabled == nil || *s.Enabled,
		}
		if src.Name == "" {
			src.Name = src.Kind
		}
		cfg.Sources = append(cfg.Sources, src)
	}
	if raw.Relevance.MinRelevanceScore != nil {
		cfg.Relevance.MinRelevanceScore = *raw.Relevance.MinRelevanceScore
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// durations parses string durations and keeps the first error.
type durations struct {
	err error
}

func (d *durations) parse(field, raw string, def time.Duration) time.Duration {
	if raw == "" || d.err != nil {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		d.err = fmt.Errorf("parse %s %q: %w", field, raw, err)
		return def
	}
	return v
}

func applyDefaults(cfg *Config) {
	if cfg.Search.MaxPages == 0 {
		cfg.Search.MaxPages = 3
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Pipeline.Concurrency == 0 {
		cfg.Pipeline.Concurrency = 4
	}
	if cfg.Dedup.Store == "" {
		cfg.Dedup.Store = "memory"
	}
	if cfg.Dedup.Store == "sqlite" && cfg.Dedup.Path == "" {
		cfg.Dedup.Path = "jobsieve.db"
	}
	if cfg.Dedup.PostedAt == "" {
		cfg.Dedup.PostedAt = "first-seen"
	}
	if len(cfg.Relevance.Keywords) == 0 {
		cfg.Relevance.Keywords = DefaultKeywords
	}
	if cfg.Relevance.ExcludedKeywords == nil {
		cfg.Relevance.ExcludedKeywords = DefaultExcludedKeywords
	}
	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = defaultModel
	}
	if cfg.AI.DescriptionChars == 0 {
		cfg.AI.DescriptionChars = 1000
	}
	if len(cfg.Sinks) == 0 {
		cfg.Sinks = []SinkConfig{
			{Type: "csv", Path: "jobs/jobs.csv"},
			{Type: "markdown", Path: "jobs"},
		}
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = ":8080"
	}
}

// Validate re-checks a config after command-line overrides were applied.
func (c *Config) Validate() error {
	return validate(c)
}

func validate(cfg *Config) error {
	if cfg.Search.MaxPages < 1 {
		return fmt.Errorf("search.max_pages must be positive, got %d", cfg.Search.MaxPages)
	}

	enabled := 0
	names := make(map[string]bool)
	for i, s := range cfg.Sources {
		if s.Kind == "" {
			return fmt.Errorf("sources[%d].kind is required", i)
		}
		if !s.Enabled {
			continue
		}
		if names[s.Name] {
			return fmt.Errorf("sources[%d]: duplicate source name %q", i, s.Name)
		}
		names[s.Name] = true
		enabled++
	}
	if enabled == 0 {
		return fmt.Errorf("at least one source must be enabled")
	}

	if cfg.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.BaseDelay <= 0 || cfg.Retry.MaxDelay <= 0 {
		return fmt.Errorf("retry.base_delay and retry.max_delay must be positive, got %v and %v", cfg.Retry.BaseDelay, cfg.Retry.MaxDelay)
	}
	if cfg.Retry.BaseDelay > cfg.Retry.MaxDelay {
		return fmt.Errorf("retry.base_delay (%v) exceeds retry.max_delay (%v)", cfg.Retry.BaseDelay, cfg.Retry.MaxDelay)
	}
	if cfg.Pipeline.Concurrency < 1 {
		return fmt.Errorf("pipeline.concurrency must be at least 1, got %d", cfg.Pipeline.Concurrency)
	}
	if cfg.Pipeline.RunTimeout < 0 {
		return fmt.Errorf("pipeline.run_timeout must not be negative, got %v", cfg.Pipeline.RunTimeout)
	}

	switch cfg.Dedup.Store {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("dedup.store must be \"memory\" or \"sqlite\", got %q", cfg.Dedup.Store)
	}
	switch cfg.Dedup.PostedAt {
	case "first-seen", "keep-earliest", "keep-latest":
	default:
		return fmt.Errorf("dedup.merge.posted_at must be first-seen, keep-earliest or keep-latest, got %q", cfg.Dedup.PostedAt)
	}

	if s := cfg.Relevance.MinRelevanceScore; s < 0 || s > 1 {
		return fmt.Errorf("relevance.min_relevance_score must be between 0 and 1, got %v", s)
	}

	for i, s := range cfg.Sinks {
		switch s.Type {
		case "csv", "jsonl", "json", "html", "markdown", "sqlite":
			if s.Path == "" {
				return fmt.Errorf("sinks[%d].path is required for type %q", i, s.Type)
			}
		case "postgres":
			if s.DSN == "" {
				return fmt.Errorf("sinks[%d].dsn is required when type is \"postgres\"", i)
			}
		case "slack":
			if s.WebhookURL == "" {
				return fmt.Errorf("sinks[%d].webhook_url is required when type is \"slack\"", i)
			}
			if !strings.HasPrefix(s.WebhookURL, slackWebhookPrefix) {
				return fmt.Errorf("sinks[%d].webhook_url must start with %s", i, slackWebhookPrefix)
			}
		case "log":
		default:
			return fmt.Errorf("sinks[%d]: unknown sink type %q", i, s.Type)
		}
	}

	if cfg.AI.Enabled {
		if cfg.AI.APIKey == "" && cfg.AI.KeyringAccount == "" {
			return fmt.Errorf("ai.api_key or ai.keyring_account is required when ai.enabled is true")
		}
		if cfg.AI.Model == "" {
			return fmt.Errorf("ai.model is required when ai.enabled is true")
		}
	}

	if cfg.Schedule.Interval <= 0 {
		return fmt.Errorf("schedule.interval must be positive, got %v", cfg.Schedule.Interval)
	}

	return nil
}

// EnabledSources returns the sources with enabled set.
func (c *Config) EnabledSources() []SourceConfig {
	var out []SourceConfig
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}
