package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/amishk599/jobsieve/internal/adapter"
	"github.com/amishk599/jobsieve/internal/classify"
	"github.com/amishk599/jobsieve/internal/config"
	"github.com/amishk599/jobsieve/internal/dedup"
	"github.com/amishk599/jobsieve/internal/fetch"
	"github.com/amishk599/jobsieve/internal/model"
	"github.com/amishk599/jobsieve/internal/normalize"
	"github.com/amishk599/jobsieve/internal/pipeline"
	"github.com/amishk599/jobsieve/internal/ratelimit"
	"github.com/amishk599/jobsieve/internal/retry"
	"github.com/amishk599/jobsieve/internal/secrets"
	"github.com/amishk599/jobsieve/internal/sink"
	"github.com/amishk599/jobsieve/internal/store"
)

// app holds the long-lived collaborators shared by every run of a process.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpClient *http.Client
	fetcher    *fetch.HTTPFetcher
	limiter    *ratelimit.SourceLimiter
	classifier model.Classifier
	policy     dedup.PostedAtPolicy
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	policy, err := dedup.ParsePostedAtPolicy(cfg.Dedup.PostedAt)
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{Timeout: cfg.Fetch.Timeout}

	classifier, err := setupClassifier(cfg, httpClient, logger)
	if err != nil {
		return nil, err
	}

	fetcher := fetch.New(httpClient, fetch.Options{
		Timeout:          cfg.Fetch.Timeout,
		UserAgent:        cfg.Fetch.UserAgent,
		CacheTTL:         cfg.Fetch.CacheTTL,
		RespectRobotsTxt: cfg.Fetch.RespectRobotsTxt,
	}, logger)

	logger.Info("rate limit min_delay", "min_delay", cfg.RateLimit.MinDelay.String())
	return &app{
		cfg:        cfg,
		logger:     logger,
		httpClient: httpClient,
		fetcher:    fetcher,
		limiter:    ratelimit.NewSourceLimiter(cfg.RateLimit.MinDelay, cfg.RateLimit.SourceOverrides),
		classifier: classifier,
		policy:     policy,
	}, nil
}

// setupClassifier returns the keyword scorer alone, or the LLM classifier
// backed by it when AI is enabled.
func setupClassifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) (*classify.Classifier, error) {
	fallback := classify.NewKeywordScorer(cfg.Relevance.Keywords, cfg.Relevance.ExcludedKeywords)
	if !cfg.AI.Enabled {
		logger.Info("ai classification disabled, using keyword scoring")
		return classify.New(nil, fallback, logger), nil
	}

	key, err := secrets.ResolveAPIKey(cfg.AI.APIKey, cfg.AI.KeyringAccount)
	if err != nil {
		return nil, fmt.Errorf("resolving ai api key: %w", err)
	}
	provider := classify.NewOpenAIProvider(cfg.AI.BaseURL, key, cfg.AI.Model, cfg.AI.Timeout, httpClient)
	llm := classify.NewLLMClassifier(provider, classify.ClassifyTemplate,
		cfg.Relevance.Keywords, cfg.Relevance.ExcludedKeywords, cfg.AI.DescriptionChars)
	logger.Info("ai classification enabled", "model", cfg.AI.Model, "base_url", cfg.AI.BaseURL)
	return classify.New(llm, fallback, logger), nil
}

func (a *app) spec() model.SearchSpec {
	return model.SearchSpec{
		Keywords:          a.cfg.Search.Keywords,
		MaxPages:          a.cfg.Search.MaxPages,
		Filters:           a.cfg.Search.Filters,
		MinRelevanceScore: a.cfg.Relevance.MinRelevanceScore,
	}
}

func (a *app) options() pipeline.Options {
	return pipeline.Options{
		Spec:        a.spec(),
		Concurrency: a.cfg.Pipeline.Concurrency,
		RunTimeout:  a.cfg.Pipeline.RunTimeout,
		Retry: retry.Policy{
			MaxAttempts: a.cfg.Retry.MaxAttempts,
			BaseDelay:   a.cfg.Retry.BaseDelay,
			MaxDelay:    a.cfg.Retry.MaxDelay,
			Jitter:      a.cfg.Retry.Jitter,
		},
	}
}

// adapter builds the adapter for one source behind the shared limiter. When
// robots.txt asks for a longer crawl delay than configured, the limiter is
// raised for that source.
func (a *app) adapter(ctx context.Context, src config.SourceConfig) (*adapter.Adapter, error) {
	as := adapter.Source{
		Name:    src.Name,
		Kind:    src.Kind,
		BaseURL: src.BaseURL,
		Board:   src.Board,
		Company: src.Company,
		Params:  src.Params,
	}
	fetcher := ratelimit.NewRateLimitedFetcher(a.fetcher, a.limiter, src.Name)
	ad, err := adapter.New(as, fetcher, a.logger.With("source", src.Name))
	if err != nil {
		return nil, err
	}

	if robots := a.fetcher.Robots(); robots != nil {
		first, err := ad.Strategy().PageURL(as, a.spec(), 0)
		if err != nil {
			return nil, err
		}
		if delay, err := robots.CrawlDelay(ctx, first); err != nil {
			a.logger.Debug("robots.txt lookup failed", "source", src.Name, "error", err)
		} else if delay > a.limiter.Delay(src.Name) {
			a.limiter.Raise(src.Name, delay)
			a.logger.Info("robots.txt crawl delay applied", "source", src.Name, "delay", delay.String())
		}
	}
	return ad, nil
}

// adapters builds adapters for every enabled source. A source with an unknown
// kind is logged and skipped.
func (a *app) adapters(ctx context.Context) []*adapter.Adapter {
	var out []*adapter.Adapter
	for _, src := range a.cfg.EnabledSources() {
		ad, err := a.adapter(ctx, src)
		if err != nil {
			a.logger.Warn("unsupported source, skipping", "source", src.Name, "kind", src.Kind, "error", err)
			continue
		}
		out = append(out, ad)
		a.logger.Debug("registered source", "name", src.Name, "kind", src.Kind)
	}
	return out
}

// recordStore is the fingerprint store behind the deduplicator.
type recordStore interface {
	dedup.Store
	Close() error
}

func (a *app) openStore() (recordStore, error) {
	switch a.cfg.Dedup.Store {
	case "sqlite":
		return store.NewSQLiteStore(a.cfg.Dedup.Path)
	default:
		return store.NewMemoryStore(), nil
	}
}

// openSinks opens every configured sink. Already-opened sinks are closed when
// a later one fails.
func (a *app) openSinks(ctx context.Context) ([]model.Sink, error) {
	var sinks []model.Sink
	for i, sc := range a.cfg.Sinks {
		s, err := sink.Open(ctx, sink.Config{
			Type:       sc.Type,
			Path:       sc.Path,
			DSN:        sc.DSN,
			WebhookURL: sc.WebhookURL,
		}, a.httpClient, a.logger)
		if err != nil {
			closeSinks(sinks, a.logger)
			return nil, fmt.Errorf("opening sinks[%d] (%s): %w", i, sc.Type, err)
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

func closeSinks(sinks []model.Sink, logger *slog.Logger) {
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			logger.Warn("closing sink", "sink", pipeline.SinkName(s), "error", err)
		}
	}
}

// newPipeline assembles a pipeline over st. Normalizer and deduplicator are
// per pipeline; the fetcher, limiter and classifier are shared.
func (a *app) newPipeline(ctx context.Context, st dedup.Store, sinks []model.Sink) (*pipeline.Pipeline, error) {
	sources := a.adapters(ctx)
	if len(sources) == 0 {
		return nil, errors.New("no usable sources configured")
	}
	return pipeline.New(sources, a.normalizer(), dedup.New(st, a.policy), a.classifier, sinks, a.options(), a.logger)
}

// normalizer returns a fresh normalizer tagging with tagMapping(cfg).
func (a *app) normalizer() *normalize.Normalizer {
	return normalize.New(normalize.NewTagger(tagMapping(a.cfg), a.cfg.Tags.ScanChars))
}

// tagMapping is the configured tag mapping plus an identity entry for every
// allow, exclude and search keyword it does not already map. The keyword
// scorer only sees tags, so each relevance keyword must be able to produce one.
func tagMapping(cfg *config.Config) map[string]string {
	mapping := normalize.KeywordMapping(cfg.Relevance.Keywords, cfg.Relevance.ExcludedKeywords, cfg.Search.Keywords)
	mapped := make(map[string]bool, len(cfg.Tags.Mapping))
	for kw := range cfg.Tags.Mapping {
		mapped[strings.ToLower(strings.TrimSpace(kw))] = true
	}
	for kw := range mapping {
		if mapped[strings.ToLower(kw)] {
			delete(mapping, kw)
		}
	}
	maps.Copy(mapping, cfg.Tags.Mapping)
	return mapping
}

// runTimeout is used by commands that crawl without the pipeline deadline.
func (a *app) runTimeout() time.Duration {
	if a.cfg.Pipeline.RunTimeout > 0 {
		return a.cfg.Pipeline.RunTimeout
	}
	return 10 * time.Minute
}
