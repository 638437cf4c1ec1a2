package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobsieve/internal/adapter"
	"github.com/amishk599/jobsieve/internal/dedup"
	"github.com/amishk599/jobsieve/internal/metrics"
	"github.com/amishk599/jobsieve/internal/model"
	"github.com/amishk599/jobsieve/internal/normalize"
	"github.com/amishk599/jobsieve/internal/retry"
)

// Options tunes a pipeline run.
type Options struct {
	Spec        model.SearchSpec
	Concurrency int           // sources crawled at once, at least 1
	RunTimeout  time.Duration // zero means no run-level deadline
	Retry       retry.Policy
}

// Pipeline owns one ingestion run across all configured sources:
// crawl → normalize → dedup → classify → write.
type Pipeline struct {
	sources    []*adapter.Adapter
	normalizer *normalize.Normalizer
	dedup      *dedup.Deduplicator
	classifier model.Classifier
	sinks      []model.Sink
	opts       Options
	logger     *slog.Logger
	newRunID   func() string
}

// New creates a pipeline wired with all its dependencies. Each adapter's
// field table is registered with the normalizer under the adapter's name.
func New(
	sources []*adapter.Adapter,
	normalizer *normalize.Normalizer,
	deduplicator *dedup.Deduplicator,
	classifier model.Classifier,
	sinks []model.Sink,
	opts Options,
	logger *slog.Logger,
) (*Pipeline, error) {
	if len(sources) == 0 {
		return nil, errors.New("pipeline: no sources configured")
	}
	seen := make(map[string]bool, len(sources))
	for _, a := range sources {
		if seen[a.Name()] {
			return nil, fmt.Errorf("pipeline: duplicate source name %q", a.Name())
		}
		seen[a.Name()] = true
		normalizer.Register(a.Name(), a.Strategy().Fields, a.LinkBase())
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Pipeline{
		sources:    sources,
		normalizer: normalizer,
		dedup:      deduplicator,
		classifier: classifier,
		sinks:      sinks,
		opts:       opts,
		logger:     logger,
		newRunID:   uuid.NewString,
	}, nil
}

// Run performs one ingestion run and returns its summary. Failures of
// individual pages, records and sources are counted in the summary and never
// stop the run; the only error returned is *model.RunFailure, when every
// source came back empty. The summary is returned in both cases.
func (p *Pipeline) Run(ctx context.Context) (*model.RunSummary, error) {
	names := make([]string, len(p.sources))
	for i, a := range p.sources {
		names[i] = a.Name()
	}
	summary := model.NewRunSummary(p.newRunID(), names)
	logger := p.logger.With("run_id", summary.RunID)

	runCtx := ctx
	if p.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.opts.RunTimeout)
		defer cancel()
	}

	logger.Info("starting run",
		"sources", len(p.sources),
		"concurrency", p.opts.Concurrency,
		"max_pages", p.opts.Spec.MaxPages,
	)

	var (
		mu     sync.Mutex
		failed []string
		g      errgroup.Group
	)
	g.SetLimit(p.opts.Concurrency)
	for _, a := range p.sources {
		g.Go(func() error {
			err := p.runSource(runCtx, a, summary, logger.With("source", a.Name()))
			if err != nil {
				logger.Error("source failed", "source", a.Name(), "error", err)
				summary.Update(a.Name(), func(s *model.SourceStats) {
					s.Failed = true
					s.Errors++
				})
				metrics.SourceFailuresTotal.WithLabelValues(a.Name()).Inc()
				mu.Lock()
				failed = append(failed, a.Name())
				mu.Unlock()
			}
			// Sources never fail the group; one source must not cancel another.
			return nil
		})
	}
	_ = g.Wait()

	if err := p.write(ctx, summary, logger); err != nil {
		logger.Error("collecting records failed", "error", err)
		summary.SinkErrors++
	}
	summary.FinishedAt = time.Now()

	var runErr error
	if len(failed) == len(p.sources) {
		runErr = &model.RunFailure{Sources: summary.Sources()}
	}
	metrics.RecordRun(summary, runErr != nil)

	totals := summary.Totals()
	logger.Info("run finished",
		"fetched", totals.Fetched,
		"new", totals.Deduped,
		"merged", totals.Merged,
		"kept", totals.Kept,
		"written", summary.Written,
		"failed_sources", len(failed),
		"duration", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond),
	)
	return summary, runErr
}

// runSource crawls one source to completion, then classifies the records it
// inserted. It returns *model.SourceExhaustedError when the source yielded
// no raw records at all.
func (p *Pipeline) runSource(ctx context.Context, a *adapter.Adapter, summary *model.RunSummary, logger *slog.Logger) error {
	name := a.Name()
	state := retry.NewState(p.opts.Retry)

	var (
		pageFailures int
		lastErr      error
		inserted     []string
		stats        model.SourceStats
	)
	onPageError := func(page int, err error) {
		pageFailures++
		lastErr = err
		metrics.PageFailuresTotal.WithLabelValues(name).Inc()
		logger.Warn("page failed", "page", page, "error", err)
	}

	for raw := range a.Crawl(ctx, p.opts.Spec, state, onPageError) {
		stats.Fetched++

		rec, err := p.normalizer.Normalize(raw, name)
		if err != nil {
			var nerr *model.NormalizationError
			if errors.As(err, &nerr) {
				logger.Debug("dropping record", "field", nerr.Field, "reason", nerr.Reason)
			}
			stats.Dropped++
			continue
		}
		stats.Normalized++

		// Store writes outlive the run deadline so partial output is kept.
		outcome, kept, err := p.dedup.InsertOrMerge(context.WithoutCancel(ctx), rec)
		if err != nil {
			logger.Error("dedup failed", "title", rec.Title, "error", err)
			stats.Errors++
			continue
		}
		switch outcome {
		case dedup.Inserted:
			stats.Deduped++
			inserted = append(inserted, kept.Fingerprint)
		case dedup.Merged:
			stats.Merged++
		case dedup.Duplicate:
			stats.Duplicates++
		}
	}
	stats.PageFailures = pageFailures
	stats.Errors += pageFailures

	logger.Info("crawled source",
		"fetched", stats.Fetched,
		"dropped", stats.Dropped,
		"new", stats.Deduped,
		"merged", stats.Merged,
		"duplicates", stats.Duplicates,
		"page_failures", pageFailures,
	)

	p.classifyInserted(ctx, inserted, &stats, logger)

	summary.Update(name, func(s *model.SourceStats) {
		s.Fetched += stats.Fetched
		s.Normalized += stats.Normalized
		s.Dropped += stats.Dropped
		s.Deduped += stats.Deduped
		s.Merged += stats.Merged
		s.Duplicates += stats.Duplicates
		s.Classified += stats.Classified
		s.Fallbacks += stats.Fallbacks
		s.PageFailures += stats.PageFailures
		s.Errors += stats.Errors
	})
	metrics.AddRecords(name, metrics.StageFetched, stats.Fetched)
	metrics.AddRecords(name, metrics.StageNormalized, stats.Normalized)
	metrics.AddRecords(name, metrics.StageDropped, stats.Dropped)
	metrics.AddRecords(name, metrics.StageInserted, stats.Deduped)
	metrics.AddRecords(name, metrics.StageMerged, stats.Merged)
	metrics.AddRecords(name, metrics.StageDuplicate, stats.Duplicates)
	metrics.AddRecords(name, metrics.StageClassified, stats.Classified)
	metrics.AddRecords(name, metrics.StageFallback, stats.Fallbacks)

	if stats.Fetched == 0 {
		if lastErr == nil {
			lastErr = ctx.Err()
		}
		return &model.SourceExhaustedError{Source: name, PageFailures: pageFailures, LastErr: lastErr}
	}
	return nil
}

// classifyInserted scores each record this source inserted exactly once. A
// classifier error means the fallback score was used; it is counted, not
// propagated.
func (p *Pipeline) classifyInserted(ctx context.Context, fingerprints []string, stats *model.SourceStats, logger *slog.Logger) {
	storeCtx := context.WithoutCancel(ctx)
	for _, fp := range fingerprints {
		rec, found, err := p.dedup.Get(storeCtx, fp)
		if err != nil || !found {
			logger.Error("loading record for classification", "fingerprint", fp, "error", err)
			stats.Errors++
			continue
		}

		res, err := p.classifier.Classify(ctx, rec)
		if err != nil {
			var cerr *model.ClassificationError
			if !errors.As(err, &cerr) {
				logger.Warn("classification failed", "fingerprint", fp, "error", err)
			}
			stats.Errors++
		}
		if res.Fallback {
			stats.Fallbacks++
		}

		if err := p.dedup.Assign(storeCtx, fp, res); err != nil {
			logger.Error("assigning classification", "fingerprint", fp, "error", err)
			stats.Errors++
			continue
		}
		stats.Classified++
	}
}

// write sends every record inserted this run with a score at or above the
// minimum to each sink, as one batch in first-seen order.
func (p *Pipeline) write(ctx context.Context, summary *model.RunSummary, logger *slog.Logger) error {
	records, err := p.dedup.Records(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}

	kept := make([]model.JobRecord, 0, len(records))
	perSource := make(map[string]int)
	for _, rec := range records {
		if rec.RelevanceScore == nil || rec.Score() < p.opts.Spec.MinRelevanceScore {
			continue
		}
		kept = append(kept, rec)
		perSource[rec.Source]++
	}
	for source, n := range perSource {
		summary.Update(source, func(s *model.SourceStats) { s.Kept += n })
		metrics.AddRecords(source, metrics.StageKept, n)
	}

	if len(kept) == 0 || len(p.sinks) == 0 {
		logger.Info("nothing to write", "kept", len(kept), "sinks", len(p.sinks))
		return nil
	}

	delivered := false
	for _, s := range p.sinks {
		name := SinkName(s)
		if err := s.Write(ctx, kept); err != nil {
			logger.Error("sink write failed", "sink", name, "records", len(kept), "error", err)
			summary.SinkErrors++
			metrics.SinkErrorsTotal.WithLabelValues(name).Inc()
			continue
		}
		logger.Debug("wrote batch", "sink", name, "records", len(kept))
		delivered = true
	}
	if !delivered {
		return nil
	}

	summary.Written = len(kept)
	for source, n := range perSource {
		summary.Update(source, func(s *model.SourceStats) { s.Written += n })
		metrics.AddRecords(source, metrics.StageWritten, n)
	}
	return nil
}

// SinkName returns the sink's Name when it has one.
func SinkName(s model.Sink) string {
	if n, ok := s.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}
