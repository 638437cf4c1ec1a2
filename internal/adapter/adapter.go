package adapter

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync/atomic"

	"github.com/amishk599/jobsieve/internal/model"
	"github.com/amishk599/jobsieve/internal/normalize"
	"github.com/amishk599/jobsieve/internal/retry"
)

// Source is one configured job source.
type Source struct {
	Name    string            // unique name, used for rate limiting and stats
	Kind    string            // strategy key, see Kinds
	BaseURL string            // overrides the strategy default
	Board   string            // ATS board token or company slug
	Company string            // company name for single-company boards
	Params  map[string]string // extra query parameters
}

// Page is one parsed source page.
type Page struct {
	Records []model.RawRecord
	Done    bool // the source signalled there are no further pages
}

// Strategy is the per-kind variation of an adapter: how to address a page
// and how to parse it. Fetching, rate limiting and retries are shared.
type Strategy struct {
	Kind      string
	SiteURL   string // resolves relative links in parsed records
	Paginated bool
	Headers   map[string]string
	Fields    normalize.FieldTable
	PageURL   func(src Source, spec model.SearchSpec, page int) (string, error)
	Parse     func(body []byte) (Page, error)
}

// Adapter produces raw records for one source.
type Adapter struct {
	source   Source
	strategy Strategy
	fetcher  model.PageFetcher
	logger   *slog.Logger
}

// New creates an adapter for src using the strategy registered for src.Kind.
// fetcher is expected to be rate limited for src.
func New(src Source, fetcher model.PageFetcher, logger *slog.Logger) (*Adapter, error) {
	s, ok := Lookup(src.Kind)
	if !ok {
		return nil, fmt.Errorf("source %s: unknown kind %q", src.Name, src.Kind)
	}
	if src.Name == "" {
		src.Name = src.Kind
	}
	return &Adapter{
		source:   src,
		strategy: s,
		fetcher:  fetcher,
		logger:   logger.With("source", src.Name),
	}, nil
}

func (a *Adapter) Name() string { return a.source.Name }

func (a *Adapter) Strategy() Strategy { return a.strategy }

// LinkBase is the URL relative record links are resolved against.
func (a *Adapter) LinkBase() string {
	if a.source.BaseURL != "" {
		return a.source.BaseURL
	}
	return a.strategy.SiteURL
}

// Crawl returns a lazy sequence of raw records. Pages are fetched one at a
// time through retry.Do with the caller-owned state. A page that fails is
// reported to onPageError and skipped. The sequence stops after
// spec.MaxPages pages, on an empty or final page, or when ctx is done. It
// can be iterated only once; later iterations yield nothing.
func (a *Adapter) Crawl(ctx context.Context, spec model.SearchSpec, state *retry.State, onPageError func(page int, err error)) iter.Seq[model.RawRecord] {
	var used atomic.Bool
	return func(yield func(model.RawRecord) bool) {
		if used.Swap(true) {
			return
		}

		maxPages := max(spec.MaxPages, 1)
		if !a.strategy.Paginated {
			maxPages = 1
		}

		for page := 0; page < maxPages; page++ {
			if ctx.Err() != nil {
				return
			}

			url, err := a.strategy.PageURL(a.source, spec, page)
			if err != nil {
				onPageError(page, &model.PermanentFetchError{URL: a.source.Name, Err: err})
				return
			}

			state.Wait()
			result, err := retry.Do(ctx, state, a.logger, url, func(ctx context.Context) (Page, error) {
				return a.fetchPage(ctx, url)
			})
			if err != nil {
				onPageError(page, err)
				if ctx.Err() != nil {
					return
				}
				continue
			}

			a.logger.Debug("parsed page", "page", page, "records", len(result.Records))
			for _, rec := range result.Records {
				if a.source.Company != "" {
					if _, ok := rec["company"]; !ok {
						rec["company"] = a.source.Company
					}
				}
				if !yield(rec) {
					return
				}
			}
			if len(result.Records) == 0 || result.Done {
				return
			}
		}
	}
}

func (a *Adapter) fetchPage(ctx context.Context, url string) (Page, error) {
	p, err := a.fetcher.Fetch(ctx, url, a.strategy.Headers)
	if err != nil {
		return Page{}, err
	}
	result, err := a.strategy.Parse(p.Body)
	if err != nil {
		if ev, ok := a.fetcher.(model.PageEvicter); ok {
			ev.Evict(url)
		}
		return Page{}, &model.ParseError{Source: a.source.Name, Err: err}
	}
	return result, nil
}
