package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/amishk599/jobsieve/internal/model"
)

// SourceLimiter enforces a minimum delay between requests to the same source.
type SourceLimiter struct {
	mu        sync.RWMutex
	limiters  map[string]*rate.Limiter // key: source name
	delays    map[string]time.Duration
	minDelay  time.Duration
	overrides map[string]time.Duration
}

// NewSourceLimiter creates a limiter that spaces consecutive requests to the
// same source by minDelay, or by the per-source override when one is set.
func NewSourceLimiter(minDelay time.Duration, overrides map[string]time.Duration) *SourceLimiter {
	o := make(map[string]time.Duration, len(overrides))
	for k, v := range overrides {
		o[k] = v
	}
	return &SourceLimiter{
		limiters:  make(map[string]*rate.Limiter),
		delays:    make(map[string]time.Duration),
		minDelay:  minDelay,
		overrides: o,
	}
}

// Wait blocks until the source may issue another request. The first request
// for a source never waits.
func (l *SourceLimiter) Wait(ctx context.Context, source string) error {
	if err := l.limiter(source).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", source, err)
	}
	return nil
}

// Delay returns the spacing currently enforced for source.
func (l *SourceLimiter) Delay(source string) time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if d, ok := l.delays[source]; ok {
		return d
	}
	return l.delayFor(source)
}

// Raise increases the spacing for source to at least d (robots.txt crawl-delay).
// It never lowers an existing delay.
func (l *SourceLimiter) Raise(source string, d time.Duration) {
	lim := l.limiter(source)

	l.mu.Lock()
	defer l.mu.Unlock()
	if d <= l.delays[source] {
		return
	}
	l.delays[source] = d
	lim.SetLimit(rate.Every(d))
}

func (l *SourceLimiter) limiter(source string) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.limiters[source]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[source]; ok {
		return lim
	}

	d := l.delayFor(source)
	limit := rate.Inf
	if d > 0 {
		limit = rate.Every(d)
	}
	lim = rate.NewLimiter(limit, 1)
	l.limiters[source] = lim
	l.delays[source] = d
	return lim
}

// delayFor must be called with mu held.
func (l *SourceLimiter) delayFor(source string) time.Duration {
	if d, ok := l.overrides[source]; ok {
		return d
	}
	return l.minDelay
}

// RateLimitedFetcher is a decorator that enforces source-level rate limiting
// before delegating to the wrapped PageFetcher.
type RateLimitedFetcher struct {
	inner   model.PageFetcher
	limiter *SourceLimiter
	source  string
}

// NewRateLimitedFetcher wraps a PageFetcher with source-level rate limiting.
func NewRateLimitedFetcher(inner model.PageFetcher, limiter *SourceLimiter, source string) *RateLimitedFetcher {
	return &RateLimitedFetcher{
		inner:   inner,
		limiter: limiter,
		source:  source,
	}
}

// Fetch waits for the limiter, then delegates to the wrapped fetcher.
func (f *RateLimitedFetcher) Fetch(ctx context.Context, url string, headers map[string]string) (model.Page, error) {
	if err := f.limiter.Wait(ctx, f.source); err != nil {
		return model.Page{}, err
	}
	return f.inner.Fetch(ctx, url, headers)
}

// Evict forwards to the wrapped fetcher when it caches pages.
func (f *RateLimitedFetcher) Evict(url string) {
	if ev, ok := f.inner.(model.PageEvicter); ok {
		ev.Evict(url)
	}
}
