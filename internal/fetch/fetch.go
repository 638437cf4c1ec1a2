package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/amishk599/jobsieve/internal/model"
)

// DefaultUserAgent identifies the crawler to sources and robots.txt.
const DefaultUserAgent = "jobsieve/1.0 (+https://github.com/amishk599/jobsieve)"

// maxBodySize caps how much of a response body is read.
const maxBodySize = 10 << 20

// Options configures an HTTPFetcher.
type Options struct {
	Timeout          time.Duration
	UserAgent        string
	CacheTTL         time.Duration // zero disables the page cache
	RespectRobotsTxt bool
}

// HTTPFetcher fetches source pages over HTTP.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	cache     *PageCache
	robots    *RobotsChecker
	logger    *slog.Logger
}

var _ model.PageFetcher = (*HTTPFetcher)(nil)

// New creates an HTTPFetcher. client may be nil, in which case a client with
// opts.Timeout is used.
func New(client *http.Client, opts Options, logger *slog.Logger) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	f := &HTTPFetcher{
		client:    client,
		userAgent: opts.UserAgent,
		logger:    logger,
	}
	if opts.CacheTTL > 0 {
		f.cache = NewPageCache(opts.CacheTTL)
	}
	if opts.RespectRobotsTxt {
		f.robots = NewRobotsChecker(client, opts.UserAgent)
	}
	return f
}

var _ model.PageEvicter = (*HTTPFetcher)(nil)

// Evict drops url from the page cache. A page whose body could not be parsed
// must not be served again on retry.
func (f *HTTPFetcher) Evict(url string) {
	if f.cache != nil {
		f.cache.Delete(url)
	}
}

// Robots returns the robots.txt checker, or nil when robots.txt is ignored.
func (f *HTTPFetcher) Robots() *RobotsChecker {
	return f.robots
}

// Fetch issues a GET for url. Non-2xx responses are returned as
// *model.HTTPError; pages disallowed by robots.txt as *model.PermanentFetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, headers map[string]string) (model.Page, error) {
	if f.cache != nil {
		if page, ok := f.cache.Get(url); ok {
			f.logger.Debug("page cache hit", "url", url)
			return page, nil
		}
	}

	if f.robots != nil {
		allowed, err := f.robots.Allowed(ctx, url)
		if err != nil {
			f.logger.Debug("robots.txt unavailable, allowing", "url", url, "error", err)
		}
		if !allowed {
			return model.Page{}, &model.PermanentFetchError{URL: url, Err: errors.New("disallowed by robots.txt")}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.Page{}, &model.PermanentFetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return model.Page{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.Page{}, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return model.Page{}, fmt.Errorf("read body of %s: %w", url, err)
	}

	page := model.Page{URL: url, Status: resp.StatusCode, Body: body}
	if f.cache != nil {
		f.cache.Set(url, page)
	}
	return page, nil
}

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds ("120") and HTTP-date forms. Returns zero if absent or
// unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
