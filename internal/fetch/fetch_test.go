package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/jobsieve/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetch_Success(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	f := New(srv.Client(), Options{UserAgent: "test-agent"}, discardLogger())
	page, err := f.Fetch(context.Background(), srv.URL+"/jobs", map[string]string{"Accept": "application/json"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(page.Body) != `{"ok":true}` {
		t.Errorf("body = %q", page.Body)
	}
	if page.Status != http.StatusOK {
		t.Errorf("status = %d", page.Status)
	}
	if gotUA != "test-agent" {
		t.Errorf("User-Agent = %q, want test-agent", gotUA)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q", gotAccept)
	}
}

func TestFetch_Non2xxReturnsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := New(srv.Client(), Options{}, discardLogger())
	_, err := f.Fetch(context.Background(), srv.URL, nil)

	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", httpErr.StatusCode)
	}
	if httpErr.RetryAfter != 7*time.Second {
		t.Errorf("RetryAfter = %v, want 7s", httpErr.RetryAfter)
	}
}

func TestFetch_CachesSuccessfulPages(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("page"))
	}))
	defer srv.Close()

	f := New(srv.Client(), Options{CacheTTL: time.Minute}, discardLogger())
	for i := 0; i < 3; i++ {
		if _, err := f.Fetch(context.Background(), srv.URL+"/a", nil); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hits = %d, want 1", got)
	}

	if _, err := f.Fetch(context.Background(), srv.URL+"/b", nil); err != nil {
		t.Fatalf("fetch b: %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("server hits = %d, want 2", got)
	}
}

func TestFetch_EvictDropsCachedPage(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("page"))
	}))
	defer srv.Close()

	f := New(srv.Client(), Options{CacheTTL: time.Minute}, discardLogger())
	ctx := context.Background()
	if _, err := f.Fetch(ctx, srv.URL, nil); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	f.Evict(srv.URL)
	if _, err := f.Fetch(ctx, srv.URL, nil); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("server hits = %d, want 2", got)
	}

	// Evict without a cache is a no-op.
	New(srv.Client(), Options{}, discardLogger()).Evict(srv.URL)
}

func TestFetch_DoesNotCacheFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(srv.Client(), Options{CacheTTL: time.Minute}, discardLogger())
	if _, err := f.Fetch(context.Background(), srv.URL, nil); err == nil {
		t.Fatal("expected error on first fetch")
	}
	page, err := f.Fetch(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if string(page.Body) != "ok" {
		t.Errorf("body = %q", page.Body)
	}
}

func TestFetch_RobotsDisallowIsPermanent(t *testing.T) {
	var jobHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /private\nCrawl-delay: 4\n"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		jobHits.Add(1)
		w.Write([]byte("ok"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := New(srv.Client(), Options{RespectRobotsTxt: true}, discardLogger())

	_, err := f.Fetch(context.Background(), srv.URL+"/private/jobs", nil)
	var perm *model.PermanentFetchError
	if !errors.As(err, &perm) {
		t.Fatalf("expected PermanentFetchError, got %v", err)
	}
	if jobHits.Load() != 0 {
		t.Error("disallowed page was requested")
	}

	if _, err := f.Fetch(context.Background(), srv.URL+"/public", nil); err != nil {
		t.Fatalf("allowed fetch: %v", err)
	}

	delay, err := f.Robots().CrawlDelay(context.Background(), srv.URL+"/public")
	if err != nil {
		t.Fatalf("crawl delay: %v", err)
	}
	if delay != 4*time.Second {
		t.Errorf("crawl delay = %v, want 4s", delay)
	}
}

func TestFetch_MissingRobotsAllowsAll(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/jobs", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := New(srv.Client(), Options{RespectRobotsTxt: true}, discardLogger())
	if _, err := f.Fetch(context.Background(), srv.URL+"/jobs", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 0},
		{"120", 120 * time.Second},
		{"0", 0},
		{"-5", 0},
		{"soon", 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.value); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}

	future := time.Now().Add(30 * time.Second).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(future); got <= 0 || got > 31*time.Second {
		t.Errorf("parseRetryAfter(http-date) = %v, want ~30s", got)
	}
}
