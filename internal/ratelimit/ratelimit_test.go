package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/amishk599/jobsieve/internal/model"
)

func TestWait_SameSource_EnforcesMinDelay(t *testing.T) {
	limiter := NewSourceLimiter(100*time.Millisecond, nil)
	ctx := context.Background()

	// First call should return immediately.
	if err := limiter.Wait(ctx, "linkedin"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "linkedin"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	elapsed := time.Since(start)

	// Allow 20ms for timer jitter.
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestWait_DifferentSources_NoCrossBlocking(t *testing.T) {
	limiter := NewSourceLimiter(200*time.Millisecond, nil)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "linkedin"); err != nil {
		t.Fatalf("linkedin wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "remoteok"); err != nil {
		t.Fatalf("remoteok wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected remoteok wait to be near-instant, got %v", elapsed)
	}
}

func TestWait_OverrideTakesPrecedence(t *testing.T) {
	limiter := NewSourceLimiter(5*time.Second, map[string]time.Duration{"remoteok": 50 * time.Millisecond})
	ctx := context.Background()

	if got := limiter.Delay("remoteok"); got != 50*time.Millisecond {
		t.Errorf("Delay(remoteok) = %v, want 50ms", got)
	}
	if got := limiter.Delay("linkedin"); got != 5*time.Second {
		t.Errorf("Delay(linkedin) = %v, want 5s", got)
	}

	if err := limiter.Wait(ctx, "remoteok"); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	start := time.Now()
	if err := limiter.Wait(ctx, "remoteok"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("override not applied, waited %v", elapsed)
	}
}

func TestWait_ContextCancellation(t *testing.T) {
	limiter := NewSourceLimiter(5*time.Second, nil)

	if err := limiter.Wait(context.Background(), "linkedin"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Wait(ctx, "linkedin"); err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}

func TestRaise_OnlyIncreases(t *testing.T) {
	limiter := NewSourceLimiter(time.Second, nil)

	limiter.Raise("indeed", 3*time.Second)
	if got := limiter.Delay("indeed"); got != 3*time.Second {
		t.Fatalf("Delay after raise = %v, want 3s", got)
	}

	limiter.Raise("indeed", 500*time.Millisecond)
	if got := limiter.Delay("indeed"); got != 3*time.Second {
		t.Errorf("Delay after lower raise = %v, want 3s", got)
	}
}

type recordingFetcher struct {
	calls int
}

func (f *recordingFetcher) Fetch(_ context.Context, url string, _ map[string]string) (model.Page, error) {
	f.calls++
	return model.Page{URL: url, Status: 200}, nil
}

func TestRateLimitedFetcher_WaitsBeforeDelegating(t *testing.T) {
	limiter := NewSourceLimiter(100*time.Millisecond, nil)
	inner := &recordingFetcher{}
	fetcher := NewRateLimitedFetcher(inner, limiter, "linkedin")
	ctx := context.Background()

	if _, err := fetcher.Fetch(ctx, "https://example.com/1", nil); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	start := time.Now()
	if _, err := fetcher.Fetch(ctx, "https://example.com/2", nil); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	elapsed := time.Since(start)

	if inner.calls != 2 {
		t.Fatalf("inner calls = %d, want 2", inner.calls)
	}
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait on second fetch, got %v", elapsed)
	}
}

type evictingFetcher struct {
	recordingFetcher
	evicted []string
}

func (f *evictingFetcher) Evict(url string) { f.evicted = append(f.evicted, url) }

func TestRateLimitedFetcher_ForwardsEvict(t *testing.T) {
	inner := &evictingFetcher{}
	NewRateLimitedFetcher(inner, NewSourceLimiter(0, nil), "remoteok").Evict("https://example.com/1")
	if len(inner.evicted) != 1 || inner.evicted[0] != "https://example.com/1" {
		t.Errorf("evicted = %v", inner.evicted)
	}

	// A non-caching inner fetcher is left alone.
	NewRateLimitedFetcher(&recordingFetcher{}, NewSourceLimiter(0, nil), "remoteok").Evict("https://example.com/1")
}
