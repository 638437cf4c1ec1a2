package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/amishk599/jobsieve/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func score(v float64) *float64 { return &v }

func record(fp, source string, firstSeen time.Time) model.JobRecord {
	return model.JobRecord{
		Title:       "ML Engineer",
		Company:     "Acme",
		Location:    "Remote",
		URL:         "https://example.com/" + fp,
		Source:      source,
		Tags:        []string{"ML"},
		Fingerprint: fp,
		FirstSeen:   firstSeen,
	}
}

func TestPutThenGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := record("acme|ml engineer|remote", "lever", time.Now())
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, found, err := s.Get(ctx, rec.Fingerprint)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatal("expected record to be found after Put")
	}
	if got.URL != rec.URL || got.Title != rec.Title {
		t.Errorf("got %+v, want %+v", got, rec)
	}
}

func TestGetUnknownReturnsNotFound(t *testing.T) {
	s := newTestStore(t)

	_, found, err := s.Get(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Error("expected unknown fingerprint to be absent")
	}
}

func TestPutReplacesAndKeepsFirstSeen(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-72 * time.Hour)
	rec := record("fp-1", "indeed", old)
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("first Put: %v", err)
	}

	rec.RelevanceScore = score(0.8)
	rec.FirstSeen = time.Now()
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("second Put: %v", err)
	}

	got, _, err := s.Get(ctx, "fp-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Score() != 0.8 {
		t.Errorf("score = %v, want 0.8", got.Score())
	}

	n, err := s.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}

	// first_seen column still holds the original time, so cleanup removes it.
	removed, err := s.Cleanup(48 * time.Hour)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
}

func TestCleanupRemovesOldKeepsFresh(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, record("old-job", "lever", time.Now().Add(-48*time.Hour))); err != nil {
		t.Fatalf("Put old: %v", err)
	}
	if err := s.Put(ctx, record("fresh-job", "lever", time.Now())); err != nil {
		t.Fatalf("Put fresh: %v", err)
	}

	removed, err := s.Cleanup(24 * time.Hour)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	if _, found, _ := s.Get(ctx, "old-job"); found {
		t.Error("expected old job to be cleaned up")
	}
	if _, found, _ := s.Get(ctx, "fresh-job"); !found {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestListFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	a := record("a", "lever", now.Add(-2*time.Hour))
	a.RelevanceScore = score(0.9)
	b := record("b", "indeed", now.Add(-time.Hour))
	b.RelevanceScore = score(0.4)
	c := record("c", "lever", now)
	for _, r := range []model.JobRecord{a, b, c} {
		if err := s.Put(ctx, r); err != nil {
			t.Fatalf("Put %s: %v", r.Fingerprint, err)
		}
	}

	all, err := s.List(ctx, Query{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].Fingerprint != "c" {
		t.Errorf("List all = %d records, first %q; want 3 newest-first", len(all), all[0].Fingerprint)
	}

	relevant, err := s.List(ctx, Query{MinScore: 0.7})
	if err != nil {
		t.Fatalf("List min score: %v", err)
	}
	if len(relevant) != 1 || relevant[0].Fingerprint != "a" {
		t.Errorf("List min_score=0.7 = %v, want [a]", relevant)
	}

	lever, err := s.List(ctx, Query{Source: "lever", Limit: 1})
	if err != nil {
		t.Fatalf("List source: %v", err)
	}
	if len(lever) != 1 || lever[0].Fingerprint != "c" {
		t.Errorf("List source=lever limit=1 = %v, want [c]", lever)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, found, _ := s.Get(ctx, "x"); found {
		t.Fatal("empty store reported a record")
	}
	if err := s.Put(ctx, record("x", "lever", time.Now())); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, found, _ := s.Get(ctx, "x"); !found {
		t.Error("expected record after Put")
	}
	if n, _ := s.Count(); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}
