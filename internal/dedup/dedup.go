package dedup

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/amishk599/jobsieve/internal/model"
	"github.com/amishk599/jobsieve/internal/normalize"
)

// Store holds the best-known record per fingerprint. Implementations are
// constructed by the caller; the Deduplicator serializes access to them.
type Store interface {
	Get(ctx context.Context, fingerprint string) (model.JobRecord, bool, error)
	Put(ctx context.Context, rec model.JobRecord) error
}

// Outcome is the result of offering a record to the Deduplicator.
type Outcome int

const (
	Inserted  Outcome = iota // new fingerprint
	Merged                   // existing record gained at least one field
	Duplicate                // existing record unchanged
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Merged:
		return "merged"
	case Duplicate:
		return "duplicate"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// PostedAtPolicy resolves two differing, non-empty posting dates on a
// fingerprint collision.
type PostedAtPolicy string

const (
	KeepFirstSeen PostedAtPolicy = "first-seen"
	KeepEarliest  PostedAtPolicy = "keep-earliest"
	KeepLatest    PostedAtPolicy = "keep-latest"
)

// ParsePostedAtPolicy validates a configured policy name. Empty means first-seen.
func ParsePostedAtPolicy(s string) (PostedAtPolicy, error) {
	switch p := PostedAtPolicy(s); p {
	case "":
		return KeepFirstSeen, nil
	case KeepFirstSeen, KeepEarliest, KeepLatest:
		return p, nil
	}
	return "", fmt.Errorf("unknown posted_at merge policy %q (want first-seen, keep-earliest or keep-latest)", s)
}

// Deduplicator keeps one record per fingerprint. The first-seen record wins;
// later duplicates may only fill fields it is missing.
type Deduplicator struct {
	mu     sync.Mutex
	store  Store
	policy PostedAtPolicy
	order  []string // fingerprints inserted by this run, first-seen order
}

// New creates a Deduplicator over store.
func New(store Store, policy PostedAtPolicy) *Deduplicator {
	if policy == "" {
		policy = KeepFirstSeen
	}
	return &Deduplicator{store: store, policy: policy}
}

// InsertOrMerge offers rec to the deduplicator and returns the outcome along
// with the retained record. rec.Fingerprint is computed when empty.
func (d *Deduplicator) InsertOrMerge(ctx context.Context, rec model.JobRecord) (Outcome, model.JobRecord, error) {
	if rec.Fingerprint == "" {
		rec.Fingerprint = RecordFingerprint(rec)
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	existing, found, err := d.store.Get(ctx, rec.Fingerprint)
	if err != nil {
		return 0, model.JobRecord{}, fmt.Errorf("dedup lookup: %w", err)
	}

	if !found {
		if err := d.store.Put(ctx, rec); err != nil {
			return 0, model.JobRecord{}, fmt.Errorf("dedup insert: %w", err)
		}
		d.order = append(d.order, rec.Fingerprint)
		return Inserted, rec, nil
	}

	merged, changed := d.backfill(existing, rec)
	if !changed {
		return Duplicate, existing, nil
	}
	if err := d.store.Put(ctx, merged); err != nil {
		return 0, model.JobRecord{}, fmt.Errorf("dedup merge: %w", err)
	}
	return Merged, merged, nil
}

// backfill fills fields missing on kept from incoming. URL, title, source and
// any field already set on kept are never overwritten, except PostedAt under
// the keep-earliest and keep-latest policies.
func (d *Deduplicator) backfill(kept, incoming model.JobRecord) (model.JobRecord, bool) {
	changed := false
	fill := func(dst *string, src, def string) {
		if (*dst == "" || *dst == def) && src != "" && src != def {
			*dst = src
			changed = true
		}
	}

	fill(&kept.Company, incoming.Company, model.UnknownCompany)
	fill(&kept.Location, incoming.Location, model.DefaultLocation)
	fill(&kept.Description, incoming.Description, "")
	fill(&kept.Salary, incoming.Salary, "")
	fill(&kept.Sponsorship, incoming.Sponsorship, "")
	fill(&kept.WorkMode, incoming.WorkMode, "")

	if kept.PostedAt == "" {
		fill(&kept.PostedAt, incoming.PostedAt, "")
	} else if incoming.PostedAt != "" && incoming.PostedAt != kept.PostedAt {
		if resolved := d.resolvePostedAt(kept.PostedAt, incoming.PostedAt); resolved != kept.PostedAt {
			kept.PostedAt = resolved
			changed = true
		}
	}

	if len(kept.Tags) == 0 && len(incoming.Tags) > 0 {
		kept.Tags = normalize.MergeTags(incoming.Tags)
		changed = true
	}
	return kept, changed
}

func (d *Deduplicator) resolvePostedAt(kept, incoming string) string {
	if d.policy == KeepFirstSeen {
		return kept
	}
	kt, ok1 := normalize.ParseDate(kept)
	it, ok2 := normalize.ParseDate(incoming)
	if !ok1 || !ok2 {
		return kept
	}
	if d.policy == KeepEarliest && it.Before(kt) || d.policy == KeepLatest && it.After(kt) {
		return incoming
	}
	return kept
}

// Assign stores a classification result on the record with fingerprint.
func (d *Deduplicator) Assign(ctx context.Context, fingerprint string, res model.ClassificationResult) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, found, err := d.store.Get(ctx, fingerprint)
	if err != nil {
		return fmt.Errorf("dedup lookup: %w", err)
	}
	if !found {
		return fmt.Errorf("assign classification: unknown fingerprint %q", fingerprint)
	}

	score := res.Score
	rec.RelevanceScore = &score
	rec.Category = res.Category
	rec.Dimensions = slices.Clone(res.MatchedDimensions)
	rec.ClassifiedBy = "llm"
	if res.Fallback {
		rec.ClassifiedBy = "fallback"
	}
	if err := d.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("dedup assign: %w", err)
	}
	return nil
}

// Get returns the retained record for fingerprint.
func (d *Deduplicator) Get(ctx context.Context, fingerprint string) (model.JobRecord, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.Get(ctx, fingerprint)
}

// Records returns the records inserted during this deduplicator's lifetime in
// first-seen order, reflecting any later merges and classification results.
func (d *Deduplicator) Records(ctx context.Context) ([]model.JobRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]model.JobRecord, 0, len(d.order))
	for _, fp := range d.order {
		rec, found, err := d.store.Get(ctx, fp)
		if err != nil {
			return nil, fmt.Errorf("dedup records: %w", err)
		}
		if found {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Len reports how many records this deduplicator inserted.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}
