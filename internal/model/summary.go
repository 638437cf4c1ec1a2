package model

import (
	"sort"
	"sync"
	"time"
)

// SourceStats counts what happened to one source during a run.
type SourceStats struct {
	Fetched      int  `json:"fetched"`
	Normalized   int  `json:"normalized"`
	Dropped      int  `json:"dropped"`
	Deduped      int  `json:"deduped"` // records that survived dedup as new
	Merged       int  `json:"merged"`
	Duplicates   int  `json:"duplicates"`
	Classified   int  `json:"classified"`
	Fallbacks    int  `json:"fallbacks"`
	Kept         int  `json:"kept"`
	Written      int  `json:"written"`
	PageFailures int  `json:"page_failures"`
	Errors       int  `json:"errors"`
	Failed       bool `json:"failed"`
}

// RunSummary is the per-run report handed back to the caller.
type RunSummary struct {
	RunID      string                  `json:"run_id"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	PerSource  map[string]*SourceStats `json:"per_source"`
	Written    int                     `json:"written"`
	SinkErrors int                     `json:"sink_errors"`

	mu sync.Mutex
}

// NewRunSummary creates an empty summary for the given sources.
func NewRunSummary(runID string, sources []string) *RunSummary {
	s := &RunSummary{
		RunID:     runID,
		StartedAt: time.Now(),
		PerSource: make(map[string]*SourceStats, len(sources)),
	}
	for _, name := range sources {
		s.PerSource[name] = &SourceStats{}
	}
	return s
}

// Update applies fn to the stats of source under the summary lock.
func (s *RunSummary) Update(source string, fn func(*SourceStats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.PerSource[source]
	if !ok {
		st = &SourceStats{}
		s.PerSource[source] = st
	}
	fn(st)
}

// Sources returns the source names in sorted order.
func (s *RunSummary) Sources() []string {
	names := make([]string, 0, len(s.PerSource))
	for name := range s.PerSource {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Totals sums the per-source counters.
func (s *RunSummary) Totals() SourceStats {
	var t SourceStats
	for _, st := range s.PerSource {
		t.Fetched += st.Fetched
		t.Normalized += st.Normalized
		t.Dropped += st.Dropped
		t.Deduped += st.Deduped
		t.Merged += st.Merged
		t.Duplicates += st.Duplicates
		t.Classified += st.Classified
		t.Fallbacks += st.Fallbacks
		t.Kept += st.Kept
		t.Written += st.Written
		t.PageFailures += st.PageFailures
		t.Errors += st.Errors
	}
	return t
}
