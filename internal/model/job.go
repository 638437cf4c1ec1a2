package model

import (
	"context"
	"time"
)

const (
	// UnknownCompany is used when no company name can be recovered from a source.
	UnknownCompany = "Unknown Company"
	// DefaultLocation is used when a source does not provide a location.
	DefaultLocation = "Remote / Unspecified"
)

// RawRecord is one source-shaped record exactly as an adapter parsed it.
// Values are strings, numbers, bools, nil or slices of those.
type RawRecord map[string]any

// JobRecord is the canonical representation of a job posting from any source.
type JobRecord struct {
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Location    string   `json:"location"`
	URL         string   `json:"url"`                 // first-seen apply/detail link
	PostedAt    string   `json:"posted_at,omitempty"` // RFC 3339 when parseable, else the raw source value
	Source      string   `json:"source"`
	Tags        []string `json:"tags"`
	Fingerprint string   `json:"fingerprint"`

	RelevanceScore *float64 `json:"relevance_score"` // nil until classified
	Category       string   `json:"category,omitempty"`
	Dimensions     []string `json:"dimensions,omitempty"`
	ClassifiedBy   string   `json:"classified_by,omitempty"` // "llm" or "fallback"

	Description string    `json:"description,omitempty"`
	Salary      string    `json:"salary,omitempty"`
	Sponsorship string    `json:"sponsorship,omitempty"`
	WorkMode    string    `json:"work_mode,omitempty"` // remote, hybrid, onsite
	FirstSeen   time.Time `json:"first_seen"`
}

// Score returns the relevance score, or 0 when the record is unclassified.
func (r JobRecord) Score() float64 {
	if r.RelevanceScore == nil {
		return 0
	}
	return *r.RelevanceScore
}

// Classification dimensions reported by the external classifier.
const (
	DimensionAIML        = "ai_ml_keywords"
	DimensionResearch    = "research_orientation"
	DimensionDepth       = "technical_depth"
	DimensionCareerStage = "career_stage_alignment"
)

// Dimensions is the fixed set of dimension names a classifier may report.
var Dimensions = []string{DimensionAIML, DimensionResearch, DimensionDepth, DimensionCareerStage}

// ClassificationResult is the outcome of scoring a single record.
type ClassificationResult struct {
	Score             float64
	MatchedDimensions []string
	Category          string
	Reasoning         string
	Fallback          bool // produced by the keyword scorer
}

// SearchSpec describes what every source should look for in one run.
type SearchSpec struct {
	Keywords          []string
	MaxPages          int
	Filters           map[string]string
	MinRelevanceScore float64
}

// Page is a fetched source page.
type Page struct {
	URL    string
	Status int
	Body   []byte
}

// PageFetcher fetches a single page from a source.
type PageFetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string) (Page, error)
}

// PageEvicter is implemented by fetchers that cache pages. Evict drops url so
// the next Fetch goes to the network.
type PageEvicter interface {
	Evict(url string)
}

// Classifier scores a record for relevance. The returned result is always
// usable; a non-nil error reports that the primary path failed and the
// result came from the fallback scorer.
type Classifier interface {
	Classify(ctx context.Context, rec JobRecord) (ClassificationResult, error)
}

// Sink accepts batches of finished records.
type Sink interface {
	Write(ctx context.Context, records []JobRecord) error
	Close() error
}
