package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"text/template"

	"github.com/amishk599/jobsieve/internal/model"
	"github.com/amishk599/jobsieve/internal/normalize"
)

// Categories the classifier may report.
var Categories = []string{"Research", "Engineering", "Data Science", "Other"}

// LLMClassifier scores records with an LLM provider.
type LLMClassifier struct {
	provider  Provider
	tmpl      *template.Template
	keywords  []string
	excluded  []string
	descChars int
}

// NewLLMClassifier creates a classifier that renders tmpl for each record.
// descChars bounds the description text sent to the provider.
func NewLLMClassifier(provider Provider, tmpl *template.Template, keywords, excluded []string, descChars int) *LLMClassifier {
	if descChars <= 0 {
		descChars = normalize.DefaultScanChars
	}
	return &LLMClassifier{
		provider:  provider,
		tmpl:      tmpl,
		keywords:  keywords,
		excluded:  excluded,
		descChars: descChars,
	}
}

// Classify asks the provider to score rec. Any transport, status or response
// shape problem is returned as an error and no result is produced.
func (c *LLMClassifier) Classify(ctx context.Context, rec model.JobRecord) (model.ClassificationResult, error) {
	var promptBuf bytes.Buffer
	if err := c.tmpl.Execute(&promptBuf, promptData{
		Title:       rec.Title,
		Company:     rec.Company,
		Location:    rec.Location,
		Description: normalize.Truncate(rec.Description, c.descChars),
		Keywords:    c.keywords,
		Excluded:    c.excluded,
	}); err != nil {
		return model.ClassificationResult{}, fmt.Errorf("render prompt: %w", err)
	}

	raw, err := c.provider.Complete(ctx, promptBuf.String())
	if err != nil {
		return model.ClassificationResult{}, fmt.Errorf("llm complete: %w", err)
	}

	res, err := parseClassification(raw)
	if err != nil {
		return model.ClassificationResult{}, fmt.Errorf("parse classification: %w", err)
	}
	return res, nil
}

// rawClassification is the JSON shape returned by the LLM (matches relevanceSchema).
type rawClassification struct {
	Score      *float64        `json:"score"`
	Dimensions map[string]bool `json:"dimensions"`
	Category   string          `json:"category"`
	Reasoning  string          `json:"reasoning"`
}

// parseClassification validates the provider response. A missing or
// out-of-range score and unknown dimension names are errors.
func parseClassification(raw string) (model.ClassificationResult, error) {
	var rc rawClassification
	if err := json.Unmarshal([]byte(raw), &rc); err != nil {
		return model.ClassificationResult{}, fmt.Errorf("unmarshal classification JSON: %w", err)
	}
	if rc.Score == nil {
		return model.ClassificationResult{}, fmt.Errorf("response has no score")
	}
	if *rc.Score < 0 || *rc.Score > 1 {
		return model.ClassificationResult{}, fmt.Errorf("score %v outside [0,1]", *rc.Score)
	}

	var matched []string
	for name, ok := range rc.Dimensions {
		if !slices.Contains(model.Dimensions, name) {
			return model.ClassificationResult{}, fmt.Errorf("unknown dimension %q", name)
		}
		if ok {
			matched = append(matched, name)
		}
	}
	slices.Sort(matched)

	category := rc.Category
	if !slices.Contains(Categories, category) {
		category = "Other"
	}

	return model.ClassificationResult{
		Score:             *rc.Score,
		MatchedDimensions: matched,
		Category:          category,
		Reasoning:         rc.Reasoning,
	}, nil
}
