package classify

import (
	"fmt"
	"slices"
	"strings"

	"github.com/amishk599/jobsieve/internal/model"
)

// KeywordScorer is the deterministic fallback: it scores a record from its
// tags alone.
type KeywordScorer struct {
	allow   map[string]bool
	exclude map[string]bool
}

// NewKeywordScorer builds a scorer from allow and exclude keyword lists.
func NewKeywordScorer(allow, exclude []string) KeywordScorer {
	s := KeywordScorer{allow: make(map[string]bool), exclude: make(map[string]bool)}
	for _, k := range allow {
		if k = foldKeyword(k); k != "" {
			s.allow[k] = true
		}
	}
	for _, k := range exclude {
		if k = foldKeyword(k); k != "" {
			s.exclude[k] = true
		}
	}
	return s
}

// Score returns clamp((a-e)/max(1,len(tags)), 0, 1) where a and e count the
// record's tags on the allow and exclude lists.
func (s KeywordScorer) Score(rec model.JobRecord) model.ClassificationResult {
	var a, e int
	research := false
	for _, tag := range rec.Tags {
		k := foldKeyword(tag)
		if s.allow[k] {
			a++
		}
		if s.exclude[k] {
			e++
		}
		if strings.Contains(strings.ToLower(tag), "research") {
			research = true
		}
	}

	score := float64(a-e) / float64(max(1, len(rec.Tags)))
	score = min(max(score, 0), 1)

	var dims []string
	if a > 0 {
		dims = append(dims, model.DimensionAIML)
	}
	if research {
		dims = append(dims, model.DimensionResearch)
	}
	if e == 0 {
		dims = append(dims, model.DimensionCareerStage)
	}
	slices.Sort(dims)

	category := "Other"
	switch {
	case research && a > 0:
		category = "Research"
	case hasTag(rec.Tags, "data science"):
		category = "Data Science"
	case a > 0:
		category = "Engineering"
	}

	return model.ClassificationResult{
		Score:             score,
		MatchedDimensions: dims,
		Category:          category,
		Reasoning:         fmt.Sprintf("keyword fallback: %d allowed and %d excluded of %d tags", a, e, len(rec.Tags)),
		Fallback:          true,
	}
}

// foldKeyword lowercases k and drops '#' and spaces so "C#", "c #" and
// "Machine Learning"/"machinelearning" compare equal.
func foldKeyword(k string) string {
	return strings.ToLower(strings.NewReplacer("#", "", " ", "").Replace(strings.TrimSpace(k)))
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if foldKeyword(t) == foldKeyword(want) {
			return true
		}
	}
	return false
}
