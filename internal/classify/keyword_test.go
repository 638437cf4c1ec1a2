package classify

import (
	"slices"
	"testing"

	"github.com/amishk599/jobsieve/internal/model"
)

func TestKeywordScorer_Score(t *testing.T) {
	s := NewKeywordScorer([]string{"AI", "Machine Learning", "C#"}, []string{"Sales", "HR"})

	tests := []struct {
		name     string
		tags     []string
		want     float64
		wantDims []string
	}{
		{"no tags", nil, 0, []string{model.DimensionCareerStage}},
		{"all allowed", []string{"AI", "machine learning"}, 1, []string{model.DimensionAIML, model.DimensionCareerStage}},
		{"half allowed", []string{"AI", "golang"}, 0.5, []string{model.DimensionAIML, model.DimensionCareerStage}},
		{"excluded only", []string{"Sales"}, 0, nil},
		{"mixed clamps at zero", []string{"Sales", "HR", "AI"}, 0, []string{model.DimensionAIML}},
		{"hash and space ignored", []string{"c #", "MachineLearning"}, 1, []string{model.DimensionAIML, model.DimensionCareerStage}},
		{"research tag", []string{"research"}, 0, []string{model.DimensionCareerStage, model.DimensionResearch}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.Score(model.JobRecord{Tags: tt.tags})
			if res.Score != tt.want {
				t.Errorf("score = %v, want %v", res.Score, tt.want)
			}
			if !slices.Equal(res.MatchedDimensions, tt.wantDims) {
				t.Errorf("dimensions = %v, want %v", res.MatchedDimensions, tt.wantDims)
			}
			if !res.Fallback {
				t.Error("Fallback not set")
			}
		})
	}
}

func TestKeywordScorer_ExcludeScoresBelowAllow(t *testing.T) {
	s := NewKeywordScorer([]string{"AI", "LLM"}, []string{"Sales", "Marketing"})

	excluded := s.Score(model.JobRecord{Tags: []string{"Sales", "Marketing"}})
	allowed := s.Score(model.JobRecord{Tags: []string{"AI", "LLM"}})
	if excluded.Score >= allowed.Score {
		t.Errorf("exclude-only score %v not below allow-only score %v", excluded.Score, allowed.Score)
	}
}

func TestKeywordScorer_IsDeterministic(t *testing.T) {
	s := NewKeywordScorer([]string{"AI"}, []string{"Sales"})
	rec := model.JobRecord{Tags: []string{"AI", "Sales", "Go"}}
	first := s.Score(rec)
	for i := 0; i < 10; i++ {
		if got := s.Score(rec); got.Score != first.Score || !slices.Equal(got.MatchedDimensions, first.MatchedDimensions) {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
}

func TestKeywordScorer_Category(t *testing.T) {
	s := NewKeywordScorer([]string{"AI", "Research", "Data Science"}, nil)
	tests := []struct {
		tags []string
		want string
	}{
		{[]string{"AI", "Research"}, "Research"},
		{[]string{"Data Science"}, "Data Science"},
		{[]string{"AI"}, "Engineering"},
		{[]string{"golang"}, "Other"},
	}
	for _, tt := range tests {
		if got := s.Score(model.JobRecord{Tags: tt.tags}).Category; got != tt.want {
			t.Errorf("Category(%v) = %q, want %q", tt.tags, got, tt.want)
		}
	}
}
