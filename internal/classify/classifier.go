package classify

import (
	"context"
	"log/slog"

	"github.com/amishk599/jobsieve/internal/model"
)

// Classifier scores records with an LLM and falls back to keyword scoring
// when the LLM is unavailable or returns something unusable. It never drops
// a record.
type Classifier struct {
	primary  *LLMClassifier // nil runs fallback-only
	fallback KeywordScorer
	logger   *slog.Logger
}

var _ model.Classifier = (*Classifier)(nil)

// New creates a classifier. primary may be nil when AI is disabled.
func New(primary *LLMClassifier, fallback KeywordScorer, logger *slog.Logger) *Classifier {
	return &Classifier{primary: primary, fallback: fallback, logger: logger}
}

// Classify returns a usable result for rec. When the LLM path failed the
// fallback result is returned together with a *model.ClassificationError.
func (c *Classifier) Classify(ctx context.Context, rec model.JobRecord) (model.ClassificationResult, error) {
	if c.primary == nil {
		return c.fallback.Score(rec), nil
	}

	res, err := c.primary.Classify(ctx, rec)
	if err == nil {
		return res, nil
	}

	c.logger.Warn("llm classification failed, using keyword fallback",
		"title", rec.Title,
		"company", rec.Company,
		"error", err,
	)
	return c.fallback.Score(rec), &model.ClassificationError{Fingerprint: rec.Fingerprint, Err: err}
}
