package classifier

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/honeylab/honeyindex/internal/interfaces"
	"github.com/honeylab/honeyindex/internal/models"
)

// Classifier selects between the rule-based and model-assisted strategies.
// The model path degrades to neutral on provider failure so one flaky API
// call never fails a batch run.
type Classifier struct {
	strategy string
	rules    *RuleClassifier
	model    interfaces.ToneModel
	logger   arbor.ILogger
}

// NewClassifier creates a strategy-selecting classifier. model is any
// ToneModel (in production a *ModelClassifier); it may be nil when the
// configured strategy is "rules".
func NewClassifier(strategy string, rules *RuleClassifier, model interfaces.ToneModel, logger arbor.ILogger) *Classifier {
	if strategy == "llm" && model == nil {
		logger.Warn().Msg("LLM strategy configured without a model classifier, falling back to rules")
		strategy = "rules"
	}
	return &Classifier{
		strategy: strategy,
		rules:    rules,
		model:    model,
		logger:   logger,
	}
}

// Classify produces the tone analysis for a title using the configured
// strategy.
func (c *Classifier) Classify(ctx context.Context, title string) *models.TitleAnalysis {
	if c.strategy != "llm" {
		return c.rules.Classify(title)
	}

	analysis, err := c.model.Classify(ctx, title)
	if err != nil {
		c.logger.Warn().Err(err).Str("title", title).Msg("Model classification failed, recording neutral")
		return &models.TitleAnalysis{
			Tone:      models.ToneNeutral,
			Method:    "llm",
			Reasoning: "provider failure",
		}
	}
	return analysis
}
