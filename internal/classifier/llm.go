package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/honeylab/honeyindex/internal/common"
	"github.com/honeylab/honeyindex/internal/interfaces"
	"github.com/honeylab/honeyindex/internal/llm"
	"github.com/honeylab/honeyindex/internal/models"
)

// promptVersion participates in the cache key: bumping it invalidates every
// cached response after a prompt change.
const promptVersion = "v1"

const cacheKeyPrefix = "llm:"

const systemInstruction = `You classify Korean finance YouTube video titles.
For each title decide which assets it mentions and whether the title makes a
bullish (positive), bearish (negative), or neutral claim about them.
A title that only reports news without a directional claim is neutral.`

// ModelClassifier classifies titles through an AI provider. Responses are
// cached by content hash so re-running a partition never re-spends tokens on
// unchanged titles.
type ModelClassifier struct {
	factory *llm.ProviderFactory
	cache   interfaces.KeyValueStorage
	model   string
	logger  arbor.ILogger
}

// NewModelClassifier creates a model-assisted tone classifier. model may be
// empty, in which case the factory's default provider and model are used.
func NewModelClassifier(factory *llm.ProviderFactory, cache interfaces.KeyValueStorage, model string, logger arbor.ILogger) *ModelClassifier {
	if model == "" {
		model = factory.GetDefaultModel(factory.DetectProvider(""))
	}
	return &ModelClassifier{
		factory: factory,
		cache:   cache,
		model:   model,
		logger:  logger,
	}
}

// CacheKey returns the content-addressed cache key for a title. The key
// covers model and prompt version, so switching either writes new entries
// instead of returning stale ones.
func (m *ModelClassifier) CacheKey(title string) string {
	sum := sha256.Sum256([]byte(m.model + "\n" + promptVersion + "\n" + title))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// Classify returns the model's tone analysis for a title, consulting the
// cache first. Provider failure is returned as an error; the caller decides
// the fallback.
func (m *ModelClassifier) Classify(ctx context.Context, title string) (*models.TitleAnalysis, error) {
	key := m.CacheKey(title)

	if cached, err := m.cache.Get(ctx, key); err == nil {
		var analysis models.TitleAnalysis
		if err := json.Unmarshal([]byte(cached), &analysis); err == nil {
			m.logger.Debug().Str("title", title).Msg("LLM cache hit")
			return &analysis, nil
		}
		// Corrupt entry, fall through and re-classify.
		m.logger.Warn().Str("key", key).Msg("Discarding unreadable cached LLM response")
	} else if err != interfaces.ErrKeyNotFound {
		return nil, fmt.Errorf("failed to read LLM cache: %w", err)
	}

	response, err := m.factory.GenerateContent(ctx, &llm.ContentRequest{
		Prompt:            buildPrompt(title),
		Model:             m.model,
		SystemInstruction: systemInstruction,
	})
	if err != nil {
		return nil, fmt.Errorf("tone classification failed: %w", err)
	}

	analysis, err := parseToneResponse(response.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tone response: %w (response: %s)", err, response.Text)
	}
	analysis.Method = "llm"
	analysis.Evidence.Model = response.Model

	if encoded, err := json.Marshal(analysis); err == nil {
		if err := m.cache.Set(ctx, key, string(encoded), "cached tone classification"); err != nil {
			m.logger.Warn().Err(err).Str("key", key).Msg("Failed to cache LLM response")
		}
	}

	return analysis, nil
}

func buildPrompt(title string) string {
	return fmt.Sprintf(`Task: Classify this video title.

Known assets: %s

Rules:
- List only assets from the known set that the title talks about
- tone is "positive" (bullish claim), "negative" (bearish claim), or "neutral"
- Mind negation: "팔 때가 아닙니다" negates a sell claim into a buy claim
- confidence is 0.0 to 1.0

Output Format (JSON only, no markdown fences):
{
  "assets": ["Bitcoin"],
  "tone": "negative",
  "confidence": 0.9,
  "reasoning": "Brief explanation"
}

Title: %s`, strings.Join(common.KnownAssets(), ", "), title)
}

// cleanMarkdownFences removes markdown code fences from a model response
func cleanMarkdownFences(s string) string {
	s = strings.TrimSpace(s)

	fencePattern := regexp.MustCompile(`(?s)^\s*` + "```" + `(?:json|JSON)?\s*\n?(.*?)\n?\s*` + "```" + `\s*$`)
	if matches := fencePattern.FindStringSubmatch(s); len(matches) > 1 {
		s = matches[1]
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	return strings.TrimSpace(s)
}

// parseToneResponse parses the model's JSON answer into a TitleAnalysis.
// Unknown assets are dropped, an unknown tone is an error.
func parseToneResponse(response string) (*models.TitleAnalysis, error) {
	response = cleanMarkdownFences(response)

	var result struct {
		Assets     []string `json:"assets"`
		Tone       string   `json:"tone"`
		Confidence float64  `json:"confidence"`
		Reasoning  string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(response), &result); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	tone := models.Tone(result.Tone)
	switch tone {
	case models.TonePositive, models.ToneNegative, models.ToneNeutral:
	default:
		return nil, fmt.Errorf("unknown tone %q", result.Tone)
	}

	assets := make([]string, 0, len(result.Assets))
	for _, asset := range result.Assets {
		canonical := common.NormalizeAsset(asset)
		if _, known := common.SymbolFor(canonical); known {
			assets = append(assets, canonical)
		}
	}

	return &models.TitleAnalysis{
		Assets: assets,
		Tone:   tone,
		Evidence: models.Evidence{
			Confidence: result.Confidence,
			Reasoning:  result.Reasoning,
		},
		Reasoning: result.Reasoning,
	}, nil
}
