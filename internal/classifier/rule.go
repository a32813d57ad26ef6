// Package classifier turns video titles into directional tone calls.
// Two strategies exist: a deterministic weighted-keyword scorer and a
// model-assisted classifier with a content-addressed response cache.
// Manual review labels override both.
package classifier

import (
	"math"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/honeylab/honeyindex/internal/models"
)

// toneKeyword is one scored keyword. Weight reflects how strongly the word
// commits to a direction: emphatic crash/surge vocabulary counts double,
// hedged words count half.
type toneKeyword struct {
	word   string
	weight float64
}

// Korean finance commentary vocabulary. Bullish words read as buy/rise
// claims, bearish as sell/fall claims. Multi-word entries like 지금 사 /
// 지금 팔 (buy now / sell now) are urgency phrases and weigh double; they
// also match without the space.
var bullishKeywords = []toneKeyword{
	{"상승", 1}, {"급등", 2}, {"폭등", 2}, {"오른다", 1}, {"올라", 1},
	{"반등", 1}, {"회복", 0.5}, {"호재", 1}, {"돌파", 1}, {"신고가", 1.5},
	{"매수", 1}, {"사야", 1.5}, {"담아", 1}, {"저점", 1}, {"기회", 0.5},
	{"불장", 1.5}, {"상승장", 1.5}, {"강세", 1}, {"역대급", 1}, {"터진다", 1},
	{"갑니다", 1}, {"사세요", 1.5}, {"담으세요", 1.5}, {"대박", 1}, {"간다", 1},
	{"가즈아", 1.5}, {"떡상", 2}, {"지금 사", 2}, {"꼭 사", 2},
}

var bearishKeywords = []toneKeyword{
	{"하락", 1}, {"급락", 2}, {"폭락", 2}, {"떨어", 1}, {"내린다", 1}, {"내려", 1},
	{"붕괴", 2}, {"위기", 1}, {"악재", 1}, {"매도", 1}, {"고점", 0.5},
	{"경고", 1}, {"폭망", 2}, {"신저가", 1.5}, {"조정", 0.5},
	{"곰장", 1.5}, {"하락장", 1.5}, {"약세", 1}, {"최악", 1}, {"충격", 0.5},
	{"터졌다", 1}, {"망한다", 1.5}, {"끝났다", 1.5}, {"무너", 1}, {"위험", 0.5},
	{"조심", 1}, {"팔아", 1.5}, {"팔자", 1.5}, {"빠져", 1}, {"거품", 1},
	{"버블", 1}, {"반토막", 2}, {"침체", 1}, {"지금 팔", 2},
}

// negationMarkers flip the reading of the whole title. "지금 팔 때가
// 아닙니다" scores bearish on 지금 팔 but the trailing negation turns it
// into a bullish call. Conjugated forms are listed explicitly: 아닙니다 does
// not contain 아니 as a substring (the second syllable is 닙). Markers with
// a trailing space are standalone particles.
var negationMarkers = []string{
	"아니", "아닙니다", "않습니다", "않는다", "없",
	"안 ", "못 ", "말라", "마라", "마세요", "말아야", "하지 마",
}

// containsForm matches a keyword or marker against the title. A form with
// an internal space also matches with the space removed, covering the
// spacing-free style common in video titles. A trailing space is a word
// boundary and is never stripped.
func containsForm(title, form string) bool {
	if strings.Contains(title, form) {
		return true
	}
	trimmed := strings.TrimRight(form, " ")
	if strings.Contains(trimmed, " ") {
		return strings.Contains(title, strings.ReplaceAll(trimmed, " ", ""))
	}
	return false
}

// RuleClassifier scores titles against the keyword tables without any
// external calls. Deterministic: same title, same result.
type RuleClassifier struct {
	minScore float64
	logger   arbor.ILogger
}

// NewRuleClassifier creates a keyword-based tone classifier. minScore
// suppresses weak calls: the winning score must reach it, 0 disables.
func NewRuleClassifier(minScore float64, logger arbor.ILogger) *RuleClassifier {
	return &RuleClassifier{
		minScore: minScore,
		logger:   logger,
	}
}

// Score computes the weighted tone scores for a title. Each keyword counts
// once regardless of repetition. When a negation marker is present anywhere
// in the title the two scores swap.
func (c *RuleClassifier) Score(title string) models.Evidence {
	var bullish, bearish float64
	matched := make([]string, 0, 4)

	for _, kw := range bullishKeywords {
		if containsForm(title, kw.word) {
			bullish += kw.weight
			matched = append(matched, kw.word)
		}
	}
	for _, kw := range bearishKeywords {
		if containsForm(title, kw.word) {
			bearish += kw.weight
			matched = append(matched, kw.word)
		}
	}

	negated := false
	for _, marker := range negationMarkers {
		if containsForm(title, marker) {
			negated = true
			break
		}
	}
	if negated {
		bullish, bearish = bearish, bullish
	}

	total := bullish + bearish
	confidence := 0.0
	if total > 0 {
		confidence = math.Abs(bullish-bearish) / total
	}

	return models.Evidence{
		BullishScore:    bullish,
		BearishScore:    bearish,
		MatchedKeywords: matched,
		NegationApplied: negated,
		Confidence:      confidence,
	}
}

// Classify resolves a title into a tone decision. Ties and keyword-free
// titles are neutral; neutral is a refusal to call, not a direction.
func (c *RuleClassifier) Classify(title string) *models.TitleAnalysis {
	evidence := c.Score(title)

	tone := models.ToneNeutral
	winning := math.Max(evidence.BullishScore, evidence.BearishScore)
	if winning >= c.minScore {
		if evidence.BullishScore > evidence.BearishScore {
			tone = models.TonePositive
		} else if evidence.BearishScore > evidence.BullishScore {
			tone = models.ToneNegative
		}
	}

	c.logger.Debug().
		Str("title", title).
		Str("tone", string(tone)).
		Float64("bullish", evidence.BullishScore).
		Float64("bearish", evidence.BearishScore).
		Bool("negated", evidence.NegationApplied).
		Msg("Rule-based tone classification")

	return &models.TitleAnalysis{
		Tone:     tone,
		Evidence: evidence,
		Method:   "rules",
	}
}
