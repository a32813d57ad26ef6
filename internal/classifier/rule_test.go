package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"

	"github.com/honeylab/honeyindex/internal/models"
)

func newRules(t *testing.T) *RuleClassifier {
	t.Helper()
	return NewRuleClassifier(0, arbor.NewLogger())
}

func TestClassifyBullishTitle(t *testing.T) {
	c := newRules(t)

	analysis := c.Classify("비트코인 지금이 매수 기회입니다")
	assert.Equal(t, models.TonePositive, analysis.Tone)
	assert.Greater(t, analysis.Evidence.BullishScore, analysis.Evidence.BearishScore)
	assert.Contains(t, analysis.Evidence.MatchedKeywords, "매수")
}

func TestClassifyBearishTitle(t *testing.T) {
	c := newRules(t)

	analysis := c.Classify("코스피 폭락 경고")
	assert.Equal(t, models.ToneNegative, analysis.Tone)
	// 폭락 carries double weight
	assert.GreaterOrEqual(t, analysis.Evidence.BearishScore, 3.0)
}

func TestClassifyNeutralWhenNoKeywords(t *testing.T) {
	c := newRules(t)

	analysis := c.Classify("오늘의 시장 브리핑")
	assert.Equal(t, models.ToneNeutral, analysis.Tone)
	assert.Zero(t, analysis.Evidence.Confidence)
}

func TestClassifyNeutralOnTie(t *testing.T) {
	c := newRules(t)

	// One bullish (상승, 1) and one bearish (하락, 1) keyword.
	analysis := c.Classify("상승이냐 하락이냐")
	assert.Equal(t, models.ToneNeutral, analysis.Tone)
	assert.Zero(t, analysis.Evidence.Confidence)
}

func TestNegationFlipsTone(t *testing.T) {
	c := newRules(t)

	// 지금 팔 (sell now) reads bearish at weight 2, but the negation flips
	// it: the title tells viewers NOT to sell now.
	analysis := c.Classify("지금 팔 때가 아닙니다")
	assert.True(t, analysis.Evidence.NegationApplied)
	assert.Equal(t, 2.0, analysis.Evidence.BullishScore)
	assert.Equal(t, 0.0, analysis.Evidence.BearishScore)
	assert.Equal(t, models.TonePositive, analysis.Tone)

	// The swap property: scores must be exactly exchanged relative to the
	// un-negated reading.
	plain := c.Score("지금 팔 때입니다")
	assert.False(t, plain.NegationApplied)
	assert.Equal(t, 2.0, plain.BearishScore)
	assert.Equal(t, plain.BullishScore, analysis.Evidence.BearishScore)
	assert.Equal(t, plain.BearishScore, analysis.Evidence.BullishScore)
}

func TestNegationMarkerForms(t *testing.T) {
	c := newRules(t)

	// Conjugated negation endings must all register; 아니 alone would miss
	// 아닙니다 and 않습니다 entirely.
	titles := []string{
		"지금 팔 때가 아닙니다",
		"반등은 아니다",
		"상승하지 않습니다",
		"더 떨어지지 않는다",
		"추격 매수 하지 마세요",
		"지금 팔지 말아야 합니다",
	}
	for _, title := range titles {
		assert.True(t, c.Score(title).NegationApplied, "title: %s", title)
	}
}

func TestNegationSwapsWholeTitle(t *testing.T) {
	c := newRules(t)

	// The swap applies to the whole title, not to the negated clause. Here
	// the negation scopes only over 상승 (a rise), yet the swap also inverts
	// the genuinely bearish second clause and the title comes out positive.
	// Accepted cost of the heuristic; multi-clause titles can misfire.
	analysis := c.Classify("상승 기대는 아닙니다 하락 조심")
	assert.True(t, analysis.Evidence.NegationApplied)
	assert.Equal(t, 2.0, analysis.Evidence.BullishScore) // swapped 하락+조심
	assert.Equal(t, 1.0, analysis.Evidence.BearishScore) // swapped 상승
	assert.Equal(t, models.TonePositive, analysis.Tone)
}

func TestPhraseKeywordsMatchWithoutSpacing(t *testing.T) {
	c := newRules(t)

	spaced := c.Score("삼성전자 지금 팔 타이밍")
	collapsed := c.Score("삼성전자 지금팔 타이밍")
	assert.Equal(t, 2.0, spaced.BearishScore)
	assert.Equal(t, spaced.BearishScore, collapsed.BearishScore)
}

func TestNegationSwapPreservesConfidence(t *testing.T) {
	c := newRules(t)

	// Swapping scores must not change the confidence magnitude.
	negated := c.Score("비트코인 폭락 걱정 없습니다")
	assert.True(t, negated.NegationApplied)

	plain := c.Score("비트코인 폭락 걱정입니다")
	assert.False(t, plain.NegationApplied)
	assert.InDelta(t, plain.Confidence, negated.Confidence, 1e-9)
}

func TestConfidenceFormula(t *testing.T) {
	c := newRules(t)

	evidence := c.Score("급등 후 조정")
	// 급등 weight 2 bullish, 조정 weight 0.5 bearish: |2-0.5|/2.5 = 0.6
	assert.InDelta(t, 0.6, evidence.Confidence, 1e-9)
}

func TestMinScoreSuppressesWeakCalls(t *testing.T) {
	c := NewRuleClassifier(1.0, arbor.NewLogger())

	// 기회 alone scores 0.5, below the floor.
	analysis := c.Classify("지금이 기회일까요")
	assert.Equal(t, models.ToneNeutral, analysis.Tone)

	// 폭등 scores 2, above the floor.
	analysis = c.Classify("비트코인 폭등")
	assert.Equal(t, models.TonePositive, analysis.Tone)
}

func TestKeywordCountsOncePerTitle(t *testing.T) {
	c := newRules(t)

	once := c.Score("상승 시작")
	twice := c.Score("상승 또 상승")
	assert.Equal(t, once.BullishScore, twice.BullishScore)
}
