package models

// Tone is the classified sentiment of a title toward an asset.
type Tone string

const (
	TonePositive Tone = "positive"
	ToneNegative Tone = "negative"
	ToneNeutral  Tone = "neutral"
)

// Direction converts a non-neutral tone into the directional call it implies.
// Neutral tones carry no direction and must be filtered before this point.
func (t Tone) Direction() Direction {
	switch t {
	case TonePositive:
		return DirectionBullish
	case ToneNegative:
		return DirectionBearish
	default:
		return ""
	}
}

// Direction is a directional market call attributed to a title.
type Direction string

const (
	DirectionBullish Direction = "bullish"
	DirectionBearish Direction = "bearish"
)

// CallSource records which classification path produced a call.
type CallSource string

const (
	SourceRules  CallSource = "rules"
	SourceLLM    CallSource = "llm"
	SourceManual CallSource = "manual"
)

// Evidence keeps the raw scoring signals behind a tone decision for audit.
type Evidence struct {
	BullishScore    float64  `json:"bullish_score"`
	BearishScore    float64  `json:"bearish_score"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
	NegationApplied bool     `json:"negation_applied"`
	Confidence      float64  `json:"confidence"`
	Reasoning       string   `json:"reasoning,omitempty"`
	Model           string   `json:"model,omitempty"`
}

// AssetCall is one effective (video, asset) pairing with a directional call.
// Direction is never neutral here; neutral classifications are routed to the
// unanalyzed bucket before an AssetCall is created.
type AssetCall struct {
	VideoID   string     `json:"video_id"`
	Asset     string     `json:"asset"`
	Direction Direction  `json:"direction"`
	Tone      Tone       `json:"tone"`
	Source    CallSource `json:"source"`
	Evidence  Evidence   `json:"evidence"`
}

// Key returns the natural key for the (video, asset) pair.
func (c AssetCall) Key() string {
	return RecordKey(c.VideoID, c.Asset)
}

// TitleAnalysis is the structured result of a single title classification,
// shared by the rule-based and model-assisted strategies.
type TitleAnalysis struct {
	Assets    []string `json:"assets"`
	Tone      Tone     `json:"tone"`
	Evidence  Evidence `json:"evidence"`
	Method    string   `json:"method"` // "rules" or "llm"
	Reasoning string   `json:"reasoning,omitempty"`
}

// OverrideLabel is a human-provided label for a (video, asset) pair.
type OverrideLabel string

const (
	OverridePositive OverrideLabel = "positive"
	OverrideNegative OverrideLabel = "negative"
	// OverrideSkip removes the pair from all further processing. It is
	// neither analyzed nor excluded; the pair simply does not exist.
	OverrideSkip OverrideLabel = "skip"
)

// Tone returns the tone a non-skip override label maps to.
func (l OverrideLabel) Tone() Tone {
	switch l {
	case OverridePositive:
		return TonePositive
	case OverrideNegative:
		return ToneNegative
	default:
		return ToneNeutral
	}
}
