package models

import (
	"math"
	"time"
)

// Funnel explains attrition through the pipeline stages. Counts are sets of
// distinct video IDs, each stage a subset of the one before, so
// Hits <= Verified <= Toned <= Mentioned <= Total always holds.
type Funnel struct {
	Total     int `json:"total"`     // videos collected
	Mentioned int `json:"mentioned"` // videos with at least one detected asset
	Toned     int `json:"toned"`     // videos with at least one non-neutral call
	Verified  int `json:"verified"`  // videos with at least one judged pair
	Hits      int `json:"hits"`      // videos with at least one contrarian hit
}

// AssetStats is the per-asset breakdown over analyzed pairs.
type AssetStats struct {
	Asset      string  `json:"asset"`
	Total      int     `json:"total"` // verified pairs
	Hits       int     `json:"hits"`
	HoneyIndex float64 `json:"honey_index"` // percent, one decimal
}

// PeriodStats is the per-partition (calendar month) breakdown.
type PeriodStats struct {
	Partition  string  `json:"partition"` // YYYY-MM
	Videos     int     `json:"videos"`
	Verified   int     `json:"verified"`
	Hits       int     `json:"hits"`
	HoneyIndex float64 `json:"honey_index"`
	Funnel     Funnel  `json:"funnel"`
}

// HorizonStats is the hit ratio at one observation horizon.
type HorizonStats struct {
	Horizon    Horizon `json:"horizon"`
	Verified   int     `json:"verified"`
	Hits       int     `json:"hits"`
	HoneyIndex float64 `json:"honey_index"`
}

// AggregateStats is the derived global snapshot. It is always a pure fold
// over the stored records: recomputing from the same record set reproduces
// the same numbers, and it is never patched in place.
type AggregateStats struct {
	UpdatedAt time.Time `json:"updated_at"`

	// Pair-level headline numbers at the primary horizon.
	Verified   int     `json:"verified"`
	Hits       int     `json:"hits"`
	HoneyIndex float64 `json:"honey_index"` // hits/verified * 100, one decimal, 0 when verified == 0

	Unanalyzed int `json:"unanalyzed"`
	Excluded   int `json:"excluded"`

	Funnel   Funnel         `json:"funnel"`
	Assets   []AssetStats   `json:"assets"`
	Periods  []PeriodStats  `json:"periods"`
	Horizons []HorizonStats `json:"horizons"`
}

// Ratio computes a percentage with one-decimal rounding, defined as 0 when
// the denominator is 0 (never NaN).
func Ratio(hits, verified int) float64 {
	if verified == 0 {
		return 0
	}
	return math.Round(float64(hits)/float64(verified)*1000) / 10
}
