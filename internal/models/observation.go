package models

import "time"

// Horizon is a fixed observation window after publication, expressed in
// trading days from the baseline close: next trading day, one week (5),
// one month (20), three months (60).
type Horizon string

const (
	Horizon1D Horizon = "1d"
	Horizon1W Horizon = "1w"
	Horizon1M Horizon = "1m"
	Horizon3M Horizon = "3m"
)

// TradingDays returns the trading-day offset from the baseline close.
func (h Horizon) TradingDays() int {
	switch h {
	case Horizon1D:
		return 1
	case Horizon1W:
		return 5
	case Horizon1M:
		return 20
	case Horizon3M:
		return 60
	default:
		return 0
	}
}

// AllHorizons lists horizons in ascending order. Horizon1D is the primary
// horizon that drives the headline judgment.
func AllHorizons() []Horizon {
	return []Horizon{Horizon1D, Horizon1W, Horizon1M, Horizon3M}
}

// PrimaryHorizon is the horizon used for the headline hit/miss judgment.
const PrimaryHorizon = Horizon1D

// MarketDirection is the realized price direction over a horizon.
// DirectionUnavailable is a distinct outcome, never to be collapsed into
// flat: it excludes the record from both ratio numerator and denominator.
type MarketDirection string

const (
	MarketUp          MarketDirection = "up"
	MarketDown        MarketDirection = "down"
	MarketFlat        MarketDirection = "flat"
	MarketUnavailable MarketDirection = "unavailable"
)

// MarketObservation is the realized outcome for one (asset, reference date,
// horizon) triple. Prices are populated only when Direction is resolvable.
type MarketObservation struct {
	Asset         string          `json:"asset"`
	Symbol        string          `json:"symbol"`
	Horizon       Horizon         `json:"horizon"`
	Direction     MarketDirection `json:"direction"`
	BaselineDate  string          `json:"baseline_date,omitempty"` // trading date, YYYY-MM-DD
	BaselineClose float64         `json:"baseline_close,omitempty"`
	TradingDate   string          `json:"trading_date,omitempty"`
	Close         float64         `json:"close,omitempty"`
	ChangePct     float64         `json:"change_pct,omitempty"`
	Reason        string          `json:"reason,omitempty"` // populated when unavailable
	ResolvedAt    time.Time       `json:"resolved_at"`
}

// Available reports whether the observation carries a usable direction.
func (o MarketObservation) Available() bool {
	return o.Direction != MarketUnavailable && o.Direction != ""
}

// DailyClose is one trading day's closing price from the price source.
type DailyClose struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}
