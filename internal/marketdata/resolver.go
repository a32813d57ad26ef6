package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/honeylab/honeyindex/internal/common"
	"github.com/honeylab/honeyindex/internal/interfaces"
	"github.com/honeylab/honeyindex/internal/models"
)

// obsCachePrefix namespaces cached observations in KV storage.
const obsCachePrefix = "obs:"

// horizonFetchDays is the calendar window fetched after the baseline. Sixty
// trading days span roughly 85 calendar days; the margin covers long holiday
// runs.
const horizonFetchDays = 120

// Resolver turns (asset, publish date) pairs into per-horizon market
// observations. Data problems are tagged as unavailable observations, never
// returned as errors: a missing close must not abort a batch.
type Resolver struct {
	source interfaces.PriceSource
	cache  interfaces.KeyValueStorage
	config *common.MarketConfig
	logger arbor.ILogger
}

// NewResolver creates a direction resolver backed by a price source and an
// observation cache.
func NewResolver(source interfaces.PriceSource, cache interfaces.KeyValueStorage, config *common.MarketConfig, logger arbor.ILogger) *Resolver {
	return &Resolver{
		source: source,
		cache:  cache,
		config: config,
		logger: logger,
	}
}

// cacheKey identifies one observation: obs:{asset}:{YYYY-MM-DD}:{horizon}.
func cacheKey(asset, date string, horizon models.Horizon) string {
	return fmt.Sprintf("%s%s:%s:%s", obsCachePrefix, asset, date, horizon)
}

// Resolve returns observations for every horizon of one (asset, publish
// date). Available observations are served from cache when present;
// unavailable ones are always recomputed, since time may have made them
// resolvable.
func (r *Resolver) Resolve(ctx context.Context, asset string, publishedAt time.Time) (map[models.Horizon]models.MarketObservation, error) {
	refDate := publishedAt.UTC().Format("2006-01-02")

	symbol, ok := common.SymbolFor(asset)
	if !ok {
		return r.allUnavailable(asset, "", refDate, "no market symbol mapping"), nil
	}

	observations := make(map[models.Horizon]models.MarketObservation, len(models.AllHorizons()))
	missing := make([]models.Horizon, 0, len(models.AllHorizons()))

	for _, horizon := range models.AllHorizons() {
		if obs, ok := r.cached(ctx, asset, refDate, horizon); ok {
			observations[horizon] = obs
			continue
		}
		missing = append(missing, horizon)
	}
	if len(missing) == 0 {
		return observations, nil
	}

	closes, err := r.fetchWindow(ctx, symbol, publishedAt)
	if err != nil {
		r.logger.Warn().Err(err).Str("asset", asset).Str("symbol", symbol).Msg("Price source failure, tagging observations unavailable")
		for _, horizon := range missing {
			observations[horizon] = r.unavailable(asset, symbol, horizon, refDate, "price source failure")
		}
		return observations, nil
	}

	baselineIdx := r.baselineIndex(closes, publishedAt)
	if baselineIdx < 0 {
		for _, horizon := range missing {
			observations[horizon] = r.unavailable(asset, symbol, horizon, refDate, fmt.Sprintf("no close within %d days before publish", r.config.BaselineSearchDays))
		}
		return observations, nil
	}
	baseline := closes[baselineIdx]
	if baseline.Close <= 0 {
		// A non-positive close is bad data; treating it as flat would turn
		// garbage into a verified observation.
		for _, horizon := range missing {
			observations[horizon] = r.unavailable(asset, symbol, horizon, refDate,
				fmt.Sprintf("degenerate baseline close %v on %s", baseline.Close, baseline.Date.UTC().Format("2006-01-02")))
		}
		return observations, nil
	}

	for _, horizon := range missing {
		targetIdx := baselineIdx + horizon.TradingDays()
		if targetIdx >= len(closes) {
			observations[horizon] = r.unavailable(asset, symbol, horizon, refDate,
				fmt.Sprintf("only %d trading days after baseline, need %d", len(closes)-baselineIdx-1, horizon.TradingDays()))
			continue
		}

		target := closes[targetIdx]
		obs := r.observe(asset, symbol, horizon, baseline, target)
		observations[horizon] = obs
		r.store(ctx, asset, refDate, obs)
	}

	return observations, nil
}

// fetchWindow pulls the close series from the backward baseline search
// window through the longest horizon.
func (r *Resolver) fetchWindow(ctx context.Context, symbol string, publishedAt time.Time) ([]models.DailyClose, error) {
	from := publishedAt.AddDate(0, 0, -r.config.BaselineSearchDays)
	to := publishedAt.AddDate(0, 0, horizonFetchDays)
	now := time.Now()
	if to.After(now) {
		to = now
	}
	return r.source.DailyCloses(ctx, symbol, from, to)
}

// baselineIndex finds the last close at or before the publish date. Series
// from the source is ascending by date.
func (r *Resolver) baselineIndex(closes []models.DailyClose, publishedAt time.Time) int {
	publishDay := publishedAt.UTC().Truncate(24 * time.Hour)
	idx := -1
	for i, c := range closes {
		if c.Date.UTC().Truncate(24 * time.Hour).After(publishDay) {
			break
		}
		idx = i
	}
	return idx
}

// observe builds an available observation and applies the flat band. The
// band is strict: a move of exactly the threshold is flat. The caller has
// already rejected non-positive baselines.
func (r *Resolver) observe(asset, symbol string, horizon models.Horizon, baseline, target models.DailyClose) models.MarketObservation {
	changePct := (target.Close - baseline.Close) / baseline.Close * 100

	direction := models.MarketFlat
	if changePct > r.config.FlatThresholdPct {
		direction = models.MarketUp
	} else if changePct < -r.config.FlatThresholdPct {
		direction = models.MarketDown
	}

	return models.MarketObservation{
		Asset:         asset,
		Symbol:        symbol,
		Horizon:       horizon,
		Direction:     direction,
		BaselineDate:  baseline.Date.UTC().Format("2006-01-02"),
		BaselineClose: baseline.Close,
		TradingDate:   target.Date.UTC().Format("2006-01-02"),
		Close:         target.Close,
		ChangePct:     changePct,
		ResolvedAt:    time.Now().UTC(),
	}
}

func (r *Resolver) unavailable(asset, symbol string, horizon models.Horizon, refDate, reason string) models.MarketObservation {
	return models.MarketObservation{
		Asset:      asset,
		Symbol:     symbol,
		Horizon:    horizon,
		Direction:  models.MarketUnavailable,
		Reason:     reason,
		ResolvedAt: time.Now().UTC(),
	}
}

func (r *Resolver) allUnavailable(asset, symbol, refDate, reason string) map[models.Horizon]models.MarketObservation {
	observations := make(map[models.Horizon]models.MarketObservation, len(models.AllHorizons()))
	for _, horizon := range models.AllHorizons() {
		observations[horizon] = r.unavailable(asset, symbol, horizon, refDate, reason)
	}
	return observations
}

// cached loads a previously resolved observation. Unavailable entries are
// never written, so a hit is always usable.
func (r *Resolver) cached(ctx context.Context, asset, refDate string, horizon models.Horizon) (models.MarketObservation, bool) {
	raw, err := r.cache.Get(ctx, cacheKey(asset, refDate, horizon))
	if err != nil {
		return models.MarketObservation{}, false
	}

	var obs models.MarketObservation
	if err := json.Unmarshal([]byte(raw), &obs); err != nil {
		r.logger.Warn().Str("asset", asset).Str("date", refDate).Msg("Discarding unreadable cached observation")
		return models.MarketObservation{}, false
	}
	if !obs.Available() {
		return models.MarketObservation{}, false
	}
	return obs, true
}

// store caches an available observation. Unavailable ones are skipped so the
// next run can re-resolve them once market data exists.
func (r *Resolver) store(ctx context.Context, asset, refDate string, obs models.MarketObservation) {
	if !obs.Available() {
		return
	}
	encoded, err := json.Marshal(obs)
	if err != nil {
		return
	}
	key := cacheKey(asset, refDate, obs.Horizon)
	if err := r.cache.Set(ctx, key, string(encoded), "cached market observation"); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("Failed to cache observation")
	}
}
