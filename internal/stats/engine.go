// Package stats folds stored records into the published aggregate numbers.
// The aggregate is pure derived data: the same record set always reproduces
// the same snapshot, whether computed in one pass or partition by partition.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/honeylab/honeyindex/internal/interfaces"
	"github.com/honeylab/honeyindex/internal/models"
)

// partialPrefix namespaces persisted per-partition fold results.
const partialPrefix = "agg:"

// partitionAggregate is the fold result for one partition. Funnel counts are
// distinct video IDs; a video lives in exactly one partition, so summing
// partitions never double-counts.
type partitionAggregate struct {
	Partition string `json:"partition"`

	Funnel models.Funnel `json:"funnel"`

	// Pair-level counts at the primary horizon.
	Verified int `json:"verified"`
	Hits     int `json:"hits"`

	Unanalyzed int `json:"unanalyzed"`
	Excluded   int `json:"excluded"`

	AssetVerified map[string]int                `json:"asset_verified"`
	AssetHits     map[string]int                `json:"asset_hits"`
	HorizonCounts map[models.Horizon]hitCounter `json:"horizon_counts"`
}

type hitCounter struct {
	Verified int `json:"verified"`
	Hits     int `json:"hits"`
}

// Engine computes aggregate statistics over the record store. Per-partition
// fold results are persisted so incremental recomputation of one partition
// followed by a refold matches a full recompute exactly.
type Engine struct {
	records interfaces.RecordStorage
	kv      interfaces.KeyValueStorage
	logger  arbor.ILogger
}

// NewEngine creates an aggregation engine.
func NewEngine(records interfaces.RecordStorage, kv interfaces.KeyValueStorage, logger arbor.ILogger) *Engine {
	return &Engine{
		records: records,
		kv:      kv,
		logger:  logger,
	}
}

// ComputeAll recomputes every partition and refolds the global snapshot.
func (e *Engine) ComputeAll(ctx context.Context) (*models.AggregateStats, error) {
	partitions, err := e.records.Partitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions: %w", err)
	}

	for _, partition := range partitions {
		if err := e.RecomputePartition(ctx, partition); err != nil {
			return nil, err
		}
	}

	return e.Refold(ctx)
}

// RecomputePartition folds one partition's records and persists the result.
func (e *Engine) RecomputePartition(ctx context.Context, partition string) error {
	records, err := e.records.ListByPartition(ctx, partition)
	if err != nil {
		return fmt.Errorf("failed to load partition %s: %w", partition, err)
	}

	meta, err := e.records.GetPartitionMeta(ctx, partition)
	if err != nil {
		return err
	}
	videoTotal := 0
	if meta != nil {
		videoTotal = meta.VideoCount
	}

	aggregate, err := foldPartition(partition, videoTotal, records)
	if err != nil {
		return err
	}
	if err := checkIntegrity(aggregate); err != nil {
		return err
	}

	encoded, err := json.Marshal(aggregate)
	if err != nil {
		return fmt.Errorf("failed to encode partition aggregate %s: %w", partition, err)
	}
	if err := e.kv.Set(ctx, partialPrefix+partition, string(encoded), "partition fold result"); err != nil {
		return fmt.Errorf("failed to persist partition aggregate %s: %w", partition, err)
	}

	e.logger.Debug().
		Str("partition", partition).
		Int("records", len(records)).
		Int("verified", aggregate.Verified).
		Int("hits", aggregate.Hits).
		Msg("Recomputed partition aggregate")
	return nil
}

// Refold combines the persisted partition aggregates into the global
// snapshot and stores it. Only partitions that still hold records
// participate: a partial left behind after its records were removed is
// stale and is deleted, not folded.
func (e *Engine) Refold(ctx context.Context) (*models.AggregateStats, error) {
	pairs, err := e.kv.ListByPrefix(ctx, partialPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list partition aggregates: %w", err)
	}

	partitions, err := e.records.Partitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list record partitions: %w", err)
	}
	metas, err := e.records.ListPartitionMeta(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list partition meta: %w", err)
	}
	// A partition with meta but no records is a month whose videos mention
	// no assets; its funnel total still counts.
	live := make(map[string]struct{}, len(partitions)+len(metas))
	for _, partition := range partitions {
		live[partition] = struct{}{}
	}
	for _, meta := range metas {
		live[meta.Partition] = struct{}{}
	}

	partials := make([]partitionAggregate, 0, len(pairs))
	for _, pair := range pairs {
		var aggregate partitionAggregate
		if err := json.Unmarshal([]byte(pair.Value), &aggregate); err != nil {
			return nil, fmt.Errorf("corrupt partition aggregate %s: %w", pair.Key, err)
		}
		if _, ok := live[aggregate.Partition]; !ok {
			e.logger.Warn().Str("partition", aggregate.Partition).Msg("Dropping stale partition aggregate with no records")
			if err := e.kv.Delete(ctx, pair.Key); err != nil && err != interfaces.ErrKeyNotFound {
				return nil, fmt.Errorf("failed to drop stale partition aggregate %s: %w", pair.Key, err)
			}
			continue
		}
		partials = append(partials, aggregate)
	}
	sort.Slice(partials, func(i, j int) bool { return partials[i].Partition < partials[j].Partition })

	snapshot := combine(partials)
	if err := e.records.SaveSnapshot(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}

	e.logger.Info().
		Int("partitions", len(partials)).
		Int("verified", snapshot.Verified).
		Int("hits", snapshot.Hits).
		Float64("honey_index", snapshot.HoneyIndex).
		Msg("Refolded aggregate snapshot")
	return snapshot, nil
}

// foldPartition walks one partition's records once, tracking the funnel as
// video-ID sets and the headline numbers as pair counts.
func foldPartition(partition string, videoTotal int, records []models.StoredRecord) (*partitionAggregate, error) {
	mentioned := make(map[string]struct{})
	toned := make(map[string]struct{})
	verified := make(map[string]struct{})
	hit := make(map[string]struct{})

	aggregate := &partitionAggregate{
		Partition:     partition,
		AssetVerified: make(map[string]int),
		AssetHits:     make(map[string]int),
		HorizonCounts: make(map[models.Horizon]hitCounter),
	}

	for i := range records {
		record := &records[i]
		mentioned[record.VideoID] = struct{}{}

		switch record.Status {
		case models.StatusUnanalyzed:
			aggregate.Unanalyzed++
			continue
		case models.StatusExcluded:
			aggregate.Excluded++
			continue
		}

		reader, err := record.Reader()
		if err != nil {
			return nil, fmt.Errorf("partition %s: %w", partition, err)
		}

		toned[record.VideoID] = struct{}{}

		if isHit := reader.IsHit(); isHit != nil {
			verified[record.VideoID] = struct{}{}
			aggregate.Verified++
			aggregate.AssetVerified[record.Asset]++
			if *isHit {
				hit[record.VideoID] = struct{}{}
				aggregate.Hits++
				aggregate.AssetHits[record.Asset]++
			}
		}

		for _, horizon := range models.AllHorizons() {
			if horizonHit := reader.HorizonHit(horizon); horizonHit != nil {
				counter := aggregate.HorizonCounts[horizon]
				counter.Verified++
				if *horizonHit {
					counter.Hits++
				}
				aggregate.HorizonCounts[horizon] = counter
			}
		}
	}

	// A stale collector count never shrinks the funnel top below what the
	// records prove exists.
	if videoTotal < len(mentioned) {
		videoTotal = len(mentioned)
	}

	aggregate.Funnel = models.Funnel{
		Total:     videoTotal,
		Mentioned: len(mentioned),
		Toned:     len(toned),
		Verified:  len(verified),
		Hits:      len(hit),
	}
	return aggregate, nil
}

// checkIntegrity rejects folds that violate the funnel invariant. A failure
// here is a logic bug, not data noise, so it aborts the run.
func checkIntegrity(a *partitionAggregate) error {
	f := a.Funnel
	if f.Total < 0 || f.Mentioned < 0 || f.Toned < 0 || f.Verified < 0 || f.Hits < 0 ||
		a.Verified < 0 || a.Hits < 0 {
		return fmt.Errorf("partition %s: negative count in aggregate (funnel %+v)", a.Partition, f)
	}
	if f.Hits > f.Verified || f.Verified > f.Toned || f.Toned > f.Mentioned || f.Mentioned > f.Total {
		return fmt.Errorf("partition %s: funnel not monotonic (%+v)", a.Partition, f)
	}
	if a.Hits > a.Verified {
		return fmt.Errorf("partition %s: pair hits %d exceed verified %d", a.Partition, a.Hits, a.Verified)
	}
	return nil
}

// combine merges partition folds into the global snapshot.
func combine(partials []partitionAggregate) *models.AggregateStats {
	snapshot := &models.AggregateStats{
		UpdatedAt: time.Now().UTC(),
	}

	assetVerified := make(map[string]int)
	assetHits := make(map[string]int)
	horizonCounts := make(map[models.Horizon]hitCounter)

	for _, p := range partials {
		snapshot.Verified += p.Verified
		snapshot.Hits += p.Hits
		snapshot.Unanalyzed += p.Unanalyzed
		snapshot.Excluded += p.Excluded

		snapshot.Funnel.Total += p.Funnel.Total
		snapshot.Funnel.Mentioned += p.Funnel.Mentioned
		snapshot.Funnel.Toned += p.Funnel.Toned
		snapshot.Funnel.Verified += p.Funnel.Verified
		snapshot.Funnel.Hits += p.Funnel.Hits

		for asset, count := range p.AssetVerified {
			assetVerified[asset] += count
		}
		for asset, count := range p.AssetHits {
			assetHits[asset] += count
		}
		for horizon, counter := range p.HorizonCounts {
			total := horizonCounts[horizon]
			total.Verified += counter.Verified
			total.Hits += counter.Hits
			horizonCounts[horizon] = total
		}

		snapshot.Periods = append(snapshot.Periods, models.PeriodStats{
			Partition:  p.Partition,
			Videos:     p.Funnel.Total,
			Verified:   p.Verified,
			Hits:       p.Hits,
			HoneyIndex: models.Ratio(p.Hits, p.Verified),
			Funnel:     p.Funnel,
		})
	}

	snapshot.HoneyIndex = models.Ratio(snapshot.Hits, snapshot.Verified)

	assets := make([]string, 0, len(assetVerified))
	for asset := range assetVerified {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	for _, asset := range assets {
		snapshot.Assets = append(snapshot.Assets, models.AssetStats{
			Asset:      asset,
			Total:      assetVerified[asset],
			Hits:       assetHits[asset],
			HoneyIndex: models.Ratio(assetHits[asset], assetVerified[asset]),
		})
	}

	for _, horizon := range models.AllHorizons() {
		counter, ok := horizonCounts[horizon]
		if !ok {
			continue
		}
		snapshot.Horizons = append(snapshot.Horizons, models.HorizonStats{
			Horizon:    horizon,
			Verified:   counter.Verified,
			Hits:       counter.Hits,
			HoneyIndex: models.Ratio(counter.Hits, counter.Verified),
		})
	}

	return snapshot
}
