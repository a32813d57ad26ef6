package stats

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/honeylab/honeyindex/internal/interfaces"
	"github.com/honeylab/honeyindex/internal/models"
)

// memoryRecords is an in-memory RecordStorage for tests.
type memoryRecords struct {
	records  map[string]models.StoredRecord
	meta     map[string]models.PartitionMeta
	snapshot *models.AggregateStats
}

func newMemoryRecords() *memoryRecords {
	return &memoryRecords{
		records: make(map[string]models.StoredRecord),
		meta:    make(map[string]models.PartitionMeta),
	}
}

func (m *memoryRecords) UpsertRecord(ctx context.Context, record *models.StoredRecord) error {
	m.records[record.Key] = *record
	return nil
}

func (m *memoryRecords) GetRecord(ctx context.Context, key string) (*models.StoredRecord, error) {
	if record, ok := m.records[key]; ok {
		return &record, nil
	}
	return nil, nil
}

func (m *memoryRecords) DeleteRecord(ctx context.Context, key string) error {
	delete(m.records, key)
	return nil
}

func (m *memoryRecords) ListByPartition(ctx context.Context, partition string) ([]models.StoredRecord, error) {
	var out []models.StoredRecord
	for _, record := range m.records {
		if record.Partition == partition {
			out = append(out, record)
		}
	}
	return out, nil
}

func (m *memoryRecords) ListAll(ctx context.Context) ([]models.StoredRecord, error) {
	var out []models.StoredRecord
	for _, record := range m.records {
		out = append(out, record)
	}
	return out, nil
}

func (m *memoryRecords) Partitions(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, record := range m.records {
		seen[record.Partition] = struct{}{}
	}
	var out []string
	for partition := range seen {
		out = append(out, partition)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memoryRecords) SetPartitionMeta(ctx context.Context, meta *models.PartitionMeta) error {
	m.meta[meta.Partition] = *meta
	return nil
}

func (m *memoryRecords) GetPartitionMeta(ctx context.Context, partition string) (*models.PartitionMeta, error) {
	if meta, ok := m.meta[partition]; ok {
		return &meta, nil
	}
	return nil, nil
}

func (m *memoryRecords) ListPartitionMeta(ctx context.Context) ([]models.PartitionMeta, error) {
	var out []models.PartitionMeta
	for _, meta := range m.meta {
		out = append(out, meta)
	}
	return out, nil
}

func (m *memoryRecords) SaveSnapshot(ctx context.Context, stats *models.AggregateStats) error {
	copied := *stats
	m.snapshot = &copied
	return nil
}

func (m *memoryRecords) GetSnapshot(ctx context.Context) (*models.AggregateStats, error) {
	return m.snapshot, nil
}

// memoryKV is an in-memory KeyValueStorage for tests.
type memoryKV struct {
	data map[string]string
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: make(map[string]string)}
}

func (m *memoryKV) Get(ctx context.Context, key string) (string, error) {
	value, ok := m.data[key]
	if !ok {
		return "", interfaces.ErrKeyNotFound
	}
	return value, nil
}

func (m *memoryKV) Set(ctx context.Context, key, value, description string) error {
	m.data[key] = value
	return nil
}

func (m *memoryKV) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *memoryKV) GetAll(ctx context.Context) (map[string]string, error) {
	return m.data, nil
}

func (m *memoryKV) ListByPrefix(ctx context.Context, prefix string) ([]interfaces.KeyValuePair, error) {
	var pairs []interfaces.KeyValuePair
	for k, v := range m.data {
		if strings.HasPrefix(k, prefix) {
			pairs = append(pairs, interfaces.KeyValuePair{Key: k, Value: v})
		}
	}
	return pairs, nil
}

func boolPtr(b bool) *bool { return &b }

// judged builds a v3 analyzed record with a primary-horizon outcome.
func judged(videoID, asset, partition string, direction models.Direction, isHit *bool) *models.StoredRecord {
	published, _ := time.Parse("2006-01", partition)
	actual := models.MarketUnavailable
	if isHit != nil {
		if *isHit {
			if direction == models.DirectionBullish {
				actual = models.MarketDown
			} else {
				actual = models.MarketUp
			}
		} else {
			if direction == models.DirectionBullish {
				actual = models.MarketUp
			} else {
				actual = models.MarketDown
			}
		}
	}

	tone := models.TonePositive
	if direction == models.DirectionBearish {
		tone = models.ToneNegative
	}

	rec := models.NewJudgedRecord(&models.JudgedRecord{
		VideoID:     videoID,
		Title:       "title " + videoID,
		PublishedAt: published,
		Asset:       asset,
		Call: models.AssetCall{
			VideoID:   videoID,
			Asset:     asset,
			Direction: direction,
			Tone:      tone,
			Source:    models.SourceRules,
		},
		Horizons: map[models.Horizon]models.HorizonOutcome{
			models.PrimaryHorizon: {
				Observation: models.MarketObservation{
					Asset:     asset,
					Horizon:   models.PrimaryHorizon,
					Direction: actual,
				},
				IsHit: isHit,
			},
		},
		Judgment: models.Judgment{
			PredictedDirection: direction,
			ActualDirection:    actual,
			IsHit:              isHit,
		},
	})
	return rec
}

func legacy(videoID, asset, partition string, tone models.Tone, actual models.MarketDirection, isHoney bool) *models.StoredRecord {
	published, _ := time.Parse("2006-01", partition)
	return models.NewLegacyRecord(&models.LegacyRecord{
		VideoID:         videoID,
		Title:           "title " + videoID,
		PublishedAt:     published,
		Asset:           asset,
		Tone:            tone,
		ActualDirection: actual,
		IsHoney:         isHoney,
	})
}

func unanalyzed(videoID, asset, partition, reason string) *models.StoredRecord {
	return &models.StoredRecord{
		Key:           models.RecordKey(videoID, asset),
		Partition:     partition,
		Status:        models.StatusUnanalyzed,
		SchemaVersion: models.SchemaV3,
		Reason:        reason,
		VideoID:       videoID,
		Asset:         asset,
	}
}

func newEngine(t *testing.T) (*Engine, *memoryRecords, *memoryKV) {
	t.Helper()
	records := newMemoryRecords()
	kv := newMemoryKV()
	return NewEngine(records, kv, arbor.NewLogger()), records, kv
}

func TestRatioRounding(t *testing.T) {
	assert.Equal(t, 37.0, models.Ratio(37, 100))
	assert.Equal(t, 33.3, models.Ratio(1, 3))
	assert.Equal(t, 66.7, models.Ratio(2, 3))
	assert.Equal(t, 0.0, models.Ratio(0, 0))
	assert.Equal(t, 100.0, models.Ratio(5, 5))
}

func TestComputeAllHeadlineNumbers(t *testing.T) {
	engine, records, _ := newEngine(t)
	ctx := context.Background()

	records.UpsertRecord(ctx, judged("v1", "Bitcoin", "2024-03", models.DirectionBullish, boolPtr(true)))
	records.UpsertRecord(ctx, judged("v2", "Bitcoin", "2024-03", models.DirectionBullish, boolPtr(false)))
	records.UpsertRecord(ctx, judged("v3", "KOSPI", "2024-03", models.DirectionBearish, boolPtr(true)))
	records.UpsertRecord(ctx, judged("v4", "Tesla", "2024-03", models.DirectionBearish, nil)) // unverified
	records.UpsertRecord(ctx, unanalyzed("v5", "Gold", "2024-03", "no tone"))

	snapshot, err := engine.ComputeAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, snapshot.Verified)
	assert.Equal(t, 2, snapshot.Hits)
	assert.Equal(t, 66.7, snapshot.HoneyIndex)
	assert.Equal(t, 1, snapshot.Unanalyzed)
	assert.Equal(t, 0, snapshot.Excluded)
}

func TestUnavailableExcludedFromRatios(t *testing.T) {
	engine, records, _ := newEngine(t)
	ctx := context.Background()

	records.UpsertRecord(ctx, judged("v1", "Bitcoin", "2024-03", models.DirectionBullish, boolPtr(true)))
	records.UpsertRecord(ctx, judged("v2", "Bitcoin", "2024-03", models.DirectionBullish, nil))

	snapshot, err := engine.ComputeAll(ctx)
	require.NoError(t, err)

	// The unverified pair is in neither numerator nor denominator.
	assert.Equal(t, 1, snapshot.Verified)
	assert.Equal(t, 1, snapshot.Hits)
	assert.Equal(t, 100.0, snapshot.HoneyIndex)
}

func TestFunnelMonotonicity(t *testing.T) {
	engine, records, _ := newEngine(t)
	ctx := context.Background()

	records.SetPartitionMeta(ctx, &models.PartitionMeta{Partition: "2024-03", VideoCount: 10})

	// One video mentioning two assets: pair counts exceed video counts.
	records.UpsertRecord(ctx, judged("v1", "Bitcoin", "2024-03", models.DirectionBullish, boolPtr(true)))
	records.UpsertRecord(ctx, judged("v1", "KOSPI", "2024-03", models.DirectionBullish, boolPtr(true)))
	records.UpsertRecord(ctx, judged("v2", "Tesla", "2024-03", models.DirectionBearish, boolPtr(false)))
	records.UpsertRecord(ctx, unanalyzed("v3", "Gold", "2024-03", "no tone"))

	snapshot, err := engine.ComputeAll(ctx)
	require.NoError(t, err)

	f := snapshot.Funnel
	assert.Equal(t, 10, f.Total)
	assert.Equal(t, 3, f.Mentioned)
	assert.Equal(t, 2, f.Toned)
	assert.Equal(t, 2, f.Verified)
	assert.Equal(t, 1, f.Hits)

	assert.LessOrEqual(t, f.Hits, f.Verified)
	assert.LessOrEqual(t, f.Verified, f.Toned)
	assert.LessOrEqual(t, f.Toned, f.Mentioned)
	assert.LessOrEqual(t, f.Mentioned, f.Total)

	// Pair-level verified can exceed the video-level funnel stage.
	assert.Equal(t, 3, snapshot.Verified)
}

func TestMixedSchemaVersionsAggregateTogether(t *testing.T) {
	engine, records, _ := newEngine(t)
	ctx := context.Background()

	records.UpsertRecord(ctx, judged("v1", "Bitcoin", "2024-03", models.DirectionBullish, boolPtr(true)))
	records.UpsertRecord(ctx, legacy("v2", "KOSPI", "2023-11", models.ToneNegative, models.MarketUp, true))
	records.UpsertRecord(ctx, legacy("v3", "KOSPI", "2023-11", models.TonePositive, models.MarketUp, false))
	// Legacy row without a resolved direction: unverified, not a miss.
	records.UpsertRecord(ctx, legacy("v4", "Samsung", "2023-11", models.TonePositive, "", false))

	snapshot, err := engine.ComputeAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, snapshot.Verified)
	assert.Equal(t, 2, snapshot.Hits)
	require.Len(t, snapshot.Periods, 2)
	assert.Equal(t, "2023-11", snapshot.Periods[0].Partition)
	assert.Equal(t, "2024-03", snapshot.Periods[1].Partition)

	// Per-asset breakdown spans both schema generations.
	var kospi models.AssetStats
	for _, a := range snapshot.Assets {
		if a.Asset == "KOSPI" {
			kospi = a
		}
	}
	assert.Equal(t, 2, kospi.Total)
	assert.Equal(t, 1, kospi.Hits)
	assert.Equal(t, 50.0, kospi.HoneyIndex)
}

func TestIncrementalEqualsFullRecompute(t *testing.T) {
	ctx := context.Background()

	seed := func(engine *Engine, records *memoryRecords) {
		records.UpsertRecord(ctx, judged("v1", "Bitcoin", "2024-02", models.DirectionBullish, boolPtr(true)))
		records.UpsertRecord(ctx, judged("v2", "KOSPI", "2024-02", models.DirectionBearish, boolPtr(false)))
		records.UpsertRecord(ctx, judged("v3", "Tesla", "2024-03", models.DirectionBullish, boolPtr(true)))
	}

	// Full path: everything recomputed at once.
	fullEngine, fullRecords, _ := newEngine(t)
	seed(fullEngine, fullRecords)
	fullRecords.UpsertRecord(ctx, judged("v4", "Tesla", "2024-03", models.DirectionBearish, boolPtr(true)))
	full, err := fullEngine.ComputeAll(ctx)
	require.NoError(t, err)

	// Incremental path: compute, mutate one partition, recompute just it.
	incEngine, incRecords, _ := newEngine(t)
	seed(incEngine, incRecords)
	_, err = incEngine.ComputeAll(ctx)
	require.NoError(t, err)

	incRecords.UpsertRecord(ctx, judged("v4", "Tesla", "2024-03", models.DirectionBearish, boolPtr(true)))
	require.NoError(t, incEngine.RecomputePartition(ctx, "2024-03"))
	incremental, err := incEngine.Refold(ctx)
	require.NoError(t, err)

	assert.Equal(t, full.Verified, incremental.Verified)
	assert.Equal(t, full.Hits, incremental.Hits)
	assert.Equal(t, full.HoneyIndex, incremental.HoneyIndex)
	assert.Equal(t, full.Funnel, incremental.Funnel)
	assert.Equal(t, full.Assets, incremental.Assets)
	assert.Equal(t, full.Periods, incremental.Periods)
	assert.Equal(t, full.Horizons, incremental.Horizons)
}

func TestComputeAllIsIdempotent(t *testing.T) {
	engine, records, _ := newEngine(t)
	ctx := context.Background()

	records.UpsertRecord(ctx, judged("v1", "Bitcoin", "2024-03", models.DirectionBullish, boolPtr(true)))
	records.UpsertRecord(ctx, judged("v2", "KOSPI", "2024-03", models.DirectionBearish, boolPtr(false)))

	first, err := engine.ComputeAll(ctx)
	require.NoError(t, err)
	second, err := engine.ComputeAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.Verified, second.Verified)
	assert.Equal(t, first.Hits, second.Hits)
	assert.Equal(t, first.HoneyIndex, second.HoneyIndex)
	assert.Equal(t, first.Funnel, second.Funnel)
	assert.Equal(t, first.Assets, second.Assets)
	assert.Equal(t, first.Periods, second.Periods)
}

func TestHorizonBreakdown(t *testing.T) {
	engine, records, _ := newEngine(t)
	ctx := context.Background()

	rec := judged("v1", "Bitcoin", "2024-03", models.DirectionBullish, boolPtr(true))
	rec.Judged.Horizons[models.Horizon1W] = models.HorizonOutcome{
		Observation: models.MarketObservation{Horizon: models.Horizon1W, Direction: models.MarketUp},
		IsHit:       boolPtr(false),
	}
	rec.Judged.Horizons[models.Horizon1M] = models.HorizonOutcome{
		Observation: models.MarketObservation{Horizon: models.Horizon1M, Direction: models.MarketUnavailable},
		IsHit:       nil,
	}
	records.UpsertRecord(ctx, rec)

	snapshot, err := engine.ComputeAll(ctx)
	require.NoError(t, err)

	byHorizon := make(map[models.Horizon]models.HorizonStats)
	for _, h := range snapshot.Horizons {
		byHorizon[h.Horizon] = h
	}

	assert.Equal(t, 1, byHorizon[models.Horizon1D].Verified)
	assert.Equal(t, 1, byHorizon[models.Horizon1D].Hits)
	assert.Equal(t, 1, byHorizon[models.Horizon1W].Verified)
	assert.Equal(t, 0, byHorizon[models.Horizon1W].Hits)
	// Unavailable horizon contributes nothing.
	_, present := byHorizon[models.Horizon1M]
	assert.False(t, present)
}

func TestSnapshotPersisted(t *testing.T) {
	engine, records, _ := newEngine(t)
	ctx := context.Background()

	records.UpsertRecord(ctx, judged("v1", "Bitcoin", "2024-03", models.DirectionBullish, boolPtr(true)))

	computed, err := engine.ComputeAll(ctx)
	require.NoError(t, err)

	stored, err := records.GetSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, computed.Verified, stored.Verified)
	assert.Equal(t, computed.Hits, stored.Hits)
}

func TestRefoldDropsStalePartitionAggregate(t *testing.T) {
	engine, records, kv := newEngine(t)
	ctx := context.Background()

	records.UpsertRecord(ctx, judged("v1", "Bitcoin", "2024-03", models.DirectionBullish, boolPtr(true)))
	records.UpsertRecord(ctx, judged("v2", "KOSPI", "2024-04", models.DirectionBearish, boolPtr(true)))

	_, err := engine.ComputeAll(ctx)
	require.NoError(t, err)

	// Remove every 2024-04 record without recomputing that partition. The
	// persisted partial must not inflate the next snapshot.
	records.DeleteRecord(ctx, models.RecordKey("v2", "KOSPI"))

	snapshot, err := engine.Refold(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, snapshot.Verified)
	assert.Equal(t, 1, snapshot.Hits)
	require.Len(t, snapshot.Periods, 1)
	assert.Equal(t, "2024-03", snapshot.Periods[0].Partition)

	// The stale partial is gone from KV as well.
	_, err = kv.Get(ctx, partialPrefix+"2024-04")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
}

func TestRefoldKeepsRecordlessPartitionWithMeta(t *testing.T) {
	engine, records, _ := newEngine(t)
	ctx := context.Background()

	// A month whose videos mention no assets: meta only, zero records.
	records.UpsertRecord(ctx, judged("v1", "Bitcoin", "2024-03", models.DirectionBullish, boolPtr(true)))
	records.SetPartitionMeta(ctx, &models.PartitionMeta{Partition: "2024-04", VideoCount: 7})
	require.NoError(t, engine.RecomputePartition(ctx, "2024-03"))
	require.NoError(t, engine.RecomputePartition(ctx, "2024-04"))

	snapshot, err := engine.Refold(ctx)
	require.NoError(t, err)

	require.Len(t, snapshot.Periods, 2)
	assert.Equal(t, "2024-04", snapshot.Periods[1].Partition)
	assert.Equal(t, 7, snapshot.Periods[1].Funnel.Total)
	assert.Equal(t, 0, snapshot.Periods[1].Verified)
}
