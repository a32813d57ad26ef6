package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func published(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestRecordKeyAndPartition(t *testing.T) {
	assert.Equal(t, "abc_123_Bitcoin", RecordKey("abc_123", "Bitcoin"))
	assert.Equal(t, "2024-03", PartitionOf(published("2024-03-15")))

	v := Video{ID: "abc", PublishedAt: published("2023-12-31")}
	assert.Equal(t, "2023-12", v.Partition())
}

func TestJudgedRecordReader(t *testing.T) {
	hit := true
	record := NewJudgedRecord(&JudgedRecord{
		VideoID:     "vid1",
		Title:       "title",
		PublishedAt: published("2024-03-05"),
		Asset:       "Bitcoin",
		Call: AssetCall{
			VideoID:   "vid1",
			Asset:     "Bitcoin",
			Direction: DirectionBullish,
			Tone:      TonePositive,
		},
		Horizons: map[Horizon]HorizonOutcome{
			Horizon1D: {Observation: MarketObservation{Direction: MarketDown}, IsHit: &hit},
			Horizon1W: {Observation: MarketObservation{Direction: MarketUnavailable}, IsHit: nil},
		},
		Judgment: Judgment{
			PredictedDirection: DirectionBullish,
			ActualDirection:    MarketDown,
			IsHit:              &hit,
		},
	})

	assert.Equal(t, "vid1_Bitcoin", record.Key)
	assert.Equal(t, "2024-03", record.Partition)
	assert.Equal(t, SchemaV3, record.SchemaVersion)

	reader, err := record.Reader()
	require.NoError(t, err)
	assert.Equal(t, "Bitcoin", reader.Asset())
	assert.Equal(t, TonePositive, reader.Tone())
	assert.Equal(t, MarketDown, reader.Direction())
	require.NotNil(t, reader.IsHit())
	assert.True(t, *reader.IsHit())

	require.NotNil(t, reader.HorizonHit(Horizon1D))
	assert.Nil(t, reader.HorizonHit(Horizon1W))
	assert.Nil(t, reader.HorizonHit(Horizon3M))
}

func TestLegacyRecordReader(t *testing.T) {
	record := NewLegacyRecord(&LegacyRecord{
		VideoID:         "vid2",
		PublishedAt:     published("2023-11-02"),
		Asset:           "KOSPI",
		Tone:            ToneNegative,
		ActualDirection: MarketUp,
		IsHoney:         true,
	})

	assert.Equal(t, SchemaLegacy, record.SchemaVersion)

	reader, err := record.Reader()
	require.NoError(t, err)
	assert.Equal(t, ToneNegative, reader.Tone())
	require.NotNil(t, reader.IsHit())
	assert.True(t, *reader.IsHit())

	// Legacy rows only carry the primary horizon.
	require.NotNil(t, reader.HorizonHit(PrimaryHorizon))
	assert.Nil(t, reader.HorizonHit(Horizon1M))
}

func TestLegacyReaderUnresolvedDirectionIsUnverified(t *testing.T) {
	record := NewLegacyRecord(&LegacyRecord{
		VideoID:     "vid3",
		PublishedAt: published("2023-11-02"),
		Asset:       "KOSPI",
		Tone:        TonePositive,
		IsHoney:     false,
	})

	reader, err := record.Reader()
	require.NoError(t, err)
	assert.Nil(t, reader.IsHit())
	assert.Nil(t, reader.HorizonHit(PrimaryHorizon))
}

func TestReaderRejectsCorruptEnvelopes(t *testing.T) {
	missing := &StoredRecord{Key: "k", SchemaVersion: SchemaV3}
	_, err := missing.Reader()
	require.Error(t, err)

	unknown := &StoredRecord{Key: "k", SchemaVersion: 9}
	_, err = unknown.Reader()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown schema version")
}

func TestHorizonTradingDays(t *testing.T) {
	assert.Equal(t, 1, Horizon1D.TradingDays())
	assert.Equal(t, 5, Horizon1W.TradingDays())
	assert.Equal(t, 20, Horizon1M.TradingDays())
	assert.Equal(t, 60, Horizon3M.TradingDays())
}

func TestToneDirection(t *testing.T) {
	assert.Equal(t, DirectionBullish, TonePositive.Direction())
	assert.Equal(t, DirectionBearish, ToneNegative.Direction())
	assert.Equal(t, Direction(""), ToneNeutral.Direction())
}
