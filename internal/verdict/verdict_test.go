package verdict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/honeylab/honeyindex/internal/models"
)

// TestJudgeExhaustive covers the full call x direction space.
func TestJudgeExhaustive(t *testing.T) {
	boolPtr := func(b bool) *bool { return &b }

	tests := []struct {
		call   models.Direction
		actual models.MarketDirection
		want   *bool
	}{
		{models.DirectionBullish, models.MarketUp, boolPtr(false)},
		{models.DirectionBullish, models.MarketDown, boolPtr(true)},
		{models.DirectionBullish, models.MarketFlat, boolPtr(false)},
		{models.DirectionBullish, models.MarketUnavailable, nil},
		{models.DirectionBearish, models.MarketUp, boolPtr(true)},
		{models.DirectionBearish, models.MarketDown, boolPtr(false)},
		{models.DirectionBearish, models.MarketFlat, boolPtr(false)},
		{models.DirectionBearish, models.MarketUnavailable, nil},
	}

	for _, tt := range tests {
		got := Judge(tt.call, tt.actual)
		if tt.want == nil {
			assert.Nil(t, got, "%s vs %s", tt.call, tt.actual)
			continue
		}
		require.NotNil(t, got, "%s vs %s", tt.call, tt.actual)
		assert.Equal(t, *tt.want, *got, "%s vs %s", tt.call, tt.actual)
	}
}

func TestJudgeEmptyDirectionIsUnverified(t *testing.T) {
	assert.Nil(t, Judge(models.DirectionBullish, ""))
}

func TestFlatIsVerifiedMissNotNil(t *testing.T) {
	// A flat market was observed; collapsing it into "unknown" would
	// silently inflate the hit ratio.
	got := Judge(models.DirectionBearish, models.MarketFlat)
	require.NotNil(t, got)
	assert.False(t, *got)
}

func TestOutcome(t *testing.T) {
	obs := models.MarketObservation{
		Asset:     "Bitcoin",
		Horizon:   models.Horizon1D,
		Direction: models.MarketDown,
		ChangePct: -2.5,
	}

	outcome := Outcome(models.DirectionBullish, obs)
	require.NotNil(t, outcome.IsHit)
	assert.True(t, *outcome.IsHit)
	assert.Equal(t, obs, outcome.Observation)
}

func TestReasoning(t *testing.T) {
	obs := models.MarketObservation{
		Horizon:   models.Horizon1D,
		Direction: models.MarketDown,
		ChangePct: -2.5,
	}
	line := Reasoning(models.DirectionBullish, obs)
	assert.Contains(t, line, "bullish")
	assert.Contains(t, line, "down")
	assert.Contains(t, line, "hit")

	unavailable := models.MarketObservation{
		Horizon:   models.Horizon1M,
		Direction: models.MarketUnavailable,
		Reason:    "horizon not yet elapsed",
	}
	line = Reasoning(models.DirectionBearish, unavailable)
	assert.Contains(t, line, "unverified")
	assert.Contains(t, line, "horizon not yet elapsed")
}
