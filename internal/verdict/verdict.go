// Package verdict decides whether a directional call was a contrarian hit.
// The channel under study is treated as a reverse indicator: a call counts
// as a hit when the market moved against it.
package verdict

import (
	"fmt"

	"github.com/honeylab/honeyindex/internal/models"
)

// Judge resolves a call against the realized market direction.
//
// The result is nil exactly when the direction is unavailable: the pair is
// unverified and must stay out of every ratio. Flat is a verified miss, not
// an unknown; the market was observed and it did not move against the call.
func Judge(call models.Direction, actual models.MarketDirection) *bool {
	if actual == models.MarketUnavailable || actual == "" {
		return nil
	}

	hit := (call == models.DirectionBullish && actual == models.MarketDown) ||
		(call == models.DirectionBearish && actual == models.MarketUp)
	return &hit
}

// Reasoning renders the human-readable judgment line stored on records.
func Reasoning(call models.Direction, obs models.MarketObservation) string {
	if !obs.Available() {
		if obs.Reason != "" {
			return fmt.Sprintf("%s call unverified: %s", call, obs.Reason)
		}
		return fmt.Sprintf("%s call unverified: market data unavailable", call)
	}
	hit := Judge(call, obs.Direction)
	outcome := "miss"
	if hit != nil && *hit {
		outcome = "hit"
	}
	return fmt.Sprintf("%s call vs %s move of %.2f%% over %s: %s", call, obs.Direction, obs.ChangePct, obs.Horizon, outcome)
}

// Outcome pairs an observation with its judgment for record storage.
func Outcome(call models.Direction, obs models.MarketObservation) models.HorizonOutcome {
	return models.HorizonOutcome{
		Observation: obs,
		IsHit:       Judge(call, obs.Direction),
	}
}
