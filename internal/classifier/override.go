package classifier

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ternarybob/arbor"

	"github.com/honeylab/honeyindex/internal/models"
)

// Overrides holds the manual review labels keyed by videoID_asset. A manual
// label always wins over any automatic classification; a skip label removes
// the pair entirely.
type Overrides struct {
	labels map[string]models.OverrideLabel
	logger arbor.ILogger
}

// LoadOverrides reads the manual label file. A missing file is an empty
// override set, not an error; a malformed file or an unknown label value is
// an error so silent typos cannot change published numbers.
func LoadOverrides(path string, logger arbor.ILogger) (*Overrides, error) {
	labels := make(map[string]models.OverrideLabel)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Debug().Str("path", path).Msg("No manual label file, overrides disabled")
		return &Overrides{labels: labels, logger: logger}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manual labels %s: %w", path, err)
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse manual labels %s: %w", path, err)
	}

	for key, value := range raw {
		label, err := parseLabel(value)
		if err != nil {
			return nil, fmt.Errorf("manual label %s: %w", key, err)
		}
		labels[key] = label
	}

	logger.Info().Int("count", len(labels)).Str("path", path).Msg("Loaded manual review labels")
	return &Overrides{labels: labels, logger: logger}, nil
}

// parseLabel accepts both single-letter shorthand and full label names.
func parseLabel(value string) (models.OverrideLabel, error) {
	switch value {
	case "P", "positive":
		return models.OverridePositive, nil
	case "N", "negative":
		return models.OverrideNegative, nil
	case "S", "skip":
		return models.OverrideSkip, nil
	default:
		return "", fmt.Errorf("unknown label value %q (want P/N/S or positive/negative/skip)", value)
	}
}

// Lookup returns the manual label for a (video, asset) pair, if any.
func (o *Overrides) Lookup(videoID, asset string) (models.OverrideLabel, bool) {
	label, ok := o.labels[models.RecordKey(videoID, asset)]
	return label, ok
}

// Len returns the number of loaded labels.
func (o *Overrides) Len() int {
	return len(o.labels)
}

// Keys returns every labeled videoID_asset key, for integrity checks
// against the collected video set.
func (o *Overrides) Keys() []string {
	keys := make([]string, 0, len(o.labels))
	for key := range o.labels {
		keys = append(keys, key)
	}
	return keys
}
