package classifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/honeylab/honeyindex/internal/models"
)

func writeLabels(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manual-labels.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadOverridesShorthandAndFullNames(t *testing.T) {
	path := writeLabels(t, `{
		"vid1_Bitcoin": "P",
		"vid2_KOSPI": "negative",
		"vid3_Tesla": "S",
		"vid4_Nvidia": "skip"
	}`)

	overrides, err := LoadOverrides(path, arbor.NewLogger())
	require.NoError(t, err)
	assert.Equal(t, 4, overrides.Len())

	label, ok := overrides.Lookup("vid1", "Bitcoin")
	assert.True(t, ok)
	assert.Equal(t, models.OverridePositive, label)

	label, ok = overrides.Lookup("vid2", "KOSPI")
	assert.True(t, ok)
	assert.Equal(t, models.OverrideNegative, label)

	label, ok = overrides.Lookup("vid3", "Tesla")
	assert.True(t, ok)
	assert.Equal(t, models.OverrideSkip, label)

	_, ok = overrides.Lookup("vid9", "Bitcoin")
	assert.False(t, ok)
}

func TestLoadOverridesMissingFileIsEmpty(t *testing.T) {
	overrides, err := LoadOverrides(filepath.Join(t.TempDir(), "absent.json"), arbor.NewLogger())
	require.NoError(t, err)
	assert.Zero(t, overrides.Len())
}

func TestLoadOverridesUnknownLabelFails(t *testing.T) {
	path := writeLabels(t, `{"vid1_Bitcoin": "X"}`)

	_, err := LoadOverrides(path, arbor.NewLogger())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown label")
}

func TestLoadOverridesMalformedJSONFails(t *testing.T) {
	path := writeLabels(t, `{"vid1_Bitcoin": `)

	_, err := LoadOverrides(path, arbor.NewLogger())
	assert.Error(t, err)
}

func TestOverrideLabelTone(t *testing.T) {
	assert.Equal(t, models.TonePositive, models.OverridePositive.Tone())
	assert.Equal(t, models.ToneNegative, models.OverrideNegative.Tone())
	assert.Equal(t, models.ToneNeutral, models.OverrideSkip.Tone())
}
