package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "honeyindex.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	config := NewDefaultConfig()
	require.NoError(t, Validate(config))

	assert.Equal(t, "rules", config.Classifier.Strategy)
	assert.Equal(t, 0.1, config.Market.FlatThresholdPct)
	assert.Equal(t, 7, config.Market.BaselineSearchDays)
	assert.Equal(t, 8, config.Pipeline.Concurrency)
	assert.Contains(t, config.Pipeline.ExcludedAssets, "Ethereum")
}

func TestLoadFromFilesOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 9090

[classifier]
strategy = "llm"

[market]
flat_threshold_pct = 0.5
`)

	config, err := LoadFromFiles(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "llm", config.Classifier.Strategy)
	assert.Equal(t, 0.5, config.Market.FlatThresholdPct)
	// Untouched settings keep their defaults.
	assert.Equal(t, "./data", config.Collector.DataDir)
}

func TestLoadFromFilesLaterFileWins(t *testing.T) {
	first := writeConfig(t, "[server]\nport = 9090\n")
	second := writeConfig(t, "[server]\nport = 7070\n")

	config, err := LoadFromFiles(first, second)
	require.NoError(t, err)
	assert.Equal(t, 7070, config.Server.Port)
}

func TestLoadFromFilesRejectsInvalidStrategy(t *testing.T) {
	path := writeConfig(t, `
[classifier]
strategy = "coinflip"
`)

	_, err := LoadFromFiles(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("EODHD_API_TOKEN", "token-from-env")
	t.Setenv("HONEYINDEX_DATA_DIR", "/srv/honeyindex/data")

	config, err := LoadFromFiles()
	require.NoError(t, err)
	assert.Equal(t, "token-from-env", config.Market.APIKey)
	assert.Equal(t, "/srv/honeyindex/data", config.Collector.DataDir)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()
	ApplyFlagOverrides(config, 8181, "0.0.0.0")
	assert.Equal(t, 8181, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)

	// Zero values leave the config untouched.
	ApplyFlagOverrides(config, 0, "")
	assert.Equal(t, 8181, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
}

func TestLoadFromFilesDetectorExtraPatterns(t *testing.T) {
	path := writeConfig(t, `
[detector.extra_patterns]
Samsung = ["갤럭시"]
Palantir = ["팔란티어", "(?i)pltr"]
`)

	config, err := LoadFromFiles(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"갤럭시"}, config.Detector.ExtraPatterns["Samsung"])
	assert.Len(t, config.Detector.ExtraPatterns["Palantir"], 2)
}
