package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	Environment string           `toml:"environment" validate:"oneof=development production"`
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Logging     LoggingConfig    `toml:"logging"`
	Collector   CollectorConfig  `toml:"collector"`
	Detector    DetectorConfig   `toml:"detector"`
	Classifier  ClassifierConfig `toml:"classifier"`
	Overrides   OverridesConfig  `toml:"overrides"`
	Market      MarketConfig     `toml:"market"`
	Gemini      GeminiConfig     `toml:"gemini"`
	Claude      ClaudeConfig     `toml:"claude"`
	LLM         LLMConfig        `toml:"llm"`
	Pipeline    PipelineConfig   `toml:"pipeline"`
	Scheduler   SchedulerConfig  `toml:"scheduler"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lt=65536"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration.
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"` // delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=debug info warn error"`
	Output []string `toml:"output"` // "stdout", "file"
}

// CollectorConfig points at the monthly video listings produced by the
// external collector (data/{YYYY}/{MM}/videos.json).
type CollectorConfig struct {
	DataDir string `toml:"data_dir"`
}

// DetectorConfig extends the built-in asset pattern table.
type DetectorConfig struct {
	// ExtraPatterns maps a canonical asset to additional title regexps.
	// Patterns for an asset already in the built-in table extend it; a new
	// asset is appended after the table.
	ExtraPatterns map[string][]string `toml:"extra_patterns"`
}

// ClassifierConfig selects and tunes the tone classification strategy.
type ClassifierConfig struct {
	// Strategy is "rules" or "llm". The LLM strategy falls back to neutral
	// on provider failure; it never fails a batch.
	Strategy string `toml:"strategy" validate:"oneof=rules llm"`
	// MinScore suppresses weak rule-based calls: a decision requires the
	// winning score to reach this value. 0 disables the floor.
	MinScore float64 `toml:"min_score"`
}

// OverridesConfig locates the manual review label file.
type OverridesConfig struct {
	Path string `toml:"path"` // JSON map of videoID_asset -> P/N/S label
}

// MarketConfig contains the EODHD market data client and direction policy.
type MarketConfig struct {
	APIKey         string        `toml:"api_key"`
	BaseURL        string        `toml:"base_url"`
	RateLimit      int           `toml:"rate_limit"` // requests per second
	RequestTimeout time.Duration `toml:"request_timeout"`
	// FlatThresholdPct is the minimum percent move for an up/down call;
	// changes within the band are flat. Explicit by design; see the
	// direction resolver.
	FlatThresholdPct float64 `toml:"flat_threshold_pct" validate:"gt=0"`
	// BaselineSearchDays bounds the backward search for the baseline close
	// when the publish date falls on a holiday or weekend.
	BaselineSearchDays int `toml:"baseline_search_days" validate:"gt=0"`
}

// GeminiConfig contains Google Gemini API configuration.
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API configuration.
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

// LLMProvider represents the AI provider type.
type LLMProvider string

const (
	LLMProviderGemini LLMProvider = "gemini"
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for the AI providers.
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider" validate:"oneof=gemini claude"`
}

// PipelineConfig tunes batch analysis runs.
type PipelineConfig struct {
	// Concurrency bounds in-flight (video, asset) pairs per run. The
	// external dependencies are rate limited independently, so tens are
	// enough to keep them saturated.
	Concurrency int `toml:"concurrency" validate:"gt=0"`
	// ExcludedAssets are detected but never verified (routed to the
	// excluded bucket with a reason).
	ExcludedAssets []string `toml:"excluded_assets"`
}

// SchedulerConfig controls the optional periodic analysis of the current
// partition while serving.
type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // cron format
}

// NewDefaultConfig creates a configuration with default values. Only
// user-facing settings are exposed in honeyindex.toml; technical parameters
// default here.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/db",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Collector: CollectorConfig{
			DataDir: "./data",
		},
		Classifier: ClassifierConfig{
			Strategy: "rules",
			MinScore: 0,
		},
		Overrides: OverridesConfig{
			Path: "./data/review/manual-labels.json",
		},
		Market: MarketConfig{
			BaseURL:            "https://eodhd.com/api",
			RateLimit:          10,
			RequestTimeout:     30 * time.Second,
			FlatThresholdPct:   0.1, // matches the historical multi-period scripts
			BaselineSearchDays: 7,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-3-flash-preview",
			Timeout:     "2m",
			Temperature: 0.2,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   1024,
			Timeout:     "2m",
			Temperature: 0.2,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		Pipeline: PipelineConfig{
			Concurrency:    8,
			ExcludedAssets: []string{"Ethereum"},
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			Schedule: "0 0 */6 * * *",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> files in
// order -> environment variables. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := Validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnvOverrides maps well-known environment variables onto config
// fields, overriding any file value.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("EODHD_API_TOKEN"); v != "" {
		config.Market.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		config.Gemini.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		config.Claude.APIKey = v
	}
	if v := os.Getenv("HONEYINDEX_DATA_DIR"); v != "" {
		config.Collector.DataDir = v
	}
	if v := os.Getenv("HONEYINDEX_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("HONEYINDEX_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
}

// ApplyFlagOverrides applies command-line flag values (highest priority).
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks structural constraints on the configuration.
func Validate(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
