package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/honeylab/honeyindex/internal/interfaces"
	"github.com/honeylab/honeyindex/internal/models"
)

// analyzedFile is the historical per-month analysis export.
const analyzedFile = "analyzed.json"

// Importer loads historical analysis exports into the record store. Two file
// generations coexist: flat rows (tone/actualDirection/isHoney) and nested
// rows (analysis/marketData/judgment). Items are sniffed individually, so a
// mixed file imports cleanly.
type Importer struct {
	records interfaces.RecordStorage
	logger  arbor.ILogger
}

// NewImporter creates a legacy export importer.
func NewImporter(records interfaces.RecordStorage, logger arbor.ILogger) *Importer {
	return &Importer{
		records: records,
		logger:  logger,
	}
}

// flatItem is the historical flat export row.
type flatItem struct {
	VideoID         string    `json:"videoId"`
	Title           string    `json:"title"`
	PublishedAt     time.Time `json:"publishedAt"`
	Asset           string    `json:"asset"`
	Tone            string    `json:"tone"`
	ActualDirection string    `json:"actualDirection"`
	IsHoney         bool      `json:"isHoney"`
	ClosePrice      float64   `json:"closePrice"`
	ClosePriceDate  string    `json:"closePriceDate"`
}

// nestedItem is the newer export row with full analysis evidence.
type nestedItem struct {
	VideoID     string    `json:"videoId"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"publishedAt"`

	Analysis struct {
		DetectedAssets []struct {
			Asset       string  `json:"asset"`
			MatchedText string  `json:"matchedText"`
			Confidence  float64 `json:"confidence"`
		} `json:"detectedAssets"`
		ToneAnalysis struct {
			Tone      string   `json:"tone"`
			Keywords  []string `json:"keywords"`
			Reasoning string   `json:"reasoning"`
		} `json:"toneAnalysis"`
		Model string `json:"model"`
	} `json:"analysis"`

	MarketData struct {
		Asset         string   `json:"asset"`
		Ticker        string   `json:"ticker"`
		ClosePrice    float64  `json:"closePrice"`
		PreviousClose *float64 `json:"previousClose"`
		PriceChange   float64  `json:"priceChange"`
		Direction     string   `json:"direction"`
		TradingDate   string   `json:"tradingDate"`
	} `json:"marketData"`

	Judgment struct {
		PredictedDirection string `json:"predictedDirection"`
		ActualDirection    string `json:"actualDirection"`
		IsHoney            bool   `json:"isHoney"`
		Reasoning          string `json:"reasoning"`
	} `json:"judgment"`
}

// Import walks a directory tree for analyzed.json exports and upserts every
// row. Returns the number of records imported.
func (i *Importer) Import(ctx context.Context, dir string) (int, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == analyzedFile {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	imported := 0
	for _, path := range paths {
		count, err := i.importFile(ctx, path)
		if err != nil {
			return imported, err
		}
		imported += count
	}

	i.logger.Info().
		Int("files", len(paths)).
		Int("records", imported).
		Msg("Imported historical analysis exports")
	return imported, nil
}

func (i *Importer) importFile(ctx context.Context, path string) (int, error) {
	data, err := readJSONArray(path)
	if err != nil {
		return 0, err
	}

	count := 0
	for idx, raw := range data {
		record, err := convertItem(raw)
		if err != nil {
			return count, fmt.Errorf("%s item %d: %w", path, idx, err)
		}
		if err := i.records.UpsertRecord(ctx, record); err != nil {
			return count, fmt.Errorf("%s item %d: %w", path, idx, err)
		}
		count++
	}

	i.logger.Debug().
		Str("file", path).
		Int("records", count).
		Msg("Imported export file")
	return count, nil
}

func readJSONArray(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return items, nil
}

// convertItem sniffs one export row for its generation and converts it into
// the stored envelope.
func convertItem(raw json.RawMessage) (*models.StoredRecord, error) {
	var probe struct {
		Judgment json.RawMessage `json:"judgment"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("malformed export row: %w", err)
	}

	if len(probe.Judgment) > 0 {
		var item nestedItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("malformed nested row: %w", err)
		}
		return convertNested(&item)
	}

	var item flatItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("malformed flat row: %w", err)
	}
	return convertFlat(&item)
}

func convertFlat(item *flatItem) (*models.StoredRecord, error) {
	if item.VideoID == "" || item.Asset == "" {
		return nil, fmt.Errorf("flat row missing videoId or asset")
	}
	tone, err := parseTone(item.Tone)
	if err != nil {
		return nil, err
	}
	direction, err := parseMarketDirection(item.ActualDirection)
	if err != nil {
		return nil, err
	}

	return models.NewLegacyRecord(&models.LegacyRecord{
		VideoID:         item.VideoID,
		Title:           item.Title,
		PublishedAt:     item.PublishedAt,
		Asset:           item.Asset,
		Tone:            tone,
		ActualDirection: direction,
		IsHoney:         item.IsHoney,
		ClosePrice:      item.ClosePrice,
		ClosePriceDate:  item.ClosePriceDate,
	}), nil
}

func convertNested(item *nestedItem) (*models.StoredRecord, error) {
	if item.VideoID == "" || item.MarketData.Asset == "" {
		return nil, fmt.Errorf("nested row missing videoId or marketData.asset")
	}
	tone, err := parseTone(item.Analysis.ToneAnalysis.Tone)
	if err != nil {
		return nil, err
	}
	predicted, err := parseCallDirection(item.Judgment.PredictedDirection)
	if err != nil {
		return nil, err
	}
	actual, err := parseMarketDirection(item.MarketData.Direction)
	if err != nil {
		return nil, err
	}

	asset := item.MarketData.Asset
	confidence := 0.0
	for _, detected := range item.Analysis.DetectedAssets {
		if detected.Asset == asset {
			confidence = detected.Confidence
		}
	}

	// Rows without a resolved direction predate verification; their
	// judgment is unavailable rather than a miss.
	var isHit *bool
	if actual != "" && actual != models.MarketUnavailable {
		hit := item.Judgment.IsHoney
		isHit = &hit
	} else {
		actual = models.MarketUnavailable
	}

	var baseline float64
	if item.MarketData.PreviousClose != nil {
		baseline = *item.MarketData.PreviousClose
	}
	observation := models.MarketObservation{
		Asset:         asset,
		Symbol:        item.MarketData.Ticker,
		Horizon:       models.PrimaryHorizon,
		Direction:     actual,
		BaselineClose: baseline,
		TradingDate:   item.MarketData.TradingDate,
		Close:         item.MarketData.ClosePrice,
		ChangePct:     item.MarketData.PriceChange,
	}

	return models.NewJudgedRecord(&models.JudgedRecord{
		VideoID:     item.VideoID,
		Title:       item.Title,
		PublishedAt: item.PublishedAt,
		Asset:       asset,
		Call: models.AssetCall{
			VideoID:   item.VideoID,
			Asset:     asset,
			Direction: predicted,
			Tone:      tone,
			Source:    models.SourceLLM,
			Evidence: models.Evidence{
				MatchedKeywords: item.Analysis.ToneAnalysis.Keywords,
				Confidence:      confidence,
				Reasoning:       item.Analysis.ToneAnalysis.Reasoning,
				Model:           item.Analysis.Model,
			},
		},
		Horizons: map[models.Horizon]models.HorizonOutcome{
			models.PrimaryHorizon: {
				Observation: observation,
				IsHit:       isHit,
			},
		},
		Judgment: models.Judgment{
			PredictedDirection: predicted,
			ActualDirection:    actual,
			IsHit:              isHit,
			Reasoning:          item.Judgment.Reasoning,
		},
	}), nil
}

func parseTone(value string) (models.Tone, error) {
	switch value {
	case "positive":
		return models.TonePositive, nil
	case "negative":
		return models.ToneNegative, nil
	case "neutral", "":
		return models.ToneNeutral, nil
	default:
		return "", fmt.Errorf("unknown tone %q", value)
	}
}

func parseCallDirection(value string) (models.Direction, error) {
	switch value {
	case "bullish":
		return models.DirectionBullish, nil
	case "bearish":
		return models.DirectionBearish, nil
	default:
		return "", fmt.Errorf("unknown predicted direction %q", value)
	}
}

// parseMarketDirection accepts both naming generations: the flat exports
// wrote bullish/bearish for the realized move, the nested ones up/down.
func parseMarketDirection(value string) (models.MarketDirection, error) {
	switch value {
	case "up", "bullish":
		return models.MarketUp, nil
	case "down", "bearish":
		return models.MarketDown, nil
	case "flat":
		return models.MarketFlat, nil
	case "unavailable", "":
		return "", nil
	default:
		return "", fmt.Errorf("unknown market direction %q", value)
	}
}
