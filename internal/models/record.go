package models

import (
	"fmt"
	"time"
)

// RecordStatus routes a (video, asset) pair into one of the persisted buckets.
type RecordStatus string

const (
	// StatusAnalyzed means the pair carries a directional call and at least
	// an attempted market observation.
	StatusAnalyzed RecordStatus = "analyzed"
	// StatusUnanalyzed means the pair was seen but could not be judged
	// (neutral tone, unknown asset, no market data yet).
	StatusUnanalyzed RecordStatus = "unanalyzed"
	// StatusExcluded means the pair was deliberately dropped by policy
	// (for example an excluded asset class).
	StatusExcluded RecordStatus = "excluded"
)

// HorizonOutcome pairs a market observation with its contrarian judgment.
// IsHit is nil exactly when the observation is unavailable.
type HorizonOutcome struct {
	Observation MarketObservation `json:"observation"`
	IsHit       *bool             `json:"is_hit"`
}

// Judgment is the headline verdict for the primary horizon.
type Judgment struct {
	PredictedDirection Direction       `json:"predicted_direction"`
	ActualDirection    MarketDirection `json:"actual_direction"`
	IsHit              *bool           `json:"is_hit"`
	Reasoning          string          `json:"reasoning,omitempty"`
}

// JudgedRecord is the current (v3) record shape: full analysis evidence,
// per-horizon market outcomes, and the headline judgment.
type JudgedRecord struct {
	VideoID     string                     `json:"video_id"`
	Title       string                     `json:"title"`
	PublishedAt time.Time                  `json:"published_at"`
	Asset       string                     `json:"asset"`
	Call        AssetCall                  `json:"call"`
	Horizons    map[Horizon]HorizonOutcome `json:"horizons"`
	Judgment    Judgment                   `json:"judgment"`
}

// LegacyRecord is the historical (v2) flat record shape: tone plus a single
// next-day actual direction. Kept readable so both generations coexist.
type LegacyRecord struct {
	VideoID         string          `json:"videoId"`
	Title           string          `json:"title"`
	PublishedAt     time.Time       `json:"publishedAt"`
	Asset           string          `json:"asset"`
	Tone            Tone            `json:"tone"`
	ActualDirection MarketDirection `json:"actualDirection"`
	IsHoney         bool            `json:"isHoney"`
	ClosePrice      float64         `json:"closePrice,omitempty"`
	ClosePriceDate  string          `json:"closePriceDate,omitempty"`
}

// Schema versions for the stored envelope.
const (
	SchemaLegacy = 2
	SchemaV3     = 3
)

// StoredRecord is the persistence envelope for one (video, asset) pair.
// It is a tagged union over the coexisting schema versions: exactly one of
// Legacy or Judged is set for analyzed records. Upserts are keyed by the
// natural Key so partition re-runs never double-append.
type StoredRecord struct {
	Key           string       `badgerhold:"key" json:"key"`
	Partition     string       `badgerholdIndex:"Partition" json:"partition"`
	Status        RecordStatus `json:"status"`
	SchemaVersion int          `json:"schema_version"`
	Reason        string       `json:"reason,omitempty"` // unanalyzed/excluded reason
	VideoID       string       `json:"video_id"`
	Asset         string       `json:"asset"`
	Legacy        *LegacyRecord `json:"legacy,omitempty"`
	Judged        *JudgedRecord `json:"judged,omitempty"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// RecordReader is the schema-independent view the aggregation engine folds
// over. One adapter exists per stored schema version; aggregation logic never
// sniffs versions itself.
type RecordReader interface {
	Key() string
	VideoID() string
	Asset() string
	Partition() string
	PublishedAt() time.Time
	Tone() Tone
	// Direction is the realized market direction at the primary horizon.
	Direction() MarketDirection
	// IsHit is nil when the primary-horizon observation is unavailable.
	IsHit() *bool
	// HorizonHit reports the judgment at a specific horizon; legacy records
	// only carry the primary horizon.
	HorizonHit(h Horizon) *bool
}

// Reader returns the schema adapter for an analyzed record.
func (r *StoredRecord) Reader() (RecordReader, error) {
	switch r.SchemaVersion {
	case SchemaLegacy:
		if r.Legacy == nil {
			return nil, fmt.Errorf("record %s: schema v2 without legacy payload", r.Key)
		}
		return legacyReader{rec: r}, nil
	case SchemaV3:
		if r.Judged == nil {
			return nil, fmt.Errorf("record %s: schema v3 without judged payload", r.Key)
		}
		return judgedReader{rec: r}, nil
	default:
		return nil, fmt.Errorf("record %s: unknown schema version %d", r.Key, r.SchemaVersion)
	}
}

// NewJudgedRecord wraps a v3 record in its storage envelope.
func NewJudgedRecord(j *JudgedRecord) *StoredRecord {
	return &StoredRecord{
		Key:           RecordKey(j.VideoID, j.Asset),
		Partition:     PartitionOf(j.PublishedAt),
		Status:        StatusAnalyzed,
		SchemaVersion: SchemaV3,
		VideoID:       j.VideoID,
		Asset:         j.Asset,
		Judged:        j,
		UpdatedAt:     time.Now().UTC(),
	}
}

// NewLegacyRecord wraps an imported v2 record in its storage envelope.
func NewLegacyRecord(l *LegacyRecord) *StoredRecord {
	return &StoredRecord{
		Key:           RecordKey(l.VideoID, l.Asset),
		Partition:     PartitionOf(l.PublishedAt),
		Status:        StatusAnalyzed,
		SchemaVersion: SchemaLegacy,
		VideoID:       l.VideoID,
		Asset:         l.Asset,
		Legacy:        l,
		UpdatedAt:     time.Now().UTC(),
	}
}

type judgedReader struct {
	rec *StoredRecord
}

func (r judgedReader) Key() string            { return r.rec.Key }
func (r judgedReader) VideoID() string        { return r.rec.VideoID }
func (r judgedReader) Asset() string          { return r.rec.Asset }
func (r judgedReader) Partition() string      { return r.rec.Partition }
func (r judgedReader) PublishedAt() time.Time { return r.rec.Judged.PublishedAt }
func (r judgedReader) Tone() Tone             { return r.rec.Judged.Call.Tone }

func (r judgedReader) Direction() MarketDirection {
	return r.rec.Judged.Judgment.ActualDirection
}

func (r judgedReader) IsHit() *bool { return r.rec.Judged.Judgment.IsHit }

func (r judgedReader) HorizonHit(h Horizon) *bool {
	outcome, ok := r.rec.Judged.Horizons[h]
	if !ok {
		return nil
	}
	return outcome.IsHit
}

type legacyReader struct {
	rec *StoredRecord
}

func (r legacyReader) Key() string            { return r.rec.Key }
func (r legacyReader) VideoID() string        { return r.rec.VideoID }
func (r legacyReader) Asset() string          { return r.rec.Asset }
func (r legacyReader) Partition() string      { return r.rec.Partition }
func (r legacyReader) PublishedAt() time.Time { return r.rec.Legacy.PublishedAt }
func (r legacyReader) Tone() Tone             { return r.rec.Legacy.Tone }

func (r legacyReader) Direction() MarketDirection {
	return r.rec.Legacy.ActualDirection
}

// IsHit for legacy records: the v2 exporter only wrote rows with a resolved
// direction, so a missing direction means the row predates verification and
// is treated as unavailable rather than a miss.
func (r legacyReader) IsHit() *bool {
	if r.rec.Legacy.ActualDirection == "" || r.rec.Legacy.ActualDirection == MarketUnavailable {
		return nil
	}
	hit := r.rec.Legacy.IsHoney
	return &hit
}

func (r legacyReader) HorizonHit(h Horizon) *bool {
	if h != PrimaryHorizon {
		return nil
	}
	return r.IsHit()
}

// PartitionMeta stores per-partition collector totals needed for the funnel.
type PartitionMeta struct {
	Partition  string    `badgerhold:"key" json:"partition"`
	VideoCount int       `json:"video_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}
