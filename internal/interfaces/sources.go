package interfaces

import (
	"context"
	"time"

	"github.com/honeylab/honeyindex/internal/models"
)

// VideoSource provides collected video titles grouped by month partition.
type VideoSource interface {
	// Partitions lists the available partition keys (YYYY-MM), sorted.
	Partitions(ctx context.Context) ([]string, error)

	// Videos returns the videos published in one partition.
	Videos(ctx context.Context, partition string) ([]models.Video, error)
}

// PriceSource provides end-of-day closes for a market symbol.
type PriceSource interface {
	// DailyCloses returns closes in [from, to], ascending by date.
	// Non-trading days are simply absent from the result.
	DailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyClose, error)
}

// ToneModel classifies a video title into assets and a directional tone.
type ToneModel interface {
	Classify(ctx context.Context, title string) (*models.TitleAnalysis, error)
}
