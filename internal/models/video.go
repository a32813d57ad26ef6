package models

import (
	"fmt"
	"time"
)

// Video is one immutable unit of collector input: a published video title.
// Identity (ID) is the join key for every downstream record.
type Video struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"publishedAt"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
}

// Partition returns the calendar-month partition the video belongs to (YYYY-MM).
func (v Video) Partition() string {
	return PartitionOf(v.PublishedAt)
}

// PartitionOf formats a timestamp as a YYYY-MM partition key.
func PartitionOf(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// RecordKey builds the natural key for a (video, asset) pair.
// The same key format is used for manual override lookups.
func RecordKey(videoID, asset string) string {
	return fmt.Sprintf("%s_%s", videoID, asset)
}
