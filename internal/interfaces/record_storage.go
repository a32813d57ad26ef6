package interfaces

import (
	"context"

	"github.com/honeylab/honeyindex/internal/models"
)

// RecordStorage persists pipeline records in time partitions. All writes are
// upserts keyed by the natural (videoID, asset) key, so re-running a
// partition is idempotent.
type RecordStorage interface {
	// UpsertRecord inserts or replaces a record by its natural key.
	UpsertRecord(ctx context.Context, record *models.StoredRecord) error

	// GetRecord retrieves a record, nil when absent.
	GetRecord(ctx context.Context, key string) (*models.StoredRecord, error)

	// DeleteRecord removes a record by key (used when an override flips a
	// previously analyzed pair to skip).
	DeleteRecord(ctx context.Context, key string) error

	// ListByPartition returns all records in one partition.
	ListByPartition(ctx context.Context, partition string) ([]models.StoredRecord, error)

	// ListAll returns every stored record.
	ListAll(ctx context.Context) ([]models.StoredRecord, error)

	// Partitions returns the distinct partition keys with records, sorted.
	Partitions(ctx context.Context) ([]string, error)

	// SetPartitionMeta records collector totals for a partition.
	SetPartitionMeta(ctx context.Context, meta *models.PartitionMeta) error

	// GetPartitionMeta retrieves collector totals, nil when absent.
	GetPartitionMeta(ctx context.Context, partition string) (*models.PartitionMeta, error)

	// ListPartitionMeta returns all partition metadata.
	ListPartitionMeta(ctx context.Context) ([]models.PartitionMeta, error)

	// SaveSnapshot stores the global aggregate snapshot (derived data,
	// always replaced whole, never patched).
	SaveSnapshot(ctx context.Context, stats *models.AggregateStats) error

	// GetSnapshot retrieves the latest aggregate snapshot, nil when absent.
	GetSnapshot(ctx context.Context) (*models.AggregateStats, error)
}
