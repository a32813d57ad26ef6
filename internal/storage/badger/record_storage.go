package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/honeylab/honeyindex/internal/interfaces"
	"github.com/honeylab/honeyindex/internal/models"
)

// snapshotKey is the single key under which the global aggregate lives.
const snapshotKey = "global"

// statsSnapshot wraps the aggregate so badgerhold can key it.
type statsSnapshot struct {
	ID    string `badgerhold:"key"`
	Stats models.AggregateStats
}

// RecordStorage implements interfaces.RecordStorage on Badger. Records are
// upserted by their natural key, so re-running a partition overwrites in
// place instead of appending.
type RecordStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewRecordStorage creates a new RecordStorage instance
func NewRecordStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RecordStorage {
	return &RecordStorage{
		db:     db,
		logger: logger,
	}
}

// UpsertRecord inserts or replaces a record by its natural key
func (s *RecordStorage) UpsertRecord(ctx context.Context, record *models.StoredRecord) error {
	if record.Key == "" {
		return fmt.Errorf("record has empty key (video=%s asset=%s)", record.VideoID, record.Asset)
	}
	record.UpdatedAt = time.Now().UTC()

	if err := s.db.Store().Upsert(record.Key, record); err != nil {
		return fmt.Errorf("failed to upsert record %s: %w", record.Key, err)
	}
	return nil
}

// GetRecord retrieves a record by key, nil when absent
func (s *RecordStorage) GetRecord(ctx context.Context, key string) (*models.StoredRecord, error) {
	var record models.StoredRecord
	err := s.db.Store().Get(key, &record)
	if err == badgerhold.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", key, err)
	}
	return &record, nil
}

// DeleteRecord removes a record by key. Deleting an absent record is not an
// error: override-driven removals race with fresh partitions.
func (s *RecordStorage) DeleteRecord(ctx context.Context, key string) error {
	err := s.db.Store().Delete(key, &models.StoredRecord{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete record %s: %w", key, err)
	}
	return nil
}

// ListByPartition returns all records in one partition using the index
func (s *RecordStorage) ListByPartition(ctx context.Context, partition string) ([]models.StoredRecord, error) {
	var records []models.StoredRecord
	err := s.db.Store().Find(&records, badgerhold.Where("Partition").Eq(partition).Index("Partition"))
	if err != nil {
		return nil, fmt.Errorf("failed to list records for partition %s: %w", partition, err)
	}
	return records, nil
}

// ListAll returns every stored record
func (s *RecordStorage) ListAll(ctx context.Context) ([]models.StoredRecord, error) {
	var records []models.StoredRecord
	err := s.db.Store().Find(&records, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return records, nil
}

// Partitions returns the distinct partition keys with records, sorted
func (s *RecordStorage) Partitions(ctx context.Context) ([]string, error) {
	records, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, record := range records {
		seen[record.Partition] = struct{}{}
	}

	partitions := make([]string, 0, len(seen))
	for partition := range seen {
		partitions = append(partitions, partition)
	}
	sort.Strings(partitions)
	return partitions, nil
}

// SetPartitionMeta records collector totals for a partition
func (s *RecordStorage) SetPartitionMeta(ctx context.Context, meta *models.PartitionMeta) error {
	meta.UpdatedAt = time.Now().UTC()
	if err := s.db.Store().Upsert(meta.Partition, meta); err != nil {
		return fmt.Errorf("failed to set partition meta %s: %w", meta.Partition, err)
	}
	return nil
}

// GetPartitionMeta retrieves collector totals, nil when absent
func (s *RecordStorage) GetPartitionMeta(ctx context.Context, partition string) (*models.PartitionMeta, error) {
	var meta models.PartitionMeta
	err := s.db.Store().Get(partition, &meta)
	if err == badgerhold.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get partition meta %s: %w", partition, err)
	}
	return &meta, nil
}

// ListPartitionMeta returns all partition metadata sorted by partition
func (s *RecordStorage) ListPartitionMeta(ctx context.Context) ([]models.PartitionMeta, error) {
	var metas []models.PartitionMeta
	err := s.db.Store().Find(&metas, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list partition meta: %w", err)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Partition < metas[j].Partition })
	return metas, nil
}

// SaveSnapshot stores the global aggregate snapshot, replacing any previous one
func (s *RecordStorage) SaveSnapshot(ctx context.Context, stats *models.AggregateStats) error {
	snapshot := statsSnapshot{ID: snapshotKey, Stats: *stats}
	if err := s.db.Store().Upsert(snapshot.ID, &snapshot); err != nil {
		return fmt.Errorf("failed to save stats snapshot: %w", err)
	}
	return nil
}

// GetSnapshot retrieves the latest aggregate snapshot, nil when absent
func (s *RecordStorage) GetSnapshot(ctx context.Context) (*models.AggregateStats, error) {
	var snapshot statsSnapshot
	err := s.db.Store().Get(snapshotKey, &snapshot)
	if err == badgerhold.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stats snapshot: %w", err)
	}
	return &snapshot.Stats, nil
}
