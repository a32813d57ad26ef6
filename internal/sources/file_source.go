// Package sources provides collector-facing input adapters: the file-based
// video source the collector writes for each month, and the importer for
// historical analysis exports.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/ternarybob/arbor"

	"github.com/honeylab/honeyindex/internal/models"
)

// videosFile is the per-month collector output inside data/YYYY/MM/.
const videosFile = "videos.json"

var yearDirPattern = regexp.MustCompile(`^\d{4}$`)
var monthDirPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])$`)

// FileVideoSource reads collected videos from a data directory laid out as
// data/YYYY/MM/videos.json. The collector owns the directory; this source
// only ever reads.
type FileVideoSource struct {
	root   string
	logger arbor.ILogger
}

// NewFileVideoSource creates a video source over a collector data directory.
func NewFileVideoSource(root string, logger arbor.ILogger) *FileVideoSource {
	return &FileVideoSource{
		root:   root,
		logger: logger,
	}
}

// Partitions lists every YYYY-MM partition that has a videos file, sorted.
func (s *FileVideoSource) Partitions(ctx context.Context) ([]string, error) {
	years, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory %s: %w", s.root, err)
	}

	var partitions []string
	for _, year := range years {
		if !year.IsDir() || !yearDirPattern.MatchString(year.Name()) {
			continue
		}
		months, err := os.ReadDir(filepath.Join(s.root, year.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read year directory %s: %w", year.Name(), err)
		}
		for _, month := range months {
			if !month.IsDir() || !monthDirPattern.MatchString(month.Name()) {
				continue
			}
			path := filepath.Join(s.root, year.Name(), month.Name(), videosFile)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			partitions = append(partitions, year.Name()+"-"+month.Name())
		}
	}

	sort.Strings(partitions)
	return partitions, nil
}

// Videos loads the collected videos for one partition.
func (s *FileVideoSource) Videos(ctx context.Context, partition string) ([]models.Video, error) {
	year, month, err := splitPartition(partition)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(s.root, year, month, videosFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var videos []models.Video
	if err := json.Unmarshal(data, &videos); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	s.logger.Debug().
		Str("partition", partition).
		Int("videos", len(videos)).
		Msg("Loaded partition videos")
	return videos, nil
}

// splitPartition validates a YYYY-MM key and returns its path components.
func splitPartition(partition string) (year, month string, err error) {
	if len(partition) != 7 || partition[4] != '-' {
		return "", "", fmt.Errorf("invalid partition key %q, want YYYY-MM", partition)
	}
	year, month = partition[:4], partition[5:]
	if !yearDirPattern.MatchString(year) || !monthDirPattern.MatchString(month) {
		return "", "", fmt.Errorf("invalid partition key %q, want YYYY-MM", partition)
	}
	return year, month, nil
}
