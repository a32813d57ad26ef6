// Package pipeline runs the per-partition analysis batch: detect assets in
// each collected title, classify the tone, resolve the realized market
// direction, judge the contrarian outcome, and persist one record per
// (video, asset) pair. Runs are idempotent; records upsert by natural key.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/honeylab/honeyindex/internal/classifier"
	"github.com/honeylab/honeyindex/internal/common"
	"github.com/honeylab/honeyindex/internal/detector"
	"github.com/honeylab/honeyindex/internal/interfaces"
	"github.com/honeylab/honeyindex/internal/marketdata"
	"github.com/honeylab/honeyindex/internal/models"
	"github.com/honeylab/honeyindex/internal/stats"
	"github.com/honeylab/honeyindex/internal/verdict"
)

// RunSummary reports what one partition run did.
type RunSummary struct {
	Partition  string
	Videos     int
	Analyzed   int
	Unanalyzed int
	Excluded   int
	Skipped    int // pairs dropped by a manual skip label
}

// Pipeline wires the analysis stages over the collector input.
type Pipeline struct {
	videos     interfaces.VideoSource
	records    interfaces.RecordStorage
	detector   *detector.Detector
	classifier *classifier.Classifier
	overrides  *classifier.Overrides
	resolver   *marketdata.Resolver
	engine     *stats.Engine
	config     *common.PipelineConfig
	logger     arbor.ILogger
	excluded   map[string]struct{}
}

// New creates a pipeline over the given stages.
func New(
	videos interfaces.VideoSource,
	records interfaces.RecordStorage,
	det *detector.Detector,
	cls *classifier.Classifier,
	overrides *classifier.Overrides,
	resolver *marketdata.Resolver,
	engine *stats.Engine,
	config *common.PipelineConfig,
	logger arbor.ILogger,
) *Pipeline {
	excluded := make(map[string]struct{}, len(config.ExcludedAssets))
	for _, asset := range config.ExcludedAssets {
		excluded[asset] = struct{}{}
	}
	return &Pipeline{
		videos:     videos,
		records:    records,
		detector:   det,
		classifier: cls,
		overrides:  overrides,
		resolver:   resolver,
		engine:     engine,
		config:     config,
		logger:     logger,
		excluded:   excluded,
	}
}

// RunAll analyzes every discovered partition, then recomputes the global
// snapshot once. Manual labels are checked against the full collected video
// set first; a label pointing at an unknown video aborts the run before any
// record is written.
func (p *Pipeline) RunAll(ctx context.Context) ([]RunSummary, error) {
	runID := common.NewRunID()
	partitions, err := p.videos.Partitions(ctx)
	if err != nil {
		return nil, err
	}

	p.logger.Info().
		Str("run_id", runID).
		Int("partitions", len(partitions)).
		Msg("Starting full analysis run")

	knownVideos := make(map[string]struct{})
	byPartition := make(map[string][]models.Video, len(partitions))
	for _, partition := range partitions {
		videos, err := p.videos.Videos(ctx, partition)
		if err != nil {
			return nil, err
		}
		byPartition[partition] = videos
		for _, video := range videos {
			knownVideos[video.ID] = struct{}{}
		}
	}

	if err := p.checkOverrideKeys(knownVideos); err != nil {
		return nil, err
	}

	summaries := make([]RunSummary, 0, len(partitions))
	for _, partition := range partitions {
		summary, err := p.processPartition(ctx, partition, byPartition[partition])
		if err != nil {
			return summaries, err
		}
		if err := p.engine.RecomputePartition(ctx, partition); err != nil {
			return summaries, err
		}
		summaries = append(summaries, summary)
	}

	if _, err := p.engine.Refold(ctx); err != nil {
		return summaries, err
	}

	p.logger.Info().
		Str("run_id", runID).
		Int("partitions", len(summaries)).
		Msg("Full analysis run complete")
	return summaries, nil
}

// RunPartition analyzes one partition and refolds the global snapshot.
func (p *Pipeline) RunPartition(ctx context.Context, partition string) (*RunSummary, error) {
	videos, err := p.videos.Videos(ctx, partition)
	if err != nil {
		return nil, err
	}

	if err := p.checkOverrideKeyShape(); err != nil {
		return nil, err
	}

	summary, err := p.processPartition(ctx, partition, videos)
	if err != nil {
		return nil, err
	}
	if err := p.engine.RecomputePartition(ctx, partition); err != nil {
		return nil, err
	}
	if _, err := p.engine.Refold(ctx); err != nil {
		return nil, err
	}
	return &summary, nil
}

// checkOverrideKeys rejects manual labels that reference a video absent from
// the collected set. A typo in a label key must fail loudly, not silently
// label nothing.
func (p *Pipeline) checkOverrideKeys(knownVideos map[string]struct{}) error {
	for _, key := range p.overrides.Keys() {
		videoID := overrideVideoID(key)
		if _, ok := knownVideos[videoID]; !ok {
			return fmt.Errorf("manual label %s references unknown video %s", key, videoID)
		}
	}
	return nil
}

// checkOverrideKeyShape is the single-partition variant: other partitions'
// videos are not loaded, so only structural validity is provable here. The
// full unknown-video check runs on RunAll.
func (p *Pipeline) checkOverrideKeyShape() error {
	for _, key := range p.overrides.Keys() {
		if overrideVideoID(key) == "" {
			return fmt.Errorf("manual label %s has no video id", key)
		}
	}
	return nil
}

// overrideVideoID extracts the video id from a videoID_asset key. Video IDs
// may contain underscores; asset names never do, so the split is at the last
// underscore.
func overrideVideoID(key string) string {
	idx := strings.LastIndex(key, "_")
	if idx <= 0 {
		return ""
	}
	return key[:idx]
}

// processPartition runs the analysis stages for one partition's videos under
// a bounded worker pool and writes the partition metadata.
func (p *Pipeline) processPartition(ctx context.Context, partition string, videos []models.Video) (RunSummary, error) {
	summary := RunSummary{Partition: partition, Videos: len(videos)}

	p.logger.Info().
		Str("partition", partition).
		Int("videos", len(videos)).
		Int("concurrency", p.config.Concurrency).
		Msg("Starting partition analysis")

	jobs := make(chan models.Video)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for i := 0; i < p.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for video := range jobs {
				result, err := p.analyzeVideo(ctx, video)
				if err != nil {
					fail(err)
					continue
				}
				mu.Lock()
				summary.Analyzed += result.analyzed
				summary.Unanalyzed += result.unanalyzed
				summary.Excluded += result.excluded
				summary.Skipped += result.skipped
				mu.Unlock()
			}
		}()
	}

feed:
	for _, video := range videos {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- video:
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return summary, firstErr
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	if err := p.records.SetPartitionMeta(ctx, &models.PartitionMeta{
		Partition:  partition,
		VideoCount: len(videos),
	}); err != nil {
		return summary, err
	}

	p.logger.Info().
		Str("partition", partition).
		Int("analyzed", summary.Analyzed).
		Int("unanalyzed", summary.Unanalyzed).
		Int("excluded", summary.Excluded).
		Int("skipped", summary.Skipped).
		Msg("Partition analysis complete")
	return summary, nil
}

type videoResult struct {
	analyzed   int
	unanalyzed int
	excluded   int
	skipped    int
}

// analyzeVideo runs detect, classify, resolve, and judge for one video and
// upserts a record per surviving (video, asset) pair.
func (p *Pipeline) analyzeVideo(ctx context.Context, video models.Video) (videoResult, error) {
	var result videoResult

	assets := p.detector.Detect(video.Title)
	analysis := p.classifier.Classify(ctx, video.Title)
	assets = mergeAssets(assets, analysis.Assets)
	if len(assets) == 0 {
		// No asset mention: the video never enters the funnel.
		return result, nil
	}

	for _, asset := range assets {
		tone := analysis.Tone
		source := models.CallSource(analysis.Method)

		if label, ok := p.overrides.Lookup(video.ID, asset); ok {
			if label == models.OverrideSkip {
				result.skipped++
				if err := p.records.DeleteRecord(ctx, models.RecordKey(video.ID, asset)); err != nil {
					return result, err
				}
				continue
			}
			tone = label.Tone()
			source = models.SourceManual
		}

		record, err := p.buildRecord(ctx, video, asset, tone, source, analysis)
		if err != nil {
			return result, err
		}

		switch record.Status {
		case models.StatusAnalyzed:
			result.analyzed++
		case models.StatusUnanalyzed:
			result.unanalyzed++
		case models.StatusExcluded:
			result.excluded++
		}

		if err := p.records.UpsertRecord(ctx, record); err != nil {
			return result, err
		}
	}
	return result, nil
}

// buildRecord routes one (video, asset, tone) into its storage bucket.
func (p *Pipeline) buildRecord(ctx context.Context, video models.Video, asset string, tone models.Tone, source models.CallSource, analysis *models.TitleAnalysis) (*models.StoredRecord, error) {
	if _, excluded := p.excluded[asset]; excluded {
		return &models.StoredRecord{
			Key:           models.RecordKey(video.ID, asset),
			Partition:     video.Partition(),
			Status:        models.StatusExcluded,
			SchemaVersion: models.SchemaV3,
			Reason:        "excluded asset",
			VideoID:       video.ID,
			Asset:         asset,
		}, nil
	}

	if tone == models.ToneNeutral {
		return &models.StoredRecord{
			Key:           models.RecordKey(video.ID, asset),
			Partition:     video.Partition(),
			Status:        models.StatusUnanalyzed,
			SchemaVersion: models.SchemaV3,
			Reason:        "neutral tone",
			VideoID:       video.ID,
			Asset:         asset,
		}, nil
	}

	direction := tone.Direction()
	observations, err := p.resolver.Resolve(ctx, asset, video.PublishedAt)
	if err != nil {
		return nil, err
	}

	horizons := make(map[models.Horizon]models.HorizonOutcome, len(observations))
	for horizon, obs := range observations {
		horizons[horizon] = verdict.Outcome(direction, obs)
	}

	primary := observations[models.PrimaryHorizon]
	record := models.NewJudgedRecord(&models.JudgedRecord{
		VideoID:     video.ID,
		Title:       video.Title,
		PublishedAt: video.PublishedAt,
		Asset:       asset,
		Call: models.AssetCall{
			VideoID:   video.ID,
			Asset:     asset,
			Direction: direction,
			Tone:      tone,
			Source:    source,
			Evidence:  analysis.Evidence,
		},
		Horizons: horizons,
		Judgment: models.Judgment{
			PredictedDirection: direction,
			ActualDirection:    primary.Direction,
			IsHit:              verdict.Judge(direction, primary.Direction),
			Reasoning:          verdict.Reasoning(direction, primary),
		},
	})
	return record, nil
}

// mergeAssets unions the pattern-detected assets with any the model named,
// keeping detection order first and dropping duplicates.
func mergeAssets(detected, fromModel []string) []string {
	seen := make(map[string]struct{}, len(detected))
	merged := make([]string, 0, len(detected)+len(fromModel))
	for _, asset := range detected {
		if _, dup := seen[asset]; dup {
			continue
		}
		seen[asset] = struct{}{}
		merged = append(merged, asset)
	}
	for _, asset := range fromModel {
		if _, dup := seen[asset]; dup {
			continue
		}
		seen[asset] = struct{}{}
		merged = append(merged, asset)
	}
	return merged
}
