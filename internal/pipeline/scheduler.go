package pipeline

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/honeylab/honeyindex/internal/models"
)

// Scheduler periodically re-analyzes the current partition so fresh videos
// and newly elapsed horizons are picked up while serving.
type Scheduler struct {
	pipeline *Pipeline
	cron     *cron.Cron
	logger   arbor.ILogger
}

// NewScheduler creates a scheduler over the pipeline.
func NewScheduler(pipeline *Pipeline, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		pipeline: pipeline,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger,
	}
}

// Start begins periodic analysis of the current partition.
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		// Default: every 6 hours
		schedule = "0 0 */6 * * *"
	}

	_, err := s.cron.AddFunc(schedule, func() {
		s.runCurrentPartition()
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Msg("Analysis scheduler started")
	return nil
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info().Msg("Analysis scheduler stopped")
}

// RunNow triggers an immediate run of the current partition.
func (s *Scheduler) RunNow() {
	s.logger.Info().Msg("Triggering immediate analysis run")
	go s.runCurrentPartition()
}

func (s *Scheduler) runCurrentPartition() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	partition := models.PartitionOf(time.Now())
	s.logger.Info().
		Str("partition", partition).
		Msg("Starting scheduled analysis")

	summary, err := s.pipeline.RunPartition(ctx, partition)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("partition", partition).
			Msg("Scheduled analysis failed")
		return
	}

	s.logger.Info().
		Str("partition", partition).
		Int("videos", summary.Videos).
		Int("analyzed", summary.Analyzed).
		Int("unanalyzed", summary.Unanalyzed).
		Int("excluded", summary.Excluded).
		Int("skipped", summary.Skipped).
		Msg("Scheduled analysis completed")
}
