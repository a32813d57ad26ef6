// Package app wires configuration, storage, and the analysis components
// into one application instance shared by every CLI command.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/honeylab/honeyindex/internal/classifier"
	"github.com/honeylab/honeyindex/internal/common"
	"github.com/honeylab/honeyindex/internal/detector"
	"github.com/honeylab/honeyindex/internal/interfaces"
	"github.com/honeylab/honeyindex/internal/llm"
	"github.com/honeylab/honeyindex/internal/marketdata"
	"github.com/honeylab/honeyindex/internal/pipeline"
	"github.com/honeylab/honeyindex/internal/sources"
	"github.com/honeylab/honeyindex/internal/stats"
	"github.com/honeylab/honeyindex/internal/storage/badger"
)

// App holds all application components and dependencies.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	DB      *badger.BadgerDB
	KV      interfaces.KeyValueStorage
	Records interfaces.RecordStorage

	Videos    interfaces.VideoSource
	Detector  *detector.Detector
	Overrides *classifier.Overrides

	Classifier *classifier.Classifier
	Resolver   *marketdata.Resolver
	Engine     *stats.Engine
	Pipeline   *pipeline.Pipeline
	Scheduler  *pipeline.Scheduler
	Importer   *sources.Importer

	llmFactory *llm.ProviderFactory
}

// New builds the application from configuration. Components are wired
// bottom-up: storage, then the analysis stages, then the pipeline over them.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	kv := badger.NewKVStorage(db, logger)
	records := badger.NewRecordStorage(db, logger)

	overrides, err := classifier.LoadOverrides(config.Overrides.Path, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	rules := classifier.NewRuleClassifier(config.Classifier.MinScore, logger)

	var factory *llm.ProviderFactory
	var model interfaces.ToneModel
	if config.Classifier.Strategy == "llm" {
		factory = llm.NewProviderFactory(&config.Gemini, &config.Claude, &config.LLM, logger)
		model = classifier.NewModelClassifier(factory, kv, "", logger)
	}
	cls := classifier.NewClassifier(config.Classifier.Strategy, rules, model, logger)

	prices := marketdata.NewClient(config.Market.APIKey,
		marketdata.WithBaseURL(config.Market.BaseURL),
		marketdata.WithRateLimit(config.Market.RateLimit),
		marketdata.WithHTTPClient(&http.Client{Timeout: config.Market.RequestTimeout}),
		marketdata.WithLogger(logger),
	)
	resolver := marketdata.NewResolver(prices, kv, &config.Market, logger)

	engine := stats.NewEngine(records, kv, logger)
	videos := sources.NewFileVideoSource(config.Collector.DataDir, logger)

	det, err := detector.NewDetector(config.Detector.ExtraPatterns, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to build asset detector: %w", err)
	}

	pipe := pipeline.New(videos, records, det, cls, overrides, resolver, engine, &config.Pipeline, logger)

	return &App{
		Config:     config,
		Logger:     logger,
		DB:         db,
		KV:         kv,
		Records:    records,
		Videos:     videos,
		Detector:   det,
		Overrides:  overrides,
		Classifier: cls,
		Resolver:   resolver,
		Engine:     engine,
		Pipeline:   pipe,
		Scheduler:  pipeline.NewScheduler(pipe, logger),
		Importer:   sources.NewImporter(records, logger),
		llmFactory: factory,
	}, nil
}

// Close releases application resources.
func (a *App) Close(ctx context.Context) error {
	if a.llmFactory != nil {
		if err := a.llmFactory.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM clients")
		}
	}
	if err := a.DB.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	a.Logger.Info().Msg("Application closed")
	return nil
}
