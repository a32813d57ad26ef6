package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/honeylab/honeyindex/internal/app"
	"github.com/honeylab/honeyindex/internal/common"
	"github.com/honeylab/honeyindex/internal/pipeline"
	"github.com/honeylab/honeyindex/internal/server"
)

// configPaths is a custom flag type that allows multiple -config flags.
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles configPaths
	serverPort  = flag.Int("port", 0, "Server port (overrides config)")
	serverHost  = flag.String("host", "", "Server host (overrides config)")
	showVersion = flag.Bool("version", false, "Print version information")
	runYear     = flag.Int("year", 0, "Partition year for analyze (with -month)")
	runMonth    = flag.Int("month", 0, "Partition month for analyze (with -year)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: honeyindex [flags] <command>

Commands:
  analyze   Analyze collected videos (one partition with -year/-month, all otherwise)
  stats     Recompute and print the aggregate statistics
  import    Import historical analysis exports from a directory
  serve     Start the read API server (default)

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("honeyindex version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	command := flag.Arg(0)
	if command == "" {
		command = "serve"
	}

	// Startup order: config -> flag overrides -> logger -> banner.
	if len(configFiles) == 0 {
		if _, err := os.Stat("honeyindex.toml"); err == nil {
			configFiles = append(configFiles, "honeyindex.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		arbor.NewLogger().Fatal().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}
	common.ApplyFlagOverrides(config, *serverPort, *serverHost)

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Strs("config_files", configFiles).
		Str("command", command).
		Msg("Application configuration loaded")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}

	exitCode := 0
	switch command {
	case "analyze":
		exitCode = runAnalyze(application)
	case "stats":
		exitCode = runStats(application)
	case "import":
		exitCode = runImport(application, flag.Arg(1))
	case "serve":
		exitCode = runServe(application)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		usage()
		exitCode = 2
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := application.Close(closeCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to close application")
	}
	os.Exit(exitCode)
}

// runAnalyze runs the pipeline for one partition or for every discovered
// partition.
func runAnalyze(a *app.App) int {
	ctx, cancel := signalContext()
	defer cancel()

	if (*runYear == 0) != (*runMonth == 0) {
		fmt.Fprintln(os.Stderr, "analyze needs both -year and -month, or neither")
		return 2
	}

	if *runYear != 0 {
		partition := fmt.Sprintf("%04d-%02d", *runYear, *runMonth)
		summary, err := a.Pipeline.RunPartition(ctx, partition)
		if err != nil {
			a.Logger.Error().Err(err).Str("partition", partition).Msg("Analysis failed")
			return 1
		}
		printSummary(*summary)
		return 0
	}

	summaries, err := a.Pipeline.RunAll(ctx)
	if err != nil {
		a.Logger.Error().Err(err).Msg("Analysis failed")
		return 1
	}
	for _, summary := range summaries {
		printSummary(summary)
	}
	return 0
}

// runStats recomputes the aggregate from stored records and prints it.
func runStats(a *app.App) int {
	ctx, cancel := signalContext()
	defer cancel()

	snapshot, err := a.Engine.ComputeAll(ctx)
	if err != nil {
		a.Logger.Error().Err(err).Msg("Stats recompute failed")
		return 1
	}

	fmt.Printf("Honey index: %.1f%% (%d hits / %d verified)\n", snapshot.HoneyIndex, snapshot.Hits, snapshot.Verified)
	fmt.Printf("Funnel: %d total -> %d mentioned -> %d toned -> %d verified -> %d hit\n",
		snapshot.Funnel.Total, snapshot.Funnel.Mentioned, snapshot.Funnel.Toned,
		snapshot.Funnel.Verified, snapshot.Funnel.Hits)
	fmt.Printf("Unanalyzed pairs: %d, excluded pairs: %d\n\n", snapshot.Unanalyzed, snapshot.Excluded)

	fmt.Println("By asset:")
	for _, asset := range snapshot.Assets {
		fmt.Printf("  %-12s %5.1f%% (%d/%d)\n", asset.Asset, asset.HoneyIndex, asset.Hits, asset.Total)
	}
	fmt.Println("\nBy period:")
	for _, period := range snapshot.Periods {
		fmt.Printf("  %s  %5.1f%% (%d/%d, %d videos)\n", period.Partition, period.HoneyIndex, period.Hits, period.Verified, period.Videos)
	}
	fmt.Println("\nBy horizon:")
	for _, horizon := range snapshot.Horizons {
		fmt.Printf("  %-3s %5.1f%% (%d/%d)\n", horizon.Horizon, horizon.HoneyIndex, horizon.Hits, horizon.Verified)
	}
	return 0
}

// runImport loads historical analysis exports into the record store and
// recomputes the aggregate.
func runImport(a *app.App, dir string) int {
	if dir == "" {
		fmt.Fprintln(os.Stderr, "import needs a directory argument")
		return 2
	}

	ctx, cancel := signalContext()
	defer cancel()

	count, err := a.Importer.Import(ctx, dir)
	if err != nil {
		a.Logger.Error().Err(err).Str("dir", dir).Msg("Import failed")
		return 1
	}

	snapshot, err := a.Engine.ComputeAll(ctx)
	if err != nil {
		a.Logger.Error().Err(err).Msg("Stats recompute after import failed")
		return 1
	}

	fmt.Printf("Imported %d records; honey index now %.1f%% (%d/%d)\n",
		count, snapshot.HoneyIndex, snapshot.Hits, snapshot.Verified)
	return 0
}

// runServe starts the read API and the optional analysis scheduler, then
// blocks until interrupted.
func runServe(a *app.App) int {
	srv := server.New(a.Config, a.Records, a.Logger)

	if a.Config.Scheduler.Enabled {
		if err := a.Scheduler.Start(a.Config.Scheduler.Schedule); err != nil {
			a.Logger.Error().Err(err).Msg("Failed to start scheduler")
			return 1
		}
		defer a.Scheduler.Stop()
	}

	go func() {
		if err := srv.Start(); err != nil {
			a.Logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	a.Logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", a.Config.Server.Host, a.Config.Server.Port)).
		Msg("Server ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	a.Logger.Info().Msg("Interrupt signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("Server shutdown failed")
		return 1
	}
	return 0
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printSummary(summary pipeline.RunSummary) {
	fmt.Printf("%s: %d videos, %d analyzed, %d unanalyzed, %d excluded, %d skipped\n",
		summary.Partition, summary.Videos, summary.Analyzed,
		summary.Unanalyzed, summary.Excluded, summary.Skipped)
}
