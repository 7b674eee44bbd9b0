// ArenaFlow resolves recorded matches against combat logs and
// extracts per-player feature counters.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Phlares/arenaflow/internal/model"
	"github.com/Phlares/arenaflow/pkg/batch"
	"github.com/Phlares/arenaflow/pkg/checkpoint"
	"github.com/Phlares/arenaflow/pkg/config"
	"github.com/Phlares/arenaflow/pkg/errors"
	"github.com/Phlares/arenaflow/pkg/extract"
	"github.com/Phlares/arenaflow/pkg/metadata"
	"github.com/Phlares/arenaflow/pkg/metrics"
	"github.com/Phlares/arenaflow/pkg/ownership"
	"github.com/Phlares/arenaflow/pkg/resolve"
	"github.com/Phlares/arenaflow/pkg/sinks"
	"github.com/Phlares/arenaflow/pkg/storage"
	"github.com/Phlares/arenaflow/pkg/telemetry"
	"github.com/Phlares/arenaflow/pkg/tui"
	"github.com/Phlares/arenaflow/pkg/watch"
)

const version = "0.1.0"

var (
	verbose bool

	indexFile    string
	logsDir      string
	petIndexFile string
	sidecarDir   string
	outputFile   string
	outputFormat string
	workersFlag  int
	noResume     bool

	recordName string

	watchDir string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "arenaflow",
	Short:   "Session resolver and attributed feature extractor",
	Long:    "ArenaFlow matches recorded arena sessions to combat log intervals\nand extracts per-player feature counters from the resolved interval.",
	Version: version,
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Resolve every record in a metadata index",
	RunE:  runBatch,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a single record and print its features",
	RunE:  runResolve,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a directory and resolve new index files as they arrive",
	RunE:  runWatch,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	for _, cmd := range []*cobra.Command{batchCmd, resolveCmd} {
		cmd.Flags().StringVarP(&indexFile, "index", "i", "", "Metadata index file (.csv or .xlsx) (required)")
		cmd.Flags().StringVarP(&logsDir, "logs", "l", "", "Combat log directory (required)")
		cmd.Flags().StringVar(&petIndexFile, "pet-index", "", "Sub-agent ownership index JSON")
		cmd.Flags().StringVar(&sidecarDir, "sidecars", "", "Ground-truth sidecar directory (defaults to index directory)")
		cmd.MarkFlagRequired("index")
		cmd.MarkFlagRequired("logs")
	}

	batchCmd.Flags().StringVarP(&outputFile, "output", "o", "features.csv", "Output file path")
	batchCmd.Flags().StringVarP(&outputFormat, "format", "f", "", "Output format (csv, parquet, duckdb) - derived from extension if not set")
	batchCmd.Flags().IntVar(&workersFlag, "workers", 0, "Concurrent workers (0 = all CPUs)")
	batchCmd.Flags().BoolVar(&noResume, "no-resume", false, "Ignore the already-resolved set and reprocess everything")

	resolveCmd.Flags().StringVarP(&recordName, "record", "r", "", "Recording filename to resolve (required)")
	resolveCmd.MarkFlagRequired("record")

	watchCmd.Flags().StringVarP(&watchDir, "dir", "d", "", "Directory to watch for new index files (required)")
	watchCmd.Flags().StringVarP(&logsDir, "logs", "l", "", "Combat log directory (required)")
	watchCmd.Flags().StringVar(&petIndexFile, "pet-index", "", "Sub-agent ownership index JSON")
	watchCmd.Flags().StringVarP(&outputFile, "output", "o", "features.csv", "Output file path")
	watchCmd.MarkFlagRequired("dir")
	watchCmd.MarkFlagRequired("logs")

	rootCmd.AddCommand(batchCmd, resolveCmd, watchCmd)
}

// loadConfig loads layered configuration and applies flag overrides.
func loadConfig() (*config.Config, error) {
	mgr := config.NewManager()
	if err := mgr.Load(); err != nil {
		return nil, err
	}
	cfg := mgr.Get()
	if workersFlag > 0 {
		cfg.Batch.Workers = workersFlag
	}
	if logsDir != "" {
		cfg.Batch.LogsDir = logsDir
	}
	return cfg, nil
}

// loadInputs loads the metadata index, ownership index, and log store
// shared by the batch and resolve commands.
func loadInputs(ctx context.Context, cfg *config.Config) (*metadata.Index, *ownership.Index, storage.LogStore, error) {
	idx, err := metadata.Load(indexFile)
	if err != nil {
		return nil, nil, nil, err
	}

	scDir := sidecarDir
	if scDir == "" {
		scDir = dirOf(indexFile)
	}
	if _, err := idx.AttachSidecars(scDir); err != nil {
		return nil, nil, nil, err
	}

	var owners *ownership.Index
	if petIndexFile != "" {
		owners, err = ownership.Load(petIndexFile)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	store, err := storage.NewLocalStore(cfg.Batch.LogsDir)
	if err != nil {
		return nil, nil, nil, err
	}
	if store.Len() == 0 {
		return nil, nil, nil, fmt.Errorf("no combat logs found in %s", cfg.Batch.LogsDir)
	}

	return idx, owners, store, nil
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if os.IsPathSeparator(path[i]) {
			return path[:i]
		}
	}
	return "."
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Telemetry.Enabled {
		otlpCfg := telemetry.DefaultOTLPConfig("arenaflow")
		if cfg.Telemetry.Endpoint != "" {
			otlpCfg.Endpoint = cfg.Telemetry.Endpoint
		}
		shutdown, err := telemetry.NewExporter(otlpCfg).Init(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "telemetry disabled: %v\n", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	var mm *metrics.Manager
	if cfg.Metrics.Enabled {
		mm = metrics.NewManager()
		go func() {
			if err := mm.Serve(cfg.Metrics.Listen); err != nil {
				fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
			}
		}()
	}

	idx, owners, store, err := loadInputs(ctx, cfg)
	if err != nil {
		return err
	}

	format := outputFormat
	if format == "" {
		format = formatFromPath(outputFile)
	}
	if format == "db" {
		format = "duckdb"
	}
	sink, err := sinks.Open(sinks.Config{
		Format:      format,
		Path:        outputFile,
		Compression: cfg.Sinks.Compression,
	})
	if err != nil {
		return err
	}
	defer sink.Close()

	var resolved checkpoint.ResolvedSet
	if !noResume {
		resolved, err = openResolvedSet(cfg)
		if err != nil {
			return err
		}
		defer resolved.Close()
	}

	tui.PrintHeader(version)
	bar := tui.ShowProgress(int64(idx.Len()), "resolving")

	opts := []batch.Option{
		batch.WithProgress(func(res *batch.Result) {
			bar.Add(1)
			if verbose {
				switch {
				case res.Skipped:
				case res.Resolved:
					tui.PrintResolved(res.Record, res.Composite, res.Elapsed)
				default:
					tui.PrintFailure(res.Record, res.Err.Error())
				}
			}
		}),
	}
	if mm != nil {
		opts = append(opts, batch.WithMetrics(mm))
	}

	driver := batch.New(cfg, store, owners, sink, resolved, opts...)

	start := time.Now()
	summary, err := driver.Run(ctx, idx.Records())
	bar.Finish()
	if err != nil && ctx.Err() == nil {
		return err
	}

	tui.PrintBatchReport(&tui.BatchReport{
		Total:      summary.Total,
		Resolved:   summary.Resolved,
		Unresolved: summary.Unresolved,
		Skipped:    summary.Skipped,
		Duration:   time.Since(start),
	})

	for _, f := range summary.Failures {
		tui.PrintFailure(f.Record, failureReason(f.Err))
	}
	return nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	idx, owners, store, err := loadInputs(ctx, cfg)
	if err != nil {
		return err
	}

	rec, ok := idx.Get(recordName)
	if !ok {
		return fmt.Errorf("record %q not found in index", recordName)
	}

	handle, err := store.Find(ctx, rec.DeclaredStart)
	if err != nil {
		return err
	}

	resolver := resolve.New(cfg.Resolver)
	resolution, err := resolver.Resolve(ctx, handle, rec)
	if err != nil {
		return err
	}

	rc, err := handle.Open(ctx)
	if err != nil {
		return err
	}
	defer rc.Close()

	extractor := extract.New(cfg.Resolver, owners)
	counters, err := extractor.Extract(ctx, rc, resolution.Interval, rec.PrimaryActor)
	if err != nil {
		return err
	}

	printResolution(rec, resolution, counters)
	return nil
}

func printResolution(rec *model.MetadataRecord, r *resolve.Resolution, c *model.FeatureCounters) {
	fmt.Printf("record:        %s\n", rec.Filename)
	fmt.Printf("log:           %s\n", r.Winner.Start.Timestamp.Format(time.RFC3339))
	fmt.Printf("interval:      %s .. %s (%s)\n",
		r.Interval.Start.Format(time.RFC3339),
		r.Interval.End.Format(time.RFC3339),
		tui.FormatDuration(r.Interval.Duration()))
	fmt.Printf("score:         %.3f (cross-source %.3f)\n", r.Winner.Composite, r.Winner.CrossSourceScore)
	if r.SyntheticEnd {
		fmt.Printf("end:           synthesized from declared duration\n")
	}
	fmt.Println()
	fmt.Printf("casts:           %d\n", c.CastSuccess)
	fmt.Printf("interrupts:      %d done, %d suffered\n", c.InterruptsDone, c.TimesInterrupted)
	fmt.Printf("buff gained:     %d self, %d opponent\n", c.BuffGainedSelf, c.BuffGainedOpponent)
	fmt.Printf("purges:          %d\n", c.Purges)
	fmt.Printf("deaths:          %d\n", c.TimesDied)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err := loadConfig()
	if err != nil {
		return err
	}

	watcher, err := watch.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Watch(watchDir); err != nil {
		return err
	}

	watcher.OnChange = func(path string) error {
		if formatFromPath(path) != "csv" && formatFromPath(path) != "xlsx" {
			return nil
		}
		fmt.Printf("index changed: %s\n", path)
		indexFile = path
		return runBatch(cmd, args)
	}
	watcher.OnError = func(path string, err error) {
		fmt.Fprintf(os.Stderr, "watch error on %s: %v\n", path, err)
	}

	fmt.Printf("watching %s\n", watchDir)
	err = watcher.Run(ctx)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// openResolvedSet builds the resolved set named by the config backend.
func openResolvedSet(cfg *config.Config) (checkpoint.ResolvedSet, error) {
	switch cfg.Checkpoint.Backend {
	case "memory":
		return checkpoint.NewMemorySet(), nil
	case "redis":
		rc := checkpoint.DefaultRedisConfig(cfg.Checkpoint.RedisAddr)
		rc.Password = cfg.Checkpoint.RedisPassword
		rc.Database = cfg.Checkpoint.RedisDB
		if cfg.Checkpoint.RedisPrefix != "" {
			rc.Prefix = cfg.Checkpoint.RedisPrefix
		}
		rc.TTL = cfg.Checkpoint.RedisTTL
		return checkpoint.NewRedisSet(rc)
	default:
		return checkpoint.NewFileSet(cfg.Checkpoint.Path)
	}
}

func formatFromPath(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i+1:]
		}
		if os.IsPathSeparator(path[i]) {
			break
		}
	}
	return ""
}

// failureReason renders a compact failure reason for the audit list.
func failureReason(err error) string {
	if err == nil {
		return ""
	}
	if code := errors.GetCode(err); code != errors.CodeUnknown {
		return fmt.Sprintf("[%s] %v", code, err)
	}
	return err.Error()
}
