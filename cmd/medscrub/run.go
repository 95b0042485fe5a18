package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"meridian-hq/medscrub/pkg/anonymize/policy"
	"meridian-hq/medscrub/pkg/anonymize/validator"
	"meridian-hq/medscrub/pkg/anonymize/writer"
	"meridian-hq/medscrub/pkg/audit"
	"meridian-hq/medscrub/pkg/batch"
	"meridian-hq/medscrub/pkg/cli"
	"meridian-hq/medscrub/pkg/config"
	"meridian-hq/medscrub/pkg/dataset"
	"meridian-hq/medscrub/pkg/telemetry/logging"
	"meridian-hq/medscrub/pkg/telemetry/metrics"
	"meridian-hq/medscrub/pkg/vault"
)

var runFlags struct {
	input    string
	output   string
	workers  int
	logLevel string
	watch    bool
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Anonymize the input directory",
	Long: `Process every record in the input directory: rewrite protected fields,
commit each output with the crash-safe write protocol, quarantine failures,
validate the result and seal an encrypted audit record.

Examples:
  # Process once with the default config
  medscrub run

  # Process with a custom config
  medscrub run --config /etc/medscrub/config.yaml

  # Process continuously as records arrive
  medscrub run --watch

  # Validate config without touching any record
  medscrub run --dry-run`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.input, "input", "i", "", "override input directory")
	runCmd.Flags().StringVarP(&runFlags.output, "output", "o", "", "override output directory")
	runCmd.Flags().IntVarP(&runFlags.workers, "workers", "w", 0, "override worker count")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", false, "keep running and process records as they arrive")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	if runFlags.input != "" {
		cfg.Directories.Input = runFlags.input
	}
	if runFlags.output != "" {
		cfg.Directories.Output = runFlags.output
	}
	if runFlags.workers > 0 {
		cfg.Anonymize.Workers = runFlags.workers
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if err := checkPrerequisites(cfg); err != nil {
		return cli.NewCommandError("run", err)
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	if err := ensureDirectories(cfg); err != nil {
		return cli.NewCommandError("run", err)
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Telemetry.Logging.Level,
		Format: cfg.Telemetry.Logging.Format,
		Dir:    cfg.Directories.Logs,
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer logger.Close()
	slog.SetDefault(logger.Logger)

	v, err := vault.Open(cfg.Vault.KeyPath)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("open vault: %w", err))
	}

	pol, err := policy.Default().WithOverrides(cfg.Anonymize.Overrides)
	if err != nil {
		return cli.NewConfigError("anonymize.overrides", err.Error())
	}

	collector := metrics.NewCollector(&metrics.Config{Enabled: cfg.Telemetry.Metrics.Enabled}, nil)

	// Temp files from interrupted commits are swept on the way out.
	janitor := writer.NewJanitor()
	defer janitor.Sweep()

	idx, err := audit.OpenIndex(&audit.IndexConfig{Path: cfg.Audit.IndexPath})
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer idx.Close()

	deps := batch.Deps{
		Policy:    pol,
		Writer:    writer.New(janitor, logger.Logger),
		Validator: validator.New(pol, logger.Logger),
		Recorder:  audit.NewRecorder(cfg.Directories.Audit, v, logger.Logger),
		Metrics:   collector,
		Logger:    logger.Logger,
	}

	ctx := cli.SetupSignalHandler()

	if runFlags.watch {
		return runWatch(ctx, cfg, deps, collector, idx, logger.Logger)
	}
	return runOnce(ctx, cfg, deps, idx)
}

// checkPrerequisites fails fast on filesystem problems a batch cannot recover
// from. It only reads; a dry run must not mutate the filesystem.
func checkPrerequisites(cfg *config.Config) error {
	info, err := os.Stat(cfg.Directories.Input)
	if err != nil {
		return fmt.Errorf("input directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("input directory %s is not a directory", cfg.Directories.Input)
	}
	return nil
}

// ensureDirectories creates the writable directories up front so the first
// record does not pay for it.
func ensureDirectories(cfg *config.Config) error {
	for _, dir := range []string{
		cfg.Directories.Output,
		cfg.Directories.Quarantine,
		cfg.Directories.Audit,
		cfg.Directories.Logs,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// runOnce executes a single batch with a progress bar and prints a summary.
func runOnce(ctx context.Context, cfg *config.Config, deps batch.Deps, idx *audit.Index) error {
	names, err := dataset.List(cfg.Directories.Input)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("enumerate input: %w", err))
	}

	progress := cli.NewProgressReporter(os.Stdout)
	progress.Start(int64(len(names)))

	orch := batch.New(batch.Options{
		Input:      cfg.Directories.Input,
		Output:     cfg.Directories.Output,
		Quarantine: cfg.Directories.Quarantine,
		Workers:    cfg.Anonymize.Workers,
		OnRecord: func(name string, err error) {
			progress.Increment(err != nil)
		},
	}, deps)

	res, err := orch.Run(ctx)
	progress.Finish()
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	indexResult(ctx, idx, res)
	printSummary(res)

	if !res.Success {
		return cli.NewCommandError("run", fmt.Errorf("batch %s finished in state %s", res.Trail.BatchID, res.State))
	}
	return nil
}

// runWatch keeps processing as records arrive. The retention pruner and the
// optional metrics endpoint run for the lifetime of the watch.
func runWatch(ctx context.Context, cfg *config.Config, deps batch.Deps, collector *metrics.Collector, idx *audit.Index, logger *slog.Logger) error {
	pruner := audit.NewPruner(cfg.Directories.Audit, cfg.Directories.Logs, &audit.RetentionConfig{
		RetentionDays: *cfg.Retention.Days,
		Schedule:      cfg.Retention.Schedule,
	})
	if err := pruner.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	defer pruner.Stop()

	if cfg.Telemetry.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		srv := &http.Server{Addr: cfg.Telemetry.Metrics.ListenAddress, Handler: mux}
		go func() {
			logger.Info("metrics endpoint listening", "address", cfg.Telemetry.Metrics.ListenAddress)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics endpoint failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	orch := batch.New(batch.Options{
		Input:      cfg.Directories.Input,
		Output:     cfg.Directories.Output,
		Quarantine: cfg.Directories.Quarantine,
		Workers:    cfg.Anonymize.Workers,
	}, deps)

	watcher := batch.NewWatcher(cfg.Directories.Input, nil, func(ctx context.Context) error {
		res, err := orch.Run(ctx)
		if res != nil {
			indexResult(ctx, idx, res)
		}
		return err
	}, logger)

	if err := watcher.Watch(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}

// indexResult records the sealed audit file in the derived index. Index
// failures are logged, never fatal: the JSON file is the canonical record.
func indexResult(ctx context.Context, idx *audit.Index, res *batch.Result) {
	if res.AuditPath == "" {
		return
	}
	sealed, err := audit.ReadSealed(res.AuditPath)
	if err != nil {
		slog.Error("audit index skipped: sealed record unreadable", "path", res.AuditPath, "error", err)
		return
	}
	if err := idx.Insert(ctx, sealed, res.AuditPath); err != nil {
		slog.Error("audit index insert failed", "path", res.AuditPath, "error", err)
	}
}

func printSummary(res *batch.Result) {
	fmt.Printf("Batch %s: %s\n", res.Trail.BatchID, res.State)
	fmt.Printf("  files processed: %d\n", res.Trail.FilesProcessed)
	fmt.Printf("  errors:          %d\n", len(res.Trail.Errors))
	fmt.Printf("  warnings:        %d\n", len(res.Trail.Warnings))
	for _, e := range res.Trail.Errors {
		fmt.Printf("    ✗ %s\n", e)
	}
	for _, w := range res.Trail.Warnings {
		fmt.Printf("    ! %s\n", w)
	}
	if res.AuditPath != "" {
		fmt.Printf("  audit record:    %s\n", res.AuditPath)
	}
}
