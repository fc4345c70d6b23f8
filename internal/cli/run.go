package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/turbine/internal/config"
	"github.com/roach88/turbine/internal/diag"
	"github.com/roach88/turbine/internal/engine"
	"github.com/roach88/turbine/internal/generator"
	"github.com/roach88/turbine/internal/host"
	"github.com/roach88/turbine/internal/host/srcscan"
	"github.com/roach88/turbine/internal/ir"
	"github.com/roach88/turbine/internal/logging"
	"github.com/roach88/turbine/internal/report"
	"github.com/roach88/turbine/internal/store"
	"github.com/roach88/turbine/internal/stub"
)

// DefaultAutoServiceTag is the directive tag routed to the autoservice
// generator, as in //turbine:AutoService type=com.example.Plugin
const DefaultAutoServiceTag = "AutoService"

// DefaultStubTag is the directive tag routed to the stub generator.
const DefaultStubTag = "Stub"

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Out            string
	AutoServiceTag string
	StubTag        string
	History        string
	MaxPasses      int
	Metrics        bool

	// Registry supplies user generators. Nil means autoservice only.
	Registry *generator.Registry
}

// DiagnosticJSON is the JSON form of a diagnostic.
type DiagnosticJSON struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Decl      string `json:"decl,omitempty"`
	Generator string `json:"generator,omitempty"`
}

// RunSummary is the run command payload.
type RunSummary struct {
	Passes      int              `json:"passes"`
	Errors      int              `json:"errors"`
	Complete    bool             `json:"complete"`
	TotalUs     int64            `json:"total_us"`
	Reports     []string         `json:"reports,omitempty"`
	RunID       string           `json:"run_id,omitempty"`
	Metrics     map[string]int64 `json:"metrics,omitempty"`
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
}

func (s RunSummary) String() string {
	status := "complete"
	if !s.Complete {
		status = "aborted"
	}
	return fmt.Sprintf("turbine: %s after %d passes, %d errors (%dµs)", status, s.Passes, s.Errors, s.TotalUs)
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <src-dir>...",
		Short: "Run generators over annotated Go sources",
		Long: `Scan Go sources for //turbine: directives and drive generators pass
by pass until no new sources are generated.

Generated sources go to <out>/SOURCE_OUTPUT and resources such as
META-INF/services files go to <out>/CLASS_OUTPUT. A timing report is
written under <build_dir>/turbine-timings.

Types tagged with //turbine:Stub get an empty generated implementation,
registered with the autoservice tag when the type is an interface.

Exit codes:
  0 - Run completed without errors
  1 - Errors were reported or a generator failed fatally
  2 - Command error (unreadable config, bad paths, etc.)

Examples:
  turbine run ./src --out ./gen
  turbine run ./api ./impl --out ./gen --autoservice-tag Service
  turbine run ./src --out ./gen --stub-tag ""
  turbine run ./src --out ./gen --history ./turbine.db --format json
  turbine run ./src --out ./gen --metrics`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := config.NewViper()
			if err := v.BindPFlag(config.KeyBuildDir, cmd.Flags().Lookup("build-dir")); err != nil {
				return WrapExitError(ExitCommandError, "failed to bind flags", err)
			}
			if err := v.BindPFlag(config.KeyDebug, cmd.Flags().Lookup("debug")); err != nil {
				return WrapExitError(ExitCommandError, "failed to bind flags", err)
			}
			cfg, err := config.Load(v, opts.ConfigFile)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			return runGenerators(cmd, opts, cfg, args)
		},
	}

	cmd.Flags().StringVar(&opts.Out, "out", "", "output directory for generated files (required)")
	_ = cmd.MarkFlagRequired("out")
	cmd.Flags().StringVar(&opts.AutoServiceTag, "autoservice-tag", DefaultAutoServiceTag, "tag handled by the autoservice generator (empty disables it)")
	cmd.Flags().StringVar(&opts.StubTag, "stub-tag", DefaultStubTag, "tag handled by the stub generator (empty disables it)")
	cmd.Flags().StringVar(&opts.History, "history", "", "SQLite database recording run history")
	cmd.Flags().IntVar(&opts.MaxPasses, "max-passes", host.DefaultMaxPasses, "abort when generation has not settled after this many passes")
	cmd.Flags().String("build-dir", config.Default().BuildDir, "build directory receiving timing reports")
	cmd.Flags().Bool("debug", false, "emit debug notes for empty batches")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "collect engine metrics and print them with the summary")

	return cmd
}

func runGenerators(cmd *cobra.Command, opts *RunOptions, cfg config.Options, dirs []string) error {
	for _, dir := range dirs {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return NewExitError(ExitCommandError, fmt.Sprintf("source directory not found: %s", dir))
		}
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.EnsureArtifactsDir(); err != nil {
		return WrapExitError(ExitCommandError, "failed to prepare artifacts directory", err)
	}

	setup, err := logging.Configure(cfg, cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to configure logging", err)
	}
	defer setup.Close()
	logger := setup.Logger

	out := opts.formatter(cmd)
	collector := diag.NewCollector()
	messager := diag.NewLoggingMessager(collector, logger)
	if setup.Path != "" {
		messager.Report(diag.Diagnostic{Kind: diag.KindNote, Message: "will write logs to " + setup.Path})
	}

	filer := store.NewDirFilerAt(opts.Out)
	env := &generator.Env{
		Messager: messager,
		Filer:    filer,
		Options:  cfg,
		Logger:   logger,
	}

	registry := opts.Registry
	if registry == nil {
		registry = generator.NewRegistry()
	}
	if opts.StubTag != "" {
		if err := registry.Register(stub.Name, stub.Factory(ir.Tag(opts.StubTag), ir.Tag(opts.AutoServiceTag))); err != nil {
			return WrapExitError(ExitCommandError, "failed to register stub generator", err)
		}
	}
	var engineOpts []engine.Option
	if opts.AutoServiceTag != "" {
		engineOpts = append(engineOpts, engine.WithAutoService(ir.Tag(opts.AutoServiceTag)))
	}

	var metrics *runMetrics
	if opts.Metrics {
		metrics = newRunMetrics()
		defer func() {
			if err := metrics.Shutdown(context.Background()); err != nil {
				logger.Debug("failed to shut down metrics", "error", err)
			}
		}()
		engineOpts = append(engineOpts, engine.WithMeterProvider(metrics.provider))
	}

	eng, err := engine.New(registry, env, engineOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to configure generators", err)
	}

	scanner := srcscan.New(srcscan.WithLogger(logger))
	driver := host.NewDriver(scanner, filer, dirs,
		host.WithMaxPasses(opts.MaxPasses),
		host.WithDriverLogger(logger),
	)

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	out.VerboseLog("scanning %d source directories", len(dirs))
	stats, runErr := eng.Run(ctx, driver)

	reports := report.Write(report.FromStats(stats), cfg, logger)

	summary := summarize(stats, collector.All(), reports)
	if metrics != nil {
		values, err := metrics.Snapshot(context.WithoutCancel(ctx))
		if err != nil {
			logger.Warn("failed to collect metrics", "error", err)
		}
		summary.Metrics = values
		if !out.JSON() {
			writeMetricsText(out.Writer, values)
		}
	}
	if opts.History != "" {
		id, err := recordHistory(ctx, opts.History, started, stats, collector.All())
		if err != nil {
			logger.Warn("failed to record run history", "db", opts.History, "error", err)
		} else {
			summary.RunID = id
		}
	}

	return finishRun(out, summary, collector.All(), runErr)
}

func finishRun(out *OutputFormatter, summary RunSummary, diags []diag.Diagnostic, runErr error) error {
	switch {
	case runErr != nil && !engine.IsFatal(runErr):
		// Host failures (unreadable sources, runaway generation) are
		// command errors, not generator errors.
		_ = out.Error(CodeRunFatal, runErr.Error(), summary)
		return WrapExitError(ExitCommandError, "run failed", runErr)
	case runErr != nil:
		out.Diagnostics(diags)
		_ = out.Error(CodeRunFatal, runErr.Error(), summary)
		return WrapExitError(ExitFailure, "generator failed", runErr)
	case summary.Errors > 0:
		out.Diagnostics(diags)
		_ = out.Error(CodeRunErrors, fmt.Sprintf("%d errors reported", summary.Errors), summary)
		return NewExitError(ExitFailure, fmt.Sprintf("%d errors reported", summary.Errors))
	}
	out.Diagnostics(diags)
	return out.Success(summary)
}

func summarize(stats engine.RunStats, diags []diag.Diagnostic, reports []string) RunSummary {
	s := RunSummary{
		Passes:      stats.Passes,
		Errors:      stats.ErrorCount,
		Complete:    stats.Complete,
		TotalUs:     stats.Total.Microseconds(),
		Reports:     reports,
		Diagnostics: make([]DiagnosticJSON, 0, len(diags)),
	}
	for _, d := range diags {
		s.Diagnostics = append(s.Diagnostics, DiagnosticJSON{
			Kind:      string(d.Kind),
			Message:   d.Message,
			Decl:      d.DeclName(),
			Generator: d.Generator,
		})
	}
	return s
}

func recordHistory(ctx context.Context, path string, started time.Time, stats engine.RunStats, diags []diag.Diagnostic) (string, error) {
	st, err := store.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	run := store.RunRecord{
		Processor:   stats.ProcessorName,
		StartedAt:   started.UTC(),
		TotalTime:   stats.Total,
		WallTime:    stats.Wall,
		PassTimings: stats.PassTimings,
		ErrorCount:  stats.ErrorCount,
	}
	for i, d := range diags {
		run.Diagnostics = append(run.Diagnostics, store.DiagnosticRecord{
			Seq:       i + 1,
			Kind:      string(d.Kind),
			Message:   d.Message,
			Decl:      d.DeclName(),
			Generator: d.Generator,
		})
	}
	// A cancelled run is still recorded.
	return st.RecordRun(context.WithoutCancel(ctx), run)
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
