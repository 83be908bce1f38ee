package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/randomizedcoder/go-tasksystem-sweep/internal/config"
	"github.com/randomizedcoder/go-tasksystem-sweep/internal/logging"
	"github.com/randomizedcoder/go-tasksystem-sweep/internal/metrics"
	"github.com/randomizedcoder/go-tasksystem-sweep/internal/parser"
	"github.com/randomizedcoder/go-tasksystem-sweep/internal/preflight"
	"github.com/randomizedcoder/go-tasksystem-sweep/internal/process"
	"github.com/randomizedcoder/go-tasksystem-sweep/internal/result"
	"github.com/randomizedcoder/go-tasksystem-sweep/internal/stats"
	"github.com/randomizedcoder/go-tasksystem-sweep/internal/sweep"
)

const (
	// shutdownTimeout bounds metrics server shutdown at the end of a run.
	shutdownTimeout = 5 * time.Second

	// stderrTailLines is how many trailing stderr lines a failed point reports.
	stderrTailLines = 5
)

// Callbacks contains optional hooks for sweep events.
// They run on the sweep goroutine and must not block.
type Callbacks struct {
	OnRunStart   func(runDir string)
	OnPointStart func(p sweep.Point, at time.Time)
	OnPointDone  func(p sweep.Point, art result.Artifact)
	OnCooldown   func(d time.Duration)
	OnSweepDone  func(err error)
}

// Options customizes an Orchestrator. The zero value is usable.
type Options struct {
	Version   string
	Runner    process.Runner   // default: process.NewBenchmarkRunner(cfg.Executable)
	Stdout    io.Writer        // "Executed in" lines and the exit summary; default os.Stdout
	Now       func() time.Time // default time.Now
	Callbacks Callbacks

	// HandleSignals installs SIGINT/SIGTERM handlers for the duration of Run.
	HandleSignals bool
}

// Orchestrator coordinates all components for a benchmark sweep.
type Orchestrator struct {
	config *config.Config
	logger *slog.Logger

	plan     sweep.Plan
	workload sweep.Workload
	runner   process.Runner
	executor *process.Executor
	cooldown *Cooldown

	aggregator *stats.Aggregator
	metrics    *metrics.Collector

	stdout        io.Writer
	now           func() time.Time
	callbacks     Callbacks
	handleSignals bool

	runDir    string
	completed int
}

// New creates a new Orchestrator with the given configuration.
// cfg must already be resolved and validated.
func New(cfg *config.Config, logger *slog.Logger, opts Options) *Orchestrator {
	plan := cfg.Plan()

	runner := opts.Runner
	if runner == nil {
		runner = process.NewBenchmarkRunner(cfg.Executable)
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	collector := metrics.NewCollector(metrics.CollectorConfig{
		Version:       opts.Version,
		Executable:    cfg.Executable,
		PlannedPoints: plan.Len(),
		Parallelism:   cfg.Parallelism,
		CalibrationNs: cfg.CalibrationNs,
	})

	return &Orchestrator{
		config:        cfg,
		logger:        logger,
		plan:          plan,
		workload:      cfg.Workload(),
		runner:        runner,
		executor:      process.NewExecutor(process.NewLock(), cfg.Timeout, logger),
		cooldown:      NewCooldown(cfg.Cooldown),
		aggregator:    stats.NewAggregator(plan.Len()),
		metrics:       collector,
		stdout:        stdout,
		now:           now,
		callbacks:     opts.Callbacks,
		handleSignals: opts.HandleSignals,
	}
}

// Run executes the sweep. It blocks until every point is recorded, the
// first failure, or cancellation. Artifacts written before a failure stay
// on disk.
func (o *Orchestrator) Run(ctx context.Context) error {
	// Run preflight checks
	if !o.config.SkipPreflight {
		checks := preflight.RunAll(preflight.Options{
			Executable:  o.config.Executable,
			Parallelism: o.config.Parallelism,
			ResultsDir:  o.config.ResultsDir,
		})
		preflight.PrintResults(o.stdout, checks)
		if !checks.Passed {
			o.metrics.RecordFailure(metrics.FailureConfig)
			return fmt.Errorf("preflight checks failed (use --skip-preflight to override)")
		}
	}

	startedAt := o.now()
	runDir, err := result.CreateRunDir(o.config.ResultsDir, startedAt)
	if err != nil {
		o.metrics.RecordFailure(metrics.FailureFile)
		return err
	}
	o.runDir = runDir

	manifest := o.newManifest(startedAt)
	if err := result.WriteManifest(runDir, manifest); err != nil {
		o.metrics.RecordFailure(metrics.FailureFile)
		return err
	}

	// Start metrics server
	if o.config.MetricsAddr != "" {
		server := metrics.NewServer(o.config.MetricsAddr, o.metrics.Gatherer(), o.logger)
		if err := server.Start(); err != nil {
			return o.finish(manifest, fmt.Errorf("failed to start metrics server: %w", err))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				o.logger.Warn("metrics_server_shutdown_error", "error", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Setup signal handling
	if o.handleSignals {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(sigCh)

		go func() {
			select {
			case sig := <-sigCh:
				o.logger.Info("received_signal", "signal", sig.String())
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	if cb := o.callbacks.OnRunStart; cb != nil {
		cb(runDir)
	}

	o.logger.Info("sweep_starting",
		"run_dir", runDir,
		"run_id", manifest.RunID,
		"points", o.plan.Len(),
		"ranges", o.plan.Ranges(),
		"variants", len(o.plan.Variants),
		"parallelism", o.config.Parallelism,
		"estimated_cooldown", o.cooldown.EstimatedDuration(o.plan.Len()).String(),
	)

	return o.finish(manifest, o.sweep(ctx))
}

// sweep runs every planned point in order and stops at the first error.
func (o *Orchestrator) sweep(ctx context.Context) error {
	recorder := result.NewRecorder(o.runDir, o.stdout)

	for p := range o.plan.Points() {
		point := o.workload.Size(p)

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: sweep cancelled: %w", point.BaseName(), err)
		}

		if err := o.runPoint(ctx, recorder, point); err != nil {
			return err
		}

		if cb := o.callbacks.OnCooldown; cb != nil {
			cb(o.cooldown.Delay())
		}
		o.logger.Debug("cooldown", "delay", o.cooldown.Delay().String())
		if err := o.cooldown.Wait(ctx); err != nil {
			return fmt.Errorf("%s: cooldown interrupted: %w", point.BaseName(), err)
		}
	}

	return nil
}

// runPoint executes and records a single sized point.
func (o *Orchestrator) runPoint(ctx context.Context, recorder *result.Recorder, point sweep.Point) error {
	startedAt := o.now()
	o.logger.Info("point_started",
		"point", point.BaseName(),
		"shortest_ns", point.ShortestNs,
		"longest_ns", point.LongestNs,
		"tasks", point.TaskCount,
		"variant", point.Variant.String(),
	)
	o.metrics.PointStarted(point)
	if cb := o.callbacks.OnPointStart; cb != nil {
		cb(point, startedAt)
	}

	res, err := o.executor.Execute(ctx, o.runner, point)
	var stderrLog *logging.OutputHandler
	if res != nil && res.HasStderr() {
		stderrLog = logging.NewOutputHandler(point.BaseName(), "stderr", o.logger, o.config.Verbose)
		stderrLog.HandleOutput(res.Stderr)
	}
	if err != nil {
		return pointError(point, withStderrTail(err, stderrLog))
	}

	if res.ExitCode != 0 {
		o.logger.Warn("benchmark_nonzero_exit",
			"point", point.BaseName(),
			"exit_code", res.ExitCode,
			"pid", res.PID,
		)
	}

	art, err := recorder.Record(res)
	if err != nil {
		return pointError(point, withStderrTail(err, stderrLog))
	}

	o.aggregator.Record(point, art.DurationMs, res.Elapsed())
	o.metrics.RecordPoint(point, art.DurationMs, res.Elapsed())
	o.completed++

	o.logger.Info("point_recorded",
		"point", point.BaseName(),
		"duration_ms", art.DurationMs,
		"wall", res.Elapsed().String(),
		"completed", o.completed,
		"planned", o.plan.Len(),
	)
	if cb := o.callbacks.OnPointDone; cb != nil {
		cb(point, art)
	}
	return nil
}

// finish records the outcome in the manifest and metrics snapshot and
// prints the exit summary. It returns runErr, or the first finalization
// error when the sweep itself succeeded.
func (o *Orchestrator) finish(manifest *result.Manifest, runErr error) error {
	if runErr != nil {
		kind := failureKind(runErr)
		o.metrics.RecordFailure(kind)
		o.logger.Error("sweep_failed",
			"error", runErr,
			"kind", kind,
			"completed", o.completed,
			"planned", o.plan.Len(),
		)
	} else {
		o.logger.Info("sweep_complete",
			"completed", o.completed,
			"run_dir", o.runDir,
		)
	}

	manifest.Finish(o.now(), o.completed, runErr)
	var finalErrs []error
	if err := result.WriteManifest(o.runDir, manifest); err != nil {
		finalErrs = append(finalErrs, err)
	}
	if err := metrics.WriteTextfile(o.metrics.Gatherer(), filepath.Join(o.runDir, metrics.SnapshotFile)); err != nil {
		finalErrs = append(finalErrs, err)
	}
	for _, err := range finalErrs {
		o.logger.Warn("finalize_error", "error", err)
	}

	if cb := o.callbacks.OnSweepDone; cb != nil {
		cb(runErr)
	}

	fmt.Fprint(o.stdout, o.ExitSummary(runErr))

	if runErr != nil {
		return runErr
	}
	return errors.Join(finalErrs...)
}

func (o *Orchestrator) newManifest(startedAt time.Time) *result.Manifest {
	m := result.NewManifest(startedAt)
	m.Executable = o.config.Executable
	m.PlannedPoints = o.plan.Len()
	m.Sweep = result.SweepInfo{
		ShortestNs:    o.config.ShortestNs,
		LongestNs:     o.config.LongestNs,
		StepNs:        o.config.StepNs,
		Variants:      config.VariantIDs(o.config.Variants),
		CalibrationNs: o.config.CalibrationNs,
		Parallelism:   o.config.Parallelism,
		Cooldown:      o.config.Cooldown.String(),
	}
	hostname, _ := os.Hostname()
	m.Host = result.HostInfo{
		Hostname: hostname,
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
		NumCPU:   runtime.NumCPU(),
	}
	return m
}

// pointError prefixes err with the point's base name unless it already
// carries it.
func pointError(point sweep.Point, err error) error {
	var procErr *process.ProcessError
	if errors.As(err, &procErr) {
		return err
	}
	return fmt.Errorf("%s: %w", point.BaseName(), err)
}

// withStderrTail appends the last few stderr lines seen by h to err.
func withStderrTail(err error, h *logging.OutputHandler) error {
	if h == nil {
		return err
	}
	tail := h.RecentLines(stderrTailLines)
	if len(tail) == 0 {
		return err
	}
	return fmt.Errorf("%w (stderr: %s)", err, strings.Join(tail, " | "))
}

// failureKind classifies a sweep error for the failures metric.
func failureKind(err error) string {
	var (
		parseErr *parser.ParseError
		fileErr  *result.FileError
		procErr  *process.ProcessError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return metrics.FailureCanceled
	case errors.As(err, &parseErr):
		return metrics.FailureParse
	case errors.As(err, &fileErr):
		return metrics.FailureFile
	case errors.As(err, &procErr):
		if procErr.Op == "stderr" {
			return metrics.FailureStderr
		}
		return metrics.FailureProcess
	default:
		return metrics.FailureUnknown
	}
}

// ExitSummary formats the results gathered so far.
func (o *Orchestrator) ExitSummary(runErr error) string {
	return stats.FormatExitSummary(o.aggregator.Snapshot(), stats.SummaryConfig{
		RunDir:      o.runDir,
		Executable:  o.config.Executable,
		Parallelism: o.config.Parallelism,
		Err:         runErr,
	})
}

// RunDir returns the run directory, empty until Run has created it.
func (o *Orchestrator) RunDir() string {
	return o.runDir
}

// Stats returns the sweep statistics aggregator.
func (o *Orchestrator) Stats() *stats.Aggregator {
	return o.aggregator
}

// Plan returns the sweep plan.
func (o *Orchestrator) Plan() sweep.Plan {
	return o.plan
}
