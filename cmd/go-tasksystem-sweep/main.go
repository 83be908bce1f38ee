// Package main provides the go-tasksystem-sweep CLI entry point.
//
// go-tasksystem-sweep runs a task-system benchmark executable over a grid of
// task-duration ranges and scheduler variants, one configuration at a time,
// and stores each run's output in a timestamped results directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/randomizedcoder/go-tasksystem-sweep/internal/config"
	"github.com/randomizedcoder/go-tasksystem-sweep/internal/logging"
	"github.com/randomizedcoder/go-tasksystem-sweep/internal/orchestrator"
	"github.com/randomizedcoder/go-tasksystem-sweep/internal/result"
	"github.com/randomizedcoder/go-tasksystem-sweep/internal/sweep"
	"github.com/randomizedcoder/go-tasksystem-sweep/internal/tui"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/go-tasksystem-sweep
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Handle version flag early (before flag parsing)
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if arg == "-version" || arg == "--version" || arg == "version" {
			fmt.Printf("go-tasksystem-sweep %s\n", version)
			return 0
		}
	}

	// Parse command-line flags
	cfg, err := config.ParseFlags()
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}
	config.Resolve(cfg)

	// The dashboard needs a real terminal
	if cfg.TUIEnabled && !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Warning: -tui ignored, stdout is not a terminal")
		cfg.TUIEnabled = false
	}

	// Initialize logger
	// When TUI is enabled, suppress logs to avoid interfering with TUI rendering
	var logger *slog.Logger
	if cfg.TUIEnabled {
		logger = logging.NewLoggerWithWriter(io.Discard, "json", "info")
	} else {
		logger = logging.NewLogger(cfg.LogFormat, "info", cfg.Verbose)
	}
	logging.SetDefault(logger)

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	// Handle --print-plan mode
	if cfg.PrintPlan {
		if err := orchestrator.PrintPlan(os.Stdout, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error printing plan: %v\n", err)
			return 1
		}
		return 0
	}

	logger.Info("starting",
		"version", version,
		"executable", cfg.Executable,
		"shortest_ns", cfg.ShortestNs,
		"longest_ns", cfg.LongestNs,
		"step_ns", cfg.StepNs,
		"variants", config.VariantIDs(cfg.Variants),
		"parallelism", cfg.Parallelism,
		"metrics_addr", cfg.MetricsAddr,
	)

	if cfg.TUIEnabled {
		return runWithTUI(cfg, logger)
	}

	printBanner(cfg)

	orch := orchestrator.New(cfg, logger, orchestrator.Options{
		Version:       version,
		HandleSignals: true,
	})
	if err := orch.Run(context.Background()); err != nil {
		logger.Error("orchestrator_failed", "error", err)
		return 1
	}
	return 0
}

// runWithTUI runs the sweep and the dashboard side by side. Closing the
// dashboard leaves the sweep running; ctrl+c in the dashboard aborts it.
func runWithTUI(cfg *config.Config, logger *slog.Logger) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var prog *tea.Program
	orch := orchestrator.New(cfg, logger, orchestrator.Options{
		Version:       version,
		Stdout:        io.Discard,
		HandleSignals: true,
		Callbacks: orchestrator.Callbacks{
			OnRunStart: func(runDir string) {
				tui.SendRunStarted(prog, runDir)
			},
			OnPointStart: func(p sweep.Point, at time.Time) {
				tui.SendPointStarted(prog, p, at)
			},
			OnPointDone: func(p sweep.Point, art result.Artifact) {
				tui.SendPointDone(prog, p, art.DurationMs)
			},
			OnCooldown: func(d time.Duration) {
				tui.SendCooldown(prog, d)
			},
		},
	})

	model := tui.New(tui.Config{
		Executable:    cfg.Executable,
		MetricsAddr:   cfg.MetricsAddr,
		PlannedPoints: orch.Plan().Len(),
		StatsSource:   orch.Stats(),
		OnCancel:      cancel,
	})
	prog = tea.NewProgram(model, tea.WithAltScreen())

	var runErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		runErr = orch.Run(gctx)
		// Sent here rather than from a callback so preflight and
		// run-directory failures reach the dashboard too.
		tui.SendSweepDone(prog, runErr)
		return runErr
	})
	g.Go(func() error {
		if _, err := prog.Run(); err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		return nil
	})

	waitErr := g.Wait()

	// The alternate screen is gone; print what the dashboard showed.
	fmt.Print(orch.ExitSummary(runErr))
	if waitErr != nil && !errors.Is(waitErr, runErr) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", waitErr)
	}
	if waitErr != nil {
		return 1
	}
	return 0
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	plan := cfg.Plan()
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                       go-tasksystem-sweep                         ║")
	fmt.Println("║        Task-System Scheduler Benchmark Sweep Harness              ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Executable:   %s\n", cfg.Executable)
	fmt.Printf("  Durations:    %d..%d ns, step %d ns (%d ranges)\n",
		cfg.ShortestNs, cfg.LongestNs, cfg.StepNs, plan.Ranges())
	fmt.Printf("  Variants:     %v\n", cfg.Variants)
	fmt.Printf("  Points:       %d (cooldown %s each)\n", plan.Len(), cfg.Cooldown)
	fmt.Printf("  Parallelism:  %d\n", cfg.Parallelism)
	fmt.Printf("  Results:      %s\n", cfg.ResultsDir)
	if cfg.MetricsAddr != "" {
		fmt.Printf("  Metrics:      http://%s/metrics\n", cfg.MetricsAddr)
	}
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop.")
	fmt.Println()
}
