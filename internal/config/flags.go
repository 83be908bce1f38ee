package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/randomizedcoder/go-tasksystem-sweep/internal/sweep"
)

// variantList is a flag.Value for -variants ("0,1,6", "2-6", "all").
type variantList []sweep.Variant

func (v *variantList) String() string {
	if v == nil || len(*v) == 0 {
		return "all"
	}
	parts := make([]string, len(*v))
	for i, variant := range *v {
		parts[i] = strconv.Itoa(int(variant))
	}
	return strings.Join(parts, ",")
}

func (v *variantList) Set(value string) error {
	parsed, err := sweep.ParseVariants(value)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseFlags parses os.Args and returns a Config.
func ParseFlags() (*Config, error) {
	return ParseArgs(os.Args[1:], os.Stderr)
}

// ParseArgs parses args (without the program name) into a Config.
// Usage and parse errors are written to output.
func ParseArgs(args []string, output io.Writer) (*Config, error) {
	cfg := DefaultConfig()
	fs := flag.NewFlagSet("go-tasksystem-sweep", flag.ContinueOnError)
	fs.SetOutput(output)

	variants := variantList(cfg.Variants)

	// Custom usage message
	fs.Usage = func() {
		fmt.Fprintf(output, `go-tasksystem-sweep - parameterized benchmark sweep for task-system schedulers

Usage:
  go-tasksystem-sweep [flags] <BENCHMARK_EXECUTABLE>

Sweep Flags:
`)
		printFlagCategory(fs, output, []string{"shortest-ns", "longest-ns", "step-ns", "variants"})

		fmt.Fprintf(output, "\nWorkload Sizing:\n")
		printFlagCategory(fs, output, []string{"calibration", "parallelism"})

		fmt.Fprintf(output, "\nExecution:\n")
		printFlagCategory(fs, output, []string{"cooldown", "timeout", "results-dir"})

		fmt.Fprintf(output, "\nSafety & Diagnostics:\n")
		printFlagCategory(fs, output, []string{"print-plan", "skip-preflight"})

		fmt.Fprintf(output, "\nObservability:\n")
		printFlagCategory(fs, output, []string{"metrics", "v", "log-format", "tui"})

		fmt.Fprintf(output, `
The executable is invoked once per configuration as:
  <BENCHMARK_EXECUTABLE> <shortest_ns> <longest_ns> <task_count> <variant>
and must print "Running time: <N>ms" as the first line of stdout.

Examples:
  # Full default sweep (100..1500ns, all 7 variants)
  go-tasksystem-sweep ./build/task_systems/task_systems

  # Small sweep over the work-stealing variants only
  go-tasksystem-sweep -longest-ns 300 -variants 2-6 ./task_systems

  # Show every configuration without running anything
  go-tasksystem-sweep --print-plan ./task_systems

`)
	}

	// Sweep
	fs.Int64Var(&cfg.ShortestNs, "shortest-ns", cfg.ShortestNs, "Shortest task duration of the first range (ns)")
	fs.Int64Var(&cfg.LongestNs, "longest-ns", cfg.LongestNs, "Upper bound of task durations (ns)")
	fs.Int64Var(&cfg.StepNs, "step-ns", cfg.StepNs, "Step between range bounds (ns)")
	fs.Var(&variants, "variants", `Variants to run: "all", list "0,1,6" or range "2-6"`)

	// Workload sizing
	fs.Int64Var(&cfg.CalibrationNs, "calibration", cfg.CalibrationNs, "Synthetic work per processing unit (task ns)")
	fs.Int64Var(&cfg.Parallelism, "parallelism", cfg.Parallelism, "Processing units to size for (0 = number of CPUs)")

	// Execution
	fs.DurationVar(&cfg.Cooldown, "cooldown", cfg.Cooldown, "Pause after each configuration")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Abort a single run after this long (0 = no limit)")
	fs.StringVar(&cfg.ResultsDir, "results-dir", cfg.ResultsDir, "Directory in which the timestamped run directory is created")

	// Safety & Diagnostics
	fs.BoolVar(&cfg.PrintPlan, "print-plan", cfg.PrintPlan, "Print every sized configuration and exit")
	fs.BoolVar(&cfg.SkipPreflight, "skip-preflight", cfg.SkipPreflight, "Skip preflight checks")

	// Observability
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Prometheus metrics address (empty = disabled)")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json", "text" or "pretty"`)
	fs.BoolVar(&cfg.TUIEnabled, "tui", cfg.TUIEnabled, "Enable live terminal dashboard")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.Variants = variants

	// Positional argument: benchmark executable
	if rest := fs.Args(); len(rest) >= 1 {
		cfg.Executable = rest[0]
	}

	return cfg, nil
}

// printFlagCategory prints flags matching the given names (helper for usage).
func printFlagCategory(fs *flag.FlagSet, w io.Writer, names []string) {
	fs.VisitAll(func(f *flag.Flag) {
		for _, name := range names {
			if f.Name == name {
				fmt.Fprintf(w, "  -%s %s\n    \t%s", f.Name, flagType(f), f.Usage)
				if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "0s" {
					fmt.Fprintf(w, " (default %s)", f.DefValue)
				}
				fmt.Fprintln(w)
				return
			}
		}
	})
}

// flagType returns a type hint for the flag value.
func flagType(f *flag.Flag) string {
	// Infer type from default value format
	switch f.DefValue {
	case "true", "false":
		return ""
	}

	// Check if it looks like a duration
	if strings.HasSuffix(f.DefValue, "s") || strings.HasSuffix(f.DefValue, "m") || strings.HasSuffix(f.DefValue, "h") {
		return "duration"
	}

	// Check if numeric
	if _, err := fmt.Sscanf(f.DefValue, "%d", new(int)); err == nil {
		return "int"
	}

	return "string"
}
