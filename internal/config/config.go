// Package config provides configuration management for go-tasksystem-sweep.
package config

import (
	"runtime"
	"time"

	"github.com/randomizedcoder/go-tasksystem-sweep/internal/sweep"
)

// Config holds all configuration options for a sweep.
// It is built once at startup and treated as immutable afterwards.
type Config struct {
	// Benchmark executable
	Executable string        `json:"executable"`
	Timeout    time.Duration `json:"timeout"` // 0 = wait forever

	// Sweep grid
	ShortestNs int64           `json:"shortest_ns"`
	LongestNs  int64           `json:"longest_ns"`
	StepNs     int64           `json:"step_ns"`
	Variants   []sweep.Variant `json:"variants"`

	// Workload sizing
	CalibrationNs int64 `json:"calibration_ns"`
	Parallelism   int64 `json:"parallelism"` // 0 = number of CPUs

	// Pacing
	Cooldown time.Duration `json:"cooldown"`

	// Output
	ResultsDir string `json:"results_dir"`

	// Observability
	MetricsAddr string `json:"metrics_addr"` // empty = disabled
	Verbose     bool   `json:"verbose"`
	LogFormat   string `json:"log_format"` // json, text, pretty
	TUIEnabled  bool   `json:"tui_enabled"`

	// Diagnostic modes
	PrintPlan     bool `json:"print_plan"`
	SkipPreflight bool `json:"skip_preflight"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ShortestNs: sweep.DefaultShortestNs,
		LongestNs:  sweep.DefaultLongestNs,
		StepNs:     sweep.DefaultStepNs,
		Variants:   sweep.AllVariants(),

		CalibrationNs: sweep.DefaultCalibrationNs,
		Parallelism:   0, // Detected

		Cooldown: 2 * time.Second,

		ResultsDir: ".",

		LogFormat: "json",
	}
}

// Resolve fills in host-derived values. The CPU count is read here once and
// then held in the Config for the whole run.
func Resolve(cfg *Config) {
	if cfg.Parallelism == 0 {
		cfg.Parallelism = int64(runtime.NumCPU())
	}
}

// Plan returns the sweep grid described by the config.
func (c *Config) Plan() sweep.Plan {
	return sweep.Plan{
		ShortestNs: c.ShortestNs,
		LongestNs:  c.LongestNs,
		StepNs:     c.StepNs,
		Variants:   c.Variants,
	}
}

// Workload returns the task-count calculator described by the config.
func (c *Config) Workload() sweep.Workload {
	return sweep.Workload{
		CalibrationNs: c.CalibrationNs,
		Parallelism:   c.Parallelism,
	}
}
