package config

import (
	"bytes"
	"errors"
	"flag"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randomizedcoder/go-tasksystem-sweep/internal/sweep"
)

// =============================================================================
// Tests: DefaultConfig / Resolve
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"ShortestNs", cfg.ShortestNs, int64(100)},
		{"LongestNs", cfg.LongestNs, int64(1500)},
		{"StepNs", cfg.StepNs, int64(100)},
		{"CalibrationNs", cfg.CalibrationNs, int64(3_000_000_000)},
		{"Parallelism", cfg.Parallelism, int64(0)},
		{"Cooldown", cfg.Cooldown, 2 * time.Second},
		{"Timeout", cfg.Timeout, time.Duration(0)},
		{"ResultsDir", cfg.ResultsDir, "."},
		{"LogFormat", cfg.LogFormat, "json"},
		{"MetricsAddr", cfg.MetricsAddr, ""},
		{"TUIEnabled", cfg.TUIEnabled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}

	assert.Equal(t, sweep.AllVariants(), cfg.Variants)
}

func TestResolve(t *testing.T) {
	cfg := DefaultConfig()
	Resolve(cfg)
	assert.Equal(t, int64(runtime.NumCPU()), cfg.Parallelism)

	cfg.Parallelism = 3
	Resolve(cfg)
	assert.Equal(t, int64(3), cfg.Parallelism, "explicit parallelism must be kept")
}

func TestConfig_PlanAndWorkload(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Parallelism = 4

	assert.Equal(t, sweep.DefaultPlan(), cfg.Plan())
	assert.Equal(t, int64(80_000_000), cfg.Workload().TaskCount(100, 200))
}

// =============================================================================
// Tests: ParseArgs
// =============================================================================

func TestParseArgs_Defaults(t *testing.T) {
	cfg, err := ParseArgs([]string{"./task_systems"}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, "./task_systems", cfg.Executable)
	assert.Equal(t, sweep.AllVariants(), cfg.Variants)
	assert.Equal(t, 2*time.Second, cfg.Cooldown)
}

func TestParseArgs_AllFlags(t *testing.T) {
	args := []string{
		"-shortest-ns", "200",
		"-longest-ns", "900",
		"-step-ns", "50",
		"-variants", "2-4",
		"-calibration", "1000000",
		"-parallelism", "8",
		"-cooldown", "500ms",
		"-timeout", "1m",
		"-results-dir", "/tmp/results",
		"-metrics", "127.0.0.1:17092",
		"-v",
		"-log-format", "text",
		"-tui",
		"-print-plan",
		"-skip-preflight",
		"/opt/task_systems",
	}

	cfg, err := ParseArgs(args, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, int64(200), cfg.ShortestNs)
	assert.Equal(t, int64(900), cfg.LongestNs)
	assert.Equal(t, int64(50), cfg.StepNs)
	assert.Equal(t, []sweep.Variant{2, 3, 4}, cfg.Variants)
	assert.Equal(t, int64(1_000_000), cfg.CalibrationNs)
	assert.Equal(t, int64(8), cfg.Parallelism)
	assert.Equal(t, 500*time.Millisecond, cfg.Cooldown)
	assert.Equal(t, time.Minute, cfg.Timeout)
	assert.Equal(t, "/tmp/results", cfg.ResultsDir)
	assert.Equal(t, "127.0.0.1:17092", cfg.MetricsAddr)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.True(t, cfg.TUIEnabled)
	assert.True(t, cfg.PrintPlan)
	assert.True(t, cfg.SkipPreflight)
	assert.Equal(t, "/opt/task_systems", cfg.Executable)
}

func TestParseArgs_BadVariants(t *testing.T) {
	var out bytes.Buffer
	_, err := ParseArgs([]string{"-variants", "9", "./x"}, &out)
	require.Error(t, err)
	assert.Contains(t, out.String(), "variant 9 out of range")
}

func TestParseArgs_Help(t *testing.T) {
	var out bytes.Buffer
	_, err := ParseArgs([]string{"-h"}, &out)
	assert.ErrorIs(t, err, flag.ErrHelp)

	usage := out.String()
	for _, section := range []string{"Sweep Flags:", "Workload Sizing:", "Execution:", "Observability:", "-cooldown duration"} {
		assert.Contains(t, usage, section)
	}
}

// =============================================================================
// Tests: variantList
// =============================================================================

func TestVariantList(t *testing.T) {
	var v variantList
	assert.Equal(t, "all", v.String())

	require.NoError(t, v.Set("0,6"))
	assert.Equal(t, "0,6", v.String())

	assert.Error(t, v.Set("bogus"))
}

func TestFlagType(t *testing.T) {
	testCases := []struct {
		name     string
		defValue string
		expected string
	}{
		{"bool true", "true", ""},
		{"bool false", "false", ""},
		{"int", "42", "int"},
		{"string", "hello", "string"},
		{"duration seconds", "2s", "duration"},
		{"duration minutes", "5m", "duration"},
		{"empty", "", "string"},
		{"negative int", "-1", "int"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := &flag.Flag{DefValue: tc.defValue}
			assert.Equal(t, tc.expected, flagType(f))
		})
	}
}

// =============================================================================
// Table-Driven Tests: Validate
// =============================================================================

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Executable = "./task_systems"
	cfg.Parallelism = 4
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string // empty = valid
	}{
		{"valid", func(c *Config) {}, ""},
		{"detected parallelism", func(c *Config) { c.Parallelism = 0 }, ""},
		{"missing executable", func(c *Config) { c.Executable = "" }, "executable"},
		{"print plan without executable", func(c *Config) { c.Executable = ""; c.PrintPlan = true }, ""},
		{"zero shortest", func(c *Config) { c.ShortestNs = 0 }, "sweep"},
		{"empty grid", func(c *Config) { c.LongestNs = 150 }, "sweep"},
		{"negative step", func(c *Config) { c.StepNs = -100 }, "sweep"},
		{"no variants", func(c *Config) { c.Variants = nil }, "sweep"},
		{"zero calibration", func(c *Config) { c.CalibrationNs = 0 }, "calibration"},
		{"tiny calibration", func(c *Config) { c.CalibrationNs = 1; c.Parallelism = 1 }, "calibration"},
		{"overflow", func(c *Config) { c.CalibrationNs = 1 << 62; c.Parallelism = 4 }, "calibration"},
		{"negative parallelism", func(c *Config) { c.Parallelism = -1 }, "parallelism"},
		{"negative cooldown", func(c *Config) { c.Cooldown = -time.Second }, "cooldown"},
		{"zero cooldown", func(c *Config) { c.Cooldown = 0 }, ""},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, "timeout"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"pretty log format", func(c *Config) { c.LogFormat = "pretty" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantField+":"), "error %q should mention %s", err, tt.wantField)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Executable = ""
	cfg.LogFormat = "xml"
	cfg.Cooldown = -1

	err := Validate(cfg)
	require.Error(t, err)

	var ve ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Contains(t, err.Error(), "executable:")
	assert.Contains(t, err.Error(), "log_format:")
	assert.Contains(t, err.Error(), "cooldown:")
}

func TestVariantIDs(t *testing.T) {
	assert.Equal(t, []int{0, 3, 6}, VariantIDs([]sweep.Variant{0, 3, 6}))
}
