package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randomizedcoder/go-tasksystem-sweep/internal/config"
	"github.com/randomizedcoder/go-tasksystem-sweep/internal/logging"
	"github.com/randomizedcoder/go-tasksystem-sweep/internal/metrics"
	"github.com/randomizedcoder/go-tasksystem-sweep/internal/parser"
	"github.com/randomizedcoder/go-tasksystem-sweep/internal/process"
	"github.com/randomizedcoder/go-tasksystem-sweep/internal/result"
	"github.com/randomizedcoder/go-tasksystem-sweep/internal/sweep"
)

// =============================================================================
// Test Helpers
// =============================================================================

var testStart = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

const runDirName = "2026-01-02_03-04-05"

// The fake benchmark reports (shortest+longest)/10 ms and echoes its arguments.
const goodScript = `#!/bin/sh
echo "Running time: $(( ($1 + $2) / 10 ))ms"
echo "tasks=$3 variant=$4"
`

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bench.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func testConfig(t *testing.T, exe string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Executable = exe
	cfg.LongestNs = 300
	cfg.Parallelism = 4
	cfg.Cooldown = 0
	cfg.ResultsDir = t.TempDir()
	cfg.SkipPreflight = true
	config.Resolve(cfg)
	require.NoError(t, config.Validate(cfg))
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(cfg *config.Config, stdout io.Writer, cb Callbacks) *Orchestrator {
	return New(cfg, discardLogger(), Options{
		Version:   "test",
		Stdout:    stdout,
		Now:       func() time.Time { return testStart },
		Callbacks: cb,
	})
}

func listArtifacts(t *testing.T, dir, ext string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*"+ext))
	require.NoError(t, err)
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = filepath.Base(m)
	}
	return names
}

// =============================================================================
// Tests: full sweep
// =============================================================================

func TestRun_SmallSweep(t *testing.T) {
	cfg := testConfig(t, writeScript(t, goodScript))
	var stdout bytes.Buffer

	var started, done, cooldowns int
	var runStartDir string
	var sweepErr error = errors.New("not called")
	cb := Callbacks{
		OnRunStart:   func(dir string) { runStartDir = dir },
		OnPointStart: func(sweep.Point, time.Time) { started++ },
		OnPointDone:  func(sweep.Point, result.Artifact) { done++ },
		OnCooldown:   func(time.Duration) { cooldowns++ },
		OnSweepDone:  func(err error) { sweepErr = err },
	}

	o := newTestOrchestrator(cfg, &stdout, cb)
	require.NoError(t, o.Run(context.Background()))

	runDir := filepath.Join(cfg.ResultsDir, runDirName)
	assert.Equal(t, runDir, o.RunDir())
	assert.Equal(t, runDir, runStartDir)
	assert.Equal(t, 21, started)
	assert.Equal(t, 21, done)
	assert.Equal(t, 21, cooldowns)
	assert.NoError(t, sweepErr)

	// 3 ranges x 7 variants, no stderr files.
	outs := listArtifacts(t, runDir, ".out")
	assert.Len(t, outs, 21)
	assert.Empty(t, listArtifacts(t, runDir, ".err"))

	// task count = 2 * 3e9 * 4 / (s + l)
	for _, want := range []string{
		"100_200_80000000_0.out",
		"100_300_60000000_6.out",
		"200_300_48000000_3.out",
	} {
		assert.Contains(t, outs, want)
	}

	data, err := os.ReadFile(filepath.Join(runDir, "100_200_80000000_0.out"))
	require.NoError(t, err)
	assert.Equal(t, "Running time: 30ms\ntasks=80000000 variant=0\n", string(data))

	out := stdout.String()
	assert.Equal(t, 21, strings.Count(out, "Executed in: "))
	assert.Contains(t, out, "Executed in: 30 ms [100-200 ns, 80000000 tasks, oracle]\n")
	assert.Contains(t, out, "Executed in: 50 ms [200-300 ns, 48000000 tasks, task-stealing-100]\n")
	assert.Contains(t, out, "Exit Summary")
	assert.Contains(t, out, "Configurations:         21 / 21")

	// "Executed in" lines follow sweep order.
	first := strings.Index(out, "[100-200 ns, 80000000 tasks, oracle]")
	last := strings.Index(out, "[200-300 ns, 48000000 tasks, task-stealing-100]")
	assert.Less(t, first, last)

	m, err := result.ReadManifest(runDir)
	require.NoError(t, err)
	assert.Equal(t, result.StatusCompleted, m.Status)
	assert.Equal(t, 21, m.PlannedPoints)
	assert.Equal(t, 21, m.CompletedPoints)
	assert.Equal(t, cfg.Executable, m.Executable)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, m.Sweep.Variants)
	assert.Equal(t, int64(4), m.Sweep.Parallelism)

	prom, err := os.ReadFile(filepath.Join(runDir, metrics.SnapshotFile))
	require.NoError(t, err)
	assert.Contains(t, string(prom), "tasksystem_sweep_completed_points_total 21")

	snap := o.Stats().Snapshot()
	assert.Equal(t, 21, snap.Completed)
	assert.Len(t, snap.Variants, 7)
	assert.Len(t, snap.Ranges, 3)
}

func TestRun_NonZeroExitIsRecorded(t *testing.T) {
	cfg := testConfig(t, writeScript(t, "#!/bin/sh\necho 'Running time: 7ms'\nexit 3\n"))
	cfg.Variants = []sweep.Variant{sweep.VariantOracle}
	var stdout bytes.Buffer

	o := newTestOrchestrator(cfg, &stdout, Callbacks{})
	require.NoError(t, o.Run(context.Background()))
	assert.Equal(t, 3, strings.Count(stdout.String(), "Executed in: 7 ms"))
}

// =============================================================================
// Tests: failures abort the sweep
// =============================================================================

func TestRun_ParseFailureStopsSweep(t *testing.T) {
	cfg := testConfig(t, writeScript(t, "#!/bin/sh\necho 'Finished quickly'\n"))
	var stdout bytes.Buffer
	started := 0

	o := newTestOrchestrator(cfg, &stdout, Callbacks{
		OnPointStart: func(sweep.Point, time.Time) { started++ },
	})
	err := o.Run(context.Background())
	require.Error(t, err)

	var parseErr *parser.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, err.Error(), "100_200_80000000_0")
	assert.Equal(t, 1, started)

	runDir := filepath.Join(cfg.ResultsDir, runDirName)
	assert.Equal(t, []string{"100_200_80000000_0.out"}, listArtifacts(t, runDir, ".out"))
	assert.NotContains(t, stdout.String(), "Executed in:")
	assert.Contains(t, stdout.String(), "ABORTED")

	m, err := result.ReadManifest(runDir)
	require.NoError(t, err)
	assert.Equal(t, result.StatusFailed, m.Status)
	assert.Equal(t, 0, m.CompletedPoints)
	assert.NotEmpty(t, m.Error)

	prom, err := os.ReadFile(filepath.Join(runDir, metrics.SnapshotFile))
	require.NoError(t, err)
	assert.Contains(t, string(prom), `tasksystem_sweep_failures_total{kind="parse"} 1`)
}

func TestRun_StderrStopsSweep(t *testing.T) {
	cfg := testConfig(t, writeScript(t, "#!/bin/sh\necho 'Running time: 5ms'\necho 'terminate called' >&2\n"))
	o := newTestOrchestrator(cfg, io.Discard, Callbacks{})

	err := o.Run(context.Background())
	require.Error(t, err)

	var procErr *process.ProcessError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, "stderr", procErr.Op)
	assert.Contains(t, err.Error(), "(stderr: terminate called)")
	assert.Equal(t, metrics.FailureStderr, failureKind(err))

	runDir := filepath.Join(cfg.ResultsDir, runDirName)
	assert.Equal(t, []string{"100_200_80000000_0.out"}, listArtifacts(t, runDir, ".out"))
	assert.Equal(t, []string{"100_200_80000000_0.err"}, listArtifacts(t, runDir, ".err"))

	data, err := os.ReadFile(filepath.Join(runDir, "100_200_80000000_0.err"))
	require.NoError(t, err)
	assert.Equal(t, "terminate called\n", string(data))
}

func TestRun_ExistingRunDirFailsBeforeRunning(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "ran")
	cfg := testConfig(t, writeScript(t, fmt.Sprintf("#!/bin/sh\ntouch %s\necho 'Running time: 1ms'\n", marker)))
	require.NoError(t, os.Mkdir(filepath.Join(cfg.ResultsDir, runDirName), 0o755))

	started := 0
	o := newTestOrchestrator(cfg, io.Discard, Callbacks{
		OnPointStart: func(sweep.Point, time.Time) { started++ },
	})
	err := o.Run(context.Background())
	require.Error(t, err)

	var fileErr *result.FileError
	require.ErrorAs(t, err, &fileErr)
	assert.ErrorIs(t, err, fs.ErrExist)
	assert.Equal(t, 0, started)

	_, statErr := os.Stat(marker)
	assert.True(t, os.IsNotExist(statErr), "benchmark must not run")
}

func TestRun_PreflightFailure(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "missing"))
	cfg.SkipPreflight = false
	var stdout bytes.Buffer

	o := newTestOrchestrator(cfg, &stdout, Callbacks{})
	err := o.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preflight")
	assert.Contains(t, stdout.String(), "Preflight checks:")

	_, statErr := os.Stat(filepath.Join(cfg.ResultsDir, runDirName))
	assert.True(t, os.IsNotExist(statErr), "no run directory on preflight failure")
}

func TestRun_PreflightPasses(t *testing.T) {
	cfg := testConfig(t, writeScript(t, goodScript))
	cfg.SkipPreflight = false
	cfg.Variants = []sweep.Variant{sweep.VariantMultiQueued}
	var stdout bytes.Buffer

	o := newTestOrchestrator(cfg, &stdout, Callbacks{})
	require.NoError(t, o.Run(context.Background()))
	assert.Contains(t, stdout.String(), "Preflight checks:")
	assert.Equal(t, 3, strings.Count(stdout.String(), "Executed in:"))
}

func TestRun_Timeout(t *testing.T) {
	cfg := testConfig(t, writeScript(t, "#!/bin/sh\nsleep 10\n"))
	cfg.Timeout = 200 * time.Millisecond

	o := newTestOrchestrator(cfg, io.Discard, Callbacks{})
	start := time.Now()
	err := o.Run(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 8*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, metrics.FailureProcess, failureKind(err))
}

// =============================================================================
// Tests: cancellation
// =============================================================================

func TestRun_CancelledBeforeStart(t *testing.T) {
	cfg := testConfig(t, writeScript(t, goodScript))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := newTestOrchestrator(cfg, io.Discard, Callbacks{})
	err := o.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	m, err := result.ReadManifest(filepath.Join(cfg.ResultsDir, runDirName))
	require.NoError(t, err)
	assert.Equal(t, result.StatusFailed, m.Status)
}

func TestRun_CancelDuringCooldown(t *testing.T) {
	cfg := testConfig(t, writeScript(t, goodScript))
	cfg.Cooldown = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o := newTestOrchestrator(cfg, io.Discard, Callbacks{
		OnCooldown: func(time.Duration) { cancel() },
	})
	err := o.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "cooldown interrupted")

	m, err := result.ReadManifest(filepath.Join(cfg.ResultsDir, runDirName))
	require.NoError(t, err)
	assert.Equal(t, 1, m.CompletedPoints)
}

func TestRun_CancelKillsRunningBenchmark(t *testing.T) {
	cfg := testConfig(t, writeScript(t, "#!/bin/sh\nsleep 30\n"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o := newTestOrchestrator(cfg, io.Discard, Callbacks{
		OnPointStart: func(sweep.Point, time.Time) {
			time.AfterFunc(100*time.Millisecond, cancel)
		},
	})

	start := time.Now()
	err := o.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Equal(t, metrics.FailureCanceled, failureKind(err))
}

// =============================================================================
// Tests: helpers
// =============================================================================

func TestWithStderrTail(t *testing.T) {
	base := errors.New("boom")
	assert.Same(t, base, withStderrTail(base, nil))

	h := logging.NewOutputHandler("p", "stderr", discardLogger(), false)
	assert.Same(t, base, withStderrTail(base, h), "no lines, no change")

	h.HandleOutput([]byte("a\nb\nc\nd\ne\nf\ng\n"))
	err := withStderrTail(base, h)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "boom (stderr: c | d | e | f | g)", err.Error())
}

func TestFailureKind(t *testing.T) {
	p := sweep.Point{ShortestNs: 100, LongestNs: 200, TaskCount: 1, Variant: sweep.VariantOracle}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"parse", pointError(p, &parser.ParseError{Reason: "empty output"}), metrics.FailureParse},
		{"file", pointError(p, &result.FileError{Op: "write", Path: "x", Err: fs.ErrPermission}), metrics.FailureFile},
		{"stderr", &process.ProcessError{Point: p, Op: "stderr", Err: errors.New("x")}, metrics.FailureStderr},
		{"start", &process.ProcessError{Point: p, Op: "start", Err: errors.New("x")}, metrics.FailureProcess},
		{"canceled", &process.ProcessError{Point: p, Op: "wait", Err: context.Canceled}, metrics.FailureCanceled},
		{"other", errors.New("boom"), metrics.FailureUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, failureKind(tt.err))
		})
	}
}

func TestPointError(t *testing.T) {
	p := sweep.Point{ShortestNs: 100, LongestNs: 200, TaskCount: 5, Variant: sweep.VariantStealing1}

	wrapped := pointError(p, errors.New("boom"))
	assert.Equal(t, "100_200_5_2: boom", wrapped.Error())

	procErr := &process.ProcessError{Point: p, Op: "start", Err: errors.New("boom")}
	assert.Same(t, procErr, pointError(p, procErr))
}
