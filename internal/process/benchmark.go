package process

import (
	"context"
	"os/exec"
	"strings"

	"github.com/randomizedcoder/go-tasksystem-sweep/internal/sweep"
)

// BenchmarkRunner implements Runner for the task-system benchmark executable.
// Arguments are positional: shortest_ns longest_ns task_count variant_id.
type BenchmarkRunner struct {
	binaryPath string
}

// NewBenchmarkRunner creates a runner for the executable at binaryPath.
func NewBenchmarkRunner(binaryPath string) *BenchmarkRunner {
	return &BenchmarkRunner{binaryPath: binaryPath}
}

// Name returns "benchmark".
func (r *BenchmarkRunner) Name() string {
	return "benchmark"
}

// BuildCommand creates an exec.Cmd for the point.
func (r *BenchmarkRunner) BuildCommand(ctx context.Context, point sweep.Point) (*exec.Cmd, error) {
	return exec.CommandContext(ctx, r.binaryPath, point.Args()...), nil
}

// Argv returns the full argument vector, executable first.
func (r *BenchmarkRunner) Argv(point sweep.Point) []string {
	return append([]string{r.binaryPath}, point.Args()...)
}

// CommandString returns the command that would be executed (for debugging).
func (r *BenchmarkRunner) CommandString(point sweep.Point) string {
	return strings.Join(r.Argv(point), " ")
}
