// Package process runs the external benchmark executable and captures its output.
package process

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/randomizedcoder/go-tasksystem-sweep/internal/sweep"
)

// Runner creates executable commands for sweep points.
// This interface allows the executor to be process-agnostic.
type Runner interface {
	// BuildCommand returns a ready-to-start command for the given point.
	// The command should NOT be started yet.
	BuildCommand(ctx context.Context, point sweep.Point) (*exec.Cmd, error)

	// Name returns a human-readable name for this process type.
	Name() string
}

// Result captures one execution of the benchmark for a single point.
type Result struct {
	Point     sweep.Point
	Args      []string // full argv, executable first
	Stdout    []byte
	Stderr    []byte
	ExitCode  int
	PID       int
	StartTime time.Time
	EndTime   time.Time
}

// Elapsed returns the wall-clock time the child was alive.
func (r *Result) Elapsed() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// HasStderr reports whether the child wrote anything to its error stream.
func (r *Result) HasStderr() bool {
	return len(r.Stderr) > 0
}

// ProcessError reports a failed or misbehaving benchmark execution.
type ProcessError struct {
	Point sweep.Point
	Op    string // "build", "start", "wait", "stderr"
	Err   error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("benchmark %s %s: %v", e.Point.BaseName(), e.Op, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}
