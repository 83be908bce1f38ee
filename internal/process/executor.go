package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"syscall"
	"time"

	"github.com/randomizedcoder/go-tasksystem-sweep/internal/sweep"
)

// waitDelay bounds how long Wait blocks on output pipes after the child was
// killed, in case a grandchild still holds them open.
const waitDelay = 5 * time.Second

// Executor runs benchmark commands one at a time and captures their output.
type Executor struct {
	lock    *Lock
	logger  *slog.Logger
	timeout time.Duration // 0 = no limit
}

// NewExecutor creates an executor guarded by lock.
// A nil lock gets a private one; share a lock to serialize several executors.
func NewExecutor(lock *Lock, timeout time.Duration, logger *slog.Logger) *Executor {
	if lock == nil {
		lock = NewLock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{lock: lock, logger: logger, timeout: timeout}
}

// Lock returns the benchmark lock guarding this executor.
func (e *Executor) Lock() *Lock {
	return e.lock
}

// Execute runs the point to completion and returns its captured output.
//
// Stdout and stderr are captured separately. The child always gets waited on
// before Execute returns; if ctx is cancelled the whole process group is killed.
// A non-zero exit status is reported in Result.ExitCode, not as an error.
func (e *Executor) Execute(ctx context.Context, runner Runner, point sweep.Point) (*Result, error) {
	release, err := e.lock.Acquire(ctx)
	if err != nil {
		return nil, &ProcessError{Point: point, Op: "lock", Err: err}
	}
	defer release()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd, err := runner.BuildCommand(ctx, point)
	if err != nil {
		return nil, &ProcessError{Point: point, Op: "build", Err: err}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Stdin = nil

	// Own process group, so cancellation also reaches anything the benchmark forks.
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		return killProcessGroup(cmd)
	}
	cmd.WaitDelay = waitDelay

	res := &Result{
		Point: point,
		Args:  append([]string(nil), cmd.Args...),
	}

	res.StartTime = time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &ProcessError{Point: point, Op: "start", Err: err}
	}
	res.PID = cmd.Process.Pid

	e.logger.Debug("benchmark_started",
		"runner", runner.Name(),
		"point", point.BaseName(),
		"pid", res.PID,
	)

	waitErr := cmd.Wait()
	res.EndTime = time.Now()
	res.Stdout = stdout.Bytes()
	res.Stderr = stderr.Bytes()
	res.ExitCode = extractExitCode(waitErr)

	e.logger.Debug("benchmark_exited",
		"point", point.BaseName(),
		"pid", res.PID,
		"exit_code", res.ExitCode,
		"elapsed", res.Elapsed().String(),
	)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, &ProcessError{Point: point, Op: "wait", Err: fmt.Errorf("benchmark interrupted: %w", ctxErr)}
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return res, &ProcessError{Point: point, Op: "wait", Err: waitErr}
	}

	return res, nil
}

// extractExitCode extracts the exit code from a Wait() error.
func extractExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				// Signal exit: 128 + signal number
				return 128 + int(status.Signal())
			}
			return status.ExitStatus()
		}
		return exitErr.ExitCode()
	}

	// Unknown error, assume exit code 1
	return 1
}
